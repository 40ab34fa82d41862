// Package corporate exposes the corporate data actions of a session as JSON
// documents.
//
// A [Facade] is bound to a session identifier and a machine identifier and
// delegates to a [RecordReader] (site records) and an [AuditTrail] (audit
// log), normally the [github.com/uader-fcyt/corporate/dynamodb] stores. The
// stores are created once per process and shared by every Facade.
//
// Each method returns a document with exactly one top-level field:
//
//	RecordAction    {"resultado_registro": "..."}
//	GetSiteInfo     {"datos_sede": {...}}
//	GetTaxID        {"cuit": {...}}
//	NextSequenceID  {"nuevo_id_secuencia": 7}
//	ListLogs        {"logs_por_cpu": [...]} or {"logs_por_sesion": [...]}
//
// Failures never abort the caller. A missing site becomes
// {"error": "Registro no encontrado"} and a failed store call becomes an
// error string naming the cause, placed where the result would have been
// (or at the top level for NextSequenceID and ListLogs).
package corporate
