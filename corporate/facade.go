package corporate

import (
	"context"
	"encoding/json"

	"github.com/slackmgr/types"

	"github.com/uader-fcyt/corporate/dynamodb"
	"github.com/uader-fcyt/corporate/internal/logging"
)

// Messages embedded in the response envelopes.
const (
	MsgLogSaved       = "Registro guardado correctamente en DynamoDB."
	MsgNotFound       = "Registro no encontrado"
	MsgInvalidFilter  = "Filtro no válido. Use 'cpu' o 'session'."
	msgLogSaveFailed  = "Error al guardar el registro en DynamoDB: "
	msgStoreFailed    = "Error al acceder a la base de datos: "
	msgLogListFailed  = "Error al listar los registros en DynamoDB: "
	msgEncodingFailed = "Error al serializar la respuesta: "
)

// LogFilter selects which audit log entries [Facade.ListLogs] returns.
type LogFilter string

const (
	// FilterCPU selects every entry written by this machine.
	FilterCPU LogFilter = "cpu"

	// FilterSession selects the entries written by this machine for the
	// facade's session.
	FilterSession LogFilter = "session"
)

// RecordReader is the site record access used by the [Facade]. It is
// implemented by [*dynamodb.RecordStore].
type RecordReader interface {
	FetchSiteInfo(ctx context.Context, id string) (*dynamodb.SiteInfo, error)
	FetchTaxID(ctx context.Context, id string) (*dynamodb.TaxID, error)
	AllocateSequence(ctx context.Context, id string) (*dynamodb.Sequence, error)
}

// AuditTrail is the audit log access used by the [Facade]. It is implemented
// by [*dynamodb.AuditLog].
type AuditTrail interface {
	Append(ctx context.Context, sessionID string) (*dynamodb.LogEntry, error)
	List(ctx context.Context) ([]dynamodb.LogEntry, error)
}

// Option is a functional option for configuring a [Facade].
type Option func(*Facade)

// WithLogger sets the logger used to report failed store calls. The default
// discards everything.
func WithLogger(logger types.Logger) Option {
	return func(f *Facade) {
		f.logger = logger
	}
}

// Facade binds a session and a machine to the shared stores and exposes the
// user-facing actions. Every method returns a JSON document with a single
// top-level field; failures are reported inside the document, never as a Go
// error.
type Facade struct {
	sessionID string
	machineID string
	records   RecordReader
	logs      AuditTrail
	logger    types.Logger
}

// New creates a Facade for the given session and machine. The stores are
// shared: pass the same instances to every Facade in the process.
//
// The cpu filter lists whatever logs.List returns, so machineID must be the
// machine the audit trail scopes its entries to. When machineID is empty it
// is taken from logs if logs has a MachineID method, as [*dynamodb.AuditLog]
// does.
func New(sessionID, machineID string, records RecordReader, logs AuditTrail, opts ...Option) *Facade {
	if machineID == "" {
		if m, ok := logs.(interface{ MachineID() string }); ok {
			machineID = m.MachineID()
		}
	}

	f := &Facade{
		sessionID: sessionID,
		machineID: machineID,
		records:   records,
		logs:      logs,
		logger:    logging.Discard(),
	}

	for _, o := range opts {
		o(f)
	}

	f.logger = f.logger.WithField("session_id", sessionID).WithField("machine_id", machineID)

	return f
}

// SessionID returns the session bound to the facade.
func (f *Facade) SessionID() string {
	return f.sessionID
}

// MachineID returns the machine bound to the facade.
func (f *Facade) MachineID() string {
	return f.machineID
}

// RecordAction appends an audit log entry for the session.
//
//	{"resultado_registro": "Registro guardado correctamente en DynamoDB."}
func (f *Facade) RecordAction(ctx context.Context) string {
	result := MsgLogSaved

	if _, err := f.logs.Append(ctx, f.sessionID); err != nil {
		f.logger.Errorf("Failed to record action: %v", err)
		result = msgLogSaveFailed + err.Error()
	}

	return encode(struct {
		Result string `json:"resultado_registro"`
	}{result})
}

// GetSiteInfo returns the descriptive fields of a site.
//
//	{"datos_sede": {"sede": "...", "domicilio": "...", "localidad": "...", "provincia": "..."}}
func (f *Facade) GetSiteInfo(ctx context.Context, siteID string) string {
	var data any

	info, err := f.records.FetchSiteInfo(ctx, siteID)

	switch {
	case err != nil:
		f.logger.WithField("site_id", siteID).Errorf("Failed to fetch site info: %v", err)
		data = storeFailure(err)
	case info == nil:
		data = notFound()
	default:
		data = info
	}

	return encode(struct {
		SiteData any `json:"datos_sede"`
	}{data})
}

// GetTaxID returns the CUIT of a site.
//
//	{"cuit": {"CUIT": "..."}}
func (f *Facade) GetTaxID(ctx context.Context, siteID string) string {
	var data any

	taxID, err := f.records.FetchTaxID(ctx, siteID)

	switch {
	case err != nil:
		f.logger.WithField("site_id", siteID).Errorf("Failed to fetch tax ID: %v", err)
		data = storeFailure(err)
	case taxID == nil:
		data = notFound()
	default:
		data = taxID
	}

	return encode(struct {
		CUIT any `json:"cuit"`
	}{data})
}

// NextSequenceID allocates the next request sequence number of a site.
//
//	{"nuevo_id_secuencia": 6}
//
// When the site does not exist or the allocation fails, the document holds a
// top-level error field instead.
func (f *Facade) NextSequenceID(ctx context.Context, siteID string) string {
	seq, err := f.records.AllocateSequence(ctx, siteID)

	switch {
	case err != nil:
		f.logger.WithField("site_id", siteID).Errorf("Failed to allocate sequence: %v", err)
		return encode(storeFailure(err))
	case seq == nil:
		return encode(notFound())
	}

	return encode(struct {
		NewSequenceID int64 `json:"nuevo_id_secuencia"`
	}{seq.Value})
}

// ListLogs lists the audit log entries of this machine, optionally narrowed
// to the facade's session. An unknown filter is reported without reading the
// log.
//
//	{"logs_por_cpu": [...]}
//	{"logs_por_sesion": [...]}
func (f *Facade) ListLogs(ctx context.Context, filter LogFilter) string {
	if filter != FilterCPU && filter != FilterSession {
		return encode(errorBody{Error: MsgInvalidFilter})
	}

	entries, err := f.logs.List(ctx)
	if err != nil {
		f.logger.WithField("filter", string(filter)).Errorf("Failed to list logs: %v", err)
		return encode(errorBody{Error: msgLogListFailed + err.Error()})
	}

	if filter == FilterCPU {
		return encodeIndent(struct {
			Logs []dynamodb.LogEntry `json:"logs_por_cpu"`
		}{entries})
	}

	return encodeIndent(struct {
		Logs []dynamodb.LogEntry `json:"logs_por_sesion"`
	}{FilterBySession(entries, f.sessionID)})
}

// FilterBySession returns the entries whose session ID equals sessionID, in
// their original order. The result is never nil.
func FilterBySession(entries []dynamodb.LogEntry, sessionID string) []dynamodb.LogEntry {
	filtered := make([]dynamodb.LogEntry, 0, len(entries))

	for _, entry := range entries {
		if entry.SessionID == sessionID {
			filtered = append(filtered, entry)
		}
	}

	return filtered
}

type errorBody struct {
	Error string `json:"error"`
}

func notFound() errorBody {
	return errorBody{Error: MsgNotFound}
}

func storeFailure(err error) errorBody {
	return errorBody{Error: msgStoreFailed + err.Error()}
}

func encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return encodingFailure(err)
	}

	return string(data)
}

func encodeIndent(v any) string {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return encodingFailure(err)
	}

	return string(data)
}

func encodingFailure(err error) string {
	data, _ := json.Marshal(errorBody{Error: msgEncodingFailed + err.Error()})
	return string(data)
}
