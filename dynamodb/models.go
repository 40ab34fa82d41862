package dynamodb

import "time"

const (
	// DataTableName is the default name of the site records table.
	DataTableName = "CorporateData"

	// LogTableName is the default name of the audit log table.
	LogTableName = "CorporateLog"

	// KeyAttr is the partition key attribute of both tables.
	KeyAttr = "id"

	SedeAttr      = "sede"
	DomicilioAttr = "domicilio"
	LocalidadAttr = "localidad"
	ProvinciaAttr = "provincia"
	CUITAttr      = "CUIT"

	// SequenceAttr holds the per-site request counter. A missing attribute
	// counts as zero.
	SequenceAttr = "idreq"

	MachineIDAttr = "CPUid"
	SessionIDAttr = "sessionid"
	TimestampAttr = "timestamp"

	// TimestampLayout formats log entry timestamps: local time with
	// microseconds and no zone offset.
	TimestampLayout = "2006-01-02T15:04:05.000000"

	// TimestampLayoutSeconds is used instead of TimestampLayout when the
	// microsecond part is zero.
	TimestampLayoutSeconds = "2006-01-02T15:04:05"
)

// FormatTimestamp renders t for the timestamp attribute. The fractional part
// is omitted when it has no whole microseconds, the same shape existing
// entries written by other clients have.
func FormatTimestamp(t time.Time) string {
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format(TimestampLayoutSeconds)
	}

	return t.Format(TimestampLayout)
}

// SiteInfo holds the descriptive fields of a site record.
type SiteInfo struct {
	Sede      string `json:"sede"`
	Domicilio string `json:"domicilio"`
	Localidad string `json:"localidad"`
	Provincia string `json:"provincia"`
}

// TaxID holds the tax identifier of a site record.
type TaxID struct {
	CUIT string `json:"CUIT"`
}

// Sequence is the value allocated by [RecordStore.AllocateSequence].
type Sequence struct {
	Value int64 `json:"idSeq"`
}

// LogEntry is one row of the audit log table.
type LogEntry struct {
	ID        string `json:"id"`
	MachineID string `json:"CPUid"`
	SessionID string `json:"sessionid"`
	Timestamp string `json:"timestamp"`
}
