package dynamodb

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/uader-fcyt/corporate/internal/machineid"
)

// AuditLog appends entries to the CorporateLog table and lists the entries
// written by this machine.
//
// Use [NewAuditLog] to create an AuditLog and [AuditLog.Connect] to
// initialize the underlying DynamoDB connection.
type AuditLog struct {
	table
	machineID string
}

// NewAuditLog creates an AuditLog for the given table name. The machine
// identifier is resolved here, once, from [WithMachineID] or from the host.
// Call [AuditLog.Connect] on the returned log before use.
func NewAuditLog(awsCfg *aws.Config, tableName string, opts ...Option) *AuditLog {
	options := newOptions()

	for _, o := range opts {
		o(options)
	}

	machineID := options.machineID
	if machineID == "" {
		machineID = machineid.Get()
	}

	return &AuditLog{
		table: table{
			awsCfg:    awsCfg,
			tableName: tableName,
			opts:      options,
		},
		machineID: machineID,
	}
}

// MachineID returns the machine identifier stamped on every appended entry.
func (l *AuditLog) MachineID() string {
	return l.machineID
}

// Append writes a new entry for the given session. Every call creates a new
// row with a freshly generated ID, even for a session that already has
// entries.
func (l *AuditLog) Append(ctx context.Context, sessionID string) (*LogEntry, error) {
	if sessionID == "" {
		return nil, errors.New("session ID cannot be empty")
	}

	entry := &LogEntry{
		ID:        l.opts.newID(),
		MachineID: l.machineID,
		SessionID: sessionID,
		Timestamp: FormatTimestamp(l.opts.clock()),
	}

	input := &dynamodb.PutItemInput{
		TableName: &l.tableName,
		Item: map[string]dynamodbtypes.AttributeValue{
			KeyAttr:       &dynamodbtypes.AttributeValueMemberS{Value: entry.ID},
			MachineIDAttr: &dynamodbtypes.AttributeValueMemberS{Value: entry.MachineID},
			SessionIDAttr: &dynamodbtypes.AttributeValueMemberS{Value: entry.SessionID},
			TimestampAttr: &dynamodbtypes.AttributeValueMemberS{Value: entry.Timestamp},
		},
	}

	if _, err := l.client.PutItem(ctx, input); err != nil {
		return nil, &StoreError{Op: "put item", Table: l.tableName, Err: err}
	}

	l.opts.logger.WithField("entry_id", entry.ID).WithField("session_id", sessionID).Debug("Audit log entry written")

	return entry, nil
}

// List returns every entry written by this machine. It scans the whole table
// with a server-side filter on the machine identifier, following pagination
// until the table is exhausted. Entries are returned in the order the scan
// yields them, which DynamoDB does not define. Returns an empty slice if no
// entries match.
func (l *AuditLog) List(ctx context.Context) ([]LogEntry, error) {
	input := &dynamodb.ScanInput{
		TableName:        &l.tableName,
		FilterExpression: aws.String(MachineIDAttr + " = :cpu"),
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":cpu": &dynamodbtypes.AttributeValueMemberS{Value: l.machineID},
		},
	}

	entries := []LogEntry{}
	pages := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		output, err := l.client.Scan(ctx, input)
		if err != nil {
			return nil, &StoreError{Op: "scan", Table: l.tableName, Err: err}
		}

		pages++

		for _, item := range output.Items {
			entries = append(entries, LogEntry{
				ID:        getStringValue(item[KeyAttr]),
				MachineID: getStringValue(item[MachineIDAttr]),
				SessionID: getStringValue(item[SessionIDAttr]),
				Timestamp: getStringValue(item[TimestampAttr]),
			})
		}

		if output.LastEvaluatedKey == nil {
			break
		}

		input.ExclusiveStartKey = output.LastEvaluatedKey
	}

	logger := l.opts.logger.WithField("count", len(entries)).WithField("pages", pages)

	if l.opts.scanWarnThreshold > 0 && len(entries) > l.opts.scanWarnThreshold {
		logger.Infof("Listing audit log entries scanned the whole %s table; consider an index on %s", l.tableName, MachineIDAttr)
	} else {
		logger.Debug("Audit log entries listed")
	}

	return entries, nil
}
