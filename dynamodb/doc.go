// Package dynamodb provides DynamoDB-backed access to the corporate site
// records and to the audit log.
//
// # Overview
//
// Two tables are used, each keyed by a string partition key "id":
//
//   - CorporateData: one item per site: sede, domicilio, localidad,
//     provincia, CUIT and the numeric request counter idreq.
//   - CorporateLog: one item per audit entry: CPUid, sessionid and
//     timestamp.
//
// [RecordStore] wraps CorporateData and [AuditLog] wraps CorporateLog. Each
// owns its own DynamoDB client handle. Construct one of each per process and
// share them.
//
// # Getting Started
//
// Create the stores with [NewRecordStore] and [NewAuditLog], supplying an AWS
// config, the table name, and any [Option] values you need, then call
// Connect:
//
//	records := dynamodb.NewRecordStore(&awsCfg, dynamodb.DataTableName)
//	if err := records.Connect(); err != nil {
//	    return err
//	}
//
//	logs := dynamodb.NewAuditLog(&awsCfg, dynamodb.LogTableName,
//	    dynamodb.WithMachineID(machineID),
//	)
//	if err := logs.Connect(); err != nil {
//	    return err
//	}
//
// By default, Connect creates an AWS SDK v2 DynamoDB client from the supplied
// [aws.Config]. Supply [WithAPI] to inject a custom or mock implementation.
//
// # Missing records
//
// Lookups of a site that does not exist return a nil result and a nil error.
// Failed requests return a [*StoreError] wrapping the SDK error.
//
// # Sequence allocation
//
// [RecordStore.AllocateSequence] is a read followed by a write. Without
// [WithAtomicSequence] concurrent allocations for the same site can lose
// increments; with it, the losing writer gets [ErrSequenceConflict].
package dynamodb
