package dynamodb

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ErrSequenceConflict is returned by [RecordStore.AllocateSequence] when
// atomic sequences are enabled and another writer changed the counter between
// the read and the write.
var ErrSequenceConflict = errors.New("sequence counter was modified concurrently")

// StoreError reports a DynamoDB request that failed or was rejected.
type StoreError struct {
	Op    string
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("failed to %s in DynamoDB table %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Code returns the AWS error code of the underlying failure, or an empty
// string if the failure did not come from the service.
func (e *StoreError) Code() string {
	var apiErr smithy.APIError
	if errors.As(e.Err, &apiErr) {
		return apiErr.ErrorCode()
	}

	return ""
}
