package dynamodb

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/slackmgr/types"

	"github.com/uader-fcyt/corporate/internal/logging"
)

// Option is a functional option for configuring a [RecordStore] or an
// [AuditLog].
type Option func(*Options)

// Options holds the configuration shared by [RecordStore] and [AuditLog].
// Options that only affect one of them are ignored by the other.
type Options struct {
	dynamoDBAPI       API
	endpoint          string
	maxRetryAttempts  int
	atomicSequence    bool
	machineID         string
	scanWarnThreshold int
	clock             func() time.Time
	newID             func() string
	logger            types.Logger
}

func newOptions() *Options {
	return &Options{
		scanWarnThreshold: 1000,
		clock:             time.Now,
		newID:             uuid.NewString,
		logger:            logging.Discard(),
	}
}

func (o *Options) validate() error {
	if o.maxRetryAttempts < 0 || o.maxRetryAttempts > 10 {
		return errors.New("max DynamoDB API retry attempts must be between 0 and 10")
	}

	if o.scanWarnThreshold < 0 {
		return errors.New("scan warn threshold cannot be negative")
	}

	if o.clock == nil {
		return errors.New("clock cannot be nil")
	}

	if o.newID == nil {
		return errors.New("ID generator cannot be nil")
	}

	if o.logger == nil {
		return errors.New("logger cannot be nil")
	}

	return nil
}

// WithAPI sets a custom [API] implementation. This is useful when a custom
// DynamoDB configuration is required, or for injecting mocks in tests.
func WithAPI(api API) Option {
	return func(o *Options) {
		o.dynamoDBAPI = api
	}
}

// WithEndpoint overrides the DynamoDB endpoint URL, e.g. to target DynamoDB
// Local. Ignored when [WithAPI] is used.
func WithEndpoint(url string) Option {
	return func(o *Options) {
		o.endpoint = url
	}
}

// WithMaxRetryAttempts caps the number of attempts made by the SDK retryer.
// Zero keeps the SDK default. Must be between 0 and 10.
func WithMaxRetryAttempts(attempts int) Option {
	return func(o *Options) {
		o.maxRetryAttempts = attempts
	}
}

// WithAtomicSequence makes [RecordStore.AllocateSequence] write the new
// value with a compare-and-swap condition. A concurrent allocation that
// loses the race fails with [ErrSequenceConflict] instead of silently
// overwriting the winner. Disabled by default.
func WithAtomicSequence(enabled bool) Option {
	return func(o *Options) {
		o.atomicSequence = enabled
	}
}

// WithMachineID sets the machine identifier written to and filtered on by
// [AuditLog]. Defaults to the host hardware address (see package machineid).
func WithMachineID(id string) Option {
	return func(o *Options) {
		o.machineID = id
	}
}

// WithScanWarnThreshold sets the number of listed log entries above which
// [AuditLog.List] logs a warning about the cost of the full table scan.
// Zero disables the warning. The default is 1000.
func WithScanWarnThreshold(n int) Option {
	return func(o *Options) {
		o.scanWarnThreshold = n
	}
}

// WithClock sets a custom clock function used to timestamp log entries.
// Defaults to [time.Now]. This is useful for controlling time in tests.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		o.clock = clock
	}
}

// WithIDGenerator sets the function generating log entry IDs. Defaults to
// random (version 4) UUIDs.
func WithIDGenerator(newID func() string) Option {
	return func(o *Options) {
		o.newID = newID
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger types.Logger) Option {
	return func(o *Options) {
		o.logger = logger
	}
}
