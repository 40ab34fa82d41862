// Package cli implements the corporate command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/uader-fcyt/corporate/corporate"
	"github.com/uader-fcyt/corporate/dynamodb"
	"github.com/uader-fcyt/corporate/internal/config"
	"github.com/uader-fcyt/corporate/internal/logging"
)

// DefaultSiteID is the site used by the demo command when none is given.
const DefaultSiteID = "UADER-FCyT-IS2"

// Actions is the facade surface used by the commands. It is implemented by
// [*corporate.Facade].
type Actions interface {
	SessionID() string
	MachineID() string
	RecordAction(ctx context.Context) string
	GetSiteInfo(ctx context.Context, siteID string) string
	GetTaxID(ctx context.Context, siteID string) string
	NextSequenceID(ctx context.Context, siteID string) string
	ListLogs(ctx context.Context, filter corporate.LogFilter) string
}

// SchemaChecker validates the schema of one table.
type SchemaChecker interface {
	TableName() string
	Init(ctx context.Context, skipSchemaValidation bool) error
}

// Session is what a command runs against: the facade, the stores behind it,
// and the per-command timeout.
type Session struct {
	Actions Actions
	Tables  []SchemaChecker
	Timeout time.Duration
}

// Connector builds a Session from the global flags.
type Connector func(ctx context.Context, opts *RootOptions) (*Session, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	SessionID  string

	connect Connector
}

// NewRootCommand creates the root command connected to DynamoDB.
func NewRootCommand() *cobra.Command {
	return newRootCommand(Connect)
}

func newRootCommand(connect Connector) *cobra.Command {
	opts := &RootOptions{connect: connect}

	cmd := &cobra.Command{
		Use:   "corporate",
		Short: "Corporate site data and audit log",
		Long: `Query corporate site records and the audit log stored in DynamoDB.

Every command prints a JSON document. AWS credentials are taken from the
environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default $"+config.EnvConfigPath+" or ~/.config/corporate/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.SessionID, "session", "", "session ID (default: a new random UUID)")

	cmd.AddCommand(newDemoCommand(opts))
	cmd.AddCommand(newLogCommand(opts))
	cmd.AddCommand(newSiteCommand(opts))
	cmd.AddCommand(newCUITCommand(opts))
	cmd.AddCommand(newNextSeqCommand(opts))
	cmd.AddCommand(newLogsCommand(opts))
	cmd.AddCommand(newCheckCommand(opts))

	return cmd
}

// Connect loads the configuration, builds one RecordStore and one AuditLog,
// and binds them to a new facade.
func Connect(ctx context.Context, opts *RootOptions) (*Session, error) {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	slogger := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	logger := logging.NewAdapter(slogger)

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.AWS.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWS.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	storeOpts := []dynamodb.Option{
		dynamodb.WithEndpoint(cfg.AWS.Endpoint),
		dynamodb.WithMaxRetryAttempts(cfg.AWS.MaxRetryAttempts),
		dynamodb.WithAtomicSequence(cfg.Sequence.Atomic),
		dynamodb.WithMachineID(cfg.MachineID),
		dynamodb.WithLogger(logger),
	}

	records := dynamodb.NewRecordStore(&awsCfg, cfg.Tables.Data, storeOpts...)
	if err := records.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Tables.Data, err)
	}

	logs := dynamodb.NewAuditLog(&awsCfg, cfg.Tables.Log, storeOpts...)
	if err := logs.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Tables.Log, err)
	}

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	slogger.Debug("session started", "session_id", sessionID, "machine_id", logs.MachineID())

	return &Session{
		Actions: corporate.New(sessionID, logs.MachineID(), records, logs, corporate.WithLogger(logger)),
		Tables:  []SchemaChecker{records, logs},
		Timeout: cfg.AWS.RequestTimeout,
	}, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.LoadOrDefault(config.Path())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}

// run connects a session and calls fn with a context bounded by the
// configured timeout.
func run(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, s *Session) error) error {
	if opts.connect == nil {
		return errors.New("no connector configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := opts.connect(ctx, opts)
	if err != nil {
		return err
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	return fn(ctx, s)
}
