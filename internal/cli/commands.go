package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uader-fcyt/corporate/corporate"
)

func newDemoCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "demo [site-id]",
		Short: "Run every action once against a site",
		Long: `Record an action, read the site data and CUIT, allocate a sequence ID and
list the audit log by machine and by session.

The site defaults to ` + DefaultSiteID + `.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID := DefaultSiteID
			if len(args) == 1 {
				siteID = args[0]
			}

			return run(cmd, opts, func(ctx context.Context, s *Session) error {
				return runDemo(ctx, cmd, s.Actions, siteID)
			})
		},
	}
}

func runDemo(ctx context.Context, cmd *cobra.Command, a Actions, siteID string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "\nRegistrando acción en CorporateLog...")
	fmt.Fprintln(out, a.RecordAction(ctx))

	fmt.Fprintln(out, "\nConsultando datos de la sede en CorporateData...")
	fmt.Fprintln(out, a.GetSiteInfo(ctx, siteID))

	fmt.Fprintln(out, "\nConsultando el CUIT de la sede en CorporateData...")
	fmt.Fprintln(out, a.GetTaxID(ctx, siteID))

	fmt.Fprintln(out, "\nGenerando un nuevo ID de secuencia en CorporateData...")
	fmt.Fprintln(out, a.NextSequenceID(ctx, siteID))

	fmt.Fprintln(out, "\nRegistros asociados al CPU actual:")
	fmt.Fprintln(out, a.ListLogs(ctx, corporate.FilterCPU))

	fmt.Fprintln(out, "\nRegistros asociados a la sesión actual:")
	fmt.Fprintln(out, a.ListLogs(ctx, corporate.FilterSession))

	return nil
}

func newLogCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Record an action in the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, func(ctx context.Context, s *Session) error {
				fmt.Fprintln(cmd.OutOrStdout(), s.Actions.RecordAction(ctx))
				return nil
			})
		},
	}
}

func newSiteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "site <site-id>",
		Short: "Show the data of a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, s *Session) error {
				fmt.Fprintln(cmd.OutOrStdout(), s.Actions.GetSiteInfo(ctx, args[0]))
				return nil
			})
		},
	}
}

func newCUITCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cuit <site-id>",
		Short: "Show the CUIT of a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, s *Session) error {
				fmt.Fprintln(cmd.OutOrStdout(), s.Actions.GetTaxID(ctx, args[0]))
				return nil
			})
		},
	}
}

func newNextSeqCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "next-seq <site-id>",
		Short: "Allocate the next request sequence ID of a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, s *Session) error {
				fmt.Fprintln(cmd.OutOrStdout(), s.Actions.NextSequenceID(ctx, args[0]))
				return nil
			})
		},
	}
}

func newLogsCommand(opts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List the audit log entries of this machine",
		Long: `List the audit log entries written by this machine.

With --filter session only the entries of the current session (see
--session) are listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, func(ctx context.Context, s *Session) error {
				fmt.Fprintln(cmd.OutOrStdout(), s.Actions.ListLogs(ctx, corporate.LogFilter(filter)))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&filter, "filter", string(corporate.FilterCPU), "cpu or session")

	return cmd
}

func newCheckCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the schema of both tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, func(ctx context.Context, s *Session) error {
				for _, t := range s.Tables {
					if err := t.Init(ctx, false); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", t.TableName())
				}
				return nil
			})
		},
	}
}
