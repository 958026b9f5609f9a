package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/autofill-core/internal/infrastructure/database"
	"github.com/nerrad567/autofill-core/migrations"
)

func newMigrateCmd(opts *options) *cobra.Command {
	var status, down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or list database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if status && down {
				return fmt.Errorf("--status and --down are mutually exclusive")
			}
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			db, err := database.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer closeWithLog(log, "database", db.Close)

			m := db.NewMigrator(migrations.FS, ".")
			out := cmd.OutOrStdout()
			switch {
			case down:
				if err := m.Down(cmd.Context()); err != nil {
					return fmt.Errorf("rolling back: %w", err)
				}
				fmt.Fprintln(out, "rolled back latest migration")
			case status:
				applied, pending, err := m.Status(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tSTATE\tDETAIL")
				for _, r := range applied {
					fmt.Fprintf(tw, "%s\tapplied\t%s\n", r.Version, r.AppliedAt.Format(time.RFC3339))
				}
				for _, p := range pending {
					fmt.Fprintf(tw, "%s\tpending\t%s\n", p.Version, p.Name)
				}
				return tw.Flush()
			default:
				n, err := m.Up(cmd.Context())
				if err != nil {
					return fmt.Errorf("running migrations: %w", err)
				}
				fmt.Fprintf(out, "applied %d migration(s)\n", n)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "list applied and pending migrations")
	cmd.Flags().BoolVar(&down, "down", false, "roll back the latest applied migration")
	return cmd
}
