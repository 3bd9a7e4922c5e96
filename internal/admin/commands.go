package admin

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree. open is called once before any
// subcommand runs and the App it returns is closed afterwards.
func NewRootCmd(open func(cmd *cobra.Command, configDir string) (*App, error)) *cobra.Command {
	var (
		configDir string
		app       *App
	)
	root := &cobra.Command{
		Use:   "undeletable",
		Short: "Inspect and maintain soft-deletable tables",
		Long: `undeletable manages rows that are marked deleted instead of removed:
restore them, purge old ones for good, or report how many are hidden.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			app, err = open(cmd, configDir)
			return err
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if app == nil {
				return nil
			}
			return app.Close()
		},
	}
	root.PersistentFlags().StringVarP(&configDir, "config", "c", ".", "directory holding undeletable.yaml")

	current := func() *App { return app }
	root.AddCommand(newMigrateCmd(current))
	root.AddCommand(newDeleteCmd(current))
	root.AddCommand(newUndeleteCmd(current))
	root.AddCommand(newConcealCmd(current, true))
	root.AddCommand(newConcealCmd(current, false))
	root.AddCommand(newPurgeCmd(current))
	root.AddCommand(newStatsCmd(current))
	return root
}

func newMigrateCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the table and its partial indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app().Migrate(cmd.Context()); err != nil {
				return err
			}
			cmd.Printf("table %s ready\n", app().Table)
			return nil
		},
	}
}

func newDeleteCmd(app func() *App) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete a record, or remove it with --force",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := SetDeleted(cmd.Context(), app().Records, args[0], true, force); err != nil {
				return err
			}
			cmd.Printf("%s deleted\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "remove the row permanently")
	return cmd
}

func newUndeleteCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "undelete <id>",
		Short: "Restore a soft-deleted record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := SetDeleted(cmd.Context(), app().Records, args[0], false, false); err != nil {
				return err
			}
			cmd.Printf("%s restored\n", args[0])
			return nil
		},
	}
}

func newConcealCmd(app func() *App, conceal bool) *cobra.Command {
	use, short := "reveal <id>", "Make a concealed record public again"
	if conceal {
		use, short = "conceal <id>", "Hide a record from public listings"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := SetConcealed(cmd.Context(), app().Records, args[0], conceal)
			if err != nil {
				return err
			}
			cmd.Printf("%d record(s) changed\n", n)
			return nil
		},
	}
}

func newPurgeCmd(app func() *App) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Permanently remove records soft-deleted before a cutoff",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			n, err := Purge(cmd.Context(), app().Records, time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			cmd.Printf("%d record(s) purged\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "minimum time since deletion")
	return cmd
}

func newStatsCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print row counts per visibility state as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := CollectStats(cmd.Context(), app().Records)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}
