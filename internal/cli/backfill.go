package cli

import (
	"fmt"

	"foodconnect/internal/app"
	"foodconnect/internal/statemachine"

	"github.com/spf13/cobra"
)

// NewBackfillCommand creates the backfill-status command.
func NewBackfillCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-status",
		Short: "Give accounts without a status one",
		Long: `Set a status on accounts that were written without one. Admins become
approved, everyone else pending. Accounts that already have a status
are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rootOpts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			a := app.New(store.Repos, nil, store.Ping)
			n, err := a.Accounts.BackfillStatuses(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "accounts updated: %d\n", n)
			return nil
		},
	}
}

// NewStatesCommand creates the states command.
func NewStatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "states",
		Short: "Print the post and account transition tables as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := statemachine.DescribeJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
