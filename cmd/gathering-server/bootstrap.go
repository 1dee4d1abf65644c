package main

import (
	"github.com/spf13/cobra"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create or migrate the schema, seed events and reconcile the admin, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := prepare(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.store.Close()

		deps.logger.Info().Str("database", deps.cfg.DatabasePath).Msg("bootstrap complete")
		return nil
	},
}
