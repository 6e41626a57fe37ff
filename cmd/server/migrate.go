package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations (and seed demo data in development)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.migrate(cmd.Context()); err != nil {
			return err
		}
		a.log.Info("migrations applied")
		return nil
	},
}
