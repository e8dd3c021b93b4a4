package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/commission-staging/internal/staging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply staging schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := stagingPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := staging.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "migrate")
		}

		fmt.Println("Migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
