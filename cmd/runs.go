package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/commission-staging/internal/runlog"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List batch runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var runs runlog.Log
		if cfg.Store.Driver == "postgres" {
			pool, err := stagingPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			runs = runlog.NewPostgres(pool)
		} else {
			var err error
			runs, err = openRunLog(nil)
			if err != nil {
				return err
			}
			defer runs.Close()
		}

		entries, err := runs.List(ctx)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No runs recorded")
			return nil
		}

		fmt.Printf("%-38s %-10s %-10s %-22s %s\n", "ID", "SOURCE", "STATUS", "STARTED", "COMPLETED")
		for _, e := range entries {
			completed := "-"
			if e.CompletedAt != nil {
				completed = e.CompletedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-38s %-10s %-10s %-22s %s\n",
				e.ID, e.Source, e.Status,
				e.StartedAt.Format("2006-01-02 15:04:05"), completed,
			)
			if e.Error != "" {
				fmt.Printf("    error: %s\n", e.Error)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}
