package main

import (
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/commission-staging/internal/model"
	"github.com/sells-group/commission-staging/internal/staging"
	"github.com/sells-group/commission-staging/internal/synth"
)

var synthRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the synthesis batch and stage the output",
	Long: `Run the full synthesis batch: load the flat certificate splits,
derive proposals and payout hierarchies, quarantine anomalies, reconcile
temporal coverage, and truncate-and-load the commission_stage tables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "synth.run"))

		pool, err := stagingPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		// Ensure migrations are current.
		if err := staging.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "synth run: migrate")
		}

		runs, err := openRunLog(pool)
		if err != nil {
			return err
		}
		defer runs.Close()

		runID, err := runs.Start(ctx, cfg.Source.Driver)
		if err != nil {
			return eris.Wrap(err, "synth run: start run log")
		}

		result, rows, err := executeBatch(cmd, pool)
		if err != nil {
			if failErr := runs.Fail(ctx, runID, err.Error()); failErr != nil {
				log.Warn("failed to record run failure", zap.Error(failErr))
			}
			return err
		}

		if err := runs.Complete(ctx, runID, map[string]any{
			"certificates":  result.Stats.Certificates,
			"accepted":      result.Stats.Accepted,
			"quarantined":   result.Stats.Quarantined,
			"proposals":     result.Stats.Proposals,
			"continuations": result.Stats.Continuations,
			"reassignments": result.Stats.Reassignments,
			"warnings":      result.Stats.Warnings,
			"staged_rows":   rows,
		}); err != nil {
			return eris.Wrap(err, "synth run: complete run log")
		}

		printStats(result.Stats, rows)
		return nil
	},
}

func init() {
	synthCmd.AddCommand(synthRunCmd)
}

// executeBatch loads input, runs the pipeline, and writes the output set.
func executeBatch(cmd *cobra.Command, pool *pgxpool.Pool) (*synth.Result, int64, error) {
	ctx := cmd.Context()

	records, lookups, err := loadInputs(ctx, pool)
	if err != nil {
		return nil, 0, err
	}

	result, err := synth.Run(ctx, records, lookups, synthConfig())
	if err != nil {
		return nil, 0, eris.Wrap(err, "synth run")
	}

	rows, err := staging.NewWriter(pool).Write(ctx, result.Output)
	if err != nil {
		return nil, 0, eris.Wrap(err, "synth run: stage output")
	}

	return result, rows, nil
}

func printStats(stats synth.Stats, rows int64) {
	fmt.Println("Synthesis complete")
	fmt.Printf("  certificates:  %d\n", stats.Certificates)
	fmt.Printf("  accepted:      %d\n", stats.Accepted)
	fmt.Printf("  quarantined:   %d\n", stats.Quarantined)
	reasons := make([]string, 0, len(stats.ByReason))
	for reason := range stats.ByReason {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Printf("    %-22s %d\n", reason+":", stats.ByReason[model.QuarantineReason(reason)])
	}
	fmt.Printf("  proposals:     %d\n", stats.Proposals)
	fmt.Printf("  continuations: %d\n", stats.Continuations)
	fmt.Printf("  reassignments: %d\n", stats.Reassignments)
	fmt.Printf("  warnings:      %d\n", stats.Warnings)
	fmt.Printf("  staged rows:   %d\n", rows)
}
