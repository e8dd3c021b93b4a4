package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/commission-staging/internal/loader"
	"github.com/sells-group/commission-staging/internal/model"
	"github.com/sells-group/commission-staging/internal/runlog"
	"github.com/sells-group/commission-staging/internal/synth"
)

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Commission data synthesis",
	Long:  "Extracts selection criteria from flat certificate splits, routes anomalies to quarantine, aggregates proposals, reconciles temporal ranges, and generates staging output.",
}

func init() {
	rootCmd.AddCommand(synthCmd)
}

// stagingPool creates a pgxpool.Pool for the staging database.
func stagingPool(ctx context.Context) (*pgxpool.Pool, error) {
	dsn := cfg.Store.DatabaseURL
	if dsn == "" {
		return nil, eris.New("synth: no database_url configured (set store.database_url)")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "synth: create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "synth: ping database")
	}

	fmt.Println("Connected to database")
	return pool, nil
}

// optionalPool opens the staging pool only when the source driver needs it.
func optionalPool(cmd *cobra.Command) (*pgxpool.Pool, error) {
	if cfg.Source.Driver != "postgres" {
		return nil, nil
	}
	return stagingPool(cmd.Context())
}

// buildLoader constructs the record loader configured in source.driver.
// Postgres sources share the staging pool; file sources read from source.path.
func buildLoader(pool *pgxpool.Pool) (loader.Loader, error) {
	switch cfg.Source.Driver {
	case "postgres":
		if pool == nil {
			return nil, eris.New("synth: postgres source requires store.database_url")
		}
		return loader.NewPostgres(pool, cfg.Source.Table), nil
	case "csv":
		if cfg.Source.Path == "" {
			return nil, eris.New("synth: csv source requires source.path")
		}
		return loader.NewCSV(cfg.Source.Path), nil
	case "xlsx":
		if cfg.Source.Path == "" {
			return nil, eris.New("synth: xlsx source requires source.path")
		}
		return loader.NewXLSX(cfg.Source.Path, cfg.Source.Sheet), nil
	default:
		return nil, eris.Errorf("synth: unknown source driver %q", cfg.Source.Driver)
	}
}

// openRunLog constructs the run log configured in store.driver.
func openRunLog(pool *pgxpool.Pool) (runlog.Log, error) {
	switch cfg.Store.Driver {
	case "postgres":
		if pool == nil {
			return nil, eris.New("synth: postgres run log requires store.database_url")
		}
		return runlog.NewPostgres(pool), nil
	case "sqlite":
		return runlog.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("synth: unknown store driver %q", cfg.Store.Driver)
	}
}

// synthConfig maps the synth config section onto pipeline settings.
func synthConfig() synth.Config {
	return synth.Config{
		Thresholds: synth.Thresholds{
			EntropyRouting:      cfg.Synth.EntropyRouting,
			MaxUniqueRatio:      cfg.Synth.MaxUniqueRatio,
			MaxEntropyBits:      cfg.Synth.MaxEntropyBits,
			MinDominantCoverage: cfg.Synth.MinDominantCoverage,
			MinClusterSize:      cfg.Synth.MinClusterSize,
		},
		Workers: cfg.Synth.Workers,
	}
}

// loadInputs loads the lookup maps and source records.
func loadInputs(ctx context.Context, pool *pgxpool.Pool) ([]model.CertificateSplitRecord, model.Lookups, error) {
	lookups, err := loader.LoadLookups(cfg.Lookup.ScheduleCSV, cfg.Lookup.BrokerCSV)
	if err != nil {
		return nil, model.Lookups{}, eris.Wrap(err, "synth: load lookups")
	}

	src, err := buildLoader(pool)
	if err != nil {
		return nil, model.Lookups{}, err
	}

	records, err := src.Load(ctx)
	if err != nil {
		return nil, model.Lookups{}, eris.Wrap(err, "synth: load records")
	}

	return records, lookups, nil
}
