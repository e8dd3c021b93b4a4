package runlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/commission-staging/internal/db"
)

// PostgresLog records runs in commission_stage.batch_runs.
type PostgresLog struct {
	pool db.Pool
}

// NewPostgres creates a run log backed by the given connection pool.
func NewPostgres(pool db.Pool) *PostgresLog {
	return &PostgresLog{pool: pool}
}

func (l *PostgresLog) Start(ctx context.Context, source string) (string, error) {
	id := uuid.New().String()
	_, err := l.pool.Exec(ctx,
		`INSERT INTO commission_stage.batch_runs (id, source, status, started_at)
		 VALUES ($1, $2, 'running', now())`,
		id, source,
	)
	if err != nil {
		return "", eris.Wrapf(err, "runlog: start run for %s", source)
	}
	return id, nil
}

func (l *PostgresLog) Complete(ctx context.Context, runID string, metadata map[string]any) error {
	var metaJSON []byte
	if metadata != nil {
		var err error
		metaJSON, err = json.Marshal(metadata)
		if err != nil {
			return eris.Wrap(err, "runlog: marshal metadata")
		}
	}

	_, err := l.pool.Exec(ctx,
		`UPDATE commission_stage.batch_runs
		 SET status = 'complete', completed_at = now(), metadata = $1
		 WHERE id = $2`,
		metaJSON, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: complete run %s", runID)
	}
	return nil
}

func (l *PostgresLog) Fail(ctx context.Context, runID string, errMsg string) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE commission_stage.batch_runs
		 SET status = 'failed', completed_at = now(), error = $1
		 WHERE id = $2`,
		errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: fail run %s", runID)
	}
	return nil
}

func (l *PostgresLog) List(ctx context.Context) ([]Entry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, source, status, started_at, completed_at, error, metadata
		 FROM commission_stage.batch_runs ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list runs")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var completedAt *time.Time
		var errStr *string
		var metaJSON []byte
		if err := rows.Scan(&e.ID, &e.Source, &e.Status, &e.StartedAt, &completedAt, &errStr, &metaJSON); err != nil {
			return nil, eris.Wrap(err, "runlog: scan run")
		}
		e.CompletedAt = completedAt
		if errStr != nil {
			e.Error = *errStr
		}
		if metaJSON != nil {
			_ = json.Unmarshal(metaJSON, &e.Metadata)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close is a no-op: the pool is owned by the caller.
func (l *PostgresLog) Close() error { return nil }
