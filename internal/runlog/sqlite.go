package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteLog records runs in a local SQLite database.
type SQLiteLog struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteLog, error) {
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "runlog: exec %s", pragma)
		}
	}

	const migration = `
CREATE TABLE IF NOT EXISTS batch_runs (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME,
	error        TEXT,
	metadata     TEXT
);

CREATE INDEX IF NOT EXISTS idx_batch_runs_started ON batch_runs(started_at);
`
	if _, err := sdb.Exec(migration); err != nil {
		sdb.Close()
		return nil, eris.Wrap(err, "runlog: migrate sqlite")
	}

	return &SQLiteLog{db: sdb}, nil
}

func (l *SQLiteLog) Start(ctx context.Context, source string) (string, error) {
	id := uuid.New().String()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO batch_runs (id, source, status, started_at) VALUES (?, ?, 'running', ?)`,
		id, source, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "runlog: start run for %s", source)
	}
	return id, nil
}

func (l *SQLiteLog) Complete(ctx context.Context, runID string, metadata map[string]any) error {
	var metaJSON []byte
	if metadata != nil {
		var err error
		metaJSON, err = json.Marshal(metadata)
		if err != nil {
			return eris.Wrap(err, "runlog: marshal metadata")
		}
	}

	res, err := l.db.ExecContext(ctx,
		`UPDATE batch_runs SET status = 'complete', completed_at = ?, metadata = ? WHERE id = ?`,
		time.Now().UTC(), string(metaJSON), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: complete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (l *SQLiteLog) Fail(ctx context.Context, runID string, errMsg string) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE batch_runs SET status = 'failed', completed_at = ?, error = ? WHERE id = ?`,
		time.Now().UTC(), errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: fail run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (l *SQLiteLog) List(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, source, status, started_at, completed_at, error, metadata
		 FROM batch_runs ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list runs")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var completedAt sql.NullTime
		var errStr, metaJSON sql.NullString
		if err := rows.Scan(&e.ID, &e.Source, &e.Status, &e.StartedAt, &completedAt, &errStr, &metaJSON); err != nil {
			return nil, eris.Wrap(err, "runlog: scan run")
		}
		if completedAt.Valid {
			t := completedAt.Time
			e.CompletedAt = &t
		}
		e.Error = errStr.String
		if metaJSON.Valid && metaJSON.String != "" {
			_ = json.Unmarshal([]byte(metaJSON.String), &e.Metadata)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "runlog: rows affected")
	}
	if n == 0 {
		return eris.Errorf("runlog: run %s not found", runID)
	}
	return nil
}
