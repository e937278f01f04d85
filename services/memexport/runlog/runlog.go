// Package runlog keeps a local ledger of past export runs, one row
// per completed or partial target export.
package runlog

import (
	"context"
	"database/sql"
	"time"

	_ "embed"
)

//go:embed schema.sql
var Schema string

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return Store{db: db}
}

type Run struct {
	ID           int64
	Target       string
	StartedAt    time.Time
	FinishedAt   time.Time
	RecordCount  int
	PagesVisited int
	JSONPath     string
	TxtPath      string
}

func (s Store) RecordRun(ctx context.Context, target string, startedAt, finishedAt time.Time, count, pagesVisited int, jsonPath, txtPath string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO export_runs
			(target, started_at, finished_at, record_count, pages_visited, json_path, txt_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		target, startedAt.Unix(), finishedAt.Unix(),
		count, pagesVisited, jsonPath, txtPath,
	)
	return err
}

// List returns the most recent runs, newest first.
func (s Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target, started_at, finished_at, record_count, pages_visited, json_path, txt_path
		FROM export_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished int64
		err := rows.Scan(
			&run.ID, &run.Target, &started, &finished,
			&run.RecordCount, &run.PagesVisited,
			&run.JSONPath, &run.TxtPath,
		)
		if err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(started, 0)
		run.FinishedAt = time.Unix(finished, 0)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
