// Package store handles SQLite persistence of session summaries.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/strafeval/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed width so stored timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for session history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS summaries (
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			total INTEGER NOT NULL,
			accurate INTEGER NOT NULL,
			perfect INTEGER NOT NULL,
			early INTEGER NOT NULL,
			late INTEGER NOT NULL,
			accurate_rate REAL NOT NULL,
			perfect_rate REAL NOT NULL,
			early_rate REAL NOT NULL,
			late_rate REAL NOT NULL,
			median_all_us INTEGER NOT NULL,
			average_all_us INTEGER NOT NULL,
			avg_shot_delay_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS summary_buckets (
			summary_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			bucket INTEGER NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (summary_id, kind, bucket)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_summaries_ended_at ON summaries(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSummary stores a finished session and its histogram cells.
func (s *Store) InsertSummary(ctx context.Context, sum model.SessionSummary, buckets []model.BucketCount) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO summaries (session_id, started_at, ended_at, total, accurate, perfect, early, late,
			accurate_rate, perfect_rate, early_rate, late_rate, median_all_us, average_all_us, avg_shot_delay_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.SessionID,
		sum.StartedAt.UTC().Format(timeLayout),
		sum.EndedAt.UTC().Format(timeLayout),
		sum.Total,
		sum.Accurate,
		sum.Perfect,
		sum.Early,
		sum.Late,
		sum.AccurateRate,
		sum.PerfectRate,
		sum.EarlyRate,
		sum.LateRate,
		sum.MedianAll.Microseconds(),
		sum.AverageAll.Microseconds(),
		sum.AvgShotDelay.Milliseconds(),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(buckets) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO summary_buckets (summary_id, kind, bucket, count) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, b := range buckets {
			if b.Count == 0 {
				continue
			}
			if _, err := stmt.ExecContext(ctx, id, string(b.Kind), b.Bucket, b.Count); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return id, nil
}

// ListSummaries returns summaries in ended_at order, oldest first. Last
// keeps only the most recent entries.
func (s *Store) ListSummaries(ctx context.Context, cfg model.HistoryConfig) ([]model.SessionSummary, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.UTC().Format(timeLayout))
	}
	limit := ""
	if cfg.Last > 0 {
		limit = "LIMIT ?"
		args = append(args, cfg.Last)
	}
	query := fmt.Sprintf(`SELECT * FROM (
		SELECT id, session_id, started_at, ended_at, total, accurate, perfect, early, late,
			accurate_rate, perfect_rate, early_rate, late_rate, median_all_us, average_all_us, avg_shot_delay_ms
		FROM summaries
		WHERE %s
		ORDER BY ended_at DESC, id DESC
		%s
	) ORDER BY ended_at ASC, id ASC`, strings.Join(clauses, " AND "), limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.SessionSummary
	for rows.Next() {
		var sum model.SessionSummary
		var startedAt, endedAt string
		var medianUs, averageUs, shotMs int64
		if err := rows.Scan(&sum.ID, &sum.SessionID, &startedAt, &endedAt,
			&sum.Total, &sum.Accurate, &sum.Perfect, &sum.Early, &sum.Late,
			&sum.AccurateRate, &sum.PerfectRate, &sum.EarlyRate, &sum.LateRate,
			&medianUs, &averageUs, &shotMs); err != nil {
			return nil, err
		}
		if sum.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, err
		}
		if sum.EndedAt, err = time.Parse(timeLayout, endedAt); err != nil {
			return nil, err
		}
		sum.MedianAll = time.Duration(medianUs) * time.Microsecond
		sum.AverageAll = time.Duration(averageUs) * time.Microsecond
		sum.AvgShotDelay = time.Duration(shotMs) * time.Millisecond
		result = append(result, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// AggregateBuckets sums histogram cells across the given summaries.
func (s *Store) AggregateBuckets(ctx context.Context, summaryIDs []int64) ([]model.BucketCount, error) {
	if len(summaryIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(summaryIDs))
	args := make([]any, len(summaryIDs))
	for i, id := range summaryIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT kind, bucket, SUM(count)
		FROM summary_buckets
		WHERE summary_id IN (%s)
		GROUP BY kind, bucket
		ORDER BY kind, bucket`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.BucketCount
	for rows.Next() {
		var b model.BucketCount
		var kind string
		if err := rows.Scan(&kind, &b.Bucket, &b.Count); err != nil {
			return nil, err
		}
		b.Kind = model.ParseClassification(kind)
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
