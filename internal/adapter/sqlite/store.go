package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/couchcryptid/walk-comfort-service/internal/domain"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS comfort_reports (
	id              TEXT PRIMARY KEY,
	station         TEXT NOT NULL,
	observed_at     TEXT NOT NULL,
	processed_at    TEXT NOT NULL,
	comfort_value   REAL NOT NULL,
	stress_category TEXT NOT NULL,
	payload         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comfort_reports_processed_at ON comfort_reports(processed_at);
`

// Store keeps comfort report history in SQLite.
// It implements pipeline.BatchLoader.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save stores a single report. Saving a report ID twice keeps the first copy.
func (s *Store) Save(ctx context.Context, report domain.ComfortReport) error {
	return s.LoadBatch(ctx, []domain.ComfortReport{report})
}

// LoadBatch stores reports in one transaction, ignoring IDs already present.
func (s *Store) LoadBatch(ctx context.Context, reports []domain.ComfortReport) (err error) {
	if len(reports) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO comfort_reports
		(id, station, observed_at, processed_at, comfort_value, stress_category, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare history insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range reports {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("serialize comfort report %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID,
			r.Station,
			r.Observation.ObservedAt.UTC().Format(timeLayout),
			r.ProcessedAt.UTC().Format(timeLayout),
			r.Comfort.Value,
			r.Comfort.StressCategory,
			string(payload),
		); err != nil {
			return fmt.Errorf("insert comfort report %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history tx: %w", err)
	}
	return nil
}

// Recent returns up to limit reports, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.ComfortReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM comfort_reports ORDER BY processed_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ComfortReport, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		var r domain.ComfortReport
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode history row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
