// Package usage keeps an append-only SQLite log of every generation request
// so usage statistics survive between CLI invocations. Resets are recorded
// as markers; statistics only count records after the latest marker.
package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dpshade/pocket-meta/internal/models"
)

// timeLayout sorts lexicographically in chronological order
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Record is one completed generation request
type Record struct {
	ID         string
	Timestamp  time.Time
	Document   string
	TemplateID string
	Model      string
	Provider   string
	Success    bool
	ErrorCode  string
	Tokens     int
	DurationMs int64
	CostUSD    float64
}

// Store is an append-only usage log. All public methods are safe for
// concurrent use.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the usage database at dbPath
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open usage database: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate usage schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS usage_records (
		id          TEXT PRIMARY KEY,
		timestamp   TEXT NOT NULL,
		document    TEXT NOT NULL,
		template_id TEXT NOT NULL,
		model       TEXT NOT NULL,
		provider    TEXT NOT NULL,
		success     INTEGER NOT NULL,
		error_code  TEXT,
		tokens      INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		cost_usd    REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage_records(timestamp);
	CREATE TABLE IF NOT EXISTS usage_resets (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		reset_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record persists rec. An empty ID gets a UUIDv7 and a zero timestamp
// becomes now.
func (s *Store) Record(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate usage record ID: %w", err)
		}
		rec.ID = id.String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_records
			(id, timestamp, document, template_id, model, provider,
			 success, error_code, tokens, duration_ms, cost_usd)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		formatTime(rec.Timestamp),
		rec.Document,
		rec.TemplateID,
		rec.Model,
		rec.Provider,
		boolToInt(rec.Success),
		rec.ErrorCode,
		rec.Tokens,
		rec.DurationMs,
		rec.CostUSD,
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

// Reset stores a reset marker at the given time
func (s *Store) Reset(ctx context.Context, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO usage_resets (reset_at) VALUES (?)`, formatTime(at)); err != nil {
		return fmt.Errorf("insert usage reset: %w", err)
	}
	return nil
}

// LastReset returns the latest reset marker, or the zero time
func (s *Store) LastReset(ctx context.Context) (time.Time, error) {
	var raw sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(reset_at) FROM usage_resets`).Scan(&raw); err != nil {
		return time.Time{}, fmt.Errorf("query last usage reset: %w", err)
	}
	if !raw.Valid {
		return time.Time{}, nil
	}
	return parseTime(raw.String)
}

// Stats aggregates every record since the latest reset
func (s *Store) Stats(ctx context.Context) (models.UsageStats, error) {
	lastReset, err := s.LastReset(ctx)
	if err != nil {
		return models.UsageStats{}, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(success), 0), COALESCE(SUM(tokens), 0),
		        COALESCE(AVG(duration_ms), 0), MAX(timestamp)
		 FROM usage_records
		 WHERE timestamp >= ?`,
		formatTime(lastReset),
	)

	var (
		stats    models.UsageStats
		lastUsed sql.NullString
	)
	if err := row.Scan(&stats.TotalRequests, &stats.SuccessfulRequests, &stats.TotalTokensUsed,
		&stats.AverageProcessingTimeMs, &lastUsed); err != nil {
		return models.UsageStats{}, fmt.Errorf("query usage stats: %w", err)
	}
	stats.FailedRequests = stats.TotalRequests - stats.SuccessfulRequests
	stats.LastResetAt = lastReset
	if lastUsed.Valid {
		if stats.LastUsedAt, err = parseTime(lastUsed.String); err != nil {
			return models.UsageStats{}, err
		}
	}
	return stats, nil
}

// Recent returns up to limit records, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, document, template_id, model, provider,
		        success, COALESCE(error_code, ''), tokens, duration_ms, cost_usd
		 FROM usage_records
		 ORDER BY timestamp DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent usage: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec     Record
			ts      string
			success int
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.Document, &rec.TemplateID, &rec.Model, &rec.Provider,
			&success, &rec.ErrorCode, &rec.Tokens, &rec.DurationMs, &rec.CostUSD); err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		if rec.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		rec.Success = success == 1
		records = append(records, rec)
	}
	return records, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse usage timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
