package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"ocrworker/internal/common"
)

// Record is one journaled job.
type Record struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	Status     string     `json:"status"`
	Command    string     `json:"command,omitempty"`
	ReturnCode *int       `json:"return_code,omitempty"`
	TimedOut   bool       `json:"timed_out,omitempty"`
	Stderr     string     `json:"stderr,omitempty"`
	OutputDir  string     `json:"output_dir,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	DurationMS int64      `json:"duration_ms"`
}

// Journal persists job records. It speaks plain database/sql so the same
// code serves the embedded sqlite file and a postgres DSN.
type Journal struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	status      TEXT NOT NULL,
	command     TEXT NOT NULL DEFAULT '',
	return_code INTEGER,
	timed_out   INTEGER NOT NULL DEFAULT 0,
	stderr      TEXT NOT NULL DEFAULT '',
	output_dir  TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	finished_at TEXT,
	duration_ms BIGINT NOT NULL DEFAULT 0
)`

// Open connects the journal and ensures the schema exists.
func Open(ctx context.Context, cfg common.JournalConfig, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	driver := cfg.Driver
	if driver == "" {
		if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
			driver = "pgx"
		} else {
			driver = "sqlite"
		}
	}

	logger.Info("opening job journal", "driver", driver, "dsn", cfg.DSN)
	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure jobs table: %w", err)
	}
	return &Journal{db: db, driver: driver, logger: logger}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) Insert(ctx context.Context, rec Record) error {
	var finished any
	if rec.FinishedAt != nil {
		finished = rec.FinishedAt.UTC().Format(time.RFC3339Nano)
	}
	var rc any
	if rec.ReturnCode != nil {
		rc = *rec.ReturnCode
	}
	_, err := j.db.ExecContext(ctx, j.rebind(
		`INSERT INTO jobs (id, source, status, command, return_code, timed_out, stderr, output_dir, created_at, finished_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.Source, rec.Status, rec.Command, rc, boolToInt(rec.TimedOut),
		rec.Stderr, rec.OutputDir, rec.CreatedAt.UTC().Format(time.RFC3339Nano), finished, rec.DurationMS,
	)
	if err != nil {
		j.logger.Error("journal insert failed", "job_id", rec.ID, "error", err)
		return fmt.Errorf("insert job %s: %w", rec.ID, err)
	}
	return nil
}

// List returns the most recent records, newest first.
func (j *Journal) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx, j.rebind(
		`SELECT id, source, status, command, return_code, timed_out, stderr, output_dir, created_at, finished_at, duration_ms
		 FROM jobs ORDER BY created_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get returns a single record or common.ErrNotFound.
func (j *Journal) Get(ctx context.Context, id string) (Record, error) {
	rows, err := j.db.QueryContext(ctx, j.rebind(
		`SELECT id, source, status, command, return_code, timed_out, stderr, output_dir, created_at, finished_at, duration_ms
		 FROM jobs WHERE id = ?`), id)
	if err != nil {
		return Record{}, fmt.Errorf("get job %s: %w", id, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Record{}, err
		}
		return Record{}, common.NewAppError("NotFound",
			fmt.Sprintf("job %s not found", id), common.ErrNotFound)
	}
	return scanRecord(rows)
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec      Record
		rc       sql.NullInt64
		timedOut int
		created  string
		finished sql.NullString
	)
	if err := rows.Scan(&rec.ID, &rec.Source, &rec.Status, &rec.Command, &rc, &timedOut,
		&rec.Stderr, &rec.OutputDir, &created, &finished, &rec.DurationMS); err != nil {
		return Record{}, fmt.Errorf("scan job row: %w", err)
	}
	if rc.Valid {
		v := int(rc.Int64)
		rec.ReturnCode = &v
	}
	rec.TimedOut = timedOut != 0
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		rec.CreatedAt = t
	}
	if finished.Valid {
		if t, err := time.Parse(time.RFC3339Nano, finished.String); err == nil {
			rec.FinishedAt = &t
		}
	}
	return rec, nil
}

// rebind rewrites ? placeholders into $N for postgres.
func (j *Journal) rebind(query string) string {
	if j.driver != "pgx" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
