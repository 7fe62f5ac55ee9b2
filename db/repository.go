package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Generation statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// GenerationRecord is one row of the generation history.
type GenerationRecord struct {
	ID           int64     `json:"id"`
	RequestID    string    `json:"request_id"`
	Model        string    `json:"model"`
	Status       string    `json:"status"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	FileNames    []string  `json:"file_names,omitempty"`
	WarningCount int       `json:"warning_count"`
	CreatedAt    time.Time `json:"created_at"`

	Budget           int   `json:"budget"`
	OverheadTokens   int   `json:"overhead_tokens"`
	OriginalTokens   int   `json:"original_tokens"`
	FinalTokens      int   `json:"final_tokens"`
	PromptTokens     int   `json:"prompt_tokens"`
	Truncated        bool  `json:"truncated"`
	DroppedChars     int   `json:"dropped_chars"`
	CompletionTokens int   `json:"completion_tokens"`
	DurationMS       int64 `json:"duration_ms"`
}

// ErrClosed is returned after Close.
var ErrClosed = errors.New("database is closed")

// Repository reads and writes generation history.
type Repository struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// Open migrates the database at path and returns a ready Repository.
func Open(path string) (*Repository, error) {
	if err := MigrateUp(path); err != nil {
		return nil, err
	}
	conn, err := NewSQLiteConnection(DefaultConnectionConfig(path))
	if err != nil {
		return nil, err
	}
	return &Repository{db: conn, path: path}, nil
}

// Path returns the database file.
func (r *Repository) Path() string { return r.path }

// Ping checks the connection; used by the health endpoint.
func (r *Repository) Ping(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.db == nil {
		return ErrClosed
	}
	return r.db.PingContext(ctx)
}

// Close closes the connection. It is safe to call more than once.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// InsertGeneration stores rec and returns its id. A zero CreatedAt is set
// to the current time.
func (r *Repository) InsertGeneration(ctx context.Context, rec GenerationRecord) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.db == nil {
		return 0, ErrClosed
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO generations (
			request_id, model, status, error_kind, error_message,
			file_names, file_count, warning_count,
			budget, overhead_tokens, original_tokens, final_tokens, prompt_tokens,
			truncated, dropped_chars, completion_tokens, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.Model, rec.Status, nullString(rec.ErrorKind), nullString(rec.ErrorMessage),
		nullString(strings.Join(rec.FileNames, "\n")), len(rec.FileNames), rec.WarningCount,
		rec.Budget, rec.OverheadTokens, rec.OriginalTokens, rec.FinalTokens, rec.PromptTokens,
		boolToInt(rec.Truncated), rec.DroppedChars, rec.CompletionTokens, rec.DurationMS,
		rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert generation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

// RecentGenerations returns up to limit records, newest first.
func (r *Repository) RecentGenerations(ctx context.Context, limit int) ([]GenerationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, model, status,
			COALESCE(error_kind, ''), COALESCE(error_message, ''), COALESCE(file_names, ''),
			warning_count, budget, overhead_tokens, original_tokens, final_tokens, prompt_tokens,
			truncated, dropped_chars, completion_tokens, duration_ms, created_at
		FROM generations
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()

	var out []GenerationRecord
	for rows.Next() {
		var (
			rec       GenerationRecord
			files     string
			truncated int
			createdMS int64
		)
		if err := rows.Scan(
			&rec.ID, &rec.RequestID, &rec.Model, &rec.Status,
			&rec.ErrorKind, &rec.ErrorMessage, &files,
			&rec.WarningCount, &rec.Budget, &rec.OverheadTokens, &rec.OriginalTokens, &rec.FinalTokens, &rec.PromptTokens,
			&truncated, &rec.DroppedChars, &rec.CompletionTokens, &rec.DurationMS, &createdMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan generation row: %w", err)
		}
		if files != "" {
			rec.FileNames = strings.Split(files, "\n")
		}
		rec.Truncated = truncated != 0
		rec.CreatedAt = time.UnixMilli(createdMS)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generation rows: %w", err)
	}
	return out, nil
}

// CountGenerations returns the number of stored records.
func (r *Repository) CountGenerations(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.db == nil {
		return 0, ErrClosed
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM generations").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count generations: %w", err)
	}
	return n, nil
}

// DeleteOlderThan removes records created before cutoff.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.db == nil {
		return 0, ErrClosed
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM generations WHERE created_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old generations: %w", err)
	}
	return res.RowsAffected()
}

func nullString(s string) interface{} {
	if s == "" {
		return sql.NullString{}
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
