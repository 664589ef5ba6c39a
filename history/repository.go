package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Operation values recorded per request.
const (
	OpGeneration = "generation"
	OpEdit       = "edit"
	OpVariation  = "variation"
)

// Status values recorded per request.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// GenerationRecord represents one row in the generation_history table.
// Each API request produces exactly one record regardless of batch size.
type GenerationRecord struct {
	ID             int64         // Auto-incremented primary key
	RequestID      string        // Unique identifier for tracing the request
	Operation      string        // One of the Op* constants
	Prompt         string        // User prompt as submitted (before any framing)
	ModelName      string        // Model that served the request
	BatchSize      int           // Number of images requested
	Seed           sql.NullInt64 // Base seed, NULL when the client left it unset
	Width          int           // Output width in pixels
	Height         int           // Output height in pixels
	Steps          int           // Inference steps
	Guidance       float64       // Guidance scale
	ResponseFormat string        // "url" or "b64_json"
	Username       string        // Client identity from the auth header, if any
	DurationMS     int           // Wall-clock processing time in milliseconds
	Status         string        // One of the Status* constants
	ErrorMessage   string        // Error description when status is "error"
	CreatedAt      time.Time     // Timestamp when the record was created
}

// Repository provides typed access to the generation_history table.
type Repository struct {
	db *Database
}

// NewRepository creates a Repository over an open Database.
func NewRepository(db *Database) *Repository {
	return &Repository{db: db}
}

// Insert writes a record and returns its ID.
func (r *Repository) Insert(ctx context.Context, rec GenerationRecord) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("history: database connection is nil")
	}

	query := `
		INSERT INTO generation_history (
			request_id, operation, prompt, model_name, batch_size, seed,
			width, height, steps, guidance, response_format, username,
			duration_ms, status, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.DB().ExecContext(ctx, query,
		rec.RequestID, rec.Operation, rec.Prompt, rec.ModelName,
		rec.BatchSize, rec.Seed, rec.Width, rec.Height, rec.Steps,
		rec.Guidance, rec.ResponseFormat, rec.Username,
		rec.DurationMS, rec.Status, rec.ErrorMessage)
	if err != nil {
		return 0, fmt.Errorf("history: failed to insert record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: failed to get inserted ID: %w", err)
	}
	return id, nil
}

// ListRecent returns up to limit records ordered newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]GenerationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, request_id, operation, prompt, model_name, batch_size,
		       seed, width, height, steps, guidance, response_format,
		       username, duration_ms, status, error_message, created_at
		FROM generation_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := r.db.DB().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("history: failed to query records: %w", err)
	}
	defer rows.Close()

	var records []GenerationRecord
	for rows.Next() {
		var rec GenerationRecord
		if err := rows.Scan(
			&rec.ID, &rec.RequestID, &rec.Operation, &rec.Prompt,
			&rec.ModelName, &rec.BatchSize, &rec.Seed, &rec.Width,
			&rec.Height, &rec.Steps, &rec.Guidance, &rec.ResponseFormat,
			&rec.Username, &rec.DurationMS, &rec.Status,
			&rec.ErrorMessage, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("history: failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: row iteration failed: %w", err)
	}
	return records, nil
}

// CountByStatus returns the number of records with the given status.
func (r *Repository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM generation_history WHERE status = ?`, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("history: failed to count records: %w", err)
	}
	return count, nil
}
