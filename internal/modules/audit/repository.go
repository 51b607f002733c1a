package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles audit log database operations
// Database: ledger.db (audit_log table)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new audit repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "audit").Logger(),
	}
}

// Record appends an entry to the audit log
func (r *Repository) Record(actionType, description string, payload map[string]interface{}, at time.Time) (int64, error) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal audit payload: %w", err)
	}

	result, err := r.db.Exec(`
		INSERT INTO audit_log (created_at, action_type, description, payload)
		VALUES (?, ?, ?, ?)
	`, at.Unix(), actionType, description, string(payloadJSON))
	if err != nil {
		return 0, fmt.Errorf("failed to insert audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read audit entry id: %w", err)
	}
	return id, nil
}

// List returns a page of entries, newest first. page is 1-based.
func (r *Repository) List(page, pageSize int) ([]Entry, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	rows, err := r.db.Query(`
		SELECT id, created_at, action_type, description, payload
		FROM audit_log
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var createdAt int64
		var payload string
		if err := rows.Scan(&e.ID, &createdAt, &e.ActionType, &e.Description, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0).UTC()

		// Unreadable payloads are returned as empty objects
		e.Payload = map[string]interface{}{}
		if payload != "" {
			if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
				r.log.Warn().Err(err).Int64("id", e.ID).Msg("Failed to parse audit payload")
				e.Payload = map[string]interface{}{}
			}
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log: %w", err)
	}

	return entries, nil
}
