// Package audit records user-visible actions in the ledger's audit trail.
package audit

import "time"

// Entry is one audit trail row
type Entry struct {
	ID          int64                  `json:"id"`
	CreatedAt   time.Time              `json:"created_at"`
	ActionType  string                 `json:"action_type"`
	Description string                 `json:"description"`
	Payload     map[string]interface{} `json:"payload"`
}

// Paging limits for audit listing
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)
