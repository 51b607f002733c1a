// Package events provides event management functionality.
package events

// EventType represents different event types
type EventType string

const (
	// Rebalancing lifecycle
	SuggestionsGenerated EventType = "SUGGESTIONS_GENERATED"
	SuggestionApproved   EventType = "SUGGESTION_APPROVED"
	SuggestionLocked     EventType = "SUGGESTION_LOCKED"

	// Portfolio and settings changes
	TargetUpdated       EventType = "TARGET_UPDATED"
	SectorTargetUpdated EventType = "SECTOR_TARGET_UPDATED"
	ConstraintUpdated   EventType = "CONSTRAINT_UPDATED"

	// Universe data
	UniverseSeeded  EventType = "UNIVERSE_SEEDED"
	ScoresRefreshed EventType = "SCORES_REFRESHED"

	ErrorOccurred EventType = "ERROR_OCCURRED"
)

// AuditedTypes are the event types recorded in the audit trail
var AuditedTypes = []EventType{
	SuggestionsGenerated,
	SuggestionApproved,
	SuggestionLocked,
	TargetUpdated,
	SectorTargetUpdated,
	ConstraintUpdated,
	UniverseSeeded,
}

// AllTypes lists every event type the bus carries
var AllTypes = []EventType{
	SuggestionsGenerated,
	SuggestionApproved,
	SuggestionLocked,
	TargetUpdated,
	SectorTargetUpdated,
	ConstraintUpdated,
	UniverseSeeded,
	ScoresRefreshed,
	ErrorOccurred,
}
