package events

import (
	"encoding/json"
	"fmt"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
	// Describe returns a one-line human readable summary
	Describe() string
}

// SuggestionsGeneratedData contains data for SuggestionsGenerated events
type SuggestionsGeneratedData struct {
	RunID         string  `json:"run_id"`
	Trigger       string  `json:"trigger"`
	Count         int     `json:"count"`
	DriftBefore   float64 `json:"drift_before"`
	DriftAfterEst float64 `json:"drift_after_est"`
}

// EventType returns the event type for SuggestionsGeneratedData
func (d *SuggestionsGeneratedData) EventType() EventType {
	return SuggestionsGenerated
}

// Describe summarises the run
func (d *SuggestionsGeneratedData) Describe() string {
	return fmt.Sprintf("Generated %d suggestions (run %s)", d.Count, d.RunID)
}

// SuggestionStatusData contains data for SuggestionApproved and SuggestionLocked events
type SuggestionStatusData struct {
	RunID        string `json:"run_id"`
	SuggestionID int64  `json:"suggestion_id"`
	Action       string `json:"action"`
	Ticker       string `json:"ticker"`
	Status       string `json:"status"`
}

// EventType returns the event type for SuggestionStatusData.
// The event type follows the new status.
func (d *SuggestionStatusData) EventType() EventType {
	if d.Status == "locked" {
		return SuggestionLocked
	}
	return SuggestionApproved
}

// Describe summarises the status change
func (d *SuggestionStatusData) Describe() string {
	verb := "Approved"
	if d.Status == "locked" {
		verb = "Locked"
	}
	return fmt.Sprintf("%s %s %s", verb, d.Action, d.Ticker)
}

// TargetChange is a single target weight update
type TargetChange struct {
	Key          string  `json:"key"`
	TargetWeight float64 `json:"target_weight"`
}

// TargetsUpdatedData contains data for TargetUpdated and SectorTargetUpdated events
type TargetsUpdatedData struct {
	Scope   string         `json:"scope"` // "stock" or "sector"
	Changes []TargetChange `json:"changes"`
}

// EventType returns the event type for TargetsUpdatedData
func (d *TargetsUpdatedData) EventType() EventType {
	if d.Scope == "sector" {
		return SectorTargetUpdated
	}
	return TargetUpdated
}

// Describe summarises the update
func (d *TargetsUpdatedData) Describe() string {
	noun := "stocks"
	if d.Scope == "sector" {
		noun = "sectors"
	}
	return fmt.Sprintf("Updated targets for %d %s", len(d.Changes), noun)
}

// ConstraintUpdatedData contains data for ConstraintUpdated events
type ConstraintUpdatedData struct {
	Values map[string]float64 `json:"values"`
}

// EventType returns the event type for ConstraintUpdatedData
func (d *ConstraintUpdatedData) EventType() EventType {
	return ConstraintUpdated
}

// Describe summarises the update
func (d *ConstraintUpdatedData) Describe() string {
	return fmt.Sprintf("Updated %d constraints", len(d.Values))
}

// UniverseSeededData contains data for UniverseSeeded events
type UniverseSeededData struct {
	Source   string `json:"source"`
	Sectors  int    `json:"sectors"`
	Stocks   int    `json:"stocks"`
	Prices   int    `json:"prices"`
	Holdings int    `json:"holdings"`
}

// EventType returns the event type for UniverseSeededData
func (d *UniverseSeededData) EventType() EventType {
	return UniverseSeeded
}

// Describe summarises the seed
func (d *UniverseSeededData) Describe() string {
	return fmt.Sprintf("Seeded %d sectors, %d stocks and %d holdings from %s", d.Sectors, d.Stocks, d.Holdings, d.Source)
}

// ScoresRefreshedData contains data for ScoresRefreshed events
type ScoresRefreshedData struct {
	Sectors int `json:"sectors"`
	Stocks  int `json:"stocks"`
}

// EventType returns the event type for ScoresRefreshedData
func (d *ScoresRefreshedData) EventType() EventType {
	return ScoresRefreshed
}

// Describe summarises the refresh
func (d *ScoresRefreshedData) Describe() string {
	return fmt.Sprintf("Refreshed scores for %d sectors and %d stocks", d.Sectors, d.Stocks)
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// Describe returns the error message
func (d *ErrorEventData) Describe() string {
	return d.Error
}

// convertEventDataToMap converts typed EventData to map[string]interface{} for subscribers
func convertEventDataToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}

	return result
}
