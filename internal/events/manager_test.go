package events

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_EmitTypedDeliversToSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	manager := NewManager(bus, zerolog.Nop())

	var received []*Event
	bus.Subscribe(SuggestionsGenerated, func(e *Event) { received = append(received, e) })
	bus.Subscribe(SuggestionLocked, func(e *Event) { t.Fatal("unexpected delivery") })

	manager.EmitTyped("rebalancing", &SuggestionsGeneratedData{RunID: "run-1", Count: 3, DriftBefore: 12.5})

	require.Len(t, received, 1)
	e := received[0]
	assert.Equal(t, SuggestionsGenerated, e.Type)
	assert.Equal(t, "rebalancing", e.Module)
	assert.Equal(t, "Generated 3 suggestions (run run-1)", e.Description)
	assert.Equal(t, "run-1", e.Data["run_id"])
	assert.Equal(t, float64(3), e.Data["count"])
	assert.False(t, e.Timestamp.IsZero())
}

func TestBus_PanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	delivered := false
	bus.Subscribe(ErrorOccurred, func(e *Event) { panic("boom") })
	bus.Subscribe(ErrorOccurred, func(e *Event) { delivered = true })

	NewManager(bus, zerolog.Nop()).EmitError("test", errors.New("failure"), nil)
	assert.True(t, delivered)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	var first, second int
	unsubscribe := bus.Subscribe(ScoresRefreshed, func(e *Event) { first++ })
	bus.Subscribe(ScoresRefreshed, func(e *Event) { second++ })

	bus.Publish(&Event{Type: ScoresRefreshed})
	unsubscribe()
	unsubscribe()
	bus.Publish(&Event{Type: ScoresRefreshed})

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestEventData_TypesFollowPayload(t *testing.T) {
	tests := []struct {
		name     string
		data     EventData
		expected EventType
		describe string
	}{
		{"approved", &SuggestionStatusData{Action: "BUY", Ticker: "TCS.NS", Status: "approved"}, SuggestionApproved, "Approved BUY TCS.NS"},
		{"locked", &SuggestionStatusData{Action: "SELL", Ticker: "ITC.NS", Status: "locked"}, SuggestionLocked, "Locked SELL ITC.NS"},
		{"stock targets", &TargetsUpdatedData{Scope: "stock", Changes: []TargetChange{{Key: "TCS.NS"}}}, TargetUpdated, "Updated targets for 1 stocks"},
		{"sector targets", &TargetsUpdatedData{Scope: "sector", Changes: []TargetChange{{Key: "1"}, {Key: "2"}}}, SectorTargetUpdated, "Updated targets for 2 sectors"},
		{"constraints", &ConstraintUpdatedData{Values: map[string]float64{"max_stock_weight": 8}}, ConstraintUpdated, "Updated 1 constraints"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.data.EventType())
			assert.Equal(t, tt.describe, tt.data.Describe())
		})
	}
}
