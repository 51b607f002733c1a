package audit

import (
	"github.com/aristath/sectorpilot/internal/events"
	"github.com/rs/zerolog"
)

// RegisterListeners subscribes the audit trail to every audited event type
func RegisterListeners(bus *events.Bus, repo *Repository, log zerolog.Logger) {
	log = log.With().Str("component", "audit_listener").Logger()

	for _, eventType := range events.AuditedTypes {
		bus.Subscribe(eventType, func(event *events.Event) {
			if _, err := repo.Record(string(event.Type), event.Description, event.Data, event.Timestamp); err != nil {
				log.Error().
					Err(err).
					Str("event_type", string(event.Type)).
					Msg("Failed to record audit entry")
			}
		})
	}
}
