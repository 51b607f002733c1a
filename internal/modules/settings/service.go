package settings

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/aristath/sectorpilot/internal/domain"
	"github.com/aristath/sectorpilot/internal/events"
	"github.com/rs/zerolog"
)

// ErrInvalidConstraint is returned for unknown keys or out-of-range values
var ErrInvalidConstraint = errors.New("invalid constraint")

// Service provides validated access to constraint settings
type Service struct {
	repo         *Repository
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewService creates a new settings service. eventManager may be nil.
func NewService(repo *Repository, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		eventManager: eventManager,
		log:          log.With().Str("service", "settings").Logger(),
	}
}

// GetConstraints returns every known constraint, stored or defaulted, plus any
// stored key that is no longer recognised. Sorted by key.
func (s *Service) GetConstraints() ([]Constraint, error) {
	stored, err := s.repo.list()
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]storedConstraint, len(stored))
	for _, row := range stored {
		byKey[row.Key] = row
	}

	result := make([]Constraint, 0, len(ConstraintDefinitions)+len(stored))
	for key, def := range ConstraintDefinitions {
		c := Constraint{
			Key:         key,
			Description: def.Description,
			Value:       def.Default,
			Default:     def.Default,
			IsDefault:   true,
		}
		if row, ok := byKey[key]; ok {
			c.Value = row.Value
			c.UpdatedAt = row.UpdatedAt
			c.IsDefault = false
		}
		result = append(result, c)
	}
	for _, row := range stored {
		if _, known := ConstraintDefinitions[row.Key]; !known {
			result = append(result, Constraint{
				Key:         row.Key,
				Description: row.Description,
				Value:       row.Value,
				UpdatedAt:   row.UpdatedAt,
			})
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

// GetConstraintSet returns the generator's constraint set, with defaults for
// keys that are not stored
func (s *Service) GetConstraintSet() (domain.ConstraintSet, error) {
	values, err := s.repo.GetAll()
	if err != nil {
		return domain.ConstraintSet{}, err
	}
	return domain.ConstraintSetFromMap(values), nil
}

// GetValue returns a single constraint value, falling back to its default
func (s *Service) GetValue(key string) (float64, error) {
	return s.repo.GetFloat(key, ConstraintDefinitions[key].Default)
}

// Update validates and stores new constraint values. Either every value is
// stored or none is.
func (s *Service) Update(values map[string]float64) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: no values given", ErrInvalidConstraint)
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := validateValue(key, values[key]); err != nil {
			return err
		}
	}

	if err := s.repo.SetMany(values); err != nil {
		return err
	}

	s.log.Info().Strs("keys", keys).Msg("Constraints updated")

	if s.eventManager != nil {
		s.eventManager.EmitTyped("settings", &events.ConstraintUpdatedData{Values: values})
	}
	return nil
}

// SeedDefaults stores defaults for every constraint that has no row yet
func (s *Service) SeedDefaults() error {
	n, err := s.repo.SeedDefaults()
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info().Int("inserted", n).Msg("Seeded default constraints")
	}
	return nil
}

func validateValue(key string, value float64) error {
	def, ok := ConstraintDefinitions[key]
	if !ok {
		return fmt.Errorf("%w: unknown key %q", ErrInvalidConstraint, key)
	}
	if math.IsNaN(value) || value < def.Min || value > def.Max {
		return fmt.Errorf("%w: %s must be between %g and %g", ErrInvalidConstraint, key, def.Min, def.Max)
	}
	if def.Integer && value != math.Trunc(value) {
		return fmt.Errorf("%w: %s must be a whole number", ErrInvalidConstraint, key)
	}
	return nil
}
