package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedInput is returned when a boundary record is missing required
// fields or carries out-of-range values.
var ErrMalformedInput = errors.New("malformed input")

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRecord validates a single boundary record
func ValidateRecord(record interface{}) error {
	if err := validate.Struct(record); err != nil {
		return malformed(err)
	}
	return nil
}

// ValidateGenerationInput validates every record handed to the suggestion generator
func ValidateGenerationInput(
	holdings []Holding,
	exposure []SectorExposure,
	stocks []StockCandidate,
	constraints ConstraintSet,
) error {
	for i := range holdings {
		if err := validate.Struct(holdings[i]); err != nil {
			return fmt.Errorf("holding %d (%s): %w", i, holdings[i].Ticker, malformed(err))
		}
	}
	for i := range exposure {
		if err := validate.Struct(exposure[i]); err != nil {
			return fmt.Errorf("sector exposure %d: %w", i, malformed(err))
		}
	}
	for i := range stocks {
		if err := validate.Struct(stocks[i]); err != nil {
			return fmt.Errorf("stock %d (%s): %w", i, stocks[i].Ticker, malformed(err))
		}
		if p := stocks[i].CurrentPrice; p != nil && *p < 0 {
			return fmt.Errorf("stock %d (%s): %w: negative current_price", i, stocks[i].Ticker, ErrMalformedInput)
		}
	}
	if err := validate.Struct(constraints); err != nil {
		return fmt.Errorf("constraints: %w", malformed(err))
	}
	return nil
}

// malformed flattens validator field errors into a single ErrMalformedInput
func malformed(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrMalformedInput, strings.Join(parts, ", "))
}
