package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration classifies tariff configurations rejected at save time.
	ErrInvalidConfiguration = errors.New("invalid tariff configuration")

	// ErrCannotPrice is the umbrella for every failure to compute a delivery price.
	// A price that cannot be computed is never reported as zero.
	ErrCannotPrice = errors.New("cannot price delivery")

	ErrUnmatchedTier = fmt.Errorf("%w: no tier matches order amount", ErrCannotPrice)
	ErrMissingTariff = fmt.Errorf("%w: no tariff in force", ErrCannotPrice)
	ErrMissingClient = fmt.Errorf("%w: unknown client", ErrCannotPrice)
	ErrInvalidFacts  = fmt.Errorf("%w: invalid delivery facts", ErrCannotPrice)
)

// ConfigurationError names the offending part of a tariff configuration.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfiguration, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}

func configErr(field, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
