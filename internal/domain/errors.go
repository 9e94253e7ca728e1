package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// It is usually wrapped with a more specific message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidDifficulty is returned when a difficulty hint is not one of
	// the recognised values.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
)
