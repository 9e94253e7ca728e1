package generation

import "errors"

// Common errors returned by the generation boundary.
var (
	// ErrGenerationFailed is terminal: no valid new content could be
	// produced and retries are exhausted.
	ErrGenerationFailed = errors.New("content generation failed")

	// ErrValidationFailed is returned when a generated payload is missing
	// required fields, malformed, or fails domain rules (too short,
	// greeting-only). It triggers adapter-level retry up to the bounded
	// limit before escalating to ErrGenerationFailed.
	ErrValidationFailed = errors.New("generated payload failed validation")

	// ErrExcludedWord is returned when the produced word conflicts with the
	// request's exclusion set. Retried with a fresh prompt.
	ErrExcludedWord = errors.New("generated word is in the exclusion set")

	// ErrContentBlocked is returned when the provider blocks the content via
	// safety filters. Never retried.
	ErrContentBlocked = errors.New("content blocked by provider safety filters")

	// ErrTransientFailure is returned for temporary provider errors that may
	// resolve on retry.
	ErrTransientFailure = errors.New("transient error during generation")

	// ErrInvalidConfig is returned when the generator configuration is invalid.
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
