package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. Entity-specific variants below wrap it so callers can match
	// either the generic or the specific error.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an insert would violate a uniqueness
	// constraint, such as a second translation for the same (item, language).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation or
	// references a row that does not exist (foreign key violation).
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails to
	// commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors.

	// ErrCategoryNotFound indicates that the referenced category does not exist.
	ErrCategoryNotFound = fmt.Errorf("%w: category", ErrNotFound)

	// ErrLessonNotFound indicates that the referenced lesson does not exist.
	ErrLessonNotFound = fmt.Errorf("%w: lesson", ErrNotFound)

	// ErrItemNotFound indicates that the requested content item does not exist.
	ErrItemNotFound = fmt.Errorf("%w: content item", ErrNotFound)

	// ErrTranslationNotFound indicates that no translation exists for the
	// requested (item, language) pair.
	ErrTranslationNotFound = fmt.Errorf("%w: translation", ErrNotFound)

	// ErrSituationNotFound indicates that the requested situation does not exist.
	ErrSituationNotFound = fmt.Errorf("%w: situation", ErrNotFound)

	// ErrAttemptNotFound indicates that the requested attempt result does not exist.
	ErrAttemptNotFound = fmt.Errorf("%w: attempt result", ErrNotFound)

	// Entity-specific "duplicate" errors.

	// ErrTranslationExists indicates that a translation for the (item, language)
	// pair was committed by a concurrent writer. Callers should re-fetch the
	// winning row and discard their own payload.
	ErrTranslationExists = fmt.Errorf("%w: translation", ErrDuplicate)
)

// IsNotFoundError reports whether err is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
