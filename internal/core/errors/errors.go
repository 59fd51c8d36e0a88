// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Entity resolution and profile errors.
var (
	// ErrEntityNotFound indicates a canonical entity could not be found.
	ErrEntityNotFound = errors.New("canonical entity not found")

	// ErrProfileExists indicates a profile already exists for the canonical
	// entity; callers must use update-or-create instead.
	ErrProfileExists = errors.New("entity profile already exists")

	// ErrProfileNotFound indicates no profile exists for the canonical entity.
	ErrProfileNotFound = errors.New("entity profile not found")
)

// Article and analysis errors.
var (
	// ErrArticleNotFound indicates an article could not be found.
	ErrArticleNotFound = errors.New("article not found")

	// ErrDuplicateArticle indicates an article with the same URL already exists.
	ErrDuplicateArticle = errors.New("duplicate article url")

	// ErrNoData indicates an analysis window contained no usable data.
	// Analysis callers treat this as an empty result, not a failure.
	ErrNoData = errors.New("no data in requested window")
)

// Validation errors.
var (
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidInterval indicates an unrecognized period interval.
	ErrInvalidInterval = errors.New("invalid period interval")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
