// Package services defines the business logic for haiku storage and
// generation. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by callers.
//
// Only validation failures (caller-supplied argument violates a precondition)
// surface as errors from the storage service; backend trouble degrades to
// safe defaults instead. Translation into user-facing messages or HTTP status
// codes is performed at the handler layer.
package services

import "errors"

var (
	// ErrEmptySubject is returned when a save or generate request carries a
	// subject that is empty after trimming.
	ErrEmptySubject = errors.New("subject is empty")

	// ErrSubjectTooLong is returned when a subject exceeds the configured
	// maximum rune length.
	ErrSubjectTooLong = errors.New("subject too long")

	// ErrEmptyText is returned when a save request carries a haiku body that
	// is empty after trimming.
	ErrEmptyText = errors.New("haiku text is empty")

	// ErrMissingAPIKey is returned by the generator when no OpenAI API key
	// is configured.
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY not set")

	// ErrGenerationFailed wraps upstream model errors so handlers can map
	// them to a single stable error code.
	ErrGenerationFailed = errors.New("haiku generation failed")
)
