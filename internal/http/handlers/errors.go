// Package handlers defines the HTTP-layer error codes used across all API
// endpoints. Codes are lowercase snake_case; generic codes mirror common
// HTTP status semantics, domain-specific codes cover outcomes a status alone
// cannot convey. Handlers pass them to fail() together with the status.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:

	// ErrCodeStorageUnavailable signals that the haiku store is not
	// configured or unreachable; reads degrade, writes return this.
	ErrCodeStorageUnavailable = "storage_unavailable"
	// ErrCodeGenerationFailed signals that the upstream model call failed
	// or generation is not configured.
	ErrCodeGenerationFailed = "generation_failed"
)
