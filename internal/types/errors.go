package types

import "errors"

// Pipeline error taxonomy. Handlers match these with errors.Is to pick a
// response status; everything else is an internal error.
var (
	// ErrInvalidRequest marks a request that fails the pipeline's own entry checks.
	ErrInvalidRequest = errors.New("invalid travel plan request")

	// ErrRateLimitExceeded maps to "too many requests"; it is never queued or retried here.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrGenerationBackend covers transport and parse failures from a generation call.
	ErrGenerationBackend = errors.New("generation backend error")

	// Accommodation violations. None of these are repaired; the whole response
	// is considered malformed and the caller must regenerate.
	ErrInvalidAccommodationCount  = errors.New("plan must have exactly 4 accommodations")
	ErrMissingCategory            = errors.New("accommodations must cover all required categories")
	ErrDuplicateAccommodationName = errors.New("accommodation names must be unique")
	ErrDuplicatePrice             = errors.New("accommodation prices must be unique")
	ErrPriceOrderingViolation     = errors.New("luxury accommodation must cost more than budget-friendly")

	// ErrInsufficientPlaces is a per-day violation repair cannot fix: fewer
	// than 2 attractions or fewer than 2 restaurants.
	ErrInsufficientPlaces = errors.New("day must have at least 2 attractions and 2 restaurants")

	// ErrDayCountMismatch means merged chunks do not cover days 1..N exactly.
	ErrDayCountMismatch = errors.New("generated days do not cover the requested range")
)
