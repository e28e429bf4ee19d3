package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound is returned when a barcode has no catalog entry
	ErrProductNotFound = errors.New("product not found in catalog")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCatalogUnavailable is returned when the static catalog cannot be fetched
	ErrCatalogUnavailable = errors.New("product catalog unavailable")

	// ErrAdvisorFailure matches every *AdvisorError through errors.Is
	ErrAdvisorFailure = errors.New("compliance advisor request failed")

	// ErrInvalidTaxonomy is returned when a rule set cannot be used
	ErrInvalidTaxonomy = errors.New("invalid taxonomy rule set")

	// ErrCacheMiss is returned when a key is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)

// AdvisorErrorKind classifies advisor failures
type AdvisorErrorKind string

const (
	AdvisorUnauthorized AdvisorErrorKind = "unauthorized"
	AdvisorUnreachable  AdvisorErrorKind = "unreachable"
	AdvisorRateLimited  AdvisorErrorKind = "rate_limited"
	AdvisorUnknown      AdvisorErrorKind = "unknown"
)

// AdvisorError is returned by advisor implementations
type AdvisorError struct {
	Kind AdvisorErrorKind
	Err  error
}

// NewAdvisorError wraps err with the given kind
func NewAdvisorError(kind AdvisorErrorKind, err error) *AdvisorError {
	return &AdvisorError{Kind: kind, Err: err}
}

func (e *AdvisorError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (%s)", ErrAdvisorFailure, e.Kind)
	}
	return fmt.Sprintf("%s (%s): %v", ErrAdvisorFailure, e.Kind, e.Err)
}

func (e *AdvisorError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrAdvisorFailure) true for any advisor error
func (e *AdvisorError) Is(target error) bool {
	return target == ErrAdvisorFailure
}

// Note returns the user-facing message shown when the narrative is missing
func (e *AdvisorError) Note() string {
	switch e.Kind {
	case AdvisorUnauthorized:
		return "AI analysis unavailable: the API key was rejected. Showing catalog results."
	case AdvisorRateLimited:
		return "AI analysis unavailable: too many requests, try again later. Showing catalog results."
	case AdvisorUnreachable:
		return "AI analysis unavailable: the service could not be reached. Showing catalog results."
	default:
		return "AI analysis failed. Showing catalog results."
	}
}

// AdvisorErrorKindOf extracts the kind of an advisor error, or AdvisorUnknown
func AdvisorErrorKindOf(err error) AdvisorErrorKind {
	var advErr *AdvisorError
	if errors.As(err, &advErr) {
		return advErr.Kind
	}
	return AdvisorUnknown
}
