package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Source resolves one query to its ordered autocomplete suggestions.
type Source interface {
	Fetch(ctx context.Context, query string) ([]string, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context, query string) ([]string, error)

func (f SourceFunc) Fetch(ctx context.Context, query string) ([]string, error) {
	return f(ctx, query)
}

// ErrScanCancelled is returned when a scan is aborted; no snapshot is produced.
var ErrScanCancelled = errors.New("scan cancelled")

// FetchErrorKind tells the collector whether a failed fetch is worth retrying.
type FetchErrorKind int

const (
	KindTransient FetchErrorKind = iota
	KindRateLimited
	KindPermanent
)

func (k FetchErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate-limited"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// FetchError is the error a Source returns for a failed query.
type FetchError struct {
	Query      string
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

// NewFetchError builds a FetchError.
func NewFetchError(kind FetchErrorKind, query string, status int, err error) *FetchError {
	return &FetchError{Query: query, Kind: kind, StatusCode: status, Err: err}
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %q: %s (HTTP %d): %v", e.Query, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %q: %s: %v", e.Query, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is transient: a transient or rate-limited
// FetchError, a per-request timeout, or a network error. Anything else,
// including permanent FetchErrors, is final.
func IsRetryable(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind != KindPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
