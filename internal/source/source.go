// Package source wraps the upstream seismic feeds. Each Source issues at
// most one logical fetch per call (with a short bounded retry inside the
// HTTP client) and always returns either a normalized event or a typed
// *FetchError; nothing panics past this boundary.
package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"

	"quakemap/internal/model"
)

// Source is one upstream seismic feed.
type Source interface {
	Name() string
	Fetch(ctx context.Context, window model.FeedWindow) (model.QuakeEvent, error)
}

// FailureKind classifies fetch failures.
type FailureKind string

const (
	// KindTransport covers network errors, timeouts and non-200 statuses.
	KindTransport FailureKind = "transport"
	// KindParse covers malformed payloads and missing mandatory fields.
	KindParse FailureKind = "parse"
)

// FetchError is the only error type returned by sources.
type FetchError struct {
	Source string
	Kind   FailureKind
	// Field names the offending field for parse failures, when known.
	Field string
	Err   error
}

func (e *FetchError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s failure (field %s): %v", e.Source, e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a transport-kind fetch failure.
func IsTransport(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindTransport
}

// IsParse reports whether err is a parse-kind fetch failure.
func IsParse(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindParse
}

func transportErr(source string, err error) *FetchError {
	return &FetchError{Source: source, Kind: KindTransport, Err: err}
}

func parseErr(source, field string, err error) *FetchError {
	return &FetchError{Source: source, Kind: KindParse, Field: field, Err: err}
}

// maxAttempts bounds the client-internal retry loop; a dead feed must
// not stall the scheduler for more than a few cycles.
const (
	maxAttempts = 5
	retryWait   = 2 * time.Second
)

// newClient builds a resty client shared by all feed variants: bounded
// total timeout, bounded retry, and retry on 5xx as well as transport
// errors.
func newClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return resty.New().
		SetTimeout(timeout).
		SetRetryCount(maxAttempts - 1).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})
}

// round2 normalizes feed numbers: coordinates and magnitudes carry two
// decimals, which is also the precision the duplicate check compares at.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
