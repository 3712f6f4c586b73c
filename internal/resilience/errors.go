// Package resilience defines the error taxonomy shared by the enrichment
// stages and retry helpers for calls to external services.
package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// ErrNotFound marks a lookup that produced no usable result
// (no website, no ticker, no company row).
var ErrNotFound = eris.New("not found")

// ErrExists marks an insert that wrote nothing because the row already exists.
var ErrExists = eris.New("already exists")

// TransientError wraps an error that is safe to retry (429, 5xx, timeouts).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// ParseError reports an oracle response that could not be interpreted.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// QuotaError reports that a metered service refused further calls.
// It aborts the whole run.
type QuotaError struct {
	Service string
	Detail  string
}

func (e *QuotaError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: quota exceeded", e.Service)
	}
	return fmt.Sprintf("%s: quota exceeded: %s", e.Service, e.Detail)
}

// NewQuotaError builds a QuotaError, truncating long details.
func NewQuotaError(service, detail string) *QuotaError {
	if len(detail) > 200 {
		detail = detail[:200]
	}
	return &QuotaError{Service: service, Detail: detail}
}

// IsQuotaExceeded reports whether err carries a QuotaError anywhere in its chain.
func IsQuotaExceeded(err error) bool {
	if err == nil {
		return false
	}
	var qe *QuotaError
	return errors.As(err, &qe)
}

var quotaMarkers = []string{
	"quota",
	"resource_exhausted",
	"resource exhausted",
}

// DetectQuota returns a QuotaError for service when text carries a quota marker,
// or nil otherwise.
func DetectQuota(service, text string) error {
	lower := strings.ToLower(text)
	for _, m := range quotaMarkers {
		if strings.Contains(lower, m) {
			return NewQuotaError(service, strings.TrimSpace(text))
		}
	}
	return nil
}

// PersistenceError wraps a storage failure for a single company.
type PersistenceError struct {
	Company string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %q: %v", e.Company, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or if it matches common transient error patterns (network
// timeouts, connection resets, DNS failures). Quota errors are never transient.
func IsTransient(err error) bool {
	if err == nil || IsQuotaExceeded(err) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
