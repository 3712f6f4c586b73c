// Package fetcher downloads remote documents over HTTP and reads local
// tabular inputs (CSV, XLSX) and XML feeds.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	// Non-200 responses return a *StatusError.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// StatusError reports a response with an unexpected HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// ReadAll downloads url and reads at most limit bytes of the body.
// A limit <= 0 reads the whole body.
func ReadAll(ctx context.Context, f Fetcher, url string, limit int64) ([]byte, error) {
	body, err := f.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	var r io.Reader = body
	if limit > 0 {
		r = io.LimitReader(body, limit)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrapf(err, "read body %s", url)
	}
	return data, nil
}
