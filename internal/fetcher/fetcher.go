// Package fetcher retrieves pages over plain HTTP or through a headless
// Chromium instance.
package fetcher

import (
	"context"
	"net/http"

	"github.com/IshaanNene/njbuds/internal/types"
)

// Fetcher is the interface for all page fetcher implementations.
type Fetcher interface {
	// Get retrieves the content at rawURL. Responses with status >= 400
	// are returned as *types.FetchError.
	Get(ctx context.Context, rawURL string, opts ...RequestOption) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// requestOptions are per-call overrides.
type requestOptions struct {
	headers http.Header
}

// RequestOption customizes a single Get call.
type RequestOption func(*requestOptions)

// WithHeader adds a request header.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(http.Header)
		}
		o.headers.Set(key, value)
	}
}

func buildOptions(opts []RequestOption) requestOptions {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
