// Package fetcher performs single-attempt downloads of upstream camera
// payloads over HTTP and FTP. Retry and fallback policy belongs to the
// caller; a fetcher either returns the complete body or a *FetchError.
package fetcher

import (
	"context"
	"net/url"
	"time"
)

// Request describes one upstream retrieval.
type Request struct {
	Method  string     // GET when empty; POST sends Form url-encoded
	URL     string
	Form    url.Values // POST body
	Timeout time.Duration
}

// Payload is a fully-read upstream response.
type Payload struct {
	URL         string
	Body        []byte
	ContentType string
	FetchedAt   time.Time
	Elapsed     time.Duration
}

// Fetcher retrieves a request's body in a single attempt.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Payload, error)
}

// withTimeout applies the request timeout, if any, to ctx.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
