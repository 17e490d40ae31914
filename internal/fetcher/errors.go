package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind classifies a fetch failure.
type Kind int

const (
	// KindTimeout means the request exceeded its deadline.
	KindTimeout Kind = iota + 1
	// KindHTTP means the server answered with a non-success status.
	KindHTTP
	// KindNetwork covers DNS, connection and transfer failures.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// FetchError is the typed failure returned by every fetcher. All kinds are
// recoverable at the pipeline level.
type FetchError struct {
	Kind       Kind
	StatusCode int
	URL        string
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindHTTP:
		if e.Err != nil {
			return fmt.Sprintf("http %d from %s: %v", e.StatusCode, e.URL, e.Err)
		}
		return fmt.Sprintf("http %d from %s", e.StatusCode, e.URL)
	case KindTimeout:
		return fmt.Sprintf("timeout fetching %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewHTTPError builds a KindHTTP failure.
func NewHTTPError(rawURL string, status int, detail error) *FetchError {
	return &FetchError{Kind: KindHTTP, StatusCode: status, URL: rawURL, Err: detail}
}

// timeoutPatterns catch timeouts that surface only as text from wrapped
// transport errors.
var timeoutPatterns = []string{
	"i/o timeout",
	"tls handshake timeout",
	"deadline exceeded",
	"client.timeout exceeded",
}

// Classify converts a transport error into a *FetchError. An existing
// *FetchError in the chain is returned unchanged.
func Classify(rawURL string, err error) *FetchError {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, URL: rawURL, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: KindTimeout, URL: rawURL, Err: err}
	}
	msg := strings.ToLower(err.Error())
	for _, p := range timeoutPatterns {
		if strings.Contains(msg, p) {
			return &FetchError{Kind: KindTimeout, URL: rawURL, Err: err}
		}
	}
	return &FetchError{Kind: KindNetwork, URL: rawURL, Err: err}
}

// KindOf returns the failure kind of err, or 0 when err is not a fetch failure.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
