package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultMaxBodyBytes bounds a single response body.
const DefaultMaxBodyBytes int64 = 512 << 20

// errorSnippetBytes is how much of a non-200 body is kept for diagnostics.
const errorSnippetBytes = 512

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	MaxBodyBytes int64
	Transport    http.RoundTripper
}

// HTTPFetcher implements Fetcher over net/http. It never retries.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options. Timeouts
// are per request, so the client itself carries none.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = "camera-db/1.0 (camera database generator)"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 15 * time.Second,
		}
	}
	return &HTTPFetcher{
		client: &http.Client{Transport: transport},
		opts:   opts,
	}
}

// Fetch performs the request and reads the complete body.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (*Payload, error) {
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	httpReq, err := f.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, Classify(req.URL, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorSnippetBytes))
		var detail error
		if s := strings.TrimSpace(string(snippet)); s != "" {
			detail = eris.New(s)
		}
		zap.L().Debug("fetcher: non-200 response",
			zap.String("url", req.URL),
			zap.Int("status", resp.StatusCode),
		)
		return nil, NewHTTPError(req.URL, resp.StatusCode, detail)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, Classify(req.URL, eris.Wrap(err, "read body"))
	}
	if int64(len(body)) > f.opts.MaxBodyBytes {
		return nil, &FetchError{
			Kind: KindNetwork,
			URL:  req.URL,
			Err:  eris.Errorf("response body exceeds %d bytes", f.opts.MaxBodyBytes),
		}
	}

	return &Payload{
		URL:         req.URL,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FetchedAt:   start.UTC(),
		Elapsed:     time.Since(start),
	}, nil
}

func (f *HTTPFetcher) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if method == http.MethodPost && req.Form != nil {
		body = bytes.NewBufferString(req.Form.Encode())
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: req.URL, Err: eris.Wrap(err, "create request")}
	}
	httpReq.Header.Set("User-Agent", f.opts.UserAgent)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return httpReq, nil
}
