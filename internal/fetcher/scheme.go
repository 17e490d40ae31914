package fetcher

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// SchemeFetcher routes requests to a Fetcher by URL scheme.
type SchemeFetcher struct {
	byScheme map[string]Fetcher
}

// NewSchemeFetcher routes http and https to h and ftp to f. Either may be nil.
func NewSchemeFetcher(h Fetcher, f Fetcher) *SchemeFetcher {
	s := &SchemeFetcher{byScheme: make(map[string]Fetcher)}
	if h != nil {
		s.byScheme["http"] = h
		s.byScheme["https"] = h
	}
	if f != nil {
		s.byScheme["ftp"] = f
	}
	return s
}

// Fetch dispatches to the fetcher registered for the request URL's scheme.
func (s *SchemeFetcher) Fetch(ctx context.Context, req Request) (*Payload, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: req.URL, Err: eris.Wrap(err, "parse url")}
	}
	f, ok := s.byScheme[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, &FetchError{Kind: KindNetwork, URL: req.URL, Err: eris.Errorf("unsupported scheme %q", u.Scheme)}
	}
	return f.Fetch(ctx, req)
}
