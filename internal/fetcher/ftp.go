package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	MaxBodyBytes int64
}

// FTPFetcher retrieves mirrored flat files over anonymous FTP.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates a new FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &FTPFetcher{opts: opts}
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host string, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	path = u.Path
	if path == "" {
		return "", "", eris.New("empty path in ftp url")
	}
	return host, path, nil
}

// Fetch connects, retrieves the file and disconnects.
func (f *FTPFetcher) Fetch(ctx context.Context, req Request) (*Payload, error) {
	host, path, err := parseFTPURL(req.URL)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: req.URL, Err: err}
	}

	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	dialOpts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if req.Timeout > 0 {
		dialOpts = append(dialOpts, ftp.DialWithTimeout(req.Timeout))
	}

	start := time.Now()
	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("path", path))

	conn, err := ftp.Dial(host, dialOpts...)
	if err != nil {
		return nil, Classify(req.URL, eris.Wrap(err, "ftp dial"))
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		return nil, Classify(req.URL, eris.Wrap(err, "ftp login"))
	}

	resp, err := conn.Retr(path)
	if err != nil {
		return nil, Classify(req.URL, eris.Wrap(err, "ftp retrieve"))
	}
	defer resp.Close() //nolint:errcheck

	if deadline, ok := ctx.Deadline(); ok {
		_ = resp.SetDeadline(deadline)
	}

	body, err := io.ReadAll(io.LimitReader(resp, f.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, Classify(req.URL, eris.Wrap(err, "ftp read"))
	}
	if int64(len(body)) > f.opts.MaxBodyBytes {
		return nil, &FetchError{
			Kind: KindNetwork,
			URL:  req.URL,
			Err:  eris.Errorf("ftp file exceeds %d bytes", f.opts.MaxBodyBytes),
		}
	}

	return &Payload{
		URL:       req.URL,
		Body:      body,
		FetchedAt: start.UTC(),
		Elapsed:   time.Since(start),
	}, nil
}
