package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/camera-db/internal/config"
	"github.com/sells-group/camera-db/internal/fetcher"
	"github.com/sells-group/camera-db/internal/pipeline"
	"github.com/sells-group/camera-db/internal/source"
	"github.com/sells-group/camera-db/internal/store"
)

// initStore opens the run history database.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	if c.History.Path == "" {
		return nil, eris.New("run history is disabled (set history.path or CAMDB_HISTORY_PATH)")
	}
	st, err := store.NewSQLite(c.History.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate history")
	}
	return st, nil
}

// newFetcher routes http(s) and ftp requests to their transports.
func newFetcher(c *config.Config) fetcher.Fetcher {
	maxBody := int64(c.Fetch.MaxBodyMB) << 20
	return fetcher.NewSchemeFetcher(
		fetcher.NewHTTPFetcher(fetcher.HTTPOptions{UserAgent: c.Fetch.UserAgent, MaxBodyBytes: maxBody}),
		fetcher.NewFTPFetcher(fetcher.FTPOptions{MaxBodyBytes: maxBody}),
	)
}

// newRegistry registers the configured sources.
func newRegistry(c *config.Config, f fetcher.Fetcher) *source.Registry {
	reg := source.NewRegistry()
	reg.Register(source.NewOverpass(f, source.OverpassConfig{
		URL:           c.Overpass.URL,
		ClientTimeout: time.Duration(c.Overpass.TimeoutSecs) * time.Second,
		ServerTimeout: time.Duration(c.Overpass.ServerTimeoutSecs) * time.Second,
	}))
	reg.Register(source.NewFlatFile(f, source.FlatFileConfig{
		URLs:      c.FlatFile.URLs,
		Countries: c.FlatFile.Countries,
		Timeout:   time.Duration(c.FlatFile.TimeoutSecs) * time.Second,
		Charset:   c.FlatFile.Charset,
	}))
	return reg
}

// loadPlan reads the plan file if one is set, else the default chains.
func loadPlan(path string) (*pipeline.Plan, error) {
	if path == "" {
		return pipeline.DefaultPlan(), nil
	}
	return pipeline.LoadPlan(path)
}
