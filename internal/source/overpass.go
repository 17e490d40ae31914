package source

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/camera-db/internal/fetcher"
	"github.com/sells-group/camera-db/internal/model"
	"github.com/sells-group/camera-db/internal/normalize"
	"github.com/sells-group/camera-db/internal/query"
)

// Overpass defaults.
const (
	DefaultOverpassURL           = "https://overpass-api.de/api/interpreter"
	DefaultOverpassClientTimeout = 300 * time.Second
	DefaultOverpassServerTimeout = 180 * time.Second
)

// OverpassConfig configures the Overpass source.
type OverpassConfig struct {
	Name          string // defaults to "overpass"
	URL           string
	ClientTimeout time.Duration
	ServerTimeout time.Duration // declared to the server via [timeout:]
	Policy        normalize.FlagPolicy
}

// Overpass queries the OpenStreetMap Overpass API.
type Overpass struct {
	cfg     OverpassConfig
	fetcher fetcher.Fetcher
	norm    *normalize.Overpass
}

// NewOverpass creates an Overpass source using f for transport.
func NewOverpass(f fetcher.Fetcher, cfg OverpassConfig) *Overpass {
	if cfg.Name == "" {
		cfg.Name = "overpass"
	}
	if cfg.URL == "" {
		cfg.URL = DefaultOverpassURL
	}
	if cfg.ClientTimeout <= 0 {
		cfg.ClientTimeout = DefaultOverpassClientTimeout
	}
	if cfg.ServerTimeout <= 0 {
		cfg.ServerTimeout = DefaultOverpassServerTimeout
	}
	return &Overpass{
		cfg:     cfg,
		fetcher: f,
		norm:    normalize.NewOverpass(cfg.Name, cfg.Policy),
	}
}

// Name implements Source.
func (o *Overpass) Name() string { return o.cfg.Name }

// Provider implements Source.
func (o *Overpass) Provider() string { return providerKey(o.cfg.URL, o.cfg.Name) }

// Supports implements Source. Overpass serves every category and scope.
func (o *Overpass) Supports(model.Category, query.Scope) bool { return true }

// Collect implements Source.
func (o *Overpass) Collect(ctx context.Context, cat model.Category, scope query.Scope) ([]model.Camera, normalize.Stats, error) {
	log := zap.L().With(
		zap.String("component", "source.overpass"),
		zap.String("category", string(cat)),
		zap.String("scope", scope.String()),
	)

	q := query.OverpassQuery([]model.Category{cat}, scope, o.cfg.ServerTimeout)
	log.Debug("querying overpass", zap.Int("query_bytes", len(q)))

	payload, err := o.fetcher.Fetch(ctx, fetcher.Request{
		Method:  http.MethodPost,
		URL:     o.cfg.URL,
		Form:    url.Values{"data": {q}},
		Timeout: o.cfg.ClientTimeout,
	})
	if err != nil {
		return nil, normalize.Stats{}, err
	}

	recs, st, err := o.norm.Normalize(payload.Body, cat)
	if err != nil {
		return nil, st, eris.Wrapf(err, "overpass: normalize %s", cat)
	}

	log.Debug("overpass payload normalized",
		zap.Int("bytes", len(payload.Body)),
		zap.Int("records", len(recs)),
		zap.Int("skipped", st.Skipped()),
		zap.Duration("elapsed", payload.Elapsed),
	)
	return recs, st, nil
}

// providerKey returns the URL host, falling back to name.
func providerKey(rawURL, name string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return name
	}
	return u.Host
}
