package source

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/camera-db/internal/fetcher"
	"github.com/sells-group/camera-db/internal/model"
	"github.com/sells-group/camera-db/internal/normalize"
	"github.com/sells-group/camera-db/internal/query"
)

// DefaultFlatFileTimeout bounds a flat-file download.
const DefaultFlatFileTimeout = 60 * time.Second

// DefaultPOIFactoryURLs are the public POI Factory camera lists.
var DefaultPOIFactoryURLs = map[string]string{
	string(model.CategoryRedLight): "http://www.poi-factory.com/sites/default/files/poifiles/redlightcamera.csv",
	string(model.CategorySpeed):    "http://www.poi-factory.com/sites/default/files/poifiles/speedcamera.csv",
}

// DefaultFlatFileCountries are the countries the POI Factory lists cover.
var DefaultFlatFileCountries = []string{"US"}

// FlatFileConfig configures a flat-file source.
type FlatFileConfig struct {
	Name      string            // defaults to "poi_factory"
	URLs      map[string]string // category -> http(s) or ftp URL
	Countries []string          // ISO 3166-1 alpha-2 codes the lists cover
	Timeout   time.Duration
	Charset   string
	Policy    normalize.FlagPolicy
}

// FlatFile downloads one national list per category. The lists carry no
// region column, so regional scopes and countries outside Countries are not
// supported.
type FlatFile struct {
	cfg     FlatFileConfig
	fetcher fetcher.Fetcher
	norm    *normalize.FlatFile
}

// NewFlatFile creates a flat-file source using f for transport.
func NewFlatFile(f fetcher.Fetcher, cfg FlatFileConfig) *FlatFile {
	if cfg.Name == "" {
		cfg.Name = "poi_factory"
	}
	if cfg.URLs == nil {
		cfg.URLs = DefaultPOIFactoryURLs
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFlatFileTimeout
	}
	if len(cfg.Countries) == 0 {
		cfg.Countries = DefaultFlatFileCountries
	}
	return &FlatFile{
		cfg:     cfg,
		fetcher: f,
		norm:    normalize.NewFlatFile(cfg.Name, cfg.Charset, cfg.Policy),
	}
}

// Name implements Source.
func (s *FlatFile) Name() string { return s.cfg.Name }

// Provider implements Source. Keyed by the first configured host.
func (s *FlatFile) Provider() string {
	for _, cat := range model.All() {
		if u, ok := query.FlatFileURL(cat, s.cfg.URLs); ok {
			return providerKey(u, s.cfg.Name)
		}
	}
	return s.cfg.Name
}

// Supports implements Source.
func (s *FlatFile) Supports(cat model.Category, scope query.Scope) bool {
	if scope.IsRegional() || !s.coversCountry(scope.Country) {
		return false
	}
	_, ok := query.FlatFileURL(cat, s.cfg.URLs)
	return ok
}

func (s *FlatFile) coversCountry(country string) bool {
	for _, c := range s.cfg.Countries {
		if strings.EqualFold(c, country) {
			return true
		}
	}
	return false
}

// Collect implements Source.
func (s *FlatFile) Collect(ctx context.Context, cat model.Category, scope query.Scope) ([]model.Camera, normalize.Stats, error) {
	u, ok := query.FlatFileURL(cat, s.cfg.URLs)
	if !ok {
		return nil, normalize.Stats{}, eris.Errorf("%s: no url configured for %s", s.cfg.Name, cat)
	}

	payload, err := s.fetcher.Fetch(ctx, fetcher.Request{URL: u, Timeout: s.cfg.Timeout})
	if err != nil {
		return nil, normalize.Stats{}, err
	}

	recs, st, err := s.norm.Normalize(payload.Body, cat)
	if err != nil {
		return nil, st, eris.Wrapf(err, "%s: normalize %s", s.cfg.Name, cat)
	}

	zap.L().Debug("flat file normalized",
		zap.String("component", "source.flatfile"),
		zap.String("source", s.cfg.Name),
		zap.String("category", string(cat)),
		zap.String("scope", scope.String()),
		zap.Int("records", len(recs)),
		zap.Int("skipped", st.Skipped()),
		zap.Duration("elapsed", payload.Elapsed),
	)
	return recs, st, nil
}
