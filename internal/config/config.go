package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/camera-db/internal/query"
)

// Config holds the full application configuration.
type Config struct {
	Overpass   OverpassConfig   `yaml:"overpass" mapstructure:"overpass"`
	FlatFile   FlatFileConfig   `yaml:"flatfile" mapstructure:"flatfile"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	History    HistoryConfig    `yaml:"history" mapstructure:"history"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// OverpassConfig configures the Overpass API source.
type OverpassConfig struct {
	URL               string `yaml:"url" mapstructure:"url"`
	TimeoutSecs       int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	ServerTimeoutSecs int    `yaml:"server_timeout_secs" mapstructure:"server_timeout_secs"`
}

// FlatFileConfig configures the POI Factory flat-file source.
type FlatFileConfig struct {
	TimeoutSecs int               `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Charset     string            `yaml:"charset" mapstructure:"charset"`
	URLs        map[string]string `yaml:"urls" mapstructure:"urls"`
	Countries   []string          `yaml:"countries" mapstructure:"countries"`
}

// FetchConfig configures the shared transport.
type FetchConfig struct {
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyMB int    `yaml:"max_body_mb" mapstructure:"max_body_mb"`
}

// PipelineConfig configures the build orchestrator.
type PipelineConfig struct {
	PacingMs                int    `yaml:"pacing_ms" mapstructure:"pacing_ms"`
	MaxConcurrentCategories int    `yaml:"max_concurrent_categories" mapstructure:"max_concurrent_categories"`
	PlanFile                string `yaml:"plan_file" mapstructure:"plan_file"`
	Country                 string `yaml:"country" mapstructure:"country"`
}

// OutputConfig configures where database files land.
type OutputConfig struct {
	Dir  string `yaml:"dir" mapstructure:"dir"`
	Meta bool   `yaml:"meta" mapstructure:"meta"`
}

// HistoryConfig configures the run history database. An empty path
// disables history.
type HistoryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MonitoringConfig configures metrics export and alerting.
type MonitoringConfig struct {
	TextfilePath    string `yaml:"textfile_path" mapstructure:"textfile_path"`
	WebhookURL      string `yaml:"webhook_url" mapstructure:"webhook_url"`
	AlertOnFallback bool   `yaml:"alert_on_fallback" mapstructure:"alert_on_fallback"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CAMDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("overpass.url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.timeout_secs", 300)
	v.SetDefault("overpass.server_timeout_secs", 180)
	v.SetDefault("flatfile.timeout_secs", 60)
	v.SetDefault("flatfile.charset", "windows-1252")
	v.SetDefault("flatfile.urls", map[string]string{
		"redlight": "http://www.poi-factory.com/sites/default/files/poifiles/redlightcamera.csv",
		"speed":    "http://www.poi-factory.com/sites/default/files/poifiles/speedcamera.csv",
	})
	v.SetDefault("flatfile.countries", []string{"US"})
	v.SetDefault("fetch.user_agent", "camera-db/1.0 (camera database generator)")
	v.SetDefault("fetch.max_body_mb", 512)
	v.SetDefault("pipeline.pacing_ms", 2000)
	v.SetDefault("pipeline.max_concurrent_categories", 3)
	v.SetDefault("pipeline.plan_file", "")
	v.SetDefault("pipeline.country", "US")
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.meta", false)
	v.SetDefault("history.path", "camdb-history.db")
	v.SetDefault("monitoring.textfile_path", "")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.alert_on_fallback", false)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks cross-field constraints. All problems are reported at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Overpass.URL == "" {
		problems = append(problems, "overpass.url is required")
	}
	if c.Overpass.TimeoutSecs <= 0 || c.Overpass.ServerTimeoutSecs <= 0 {
		problems = append(problems, "overpass timeouts must be > 0")
	} else if c.Overpass.TimeoutSecs < c.Overpass.ServerTimeoutSecs {
		problems = append(problems, "overpass.timeout_secs must be >= overpass.server_timeout_secs")
	}
	if c.FlatFile.TimeoutSecs <= 0 {
		problems = append(problems, "flatfile.timeout_secs must be > 0")
	}
	if c.Fetch.MaxBodyMB < 0 {
		problems = append(problems, "fetch.max_body_mb must be >= 0")
	}
	if c.Pipeline.PacingMs < 0 {
		problems = append(problems, "pipeline.pacing_ms must be >= 0")
	}
	if c.Pipeline.MaxConcurrentCategories < 1 || c.Pipeline.MaxConcurrentCategories > 16 {
		problems = append(problems, "pipeline.max_concurrent_categories must be between 1 and 16")
	}
	if !query.KnownCountry(strings.TrimSpace(c.Pipeline.Country)) {
		problems = append(problems, "pipeline.country must be an assigned ISO 3166-1 alpha-2 code")
	}
	for _, cc := range c.FlatFile.Countries {
		if !query.KnownCountry(cc) {
			problems = append(problems, fmt.Sprintf("flatfile.countries: unknown country %q", cc))
		}
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		problems = append(problems, "log.format must be json or console")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
