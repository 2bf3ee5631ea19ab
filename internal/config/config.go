package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/bubble-cli/internal/bubble"
	"github.com/sells-group/bubble-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Engine     bubble.Options   `yaml:"engine" mapstructure:"engine"`
	Regions    RegionsConfig    `yaml:"regions" mapstructure:"regions"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Meta       MetaConfig       `yaml:"meta" mapstructure:"meta"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Trace      TraceConfig      `yaml:"trace" mapstructure:"trace"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// RegionsConfig selects the boundary set and how it is read.
type RegionsConfig struct {
	Type      string `yaml:"type" mapstructure:"type"`
	Name      string `yaml:"name" mapstructure:"name"`
	DataDir   string `yaml:"data_dir" mapstructure:"data_dir"`
	Catalog   string `yaml:"catalog" mapstructure:"catalog"`
	SourceCRS string `yaml:"source_crs" mapstructure:"source_crs"`
	Kernel    string `yaml:"kernel" mapstructure:"kernel"`
}

// OutputConfig controls which artifacts are written.
type OutputConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	Images   bool   `yaml:"images" mapstructure:"images"`
	GeoJSON  bool   `yaml:"geojson" mapstructure:"geojson"`
	Workbook bool   `yaml:"workbook" mapstructure:"workbook"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// StoreConfig configures the result store.
type StoreConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"`
	DSN      string `yaml:"dsn" mapstructure:"dsn"`
	MaxConns int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the results viewer.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// MetaConfig holds Marketing API credentials and upload defaults.
type MetaConfig struct {
	AccessToken string  `yaml:"access_token" mapstructure:"access_token"`
	AccountID   string  `yaml:"account_id" mapstructure:"account_id"`
	AppID       string  `yaml:"app_id" mapstructure:"app_id"`
	AppSecret   string  `yaml:"app_secret" mapstructure:"app_secret"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	APIVersion  string  `yaml:"api_version" mapstructure:"api_version"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	DailyBudget int     `yaml:"daily_budget" mapstructure:"daily_budget"`
	BidAmount   int     `yaml:"bid_amount" mapstructure:"bid_amount"`
}

// MonitoringConfig configures run-health alerting.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	MinNetCoverage       float64 `yaml:"min_net_coverage" mapstructure:"min_net_coverage"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// TraceConfig configures OpenTelemetry tracing.
type TraceConfig struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	ServiceName string  `yaml:"service_name" mapstructure:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio" mapstructure:"sample_ratio"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, the optional config.yaml and the
// environment, in increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BUBBLES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The upload script's variable names keep working.
	for key, env := range map[string]string{
		"meta.access_token": "FACEBOOK_ACCESS_TOKEN",
		"meta.account_id":   "FACEBOOK_ACCOUNT_ID",
		"meta.app_id":       "FACEBOOK_APP_ID",
		"meta.app_secret":   "FACEBOOK_APP_SECRET",
	} {
		prefixed := "BUBBLES_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", key)
		}
	}

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	engine := bubble.DefaultOptions()
	v.SetDefault("engine.limit", engine.Limit)
	v.SetDefault("engine.exclusions", engine.Exclusions)
	v.SetDefault("engine.exclusion_radius", engine.ExclusionRadius)
	v.SetDefault("engine.exclusion_limit", engine.ExclusionLimit)
	v.SetDefault("engine.padding", engine.Padding)
	v.SetDefault("engine.safety_margin", engine.SafetyMargin)
	v.SetDefault("engine.quadrant_segments", engine.QuadrantSegments)
	v.SetDefault("engine.fallback", engine.Fallback)

	v.SetDefault("regions.type", string(model.RegionConstituencies))
	v.SetDefault("regions.name", "")
	v.SetDefault("regions.data_dir", "data")
	v.SetDefault("regions.catalog", "")
	v.SetDefault("regions.source_crs", "")
	v.SetDefault("regions.kernel", "geos")

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.images", true)
	v.SetDefault("output.geojson", true)
	v.SetDefault("output.workbook", true)

	v.SetDefault("batch.concurrency", 4)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "bubbles.db")
	v.SetDefault("store.max_conns", 0)
	v.SetDefault("store.min_conns", 0)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("meta.base_url", "https://graph.facebook.com")
	v.SetDefault("meta.api_version", "v21.0")
	v.SetDefault("meta.rate_per_sec", 2.0)
	v.SetDefault("meta.max_attempts", 3)
	v.SetDefault("meta.daily_budget", 1000)
	v.SetDefault("meta.bid_amount", 100)

	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.10)
	v.SetDefault("monitoring.min_net_coverage", 0)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)

	v.SetDefault("trace.enabled", false)
	v.SetDefault("trace.service_name", "bubble-cli")
	v.SetDefault("trace.sample_ratio", 1.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the settings a command mode depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "generate":
		if !model.RegionType(c.Regions.Type).Valid() {
			errs = append(errs, "regions.type must be constituencies or wards")
		}
		if c.Regions.Kernel != "planar" && c.Regions.Kernel != "geos" {
			errs = append(errs, "regions.kernel must be planar or geos")
		}
		if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64 {
			errs = append(errs, "batch.concurrency must be between 1 and 64")
		}
		if c.Output.Dir == "" {
			errs = append(errs, "output.dir is required")
		}
		if err := c.Engine.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "upload":
		if c.Meta.AccessToken == "" {
			errs = append(errs, "meta.access_token is required (or FACEBOOK_ACCESS_TOKEN)")
		}
		if c.Meta.AccountID == "" {
			errs = append(errs, "meta.account_id is required (or FACEBOOK_ACCOUNT_ID)")
		}
		if c.Meta.RatePerSec <= 0 {
			errs = append(errs, "meta.rate_per_sec must be > 0")
		}
	case "summarize", "runs":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
		errs = append(errs, "monitoring.failure_rate_threshold must be between 0 and 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
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
