package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	HTTP         HTTPConfig     `yaml:"http" mapstructure:"http"`
	Nominatim    ServiceConfig  `yaml:"nominatim" mapstructure:"nominatim"`
	GeoNames     GeoNamesConfig `yaml:"geonames" mapstructure:"geonames"`
	BigDataCloud ServiceConfig  `yaml:"bigdatacloud" mapstructure:"bigdatacloud"`
	Overpass     OverpassConfig `yaml:"overpass" mapstructure:"overpass"`
	WorldBank    ServiceConfig  `yaml:"worldbank" mapstructure:"worldbank"`
	Wikipedia    ServiceConfig  `yaml:"wikipedia" mapstructure:"wikipedia"`
	WorldPop     WorldPopConfig `yaml:"worldpop" mapstructure:"worldpop"`
	Income       IncomeConfig   `yaml:"income" mapstructure:"income"`
	Cache        CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Breaker      BreakerConfig  `yaml:"breaker" mapstructure:"breaker"`
	Tables       TablesConfig   `yaml:"tables" mapstructure:"tables"`
	Server       ServerConfig   `yaml:"server" mapstructure:"server"`
	Log          LogConfig      `yaml:"log" mapstructure:"log"`
}

// HTTPConfig holds settings shared by every outbound client.
type HTTPConfig struct {
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// ServiceConfig configures a single upstream HTTP service.
type ServiceConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MinIntervalMs int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// Timeout returns the request timeout as a duration.
func (s ServiceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// MinInterval returns the minimum spacing between calls as a duration.
func (s ServiceConfig) MinInterval() time.Duration {
	return time.Duration(s.MinIntervalMs) * time.Millisecond
}

// GeoNamesConfig holds GeoNames settings.
type GeoNamesConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Username      string `yaml:"username" mapstructure:"username"`
}

// OverpassConfig holds Overpass API settings.
type OverpassConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	MaxParallel   int `yaml:"max_parallel" mapstructure:"max_parallel"`
}

// WorldPopConfig holds WorldPop stats API settings.
type WorldPopConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Dataset       string `yaml:"dataset" mapstructure:"dataset"`
	Year          int    `yaml:"year" mapstructure:"year"`
}

// IncomeConfig configures the radius income estimator.
type IncomeConfig struct {
	Indicator       string `yaml:"indicator" mapstructure:"indicator"`
	StartYear       int    `yaml:"start_year" mapstructure:"start_year"`
	EndYear         int    `yaml:"end_year" mapstructure:"end_year"`
	SamplePoints    int    `yaml:"sample_points" mapstructure:"sample_points"`
	PointIntervalMs int    `yaml:"point_interval_ms" mapstructure:"point_interval_ms"`
	Seed            int64  `yaml:"seed" mapstructure:"seed"`
}

// CacheConfig sizes the in-process lookup cache.
type CacheConfig struct {
	MaxEntries int64 `yaml:"max_entries" mapstructure:"max_entries"`
}

// BreakerConfig configures per-service circuit breakers.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// TablesConfig points at an optional lookup-table override file.
type TablesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP façade.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LoadDotEnv loads variables from the given .env files (default ".env") into
// the process environment. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return eris.Wrap(err, "config: load .env")
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SITESCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("http.user_agent", "site-scorer/1.0 (+https://github.com/sells-group/site-scorer)")
	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.timeout_secs", 10)
	v.SetDefault("nominatim.min_interval_ms", 1100)
	v.SetDefault("geonames.base_url", "http://api.geonames.org")
	v.SetDefault("geonames.timeout_secs", 10)
	v.SetDefault("geonames.min_interval_ms", 0)
	v.SetDefault("geonames.username", "demo")
	v.SetDefault("bigdatacloud.base_url", "https://api.bigdatacloud.net/data")
	v.SetDefault("bigdatacloud.timeout_secs", 10)
	v.SetDefault("bigdatacloud.min_interval_ms", 0)
	v.SetDefault("overpass.base_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.timeout_secs", 45)
	v.SetDefault("overpass.min_interval_ms", 2000)
	v.SetDefault("overpass.max_parallel", 1)
	v.SetDefault("worldbank.base_url", "https://api.worldbank.org/v2")
	v.SetDefault("worldbank.timeout_secs", 15)
	v.SetDefault("worldbank.min_interval_ms", 0)
	v.SetDefault("wikipedia.base_url", "https://en.wikipedia.org/w/api.php")
	v.SetDefault("wikipedia.timeout_secs", 10)
	v.SetDefault("wikipedia.min_interval_ms", 500)
	v.SetDefault("worldpop.base_url", "https://api.worldpop.org/v1/services/stats")
	v.SetDefault("worldpop.timeout_secs", 10)
	v.SetDefault("worldpop.min_interval_ms", 0)
	v.SetDefault("worldpop.dataset", "wpgppop")
	v.SetDefault("worldpop.year", 2020)
	v.SetDefault("income.indicator", "NY.GDP.PCAP.CD")
	v.SetDefault("income.start_year", 2020)
	v.SetDefault("income.end_year", 2022)
	v.SetDefault("income.sample_points", 5)
	v.SetDefault("income.point_interval_ms", 500)
	v.SetDefault("income.seed", 0)
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("breaker.failure_threshold", 3)
	v.SetDefault("breaker.reset_timeout_secs", 60)
	v.SetDefault("tables.path", "")

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

// InitLogger initializes the global zap logger. Output always goes to stderr
// so stdout stays reserved for the JSON report.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

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
