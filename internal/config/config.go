// Package config loads air-quality-cli settings from config.yaml, environment and defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/air-quality-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Data     DataConfig     `yaml:"data" mapstructure:"data"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	OpenAQ   OpenAQConfig   `yaml:"openaq" mapstructure:"openaq"`
	Tiger    TigerConfig    `yaml:"tiger" mapstructure:"tiger"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Cities   []model.City   `yaml:"cities" mapstructure:"cities"`
}

// DataConfig locates the optional input files. File names are relative to Dir.
type DataConfig struct {
	Dir            string `yaml:"dir" mapstructure:"dir"`
	EmissionsFile  string `yaml:"emissions_file" mapstructure:"emissions_file"`
	FallbackFile   string `yaml:"fallback_file" mapstructure:"fallback_file"`
	FacilitiesFile string `yaml:"facilities_file" mapstructure:"facilities_file"`
	PlacesArchive  string `yaml:"places_archive" mapstructure:"places_archive"`

	// FacilitiesCharset is the encoding of a CSV facility export, e.g. "windows-1252".
	FacilitiesCharset string `yaml:"facilities_charset" mapstructure:"facilities_charset"`
}

// OutputConfig names the exported artifacts. File names are relative to Dir.
type OutputConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	CSVFile     string `yaml:"csv_file" mapstructure:"csv_file"`
	GeoJSONFile string `yaml:"geojson_file" mapstructure:"geojson_file"`
	MapFile     string `yaml:"map_file" mapstructure:"map_file"`
}

// AnalysisConfig selects the emissions year averaged into co2.
type AnalysisConfig struct {
	Year int `yaml:"year" mapstructure:"year"`
}

// OpenAQConfig configures the live PM2.5 lookup.
type OpenAQConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	RadiusKM    float64 `yaml:"radius_km" mapstructure:"radius_km"`
	Limit       int     `yaml:"limit" mapstructure:"limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`

	BreakerThreshold int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// TigerConfig configures the optional place boundary download.
type TigerConfig struct {
	PlaceURL string `yaml:"place_url" mapstructure:"place_url"`
	WorkDir  string `yaml:"work_dir" mapstructure:"work_dir"`
}

// CacheConfig configures the SQLite observation cache. Empty Path disables it.
type CacheConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// MetricsConfig configures the Prometheus textfile written after each run. Empty Textfile disables it.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultCities is the compiled-in city list.
func DefaultCities() []model.City {
	return []model.City{
		{Name: "New York", Latitude: 40.7128, Longitude: -74.0060},
		{Name: "Los Angeles", Latitude: 34.0522, Longitude: -118.2437},
		{Name: "Chicago", Latitude: 41.8781, Longitude: -87.6298},
		{Name: "Houston", Latitude: 29.7604, Longitude: -95.3698},
		{Name: "Phoenix", Latitude: 33.4484, Longitude: -112.0740},
		{Name: "Philadelphia", Latitude: 39.9526, Longitude: -75.1652},
		{Name: "Tampa", Latitude: 27.9506, Longitude: -82.4572},
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AIRQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("openaq.api_key", "AIRQ_OPENAQ_API_KEY", "OPENAQ_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind env")
	}

	// Defaults
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.emissions_file", "carbon_monitor_cities.csv")
	v.SetDefault("data.fallback_file", "pm25_fallback.csv")
	v.SetDefault("data.facilities_file", "tri_2023_us.csv")
	v.SetDefault("data.places_archive", "tl_2024_us_place.zip")
	v.SetDefault("data.facilities_charset", "")
	v.SetDefault("output.dir", "outputs")
	v.SetDefault("output.csv_file", "metrics_by_city.csv")
	v.SetDefault("output.geojson_file", "metrics_by_city.geojson")
	v.SetDefault("output.map_file", "air_quality_map.html")
	v.SetDefault("analysis.year", 2024)
	v.SetDefault("openaq.base_url", "https://api.openaq.org/v2/latest")
	v.SetDefault("openaq.api_key", "")
	v.SetDefault("openaq.radius_km", 25)
	v.SetDefault("openaq.limit", 100)
	v.SetDefault("openaq.timeout_secs", 20)
	v.SetDefault("openaq.max_retries", 1)
	v.SetDefault("openaq.rate_per_sec", 1)
	v.SetDefault("openaq.breaker_threshold", 3)
	v.SetDefault("openaq.breaker_reset_secs", 60)
	v.SetDefault("tiger.place_url", "")
	v.SetDefault("tiger.work_dir", "")
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("cities", citiesDefault())

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

func citiesDefault() []map[string]any {
	cities := DefaultCities()
	out := make([]map[string]any, len(cities))
	for i, c := range cities {
		out[i] = map[string]any{"name": c.Name, "latitude": c.Latitude, "longitude": c.Longitude}
	}
	return out
}

// Validate checks the settings the pipeline cannot run without.
func (c *Config) Validate() error {
	var errs []string

	if len(c.Cities) == 0 {
		errs = append(errs, "cities must not be empty")
	}
	seen := make(map[string]bool, len(c.Cities))
	for _, city := range c.Cities {
		switch {
		case strings.TrimSpace(city.Name) == "":
			errs = append(errs, "cities: name is required")
		case seen[city.Name]:
			errs = append(errs, fmt.Sprintf("cities: duplicate name %q", city.Name))
		}
		seen[city.Name] = true
		if city.Latitude < -90 || city.Latitude > 90 || city.Longitude < -180 || city.Longitude > 180 {
			errs = append(errs, fmt.Sprintf("cities: %q has out-of-range coordinates", city.Name))
		}
	}
	if c.OpenAQ.RadiusKM <= 0 {
		errs = append(errs, "openaq.radius_km must be > 0")
	}
	if c.OpenAQ.TimeoutSecs <= 0 {
		errs = append(errs, "openaq.timeout_secs must be > 0")
	}
	if c.OpenAQ.MaxRetries < 1 {
		errs = append(errs, "openaq.max_retries must be >= 1")
	}
	if c.Output.Dir == "" {
		errs = append(errs, "output.dir is required")
	}
	if cs := c.Data.FacilitiesCharset; cs != "" {
		if _, err := htmlindex.Get(cs); err != nil {
			errs = append(errs, fmt.Sprintf("data.facilities_charset: unknown encoding %q", cs))
		}
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
