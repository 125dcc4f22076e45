package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	EarthEngine EarthEngineConfig `yaml:"earthengine" mapstructure:"earthengine"`
	Assets      AssetsConfig      `yaml:"assets" mapstructure:"assets"`
	Analysis    AnalysisConfig    `yaml:"analysis" mapstructure:"analysis"`
	Export      ExportConfig      `yaml:"export" mapstructure:"export"`
	History     HistoryConfig     `yaml:"history" mapstructure:"history"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// EarthEngineConfig holds remote backend credentials and endpoints.
type EarthEngineConfig struct {
	Project         string `yaml:"project" mapstructure:"project"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec      int    `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// AssetsConfig names the fixed reference datasets.
type AssetsConfig struct {
	Boundaries        string `yaml:"boundaries" mapstructure:"boundaries"`
	BoundaryNameField string `yaml:"boundary_name_field" mapstructure:"boundary_name_field"`
	Coastline         string `yaml:"coastline" mapstructure:"coastline"`
	NDVIProduct       string `yaml:"ndvi_product" mapstructure:"ndvi_product"`
	LSTProduct        string `yaml:"lst_product" mapstructure:"lst_product"`
}

// AnalysisConfig tunes the zonal reductions and the LST plausibility clamp.
type AnalysisConfig struct {
	ScaleM    float64 `yaml:"scale_m" mapstructure:"scale_m"`
	MaxPixels int64   `yaml:"max_pixels" mapstructure:"max_pixels"`
	MinLSTC   float64 `yaml:"min_lst_c" mapstructure:"min_lst_c"`
	MaxLSTC   float64 `yaml:"max_lst_c" mapstructure:"max_lst_c"`
}

// ExportConfig configures GeoTIFF export.
type ExportConfig struct {
	Dir    string  `yaml:"dir" mapstructure:"dir"`
	ScaleM float64 `yaml:"scale_m" mapstructure:"scale_m"`
}

// HistoryConfig configures the local run-history store.
type HistoryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the dashboard server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("GES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Empty defaults register keys so env-only values survive
	// Unmarshal.
	v.SetDefault("earthengine.project", "")
	v.SetDefault("earthengine.credentials_file", "")
	v.SetDefault("earthengine.base_url", "https://earthengine.googleapis.com/v1")
	v.SetDefault("earthengine.rate_per_sec", 5)
	v.SetDefault("assets.boundaries", "USDOS/LSIB_SIMPLE/2017")
	v.SetDefault("assets.boundary_name_field", "country_na")
	v.SetDefault("assets.coastline", "projects/ee-project-457404/assets/coastlines")
	v.SetDefault("assets.ndvi_product", "MODIS/061/MOD13A1")
	v.SetDefault("assets.lst_product", "MODIS/061/MOD11A1")
	v.SetDefault("analysis.scale_m", 1000)
	v.SetDefault("analysis.max_pixels", int64(1e13))
	v.SetDefault("analysis.min_lst_c", -20)
	v.SetDefault("analysis.max_lst_c", 50)
	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.scale_m", 1000)
	v.SetDefault("history.path", "ges-history.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
