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
	Data  DataConfig  `yaml:"data" mapstructure:"data"`
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`
	Sweep SweepConfig `yaml:"sweep" mapstructure:"sweep"`
	Post  PostConfig  `yaml:"post" mapstructure:"post"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the tract shapefile and its attribute fields.
type DataConfig struct {
	Shapefile       string `yaml:"shapefile" mapstructure:"shapefile"`
	IDField         string `yaml:"id_field" mapstructure:"id_field"`
	PopulationField string `yaml:"population_field" mapstructure:"population_field"`
	AreaField       string `yaml:"area_field" mapstructure:"area_field"`
}

// CacheConfig configures the SQLite cache for graphs and sweeps.
type CacheConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SweepConfig configures the λ grid and the μ search.
type SweepConfig struct {
	LambdaStart    float64   `yaml:"lambda_start" mapstructure:"lambda_start"`
	LambdaStop     float64   `yaml:"lambda_stop" mapstructure:"lambda_stop"`
	LambdaStep     float64   `yaml:"lambda_step" mapstructure:"lambda_step"`
	Lambdas        []float64 `yaml:"lambdas" mapstructure:"lambdas"` // explicit list overrides the grid
	TargetFraction float64   `yaml:"target_fraction" mapstructure:"target_fraction"`
	Tolerance      float64   `yaml:"tolerance" mapstructure:"tolerance"`
	MaxIterations  int       `yaml:"max_iterations" mapstructure:"max_iterations"`
	Workers        int       `yaml:"workers" mapstructure:"workers"`
	FailFast       bool      `yaml:"fail_fast" mapstructure:"fail_fast"`
}

// PostConfig configures post-processing and export.
type PostConfig struct {
	SimplifyTolerance float64 `yaml:"simplify_tolerance" mapstructure:"simplify_tolerance"`
	Quantization      float64 `yaml:"quantization" mapstructure:"quantization"`
	OutputDir         string  `yaml:"output_dir" mapstructure:"output_dir"`
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
	v.SetEnvPrefix("TRACTCUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.id_field", "GEOID")
	v.SetDefault("data.population_field", "POP")
	v.SetDefault("data.area_field", "ALAND")
	v.SetDefault("cache.path", "tractcut.db")
	v.SetDefault("sweep.lambda_start", 0.0)
	v.SetDefault("sweep.lambda_stop", 1.0)
	v.SetDefault("sweep.lambda_step", 0.1)
	v.SetDefault("sweep.target_fraction", 0.5)
	v.SetDefault("sweep.tolerance", 0.01)
	v.SetDefault("sweep.max_iterations", 50)
	v.SetDefault("sweep.workers", 0)
	v.SetDefault("sweep.fail_fast", true)
	v.SetDefault("post.simplify_tolerance", 500.0)
	v.SetDefault("post.quantization", 1e5)
	v.SetDefault("post.output_dir", "out/topojson")
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
