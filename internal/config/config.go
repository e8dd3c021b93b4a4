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
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Source SourceConfig `yaml:"source" mapstructure:"source"`
	Synth  SynthConfig  `yaml:"synth" mapstructure:"synth"`
	Lookup LookupConfig `yaml:"lookup" mapstructure:"lookup"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the staging database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// SourceConfig configures where the flat certificate split records come from.
type SourceConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	Table  string `yaml:"table" mapstructure:"table"`
	Path   string `yaml:"path" mapstructure:"path"`
	Sheet  string `yaml:"sheet" mapstructure:"sheet"`
}

// SynthConfig configures the synthesis pipeline and its anomaly thresholds.
type SynthConfig struct {
	EntropyRouting      bool    `yaml:"entropy_routing" mapstructure:"entropy_routing"`
	MaxUniqueRatio      float64 `yaml:"max_unique_ratio" mapstructure:"max_unique_ratio"`
	MaxEntropyBits      float64 `yaml:"max_entropy_bits" mapstructure:"max_entropy_bits"`
	MinDominantCoverage float64 `yaml:"min_dominant_coverage" mapstructure:"min_dominant_coverage"`
	MinClusterSize      int     `yaml:"min_cluster_size" mapstructure:"min_cluster_size"`
	Workers             int     `yaml:"workers" mapstructure:"workers"`
}

// LookupConfig points at the externally supplied reference maps.
type LookupConfig struct {
	ScheduleCSV string `yaml:"schedule_csv" mapstructure:"schedule_csv"`
	BrokerCSV   string `yaml:"broker_csv" mapstructure:"broker_csv"`
}

// ServerConfig configures the status server.
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
	v.SetEnvPrefix("COMMSTAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "commstage.db")
	v.SetDefault("source.driver", "postgres")
	v.SetDefault("source.table", "commission_src.certificate_splits")
	v.SetDefault("synth.entropy_routing", true)
	v.SetDefault("synth.max_unique_ratio", 0.8)
	v.SetDefault("synth.max_entropy_bits", 2.5)
	v.SetDefault("synth.min_dominant_coverage", 0.3)
	v.SetDefault("synth.min_cluster_size", 2)
	v.SetDefault("synth.workers", 4)
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
