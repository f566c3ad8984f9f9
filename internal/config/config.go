// Package config loads server and engine configuration with viper,
// overridable through FRAUDSCOPE_-prefixed environment variables.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"fraudscope/internal/engine"
)

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

type StorageConfig struct {
	UploadDir    string `mapstructure:"upload_dir"`
	OutputDir    string `mapstructure:"output_dir"`
	DatabasePath string `mapstructure:"database_path"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Engine  engine.Config `mapstructure:"engine"`
}

// Load reads config.yaml from the working directory if present, applies
// defaults, and lets FRAUDSCOPE_* env vars override everything.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix("FRAUDSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.graceful_timeout", 30*time.Second)
	v.SetDefault("server.max_upload_bytes", int64(64<<20))

	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.output_dir", "outputs")
	v.SetDefault("storage.database_path", "fraudscope.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	def := engine.DefaultConfig()
	v.SetDefault("engine.contamination_rate", def.ContaminationRate)
	v.SetDefault("engine.impossible_travel_kmh", def.ImpossibleTravelKMH)
	v.SetDefault("engine.failed_login_threshold", def.FailedLoginThreshold)
	v.SetDefault("engine.min_user_history", def.MinUserHistory)
	v.SetDefault("engine.large_amount_zscore", def.LargeAmountZScore)
	v.SetDefault("engine.max_unparsable_ratio", def.MaxUnparsableRatio)
	v.SetDefault("engine.detector_weights.isolation", def.DetectorWeights.Isolation)
	v.SetDefault("engine.detector_weights.clustering", def.DetectorWeights.Clustering)
	v.SetDefault("engine.detector_weights.covariance", def.DetectorWeights.Covariance)
	v.SetDefault("engine.random_seed", def.RandomSeed)
}
