package config

import (
	"strings"

	"github.com/TheApexWu/lacuna/internal"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// We're bootstrapping so avoid any imports from other packages
var log = logrus.New()

// LoadConfig loads the config file and ENV variables into a Config struct
func LoadConfig(configFile string) (*Config, error) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("LACUNA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine: defaults plus ENV are a
		// complete configuration.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Environment variables take precedence over config file
	loadDotEnv()

	err := viper.BindEnv("embeddings.api_key", "LACUNA_EMBEDDINGS_API_KEY")
	if err != nil {
		log.Fatalf("Error binding environment variable: %s", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("languages", []string{"en", "de"})
	viper.SetDefault("log.level", "info")

	viper.SetDefault("embeddings.service", "openai")
	viper.SetDefault("embeddings.model", "text-embedding-3-large")
	viper.SetDefault("embeddings.dimensions", 1024)
	viper.SetDefault("embeddings.batch_size", 32)
	viper.SetDefault("embeddings.batch_delay_ms", 500)

	viper.SetDefault("validation.duplicate_threshold", 0.85)
	viper.SetDefault("validation.cross_lang_max", 0.92)
	viper.SetDefault("validation.confidence_min", 0.5)
	viper.SetDefault("validation.uniformity_min", 0.3)

	viper.SetDefault("ghost.weight_threshold", 0.15)
	viper.SetDefault("ghost.weight_ratio", 2.5)
	viper.SetDefault("ghost.neutral_divergence", 0.005)

	viper.SetDefault("topology.neighbors", 15)
	viper.SetDefault("topology.min_dist", 0.1)
	viper.SetDefault("topology.epochs", 200)
	viper.SetDefault("topology.seed", 42)
}

// loadDotEnv loads environment variables from .env file
func loadDotEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Debug(".env file not found or unable to load")
	}
}

// SetLogLevel sets the log level based on the config file. Defaults to INFO if not set or invalid
func SetLogLevel(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	internal.SetLogLevel(level)
	log.Info("Log level set to: ", level)
}
