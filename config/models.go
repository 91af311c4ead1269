package config

// Config holds the configuration of the application
// Use LoadConfig to create a new instance
type Config struct {
	Languages  []string         `mapstructure:"languages"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	Validation ValidationConfig `mapstructure:"validation"`
	Ghost      GhostConfig      `mapstructure:"ghost"`
	Topology   TopologyConfig   `mapstructure:"topology"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Log        LogConfig        `mapstructure:"log"`
}

// EmbeddingsConfig configures the embedding provider client.
type EmbeddingsConfig struct {
	// Service is "openai" for an OpenAI-compatible endpoint or "local"
	// for a self-hosted embedding server.
	Service    string `mapstructure:"service"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	Endpoint   string `mapstructure:"endpoint"`
	// APIKey is loaded from ENV not config file.
	APIKey       string `mapstructure:"api_key"`
	BatchSize    int    `mapstructure:"batch_size"`
	BatchDelayMs int    `mapstructure:"batch_delay_ms"`
}

// ValidationConfig holds the validator thresholds.
type ValidationConfig struct {
	DuplicateThreshold float32 `mapstructure:"duplicate_threshold"`
	CrossLangMax       float32 `mapstructure:"cross_lang_max"`
	ConfidenceMin      float64 `mapstructure:"confidence_min"`
	UniformityMin      float64 `mapstructure:"uniformity_min"`
}

// GhostConfig holds the ghost classification thresholds.
type GhostConfig struct {
	WeightThreshold   float64 `mapstructure:"weight_threshold"`
	WeightRatio       float64 `mapstructure:"weight_ratio"`
	NeutralDivergence float64 `mapstructure:"neutral_divergence"`
}

// TopologyConfig holds the projection parameters.
type TopologyConfig struct {
	Neighbors int     `mapstructure:"neighbors"`
	MinDist   float64 `mapstructure:"min_dist"`
	Epochs    int     `mapstructure:"epochs"`
	Seed      int64   `mapstructure:"seed"`
}

type CacheConfig struct {
	// Dir is the on-disk vector cache directory. Empty disables the
	// disk layer; the in-memory layer is always on.
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}
