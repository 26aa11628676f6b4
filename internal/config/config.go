package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the vecstore service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StoreConfig describes the collection served by the API.
type StoreConfig struct {
	Collection       string            `yaml:"collection"`
	IndexName        string            `yaml:"index_name"`
	NumCandidates    int               `yaml:"num_candidates"`
	InitializeSchema bool              `yaml:"initialize_schema"`
	FilterableFields []FilterableField `yaml:"filterable_fields"`
	HNSWM            int               `yaml:"hnsw_m"`
	HNSWEFConstruct  int               `yaml:"hnsw_ef_construction"`
}

// FilterableField is a metadata key exposed to filter expressions.
type FilterableField struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // tag (default) or numeric
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider          string      `yaml:"provider"` // label used in metrics (default: openai)
	APIKey            string      `yaml:"api_key"`
	BaseURL           string      `yaml:"base_url"`
	Model             string      `yaml:"model"`
	Dimensions        int         `yaml:"dimensions"`
	Instruction       string      `yaml:"instruction"`
	Batching          string      `yaml:"batching"` // single (default) or token_count
	MaxInputTokens    int         `yaml:"max_input_tokens"`
	ReservePercentage float64     `yaml:"reserve_percentage"`
	MaxBatchSize      int         `yaml:"max_batch_size"`
	Cache             CacheConfig `yaml:"cache"`
}

// CacheConfig controls the embedding cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"` // 0 = no expiry
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Store.Collection == "" {
		c.Store.Collection = "vector_store"
	}
	if c.Store.IndexName == "" {
		c.Store.IndexName = "vector_index"
	}
	if c.Store.NumCandidates <= 0 {
		c.Store.NumCandidates = 200
	}
	if c.Store.HNSWM <= 0 {
		c.Store.HNSWM = 16
	}
	if c.Store.HNSWEFConstruct <= 0 {
		c.Store.HNSWEFConstruct = 200
	}
	for i := range c.Store.FilterableFields {
		if c.Store.FilterableFields[i].Type == "" {
			c.Store.FilterableFields[i].Type = "tag"
		}
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Batching == "" {
		c.Embedding.Batching = "single"
	}
	if c.Embedding.MaxInputTokens <= 0 {
		c.Embedding.MaxInputTokens = 8191
	}
	if c.Embedding.ReservePercentage <= 0 {
		c.Embedding.ReservePercentage = 0.1
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "vecstore:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	switch c.Embedding.Batching {
	case "single", "token_count":
	default:
		return fmt.Errorf("embedding.batching must be \"single\" or \"token_count\", got %q", c.Embedding.Batching)
	}
	if c.Embedding.ReservePercentage >= 1 {
		return fmt.Errorf("embedding.reserve_percentage must be below 1, got %v", c.Embedding.ReservePercentage)
	}
	seen := make(map[string]struct{}, len(c.Store.FilterableFields))
	for i, f := range c.Store.FilterableFields {
		if f.Name == "" {
			return fmt.Errorf("store.filterable_fields[%d].name is required", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("store.filterable_fields: duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
		switch f.Type {
		case "tag", "numeric":
		default:
			return fmt.Errorf("store.filterable_fields.%s.type must be \"tag\" or \"numeric\", got %q", f.Name, f.Type)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
