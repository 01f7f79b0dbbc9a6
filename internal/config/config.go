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

// Config holds the vecmatch configuration shared by every run mode.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Provider  ProviderConfig  `yaml:"provider"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Enrich    EnrichConfig    `yaml:"enrich"`
	Sentiment SentimentConfig `yaml:"sentiment"`
	Output    OutputConfig    `yaml:"output"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AuthConfig holds bearer tokens for the serve mode. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds settings for the serve mode.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds relational storage settings.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // postgres, sqlite (default: postgres)
	DSN          string `yaml:"dsn"`
	MaxLookupIDs int    `yaml:"max_lookup_ids"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// CacheConfig holds the optional embedding cache. Empty Addrs disables it.
type CacheConfig struct {
	Addrs     []string `yaml:"addrs"`
	Password  string   `yaml:"password"`
	TTLSec    int      `yaml:"ttl_sec"`
	KeyPrefix string   `yaml:"key_prefix"`
}

// Enabled reports whether a cache backend is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// ProviderConfig holds embedding and completion provider settings.
type ProviderConfig struct {
	Name              string  `yaml:"name"`
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	EmbeddingModel    string  `yaml:"embedding_model"`
	Dimensions        int     `yaml:"dimensions"`
	CompletionModel   string  `yaml:"completion_model"`
	MaxTokens         int     `yaml:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	MaxBatchSize      int     `yaml:"max_batch_size"`
}

// PipelineConfig holds matching and paging settings.
type PipelineConfig struct {
	Threshold          float64 `yaml:"threshold"`           // reconcile, used as given
	SearchThreshold    float64 `yaml:"search_threshold"`    // 0 = 80
	SentimentThreshold float64 `yaml:"sentiment_threshold"` // 0 = 80
	TopK               int     `yaml:"top_k"`
	QueryPageSize      int     `yaml:"query_page_size"`
	CorpusPageSize     int     `yaml:"corpus_page_size"`
	ClaimID            int64   `yaml:"claim_id"` // 0 = no filter
}

// EnrichConfig holds enrichment settings.
type EnrichConfig struct {
	Workers int `yaml:"workers"`
}

// SentimentConfig holds settings for the sentiment mode.
type SentimentConfig struct {
	FallbackProductID int64  `yaml:"fallback_product_id"`
	Contact           string `yaml:"contact"`
}

// OutputConfig selects the result sink.
type OutputConfig struct {
	Format string `yaml:"format"` // table, json, parquet (default: table)
	Path   string `yaml:"path"`   // empty = stdout (table, json only)
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
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
		c.Database.Driver = "postgres"
	}
	if c.Database.MaxLookupIDs <= 0 {
		c.Database.MaxLookupIDs = 500
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 4
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 7 * 24 * 3600
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "vecmatch:"
	}
	if c.Provider.Name == "" {
		c.Provider.Name = "openai"
	}
	if c.Provider.EmbeddingModel == "" {
		c.Provider.EmbeddingModel = "text-embedding-3-small"
	}
	if c.Provider.CompletionModel == "" {
		c.Provider.CompletionModel = "gpt-4o-mini"
	}
	if c.Provider.MaxTokens <= 0 {
		c.Provider.MaxTokens = 100
	}
	if c.Provider.MaxBatchSize <= 0 {
		c.Provider.MaxBatchSize = 256
	}
	if c.Pipeline.SearchThreshold == 0 {
		c.Pipeline.SearchThreshold = 80
	}
	if c.Pipeline.SentimentThreshold == 0 {
		c.Pipeline.SentimentThreshold = 80
	}
	if c.Pipeline.TopK <= 0 {
		c.Pipeline.TopK = 5
	}
	if c.Pipeline.QueryPageSize <= 0 {
		c.Pipeline.QueryPageSize = 100
	}
	if c.Pipeline.CorpusPageSize <= 0 {
		c.Pipeline.CorpusPageSize = 1000
	}
	if c.Enrich.Workers <= 0 {
		c.Enrich.Workers = 1
	}
	if c.Sentiment.FallbackProductID <= 0 {
		c.Sentiment.FallbackProductID = 1
	}
	if c.Output.Format == "" {
		c.Output.Format = "table"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be \"postgres\" or \"sqlite\", got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider.api_key is required")
	}
	if c.Provider.RequestsPerSecond < 0 {
		return fmt.Errorf("provider.requests_per_second must be >= 0, got %g", c.Provider.RequestsPerSecond)
	}
	for name, v := range map[string]float64{
		"threshold":           c.Pipeline.Threshold,
		"search_threshold":    c.Pipeline.SearchThreshold,
		"sentiment_threshold": c.Pipeline.SentimentThreshold,
	} {
		if v < -100 || v > 100 {
			return fmt.Errorf("pipeline.%s must be between -100 and 100, got %g", name, v)
		}
	}
	switch c.Output.Format {
	case "table", "json":
	case "parquet":
		if c.Output.Path == "" {
			return fmt.Errorf("output.path is required for parquet output")
		}
	default:
		return fmt.Errorf("output.format must be \"table\", \"json\" or \"parquet\", got %q", c.Output.Format)
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
