package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the reviewdex service configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Index       IndexConfig       `yaml:"index"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Source      SourceConfig      `yaml:"source"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Sampling    SamplingConfig    `yaml:"sampling"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Synthesis   SynthesisConfig   `yaml:"synthesis"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
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

// DatabaseConfig holds vector database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	Standalone       bool     `yaml:"standalone"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds the review collection and HNSW settings.
type IndexConfig struct {
	Collection      string `yaml:"collection"`
	KeyPrefix       string `yaml:"key_prefix"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	EFRuntime       int    `yaml:"ef_runtime"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
	// Cache stores vectors in the database keyed by model and text.
	Cache         bool `yaml:"cache"`
	CacheTTLHours int  `yaml:"cache_ttl_hours"`
}

// CacheTTL returns the embedding cache expiry, zero for none.
func (e EmbeddingConfig) CacheTTL() time.Duration {
	return time.Duration(e.CacheTTLHours) * time.Hour
}

// SourceConfig holds the upstream review source settings.
type SourceConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Language    string `yaml:"language"`
	PageDelayMS int    `yaml:"page_delay_ms"`
	TimeoutSec  int    `yaml:"timeout_sec"`
	MaxRetries  int    `yaml:"max_retries"`
	// RequestsPerSecond caps source requests process-wide. 0 = unlimited.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// PageDelay returns the pause after each page response.
func (s SourceConfig) PageDelay() time.Duration {
	return time.Duration(s.PageDelayMS) * time.Millisecond
}

// Timeout returns the per-request timeout.
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// RetrievalConfig holds query-path defaults.
type RetrievalConfig struct {
	ResultCap      int     `yaml:"result_cap"`
	ScoreThreshold float64 `yaml:"score_threshold"`
}

// SamplingConfig holds ingestion sampling bounds.
type SamplingConfig struct {
	DefaultCount int `yaml:"default_count"`
	MaxCount     int `yaml:"max_count"`
}

// AggregationConfig lists the detail fields averaged over retrieval results.
type AggregationConfig struct {
	Fields []string `yaml:"fields"`
}

// SynthesisConfig holds chat-completion settings. Empty APIKey disables synthesis.
type SynthesisConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Enabled reports whether a synthesizer should be wired.
func (s SynthesisConfig) Enabled() bool {
	return s.APIKey != ""
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, when present, is loaded first.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML config bytes, expanding ${VAR} references, applying
// defaults and validating the result.
func Parse(data []byte) (Config, error) {
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
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// ingestion walks several upstream pages inside one request
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	c.applyIndexDefaults()
	c.applyEmbeddingDefaults()
	c.applySourceDefaults()
	if c.Retrieval.ResultCap <= 0 {
		c.Retrieval.ResultCap = 35
	}
	if c.Retrieval.ScoreThreshold == 0 {
		c.Retrieval.ScoreThreshold = 0.5
	}
	if c.Sampling.DefaultCount <= 0 {
		c.Sampling.DefaultCount = 50
	}
	if c.Sampling.MaxCount <= 0 {
		c.Sampling.MaxCount = 100
	}
	if len(c.Aggregation.Fields) == 0 {
		c.Aggregation.Fields = []string{"food", "service", "atmosphere"}
	}
	if c.Synthesis.Model == "" {
		c.Synthesis.Model = "gpt-4o-mini"
	}
	if c.Synthesis.Temperature == 0 {
		c.Synthesis.Temperature = 0.7
	}
	if c.Synthesis.MaxTokens <= 0 {
		c.Synthesis.MaxTokens = 1000
	}
}

func (c *Config) applyIndexDefaults() {
	if c.Index.Collection == "" {
		c.Index.Collection = "reviews"
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "reviewdex:"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Index.EFRuntime <= 0 {
		c.Index.EFRuntime = 128
	}
}

func (c *Config) applyEmbeddingDefaults() {
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.CacheTTLHours < 0 {
		c.Embedding.CacheTTLHours = 0
	}
}

func (c *Config) applySourceDefaults() {
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = "https://api.scrapingdog.com/google_maps/reviews"
	}
	if c.Source.Language == "" {
		c.Source.Language = "en"
	}
	if c.Source.PageDelayMS <= 0 {
		c.Source.PageDelayMS = 1000
	}
	if c.Source.TimeoutSec <= 0 {
		c.Source.TimeoutSec = 10
	}
	if c.Source.MaxRetries < 0 {
		c.Source.MaxRetries = 0
	}
	if c.Source.RequestsPerSecond < 0 {
		c.Source.RequestsPerSecond = 0
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis", "valkey":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required")
	}
	if c.Source.APIKey == "" {
		return fmt.Errorf("source.api_key is required")
	}
	if t := c.Retrieval.ScoreThreshold; !(t >= 0 && t <= 1) {
		return fmt.Errorf("retrieval.score_threshold must be within [0, 1], got %v", c.Retrieval.ScoreThreshold)
	}
	if c.Sampling.DefaultCount > c.Sampling.MaxCount {
		return fmt.Errorf(
			"sampling.default_count (%d) exceeds sampling.max_count (%d)",
			c.Sampling.DefaultCount, c.Sampling.MaxCount,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to the source file, for tests and go run from subdirectories
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

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
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
