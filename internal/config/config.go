package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config holds the riahunter API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Search    SearchConfig    `yaml:"search"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig selects the catalog backend.
// memory builds an in-process snapshot from SeedFile; redis needs a server
// with the search module and upserts SeedFile on startup when set.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // memory (default), redis
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	SeedFile         string   `yaml:"seed_file"`
}

// SearchConfig holds ranking and retrieval settings.
type SearchConfig struct {
	IndexName           string       `yaml:"index_name"`
	Dimensions          int          `yaml:"dimensions"`
	DefaultLimit        int          `yaml:"default_limit"`
	MaxLimit            int          `yaml:"max_limit"`
	CandidateMultiplier int          `yaml:"candidate_multiplier"`
	RRFK                int          `yaml:"rrf_k"`
	SemanticWeight      float64      `yaml:"semantic_weight"`
	LexicalWeight       float64      `yaml:"lexical_weight"`
	SimilarityThreshold float64      `yaml:"similarity_threshold"`
	RetrievalTimeoutMs  int          `yaml:"retrieval_timeout_ms"`
	MaxInFlight         int64        `yaml:"max_in_flight"`
	FundFamilies        []FundFamily `yaml:"fund_families"`
}

// FundFamily overrides the built-in fund-type keyword table.
type FundFamily struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// RetrievalTimeout returns the per-signal retrieval deadline.
func (s SearchConfig) RetrievalTimeout() time.Duration {
	return time.Duration(s.RetrievalTimeoutMs) * time.Millisecond
}

// EmbeddingConfig holds the query embedding provider settings.
// Without a model the service only accepts caller-supplied embeddings.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"`
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	TimeoutMs        int    `yaml:"timeout_ms"`
	CacheSize        int    `yaml:"cache_size"`
	CacheTTLSec      int    `yaml:"cache_ttl_sec"`
	QueryInstruction string `yaml:"query_instruction"`
}

// Enabled reports whether a provider is configured.
func (e EmbeddingConfig) Enabled() bool {
	return e.Model != ""
}

// Timeout returns the provider call deadline.
func (e EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutMs) * time.Millisecond
}

// CacheTTL returns the expiry of cached query embeddings in the database.
func (e EmbeddingConfig) CacheTTL() time.Duration {
	return time.Duration(e.CacheTTLSec) * time.Second
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
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
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMemory
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	s := &c.Search
	if s.IndexName == "" {
		s.IndexName = "riahunter:advisers:idx"
	}
	if s.Dimensions == 0 {
		s.Dimensions = 768
	}
	if s.DefaultLimit <= 0 {
		s.DefaultLimit = 20
	}
	if s.MaxLimit == 0 {
		s.MaxLimit = 100
	}
	if s.CandidateMultiplier <= 0 {
		s.CandidateMultiplier = 2
	}
	if s.RRFK <= 0 {
		s.RRFK = 60
	}
	if s.SemanticWeight == 0 && s.LexicalWeight == 0 {
		s.SemanticWeight, s.LexicalWeight = 0.7, 0.3
	}
	if s.RetrievalTimeoutMs <= 0 {
		s.RetrievalTimeoutMs = 3000
	}
	if s.MaxInFlight <= 0 {
		s.MaxInFlight = 64
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.TimeoutMs <= 0 {
		c.Embedding.TimeoutMs = 5000
	}
	if c.Embedding.CacheSize <= 0 {
		c.Embedding.CacheSize = 10000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return errors.New("database.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverMemory, DriverRedis, c.Database.Driver)
	}

	s := c.Search
	if s.Dimensions <= 0 {
		return fmt.Errorf("search.dimensions must be positive, got %d", s.Dimensions)
	}
	if s.MaxLimit < 1 || s.MaxLimit > 100 {
		return fmt.Errorf("search.max_limit must be between 1 and 100, got %d", s.MaxLimit)
	}
	if s.DefaultLimit > s.MaxLimit {
		return fmt.Errorf("search.default_limit %d exceeds max_limit %d", s.DefaultLimit, s.MaxLimit)
	}
	if !validWeight(s.SemanticWeight) || !validWeight(s.LexicalWeight) {
		return errors.New("search weights must be finite and non-negative")
	}
	if s.SimilarityThreshold < 0 || s.SimilarityThreshold > 1 {
		return fmt.Errorf("search.similarity_threshold must be within [0, 1], got %v", s.SimilarityThreshold)
	}
	for i, fam := range s.FundFamilies {
		if strings.TrimSpace(fam.Name) == "" {
			return fmt.Errorf("search.fund_families[%d].name is required", i)
		}
	}
	return nil
}

func validWeight(w float64) bool {
	return w >= 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to this source file, for tests and go run from a subdirectory
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
