package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/shelfsearch/internal/domain"
	"github.com/kailas-cloud/shelfsearch/internal/flags"
)

// Config holds the shelfsearch API configuration.
type Config struct {
	HTTP      HTTPConfig            `yaml:"http"`
	Engine    EngineConfig          `yaml:"engine"`
	Postgres  PostgresConfig        `yaml:"postgres"`
	Redis     RedisConfig           `yaml:"redis"`
	Embedding EmbeddingConfig       `yaml:"embedding"`
	Corpus    CorpusConfig          `yaml:"corpus"`
	Search    SearchConfig          `yaml:"search"`
	Flags     map[string]flags.Flag `yaml:"flags"`
	Auth      AuthConfig            `yaml:"auth"`
	Logging   LoggingConfig         `yaml:"logging"`
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

// EngineConfig holds document-search engine settings.
type EngineConfig struct {
	URL          string `yaml:"url"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	LibraryIndex string `yaml:"library_index"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

// PostgresConfig holds the free-tier relational store settings.
// An empty DSN disables free-tier search.
type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// RedisConfig holds the embedding cache store. Empty addrs disable the
// Redis layer; the in-memory layer still applies.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	CacheTTLHours    int      `yaml:"cache_ttl_hours"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds query embedding settings. An empty api_key
// disables semantic search.
type EmbeddingConfig struct {
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Provider         string `yaml:"provider"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
	MemoryCacheSize  int    `yaml:"memory_cache_size"`
	TimeoutMs        int    `yaml:"timeout_ms"`
}

// LanguageConfig maps a corpus language to its index.
type LanguageConfig struct {
	Index      string `yaml:"index"`
	Embeddings bool   `yaml:"embeddings"`
}

// CorpusConfig holds corpus routing settings.
type CorpusConfig struct {
	Languages         map[string]LanguageConfig `yaml:"languages"`
	DefaultLanguage   string                    `yaml:"default_language"`
	FallbackIndex     string                    `yaml:"fallback_index"`
	DefaultQueryScore float64                   `yaml:"default_query_score"`
	SemanticFlag      string                    `yaml:"semantic_flag"`
	DisableFallback   bool                      `yaml:"disable_fallback"`
}

// SearchConfig holds pagination and scoring defaults.
type SearchConfig struct {
	DefaultPageSize   int     `yaml:"default_page_size"`
	MaxPageSize       int     `yaml:"max_page_size"`
	DefaultQueryScore float64 `yaml:"default_query_score"`
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

// Parse decodes, defaults and validates YAML configuration.
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
	if c.Engine.LibraryIndex == "" {
		c.Engine.LibraryIndex = "list"
	}
	if c.Engine.TimeoutSec <= 0 {
		c.Engine.TimeoutSec = 10
	}
	if c.Postgres.MaxOpenConns <= 0 {
		c.Postgres.MaxOpenConns = 10
	}
	if c.Redis.CacheTTLHours <= 0 {
		c.Redis.CacheTTLHours = 24 * 7
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	vec := domain.DefaultVectorConfig()
	if c.Embedding.Model == "" {
		c.Embedding.Model = vec.Model
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = vec.Dimensions
	}
	if c.Embedding.MemoryCacheSize <= 0 {
		c.Embedding.MemoryCacheSize = 4096
	}
	if c.Embedding.TimeoutMs <= 0 {
		c.Embedding.TimeoutMs = 2000
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 30
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
	if c.Search.DefaultQueryScore <= 0 {
		c.Search.DefaultQueryScore = 1
	}
	if c.Corpus.DefaultQueryScore <= 0 {
		c.Corpus.DefaultQueryScore = c.Search.DefaultQueryScore
	}
	if c.Corpus.DefaultLanguage == "" {
		c.Corpus.DefaultLanguage = "en"
	}
	if c.Corpus.SemanticFlag == "" {
		c.Corpus.SemanticFlag = "corpus.semantic"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Engine.URL == "" {
		return fmt.Errorf("engine.url is required")
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf(
			"search.default_page_size (%d) must not exceed search.max_page_size (%d)",
			c.Search.DefaultPageSize, c.Search.MaxPageSize,
		)
	}
	for lang, l := range c.Corpus.Languages {
		if l.Index == "" {
			return fmt.Errorf("corpus.languages.%s.index is required", lang)
		}
	}
	for name, f := range c.Flags {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("flags.%s: %w", name, err)
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
