package config

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/shelfsearch/internal/flags"
)

func validConfig() Config {
	cfg := Config{
		HTTP:   HTTPConfig{Port: 8080},
		Engine: EngineConfig{URL: "http://localhost:9200"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"invalid port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"port too large", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"missing engine url", func(c *Config) { c.Engine.URL = "" }, "engine.url is required"},
		{"page size inversion", func(c *Config) { c.Search.DefaultPageSize = 200 }, "must not exceed"},
		{"language without index", func(c *Config) {
			c.Corpus.Languages = map[string]LanguageConfig{"en": {Embeddings: true}}
		}, "corpus.languages.en.index"},
		{"bad rollout", func(c *Config) {
			c.Flags = map[string]flags.Flag{"corpus.semantic": {Enabled: true, RolloutPercent: 150}}
		}, "flags.corpus.semantic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Engine.LibraryIndex != "list" {
		t.Errorf("expected LibraryIndex=list, got %q", cfg.Engine.LibraryIndex)
	}
	if cfg.Search.DefaultPageSize != 30 {
		t.Errorf("expected DefaultPageSize=30, got %d", cfg.Search.DefaultPageSize)
	}
	if cfg.Search.MaxPageSize != 100 {
		t.Errorf("expected MaxPageSize=100, got %d", cfg.Search.MaxPageSize)
	}
	if cfg.Search.DefaultQueryScore != 1 {
		t.Errorf("expected DefaultQueryScore=1, got %v", cfg.Search.DefaultQueryScore)
	}
	if cfg.Corpus.DefaultQueryScore != 1 {
		t.Errorf("corpus score should inherit search default, got %v", cfg.Corpus.DefaultQueryScore)
	}
	if cfg.Embedding.MemoryCacheSize != 4096 {
		t.Errorf("expected MemoryCacheSize=4096, got %d", cfg.Embedding.MemoryCacheSize)
	}
	if cfg.Redis.CacheTTLHours != 168 {
		t.Errorf("expected CacheTTLHours=168, got %d", cfg.Redis.CacheTTLHours)
	}
	if cfg.Corpus.SemanticFlag != "corpus.semantic" {
		t.Errorf("expected semantic flag default, got %q", cfg.Corpus.SemanticFlag)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:   HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Engine: EngineConfig{LibraryIndex: "library_v2", TimeoutSec: 3},
		Search: SearchConfig{DefaultPageSize: 50, MaxPageSize: 500, DefaultQueryScore: 2},
		Corpus: CorpusConfig{DefaultQueryScore: 0.5},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Engine.LibraryIndex != "library_v2" || cfg.Engine.TimeoutSec != 3 {
		t.Errorf("engine overridden: %+v", cfg.Engine)
	}
	if cfg.Search.MaxPageSize != 500 {
		t.Errorf("expected MaxPageSize=500, got %d", cfg.Search.MaxPageSize)
	}
	if cfg.Corpus.DefaultQueryScore != 0.5 {
		t.Errorf("expected corpus score 0.5, got %v", cfg.Corpus.DefaultQueryScore)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("SHELFSEARCH_TEST_ENGINE", "http://engine:9200")

	cfg, err := Parse([]byte(`
http:
  port: ${SHELFSEARCH_TEST_PORT:-9090}
engine:
  url: ${SHELFSEARCH_TEST_ENGINE}
corpus:
  languages:
    en: { index: corpus_en, embeddings: true }
flags:
  corpus.semantic: { enabled: true, rollout_percent: 25, allow_users: ["42"] }
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected default port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Engine.URL != "http://engine:9200" {
		t.Errorf("engine url = %q", cfg.Engine.URL)
	}
	if l := cfg.Corpus.Languages["en"]; l.Index != "corpus_en" || !l.Embeddings {
		t.Errorf("language = %+v", l)
	}
	f := cfg.Flags["corpus.semantic"]
	if !f.Enabled || f.RolloutPercent != 25 || len(f.AllowUsers) != 1 {
		t.Errorf("flag = %+v", f)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\n")); err == nil {
		t.Fatal("expected validation error for missing engine url")
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.URL == "" {
		t.Error("local config must set an engine url")
	}
	if _, ok := cfg.Corpus.Languages["en"]; !ok {
		t.Error("local config must route english")
	}
}
