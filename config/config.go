// Package config loads the brain configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/viant/brain/embedding"
	"github.com/viant/brain/index"
	"github.com/viant/brain/knowledge"
	"github.com/viant/brain/vector"
	"gopkg.in/yaml.v3"
)

// Config represents the brain configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Events     EventsConfig     `yaml:"events"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	CORSOrigin      string        `yaml:"cors_origin"`
	RateLimit       float64       `yaml:"rate_limit"`
	Burst           int           `yaml:"burst"`
	MaxLimit        int           `yaml:"max_limit"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StoreConfig struct {
	Backend    string `yaml:"backend"` // sqlite or qdrant
	Path       string `yaml:"path"`
	Index      string `yaml:"index"`
	Metric     string `yaml:"metric"`
	Collection string `yaml:"collection"`
	QdrantAddr string `yaml:"qdrant_addr"`
}

type EmbeddingsConfig struct {
	Backend    string `yaml:"backend"` // hash or ollama
	Model      string `yaml:"model"`
	Dimension  int    `yaml:"dimension"`
	MaxTokens  int    `yaml:"max_tokens"`
	Truncation string `yaml:"truncation"`
	OllamaURL  string `yaml:"ollama_url"`
}

// EventsConfig enables the change relay when NATSURL is set.
type EventsConfig struct {
	NATSURL   string        `yaml:"nats_url"`
	Subject   string        `yaml:"subject"`
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

const (
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"
	BackendHash   = "hash"
	BackendOllama = "ollama"

	// DefaultOllamaModel produces 384-dimensional embeddings.
	DefaultOllamaModel = "all-minilm"
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8000",
			CORSOrigin:      "*",
			RateLimit:       20,
			Burst:           40,
			MaxLimit:        50,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Backend:    BackendSQLite,
			Path:       filepath.Join("knowledge_db", "brain.sqlite"),
			Index:      string(index.Auto),
			Metric:     string(vector.Cosine),
			Collection: knowledge.DefaultCollection,
			QdrantAddr: "localhost:6334",
		},
		Embeddings: EmbeddingsConfig{
			Backend:    BackendHash,
			Model:      embedding.HashModel,
			Dimension:  embedding.DefaultDimension,
			MaxTokens:  embedding.DefaultMaxTokens,
			Truncation: string(embedding.Reject),
			OllamaURL:  embedding.DefaultOllamaURL,
		},
		Events: EventsConfig{
			Subject:   "brain.notes",
			Interval:  2 * time.Second,
			BatchSize: 100,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "brain", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "brain", "config.yaml")
	}
	return filepath.Join(home, ".config", "brain", "config.yaml")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Load reads the config at path (DefaultPath when empty). A missing file
// yields the defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()
	data, err := os.ReadFile(ExpandPath(path))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.Store.Path = ExpandPath(cfg.Store.Path)
	if cfg.Embeddings.Backend == BackendOllama && cfg.Embeddings.Model == embedding.HashModel {
		cfg.Embeddings.Model = DefaultOllamaModel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("BRAIN_ADDR", &c.Server.Addr)
	str("BRAIN_DB", &c.Store.Path)
	str("BRAIN_STORE", &c.Store.Backend)
	str("BRAIN_QDRANT_ADDR", &c.Store.QdrantAddr)
	str("BRAIN_EMBEDDER", &c.Embeddings.Backend)
	str("BRAIN_MODEL", &c.Embeddings.Model)
	str("BRAIN_OLLAMA_URL", &c.Embeddings.OllamaURL)
	str("BRAIN_NATS_URL", &c.Events.NATSURL)
	str("BRAIN_LOG_LEVEL", &c.Log.Level)
	if v, ok := lookup("BRAIN_DIMENSION"); ok && v != "" {
		dim, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BRAIN_DIMENSION: %w", err)
		}
		c.Embeddings.Dimension = dim
	}
	return nil
}

// Validate checks enumerations and bounds.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite, BackendQdrant:
	default:
		return fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend)
	}
	switch c.Embeddings.Backend {
	case BackendHash, BackendOllama:
	default:
		return fmt.Errorf("embeddings.backend: unknown backend %q", c.Embeddings.Backend)
	}
	if c.Embeddings.Backend == BackendHash && c.Embeddings.Model != embedding.HashModel {
		return fmt.Errorf("embeddings.model: hash backend only provides %q", embedding.HashModel)
	}
	if c.Embeddings.Dimension <= 0 {
		return fmt.Errorf("embeddings.dimension: must be positive, got %d", c.Embeddings.Dimension)
	}
	if _, err := embedding.ParseTruncation(c.Embeddings.Truncation); err != nil {
		return fmt.Errorf("embeddings.truncation: %w", err)
	}
	if _, err := vector.ParseMetric(c.Store.Metric); err != nil {
		return fmt.Errorf("store.metric: %w", err)
	}
	if _, err := index.ParseKind(c.Store.Index); err != nil {
		return fmt.Errorf("store.index: %w", err)
	}
	if c.Server.MaxLimit < 1 {
		return fmt.Errorf("server.max_limit: must be at least 1, got %d", c.Server.MaxLimit)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Limits returns the embedder input limits.
func (e EmbeddingsConfig) Limits() embedding.Limits {
	t, _ := embedding.ParseTruncation(e.Truncation)
	return embedding.Limits{MaxTokens: e.MaxTokens, Truncation: t}
}

// Logger builds a slog logger writing to w.
func (l LogConfig) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return level, err
	}
	return level, nil
}
