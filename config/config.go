package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the godlearn pipeline.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Promote   PromoteConfig   `yaml:"promote"`
	Reason    ReasonConfig    `yaml:"reason"`
	Assemble  AssembleConfig  `yaml:"assemble"`
	Answer    AnswerConfig    `yaml:"answer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CorpusConfig holds ingestion configuration.
type CorpusConfig struct {
	Includes   []string `yaml:"includes"`
	Excludes   []string `yaml:"excludes"`
	Collection string   `yaml:"collection"`
	Workers    int      `yaml:"workers"`
}

// RetryConfig is the bounded-retry policy for embedding calls.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	Multiplier      float64       `yaml:"multiplier"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// EmbeddingConfig holds embedding service configuration. Dimension is a hard
// compatibility requirement validated at startup.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"` // "http" or "mock"
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Dimension int           `yaml:"dimension"`
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
	Retry     RetryConfig   `yaml:"retry"`
}

// RetrieveConfig holds retrieval configuration. BoostCap bounds the additive
// highlight boost; it reorders results and never changes the candidate set.
type RetrieveConfig struct {
	TopN      int           `yaml:"top_n"`
	BoostCap  float64       `yaml:"boost_cap"`
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// PromoteConfig holds knowledge promotion configuration.
type PromoteConfig struct {
	MaxSentences   int     `yaml:"max_sentences"`
	MinTermOverlap float64 `yaml:"min_term_overlap"`
}

// ReasonConfig holds reasoning-graph configuration. Thresholds are policy
// constants with documented defaults, not algorithmic law.
type ReasonConfig struct {
	NGramSize            int     `yaml:"ngram_size"`
	TopK                 int     `yaml:"top_k"`
	EdgeThreshold        float64 `yaml:"edge_threshold"`
	SupportThreshold     float64 `yaml:"support_threshold"`
	ElaborateContainment float64 `yaml:"elaborate_containment"`
	InheritContainment   float64 `yaml:"inherit_containment"`
}

// AssembleConfig holds draft assembly and style-render configuration.
type AssembleConfig struct {
	Title       string `yaml:"title"`
	StyleRender bool   `yaml:"style_render"`
}

// CoverageConfig holds the fixed thresholds behind coverage grades.
type CoverageConfig struct {
	HighMinRetrieved int `yaml:"high_min_retrieved"`
	HighMinDocs      int `yaml:"high_min_docs"`
	HighMinKUHits    int `yaml:"high_min_ku_hits"`
	MedMinRetrieved  int `yaml:"med_min_retrieved"`
	MedMinKUHits     int `yaml:"med_min_ku_hits"`
}

// AnswerConfig holds epistemic-boundary configuration.
type AnswerConfig struct {
	DefaultMode    string         `yaml:"default_mode"`
	Coverage       CoverageConfig `yaml:"coverage"`
	RecencyMarkers []string       `yaml:"recency_markers"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Includes:   []string{"**/*.pdf", "**/*.txt", "**/*.md"},
			Excludes:   []string{"**/.godlearn/**", "**/.git/**"},
			Collection: "default",
			Workers:    4,
		},
		Embedding: EmbeddingConfig{
			Provider:  "http",
			Model:     "text-embedding-3-small",
			BaseURL:   "http://localhost:8080",
			APIKeyEnv: "GODLEARN_EMBED_API_KEY",
			Dimension: 1536,
			BatchSize: 64,
			Timeout:   60 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:     4,
				InitialInterval: 500 * time.Millisecond,
				Multiplier:      2.0,
				MaxInterval:     8 * time.Second,
			},
		},
		Retrieve: RetrieveConfig{
			TopN:      10,
			BoostCap:  0.15,
			CacheSize: 100,
			CacheTTL:  5 * time.Minute,
		},
		Promote: PromoteConfig{
			MaxSentences:   8,
			MinTermOverlap: 0.2,
		},
		Reason: ReasonConfig{
			NGramSize:            4,
			TopK:                 5,
			EdgeThreshold:        0.18,
			SupportThreshold:     0.35,
			ElaborateContainment: 0.60,
			InheritContainment:   0.85,
		},
		Assemble: AssembleConfig{
			Title:       "Corpus Synthesis",
			StyleRender: true,
		},
		Answer: AnswerConfig{
			DefaultMode: "hybrid",
			Coverage: CoverageConfig{
				HighMinRetrieved: 5,
				HighMinDocs:      2,
				HighMinKUHits:    2,
				MedMinRetrieved:  3,
				MedMinKUHits:     1,
			},
			RecencyMarkers: []string{
				"latest", "recent", "current", "today", "now",
				"this year", "2024", "2025", "2026",
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

// LoadFromDir loads configuration from a directory (looks for godlearn.yaml,
// then .godlearn/config.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "godlearn.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".godlearn", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects configurations that cannot produce a correct pipeline.
func (c *Config) Validate() error {
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize)
	}
	if c.Reason.NGramSize <= 0 {
		return fmt.Errorf("reason.ngram_size must be positive, got %d", c.Reason.NGramSize)
	}
	if c.Reason.TopK <= 0 {
		return fmt.Errorf("reason.top_k must be positive, got %d", c.Reason.TopK)
	}
	if c.Retrieve.BoostCap < 0 {
		return fmt.Errorf("retrieve.boost_cap must be non-negative, got %f", c.Retrieve.BoostCap)
	}
	switch c.Answer.DefaultMode {
	case "local", "hybrid", "external":
	default:
		return fmt.Errorf("answer.default_mode must be local, hybrid or external, got %q", c.Answer.DefaultMode)
	}
	return nil
}

// StateDir returns the pipeline state directory for a corpus root.
func StateDir(root string) string {
	return filepath.Join(root, ".godlearn")
}

// EnsureStateDir ensures the state directory exists.
func EnsureStateDir(root string) error {
	return os.MkdirAll(StateDir(root), 0755)
}

// ManifestPath returns the append-only ingestion manifest path.
func ManifestPath(root string) string {
	return filepath.Join(StateDir(root), "manifest.jsonl")
}

// KnowledgePath returns the append-only knowledge-unit log path.
func KnowledgePath(root string) string {
	return filepath.Join(StateDir(root), "knowledge.jsonl")
}

// ReasoningPath returns the append-only reasoning-edge log path.
func ReasoningPath(root string) string {
	return filepath.Join(StateDir(root), "reasoning.jsonl")
}

// IndexDBPath returns the bbolt database path.
func IndexDBPath(root string) string {
	return filepath.Join(StateDir(root), "index.db")
}

// VerifiedMarkerPath returns the marker written by a passing verify run and
// consumed by the promotion gate.
func VerifiedMarkerPath(root string) string {
	return filepath.Join(StateDir(root), "verified.json")
}

// DraftPath returns the assembled draft artifact path.
func DraftPath(root string) string {
	return filepath.Join(StateDir(root), "draft.json")
}

// ReportPath returns the regenerable coverage report path.
func ReportPath(root string) string {
	return filepath.Join(StateDir(root), "report.json")
}

// AnswerPath returns the grounded answer artifact path.
func AnswerPath(root string) string {
	return filepath.Join(StateDir(root), "answer.json")
}

// AnswerUIPath returns the presentation-layer answer artifact path.
func AnswerUIPath(root string) string {
	return filepath.Join(StateDir(root), "answer.ui.json")
}
