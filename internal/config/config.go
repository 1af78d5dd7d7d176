// Package config loads amanvoice configuration from defaults, the user config
// file, the project config file and AMANVOICE_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	amanerrors "github.com/Aman-CERP/amanvoice/internal/errors"
)

// Config file names.
const (
	ProjectConfigFile    = ".amanvoice.yaml"
	ProjectConfigFileAlt = ".amanvoice.yml"
	DataDirName          = ".amanvoice"
	VectorDBName         = "vectors.db"
)

// Config is the complete amanvoice configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Watch      WatchConfig      `yaml:"watch" json:"watch"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// PathsConfig locates records and index data. Relative paths resolve against
// the directory passed to Load.
type PathsConfig struct {
	// RecordsDir holds one YAML or JSON file per record. Default: "."
	RecordsDir string `yaml:"records_dir" json:"records_dir"`

	// DataDir holds the vector database and lock file.
	// Default: <records_dir>/.amanvoice
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// SearchConfig configures hybrid search.
type SearchConfig struct {
	// RRFConstant is k in 1/(k+rank). Default: 60
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
	MaxLimit     int `yaml:"max_limit" json:"max_limit"`

	// MinVectorScore drops chunks below this cosine similarity (0-1).
	// Set 0 through AMANVOICE_MIN_VECTOR_SCORE to disable.
	MinVectorScore float64 `yaml:"min_vector_score" json:"min_vector_score"`

	// KeywordBackend is "bleve" (default) or "sqlite".
	KeywordBackend string `yaml:"keyword_backend" json:"keyword_backend"`
}

// ChunkingConfig sizes word-window chunks.
type ChunkingConfig struct {
	ChunkWords   int `yaml:"chunk_words" json:"chunk_words"`
	OverlapWords int `yaml:"overlap_words" json:"overlap_words"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "static", "ollama", or empty to try Ollama and fall back
	// to static.
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`

	// CacheSize is the query-embedding LRU size; negative disables it.
	CacheSize int `yaml:"cache_size" json:"cache_size"`

	// Timeout bounds one embedding request, e.g. "60s".
	Timeout string `yaml:"timeout" json:"timeout"`
}

// StorageConfig configures the vector database.
type StorageConfig struct {
	// Driver is "sqlite" (pure Go, default) or "sqlite3" (CGO builds).
	Driver  string `yaml:"driver" json:"driver"`
	CacheMB int    `yaml:"cache_mb" json:"cache_mb"`
}

// WatchConfig configures live re-indexing.
type WatchConfig struct {
	Debounce     string `yaml:"debounce" json:"debounce"`
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns a configuration with defaults applied.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			RecordsDir: ".",
		},
		Search: SearchConfig{
			RRFConstant:    60,
			DefaultLimit:   20,
			MaxLimit:       100,
			MinVectorScore: 0.25,
			KeywordBackend: "bleve",
		},
		Chunking: ChunkingConfig{
			ChunkWords:   200,
			OverlapWords: 30,
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "",
			Model:     "nomic-embed-text",
			CacheSize: 1000,
			Timeout:   "60s",
		},
		Storage: StorageConfig{
			Driver:  "sqlite",
			CacheMB: 64,
		},
		Watch: WatchConfig{
			Debounce:     "500ms",
			PollInterval: "5s",
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// GetUserConfigPath returns the user configuration file:
// $XDG_CONFIG_HOME/amanvoice/config.yaml, or ~/.config/amanvoice/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "amanvoice", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "amanvoice", "config.yaml")
	}
	return filepath.Join(home, ".config", "amanvoice", "config.yaml")
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	_, err := os.Stat(GetUserConfigPath())
	return err == nil
}

// Load builds the configuration for dir, in increasing precedence:
//  1. Defaults
//  2. User config
//  3. Project config (.amanvoice.yaml in dir)
//  4. AMANVOICE_* environment variables
//
// Paths are then resolved to absolute paths and the result validated.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	userPath := GetUserConfigPath()
	if _, err := os.Stat(userPath); err == nil {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.resolvePaths(dir); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, amanerrors.ConfigError("invalid configuration", err)
	}
	return cfg, nil
}

// loadFromFile merges .amanvoice.yaml (or .yml) from dir when present.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{ProjectConfigFile, ProjectConfigFileAlt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML merges the non-zero values of a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return amanerrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith copies the non-zero values of other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	setString(&c.Paths.RecordsDir, other.Paths.RecordsDir)
	setString(&c.Paths.DataDir, other.Paths.DataDir)

	setInt(&c.Search.RRFConstant, other.Search.RRFConstant)
	setInt(&c.Search.DefaultLimit, other.Search.DefaultLimit)
	setInt(&c.Search.MaxLimit, other.Search.MaxLimit)
	if other.Search.MinVectorScore != 0 {
		c.Search.MinVectorScore = other.Search.MinVectorScore
	}
	setString(&c.Search.KeywordBackend, other.Search.KeywordBackend)

	setInt(&c.Chunking.ChunkWords, other.Chunking.ChunkWords)
	setInt(&c.Chunking.OverlapWords, other.Chunking.OverlapWords)

	setString(&c.Embeddings.Provider, other.Embeddings.Provider)
	setString(&c.Embeddings.Model, other.Embeddings.Model)
	setInt(&c.Embeddings.Dimensions, other.Embeddings.Dimensions)
	setString(&c.Embeddings.OllamaHost, other.Embeddings.OllamaHost)
	setInt(&c.Embeddings.CacheSize, other.Embeddings.CacheSize)
	setString(&c.Embeddings.Timeout, other.Embeddings.Timeout)

	setString(&c.Storage.Driver, other.Storage.Driver)
	setInt(&c.Storage.CacheMB, other.Storage.CacheMB)

	setString(&c.Watch.Debounce, other.Watch.Debounce)
	setString(&c.Watch.PollInterval, other.Watch.PollInterval)

	setString(&c.Server.Transport, other.Server.Transport)
	setString(&c.Server.LogLevel, other.Server.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// applyEnvOverrides applies AMANVOICE_* environment variables. Unparseable
// numbers are ignored.
func (c *Config) applyEnvOverrides() {
	setString(&c.Paths.RecordsDir, os.Getenv("AMANVOICE_RECORDS_DIR"))
	setString(&c.Paths.DataDir, os.Getenv("AMANVOICE_DATA_DIR"))

	if v := os.Getenv("AMANVOICE_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	// Explicit zero is allowed here, unlike in YAML.
	if v := os.Getenv("AMANVOICE_MIN_VECTOR_SCORE"); v != "" {
		if s, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			c.Search.MinVectorScore = s
		}
	}
	setString(&c.Search.KeywordBackend, os.Getenv("AMANVOICE_KEYWORD_BACKEND"))

	setString(&c.Embeddings.Provider, os.Getenv("AMANVOICE_EMBEDDINGS_PROVIDER"))
	setString(&c.Embeddings.Model, os.Getenv("AMANVOICE_EMBEDDINGS_MODEL"))
	setString(&c.Embeddings.OllamaHost, os.Getenv("AMANVOICE_OLLAMA_HOST"))

	setString(&c.Storage.Driver, os.Getenv("AMANVOICE_STORAGE_DRIVER"))

	setString(&c.Server.LogLevel, os.Getenv("AMANVOICE_LOG_LEVEL"))
	setString(&c.Server.Transport, os.Getenv("AMANVOICE_TRANSPORT"))
}

// resolvePaths makes both paths absolute relative to dir.
func (c *Config) resolvePaths(dir string) error {
	base, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}

	c.Paths.RecordsDir = expandHome(c.Paths.RecordsDir)
	if !filepath.IsAbs(c.Paths.RecordsDir) {
		c.Paths.RecordsDir = filepath.Join(base, c.Paths.RecordsDir)
	}

	if c.Paths.DataDir == "" {
		c.Paths.DataDir = filepath.Join(c.Paths.RecordsDir, DataDirName)
	}
	c.Paths.DataDir = expandHome(c.Paths.DataDir)
	if !filepath.IsAbs(c.Paths.DataDir) {
		c.Paths.DataDir = filepath.Join(base, c.Paths.DataDir)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// VectorDBPath returns the vector database file inside the data dir.
func (c *Config) VectorDBPath() string {
	return filepath.Join(c.Paths.DataDir, VectorDBName)
}

// EmbeddingTimeout returns embeddings.timeout as a duration.
func (c *Config) EmbeddingTimeout() time.Duration {
	return parseDurationOr(c.Embeddings.Timeout, 60*time.Second)
}

// WatchDebounce returns watch.debounce as a duration.
func (c *Config) WatchDebounce() time.Duration {
	return parseDurationOr(c.Watch.Debounce, 500*time.Millisecond)
}

// WatchPollInterval returns watch.poll_interval as a duration.
func (c *Config) WatchPollInterval() time.Duration {
	return parseDurationOr(c.Watch.PollInterval, 5*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search.max_limit (%d) must be at least search.default_limit (%d)",
			c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	if c.Search.MinVectorScore < 0 || c.Search.MinVectorScore > 1 {
		return fmt.Errorf("search.min_vector_score must be between 0 and 1, got %f", c.Search.MinVectorScore)
	}
	if err := oneOf("search.keyword_backend", c.Search.KeywordBackend, "bleve", "sqlite"); err != nil {
		return err
	}

	if c.Chunking.ChunkWords <= 0 {
		return fmt.Errorf("chunking.chunk_words must be positive, got %d", c.Chunking.ChunkWords)
	}
	if c.Chunking.OverlapWords < 0 || c.Chunking.OverlapWords >= c.Chunking.ChunkWords {
		return fmt.Errorf("chunking.overlap_words must be in [0, chunk_words), got %d", c.Chunking.OverlapWords)
	}

	if c.Embeddings.Provider != "" {
		if err := oneOf("embeddings.provider", c.Embeddings.Provider, "static", "ollama", "auto"); err != nil {
			return err
		}
	}
	if c.Embeddings.Dimensions < 0 {
		return fmt.Errorf("embeddings.dimensions must be non-negative, got %d", c.Embeddings.Dimensions)
	}
	if err := validDuration("embeddings.timeout", c.Embeddings.Timeout); err != nil {
		return err
	}

	if err := oneOf("storage.driver", c.Storage.Driver, "sqlite", "sqlite3"); err != nil {
		return err
	}
	if err := validDuration("watch.debounce", c.Watch.Debounce); err != nil {
		return err
	}
	if err := validDuration("watch.poll_interval", c.Watch.PollInterval); err != nil {
		return err
	}

	if err := oneOf("server.transport", c.Server.Transport, "stdio"); err != nil {
		return err
	}
	return oneOf("server.log_level", c.Server.LogLevel, "debug", "info", "warn", "error")
}

func oneOf(field, value string, valid ...string) error {
	for _, v := range valid {
		if strings.EqualFold(value, v) {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", field, strings.Join(valid, ", "), value)
}

func validDuration(field, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return nil
}

// WriteYAML writes the configuration to path, creating parent directories.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
