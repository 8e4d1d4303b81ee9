// Package file loads platform configuration from a TOML file.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full platform configuration.
type Config struct {
	// DataDir is where the SQLite database lives. Empty selects
	// ~/.mediflow/data.
	DataDir string `toml:"data_dir"`

	Queue     QueueConfig     `toml:"queue"`
	Embedding ProviderConfig  `toml:"embedding"`
	LLM       ProviderConfig  `toml:"llm"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Watch     WatchConfig     `toml:"watch"`
	Agents    AgentsConfig    `toml:"agents"`
}

// QueueConfig selects and configures the job transport.
type QueueConfig struct {
	// Backend is "memory" or "redis".
	Backend string `toml:"backend"`

	// RedisAddr is the Redis server address when Backend is "redis".
	RedisAddr string `toml:"redis_addr"`

	// RedisPassword is the optional Redis password.
	RedisPassword string `toml:"redis_password"`

	// RedisDB is the Redis database index.
	RedisDB int `toml:"redis_db"`
}

// ProviderConfig configures one model provider (embedding or chat).
type ProviderConfig struct {
	// Provider is "ollama" or "openai".
	Provider string `toml:"provider"`

	// Model overrides the provider's default model.
	Model string `toml:"model"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `toml:"base_url"`
}

// RetrievalConfig tunes the retrieval stage.
type RetrievalConfig struct {
	// TopK is how many chunks ground each diagnostic answer. Zero
	// selects the service default.
	TopK int `toml:"top_k"`
}

// WatchConfig configures the document drop directory.
type WatchConfig struct {
	// Dir is the directory to watch for dropped intake documents.
	// Empty disables the watcher.
	Dir string `toml:"dir"`
}

// AgentsConfig sizes the per-queue worker pools.
type AgentsConfig struct {
	Intake      PoolConfig `toml:"intake"`
	RAG         PoolConfig `toml:"rag"`
	Diagnostics PoolConfig `toml:"diagnostics"`
	Billing     PoolConfig `toml:"billing"`
	Security    PoolConfig `toml:"security"`
}

// PoolConfig sizes one worker pool.
type PoolConfig struct {
	Concurrency   int     `toml:"concurrency"`
	JobsPerSecond float64 `toml:"jobs_per_second"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Queue:     QueueConfig{Backend: "memory", RedisAddr: "localhost:6379"},
		Embedding: ProviderConfig{Provider: "ollama"},
		LLM:       ProviderConfig{Provider: "ollama"},
		Agents: AgentsConfig{
			Intake:      PoolConfig{Concurrency: 2},
			RAG:         PoolConfig{Concurrency: 3},
			Diagnostics: PoolConfig{Concurrency: 3},
			Billing:     PoolConfig{Concurrency: 2},
			Security:    PoolConfig{Concurrency: 1},
		},
	}
}

// DefaultPath returns ~/.mediflow/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".mediflow", "config.toml"), nil
}

// Load reads the configuration file at path, applying defaults for
// anything unset. A missing file yields the defaults without error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
