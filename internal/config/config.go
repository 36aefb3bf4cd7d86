package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Mistral  MistralConfig  `toml:"mistral"`
	Database DatabaseConfig `toml:"database"`
	Qdrant   QdrantConfig   `toml:"qdrant"`
	Ingest   IngestConfig   `toml:"ingest"`
	Observer ObserverConfig `toml:"observer"`
}

type MistralConfig struct {
	APIKey     string `toml:"api_key"`
	ChatModel  string `toml:"chat_model"`
	EmbedModel string `toml:"embed_model"`
}

type DatabaseConfig struct {
	URL string `toml:"url"`
}

type QdrantConfig struct {
	URL        string `toml:"url"`
	APIKey     string `toml:"api_key"`
	Collection string `toml:"collection"`
}

type IngestConfig struct {
	DataDir string `toml:"data_dir"`
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Mistral: MistralConfig{
			ChatModel:  "mistral-small-latest",
			EmbedModel: "mistral-embed",
		},
		Database: DatabaseConfig{URL: "postgres://localhost:5432/biblio"},
		Qdrant:   QdrantConfig{URL: "http://localhost:6333", Collection: "book_chunks"},
		Ingest:   IngestConfig{DataDir: "data"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "biblio.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("BIBLIO_MISTRAL_API_KEY"); v != "" {
		cfg.Mistral.APIKey = v
	}
	if v := os.Getenv("BIBLIO_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("BIBLIO_QDRANT_URL"); v != "" {
		cfg.Qdrant.URL = v
	}
	if v := os.Getenv("BIBLIO_QDRANT_API_KEY"); v != "" {
		cfg.Qdrant.APIKey = v
	}
	if v := os.Getenv("BIBLIO_DATA_DIR"); v != "" {
		cfg.Ingest.DataDir = v
	}
	if os.Getenv("BIBLIO_OBSERVER_ENABLED") == "true" || os.Getenv("BIBLIO_OBSERVER_ENABLED") == "1" {
		cfg.Observer.Enabled = true
	}

	return cfg
}
