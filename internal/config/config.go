// Package config provides configuration management for Lumikid.
// It loads settings from environment variables with sensible defaults and
// optionally applies overrides from a YAML file pointed at by LUMIKID_CONFIG.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the Lumikid memory core.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Graph    GraphConfig    `yaml:"graph"`
	LLM      LLMConfig      `yaml:"llm"`
	Profile  ProfileConfig  `yaml:"profile"`
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"` // default: 7070
	Host string `yaml:"host"` // default: 127.0.0.1
}

// GraphConfig contains property-graph store connection settings.
type GraphConfig struct {
	URI      string `yaml:"uri"`      // bolt-style URI (default: bolt://localhost:7687)
	User     string `yaml:"user"`     // default: neo4j
	Password string `yaml:"password"` // no default
}

// LLMConfig contains LLM provider configuration. The provider is any
// OpenAI-compatible endpoint; keys come from the environment.
type LLMConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`        // default: https://api.openai.com
	Model          string `yaml:"model"`           // default: gpt-4o-mini
	SmallModel     string `yaml:"small_model"`     // cheaper model for short prompts; defaults to Model
	EmbeddingModel string `yaml:"embedding_model"` // default: text-embedding-3-small
	EmbeddingDim   int    `yaml:"embedding_dim"`   // default: 1536
	Enabled        bool   `yaml:"enabled"`         // MEMORY_ENABLE_LLM; when false, extraction APIs fail fast
}

// ProfileConfig contains the relational profile cache settings.
// The profile store is a display/list cache, never the source of truth.
type ProfileConfig struct {
	Engine   string `yaml:"engine"`    // sqlite or postgres (default: sqlite)
	DSN      string `yaml:"dsn"`       // postgres DSN when engine=postgres
	DataPath string `yaml:"data_path"` // sqlite data directory (default: ./data)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	Mode     string `yaml:"mode"`      // development or production (default: development)
	APIToken string `yaml:"api_token"` // bearer token required in production mode
}

// LoadConfig loads configuration from environment variables, then applies
// overrides from the YAML file named by LUMIKID_CONFIG when present.
func LoadConfig() (*Config, error) {
	cfg := buildBaseConfig()

	if path := os.Getenv("LUMIKID_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	if cfg.LLM.SmallModel == "" {
		cfg.LLM.SmallModel = cfg.LLM.Model
	}
	return cfg, nil
}

// buildBaseConfig constructs a Config with values from environment variables
// and defaults.
func buildBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("LUMIKID_PORT", 7070),
			Host: getEnv("LUMIKID_HOST", "127.0.0.1"),
		},
		Graph: GraphConfig{
			URI:      getEnv("GRAPH_URI", "bolt://localhost:7687"),
			User:     getEnv("GRAPH_USER", "neo4j"),
			Password: getEnv("GRAPH_PASSWORD", ""),
		},
		LLM: LLMConfig{
			APIKey:         getEnv("LLM_API_KEY", ""),
			BaseURL:        getEnv("LLM_BASE_URL", "https://api.openai.com"),
			Model:          getEnv("LLM_MODEL", "gpt-4o-mini"),
			SmallModel:     getEnv("LLM_SMALL_MODEL", ""),
			EmbeddingModel: getEnv("LLM_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDim:   getEnvInt("LLM_EMBEDDING_DIM", 1536),
			Enabled:        getEnvBool("MEMORY_ENABLE_LLM", true),
		},
		Profile: ProfileConfig{
			Engine:   getEnv("LUMIKID_PROFILE_ENGINE", "sqlite"),
			DSN:      getEnv("LUMIKID_PROFILE_DSN", ""),
			DataPath: getEnv("LUMIKID_DATA_PATH", "./data"),
		},
		Security: SecurityConfig{
			Mode:     getEnv("LUMIKID_SECURITY_MODE", "development"),
			APIToken: getEnv("LUMIKID_API_TOKEN", ""),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// It recognizes "true", "1", "yes" as true and "false", "0", "no" as false.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}
