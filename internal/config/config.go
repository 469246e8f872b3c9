package config

import (
	"fmt"

	"github.com/google/uuid"
)

type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type AIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		AI: AIConfig{
			BaseURL: "https://ai.gateway.lovable.dev/v1",
			Model:   "google/gemini-2.5-flash",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the config file and environment.
// Environment variables (STUDYLOOP_*) override file values. The AI
// gateway API key is required; a missing key is a fatal load error.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Generate and persist the local API bearer token on first run.
	if cfg.Server.APIToken == "" {
		token, err := ensureAPIToken(b)
		if err != nil {
			return Config{}, fmt.Errorf("initializing API token: %w", err)
		}
		cfg.Server.APIToken = token
	}

	if cfg.AI.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: AI gateway API key. " +
			"Set it via environment variable STUDYLOOP_AI_API_KEY")
	}

	return cfg, nil
}

func ensureAPIToken(b ConfigBackend) (string, error) {
	if v, ok, err := b.GetString("server.api_token"); err == nil && ok && v != "" {
		return v, nil
	}
	token := uuid.NewString()
	if err := b.SetString("server.api_token", token); err != nil {
		return "", err
	}
	return token, nil
}
