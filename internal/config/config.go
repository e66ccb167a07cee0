// Package config loads runtime settings from the environment, an optional
// .env file, YAML overrides and an ejson secrets file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/Shopify/ejson"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Fallback providers.
const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// Config is the full configuration surface. It is passed explicitly; the
// package keeps no state.
type Config struct {
	StatementDir string `env:"STATEMENT_DIR"`
	Issuer       string `env:"ISSUER" envDefault:"auto"`
	HolderName   string `env:"HOLDER_NAME"`
	ProfileFile  string `env:"PROFILE_FILE"`
	RulesFile    string `env:"RULES_FILE"`

	FallbackProvider string        `env:"FALLBACK_PROVIDER" envDefault:"ollama"`
	OllamaHost       string        `env:"OLLAMA_HOST" envDefault:"http://localhost:11434"`
	FallbackModel    string        `env:"FALLBACK_MODEL"`
	FallbackTimeout  time.Duration `env:"FALLBACK_TIMEOUT" envDefault:"30s"`
	FallbackRate     float64       `env:"FALLBACK_RATE_PER_SEC" envDefault:"0"`
	GeminiBaseURL    string        `env:"GEMINI_BASE_URL"`

	SecretsFile     string `env:"SECRETS_FILE"`
	EjsonKeyDir     string `env:"EJSON_KEYDIR" envDefault:"/opt/ejson/keys"`
	EjsonPrivateKey string `env:"EJSON_PRIVATE_KEY"`

	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	Secrets Secrets
}

// Secrets holds credentials that may come from the environment or from an
// ejson file. The environment wins when both are set.
type Secrets struct {
	GeminiAPIKey string `json:"gemini_api_key" env:"GEMINI_API_KEY"`
}

// Load reads the given .env files (".env" when none are named; missing files
// are skipped), then the environment, then the secrets file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.FallbackProvider = strings.ToLower(strings.TrimSpace(cfg.FallbackProvider))
	if cfg.FallbackProvider == "" {
		cfg.FallbackProvider = ProviderOllama
	}

	if cfg.SecretsFile != "" {
		fileSecrets, err := readEjsonSecrets(cfg.SecretsFile, cfg.EjsonKeyDir, cfg.EjsonPrivateKey)
		if err != nil {
			return nil, err
		}
		if err := mergo.Merge(&cfg.Secrets, *fileSecrets); err != nil {
			return nil, fmt.Errorf("merge secrets: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	switch c.FallbackProvider {
	case ProviderOllama, ProviderNone:
	case ProviderGemini:
		if c.Secrets.GeminiAPIKey == "" {
			return errors.New("FALLBACK_PROVIDER=gemini requires GEMINI_API_KEY or a secrets file with gemini_api_key")
		}
	default:
		return fmt.Errorf("unknown FALLBACK_PROVIDER %q (supported: ollama, gemini, none)", c.FallbackProvider)
	}
	if c.FallbackTimeout < 0 {
		return fmt.Errorf("FALLBACK_TIMEOUT must not be negative, got %s", c.FallbackTimeout)
	}
	if c.FallbackRate < 0 {
		return fmt.Errorf("FALLBACK_RATE_PER_SEC must not be negative, got %v", c.FallbackRate)
	}
	return nil
}

func readEjsonSecrets(filename, keyDir, privateKey string) (*Secrets, error) {
	raw, err := ejson.DecryptFile(filename, keyDir, privateKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt %s: %w", filename, err)
	}

	s := &Secrets{}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return s, nil
}

func readFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}
