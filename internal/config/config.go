package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all metagen settings. Every field has a default so the tool
// works without a config file; values can be overridden via metagen.toml or
// METAGEN_* environment variables.
type Config struct {
	Provider   string          `mapstructure:"provider"`
	MaxRetries int             `mapstructure:"max_retries"`
	CacheDir   string          `mapstructure:"cache_dir"`
	OpenAI     OpenAIConfig    `mapstructure:"openai"`
	Ollama     OllamaConfig    `mapstructure:"ollama"`
	Gemini     GeminiConfig    `mapstructure:"gemini"`
	Qdrant     QdrantConfig    `mapstructure:"qdrant"`
	Embedding  EmbeddingConfig `mapstructure:"embedding"`
	Thema      ThemaConfig     `mapstructure:"thema"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// OllamaConfig carries the model tuning knobs passed through to the Ollama
// options block on every request.
type OllamaConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	NumCtx      int     `mapstructure:"num_ctx"`
	NumGPU      int     `mapstructure:"num_gpu"`
	NumPredict  int     `mapstructure:"num_predict"`
	Temperature float64 `mapstructure:"temperature"`
	System      string  `mapstructure:"system"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type QdrantConfig struct {
	URL        string `mapstructure:"url"`
	Collection string `mapstructure:"collection"`
}

type EmbeddingConfig struct {
	Model string `mapstructure:"model"`
}

type ThemaConfig struct {
	URL  string `mapstructure:"url"`
	Path string `mapstructure:"path"`
}

const defaultSystemPrompt = "You are a Metadata expert responsible for collecting comprehensive and precise metadata!"

// ThemaJSONURL is the canonical source for the Thema subject category
// vocabulary published by EDItEUR.
const ThemaJSONURL = "https://www.editeur.org/files/Thema/1.5/v1.5_en/20230707_Thema_v1.5_en.json"

// Load reads configuration from the given file path, or falls back to
// metagen.toml in the working directory and then ~/.metagen/metagen.toml.
// A missing config file is not an error; defaults and environment
// variables still apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	home := configHome()
	if configPath != "" {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		v.SetConfigFile(abs)
	} else if _, err := os.Stat("metagen.toml"); err == nil {
		v.SetConfigFile("metagen.toml")
	} else {
		v.SetConfigFile(filepath.Join(home, "metagen.toml"))
	}

	setDefaults(v, home)

	v.SetEnvPrefix("METAGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if configPath != "" {
			return nil, fmt.Errorf("read config file %s: %w", configPath, err)
		}
		// Default config file is optional.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Provider API keys follow the conventional environment variables when
	// not set through metagen config.
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings that would otherwise fail deep inside a
// generation run.
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai", "ollama", "gemini":
	default:
		return fmt.Errorf("unsupported provider: %q", c.Provider)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries)
	}
	return nil
}

// Model returns the model name configured for the active provider.
func (c *Config) Model() string {
	switch c.Provider {
	case "openai":
		return c.OpenAI.Model
	case "ollama":
		return c.Ollama.Model
	case "gemini":
		return c.Gemini.Model
	}
	return ""
}

func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("provider", "openai")
	v.SetDefault("max_retries", 2)
	v.SetDefault("cache_dir", filepath.Join(home, "cache"))

	// Keys need registered defaults or AutomaticEnv never consults the
	// METAGEN_* variables for them.
	v.SetDefault("openai.api_key", "")
	v.SetDefault("gemini.api_key", "")

	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.base_url", "")

	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.model", "qwen2.5:7b-instruct-q8_0")
	v.SetDefault("ollama.num_ctx", 8192)
	v.SetDefault("ollama.num_gpu", 100)
	v.SetDefault("ollama.num_predict", -1)
	v.SetDefault("ollama.temperature", 0.4)
	v.SetDefault("ollama.system", defaultSystemPrompt)

	v.SetDefault("gemini.model", "gemini-1.5-flash")

	v.SetDefault("qdrant.url", "localhost:6334")
	v.SetDefault("qdrant.collection", "thema")

	v.SetDefault("embedding.model", "nomic-embed-text")

	v.SetDefault("thema.url", ThemaJSONURL)
	v.SetDefault("thema.path", filepath.Join(home, "thema.json"))
}

func configHome() string {
	if h := os.Getenv("METAGEN_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".metagen"
	}
	return filepath.Join(home, ".metagen")
}
