// Package config loads the service configuration from JSON, YAML or TOML.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"novel_crafter/export"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":8080"

// Config is the full service configuration.
type Config struct {
	ServerAddr string `json:"server_addr,omitempty" yaml:"server_addr" toml:"server_addr"`
	// StaticDir is served at / when set.
	StaticDir string         `json:"static_dir,omitempty" yaml:"static_dir" toml:"static_dir"`
	LLM       LLMConfig      `json:"llm" yaml:"llm" toml:"llm"`
	Images    ImagesConfig   `json:"images" yaml:"images" toml:"images"`
	Grammar   GrammarConfig  `json:"grammar" yaml:"grammar" toml:"grammar"`
	Export    export.Options `json:"export" yaml:"export" toml:"export"`
	Browser   BrowserConfig  `json:"browser" yaml:"browser" toml:"browser"`
	Timeouts  Timeouts       `json:"timeouts" yaml:"timeouts" toml:"timeouts"`
}

// LLMConfig selects the assistant backend. An empty provider or "mock"
// answers locally.
type LLMConfig struct {
	Provider    string  `json:"provider,omitempty" yaml:"provider" toml:"provider"`
	Model       string  `json:"model,omitempty" yaml:"model" toml:"model"`
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key" toml:"api_key"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url" toml:"base_url"`
	MaxTokens   int64   `json:"max_tokens,omitempty" yaml:"max_tokens" toml:"max_tokens"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature" toml:"temperature"`
}

type ImagesConfig struct {
	PexelsAPIKey  string `json:"pexels_api_key,omitempty" yaml:"pexels_api_key" toml:"pexels_api_key"`
	PixabayAPIKey string `json:"pixabay_api_key,omitempty" yaml:"pixabay_api_key" toml:"pixabay_api_key"`
}

type GrammarConfig struct {
	// MaxMatchesPerRule caps matches per rule; zero keeps the engine default.
	MaxMatchesPerRule int `json:"max_matches_per_rule,omitempty" yaml:"max_matches_per_rule" toml:"max_matches_per_rule"`
}

// BrowserConfig locates the headless Chrome used for PDF export. Both
// empty means launch a managed browser.
type BrowserConfig struct {
	ControlURL string `json:"control_url,omitempty" yaml:"control_url" toml:"control_url"`
	Bin        string `json:"bin,omitempty" yaml:"bin" toml:"bin"`
}

// Timeouts are Go duration strings such as "60s".
type Timeouts struct {
	Assistant string `json:"assistant,omitempty" yaml:"assistant" toml:"assistant"`
	Images    string `json:"images,omitempty" yaml:"images" toml:"images"`
	PDF       string `json:"pdf,omitempty" yaml:"pdf" toml:"pdf"`
}

// Providers lists the accepted LLM providers.
var Providers = []string{"", "mock", "openai", "deepseek"}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		ServerAddr: DefaultAddr,
		Export:     export.DefaultOptions(),
		Timeouts: Timeouts{
			Assistant: "60s",
			Images:    "15s",
			PDF:       "90s",
		},
	}
}

// Load reads path, choosing the decoder by extension (.yaml/.yml, .toml,
// anything else is JSON), then applies environment overrides. An empty path
// yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	cfg.Export = cfg.Export.WithDefaults(export.DefaultOptions())
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = DefaultAddr
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	default:
		return json.Unmarshal(data, cfg)
	}
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "openai"
		}
	}
	if key := os.Getenv("PEXELS_API_KEY"); key != "" {
		c.Images.PexelsAPIKey = key
	}
	if key := os.Getenv("PIXABAY_API_KEY"); key != "" {
		c.Images.PixabayAPIKey = key
	}
	if addr := os.Getenv("NOVEL_CRAFTER_ADDR"); addr != "" {
		c.ServerAddr = addr
	}
}

// Validate checks the LLM section.
func (c *Config) Validate() error {
	valid := false
	for _, p := range Providers {
		if c.LLM.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("llm provider %s not supported (valid: openai, deepseek, mock)", c.LLM.Provider)
	}
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" {
			return errors.New("llm provider openai requires api_key (or OPENAI_API_KEY)")
		}
	case "deepseek":
		if c.LLM.BaseURL == "" {
			return errors.New("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
	}
	return nil
}

// AssistantTimeout bounds one assistant call.
func (c *Config) AssistantTimeout() time.Duration { return parseDuration(c.Timeouts.Assistant, 60*time.Second) }

// ImagesTimeout bounds one image search.
func (c *Config) ImagesTimeout() time.Duration { return parseDuration(c.Timeouts.Images, 15*time.Second) }

// PDFTimeout bounds one PDF render.
func (c *Config) PDFTimeout() time.Duration { return parseDuration(c.Timeouts.PDF, 90*time.Second) }

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
