package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"lrc-translator/internal/translation"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

// Built-in defaults, overridden by the config file and environment.
const (
	DefaultBaseURL    = "https://api.openai.com"
	DefaultModel      = "gpt-3.5-turbo"
	DefaultListenAddr = ":8080"
	DefaultOutputFile = "translated_lyrics.lrc"
)

// DefaultTargetLanguages is used when no language is configured.
var DefaultTargetLanguages = []string{"Japanese", "Traditional Chinese"}

// ErrMissingCredentials is returned by Validate when the backend cannot be addressed.
var ErrMissingCredentials = errors.New("please provide the API key, base URL and model name")

type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	TargetLanguages   []string
	Mode              string
	LineMaxTokens     int
	DocumentMaxTokens int
	RequestTimeout    time.Duration
	DatabaseURL       string
	ListenAddr        string
	AllowedOrigins    []string
}

// fileConfig is the TOML layout of an optional config file.
type fileConfig struct {
	APIKey            string   `toml:"api_key"`
	BaseURL           string   `toml:"base_url"`
	Model             string   `toml:"model"`
	TargetLanguages   []string `toml:"target_languages"`
	Mode              string   `toml:"mode"`
	LineMaxTokens     int      `toml:"line_max_tokens"`
	DocumentMaxTokens int      `toml:"document_max_tokens"`
	TimeoutSeconds    int      `toml:"timeout_seconds"`
	DatabaseURL       string   `toml:"database_url"`
	ListenAddr        string   `toml:"listen_addr"`
	AllowedOrigins    []string `toml:"allowed_origins"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:           DefaultBaseURL,
		Model:             DefaultModel,
		TargetLanguages:   append([]string(nil), DefaultTargetLanguages...),
		Mode:              string(translation.ModeLineByLine),
		LineMaxTokens:     translation.DefaultLineMaxTokens,
		DocumentMaxTokens: translation.DefaultDocumentMaxTokens,
		RequestTimeout:    translation.DefaultTimeout,
		ListenAddr:        DefaultListenAddr,
	}
}

// Load layers defaults, the optional TOML file at path (or LRC_CONFIG) and
// environment variables, in that order.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("LRC_CONFIG")
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.APIKey, fc.APIKey)
	setString(&c.BaseURL, fc.BaseURL)
	setString(&c.Model, fc.Model)
	setString(&c.Mode, fc.Mode)
	setString(&c.DatabaseURL, fc.DatabaseURL)
	setString(&c.ListenAddr, fc.ListenAddr)
	if langs := cleanList(fc.TargetLanguages); len(langs) > 0 {
		c.TargetLanguages = langs
	}
	if origins := cleanList(fc.AllowedOrigins); len(origins) > 0 {
		c.AllowedOrigins = origins
	}
	if fc.LineMaxTokens > 0 {
		c.LineMaxTokens = fc.LineMaxTokens
	}
	if fc.DocumentMaxTokens > 0 {
		c.DocumentMaxTokens = fc.DocumentMaxTokens
	}
	if fc.TimeoutSeconds > 0 {
		c.RequestTimeout = time.Duration(fc.TimeoutSeconds) * time.Second
	}

	log.Debug().Str("path", path).Msg("Loaded config file")
	return nil
}

func (c *Config) applyEnv() {
	c.APIKey = getEnv("LRC_API_KEY", getEnv("OPENAI_API_KEY", c.APIKey))
	c.BaseURL = getEnv("LRC_BASE_URL", c.BaseURL)
	c.Model = getEnv("LRC_MODEL", c.Model)
	c.Mode = getEnv("LRC_MODE", c.Mode)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.ListenAddr = getEnv("LRC_LISTEN_ADDR", c.ListenAddr)
	c.LineMaxTokens = getEnvInt("LRC_LINE_MAX_TOKENS", c.LineMaxTokens)
	c.DocumentMaxTokens = getEnvInt("LRC_DOCUMENT_MAX_TOKENS", c.DocumentMaxTokens)
	if secs := getEnvInt("LRC_REQUEST_TIMEOUT", 0); secs > 0 {
		c.RequestTimeout = time.Duration(secs) * time.Second
	}
	if langs := SplitList(os.Getenv("LRC_TARGET_LANGUAGES")); len(langs) > 0 {
		c.TargetLanguages = langs
	}
	if origins := SplitList(os.Getenv("LRC_ALLOWED_ORIGINS")); len(origins) > 0 {
		c.AllowedOrigins = origins
	}
}

// Validate reports missing or unusable settings before any call is made.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" || strings.TrimSpace(c.BaseURL) == "" || strings.TrimSpace(c.Model) == "" {
		return ErrMissingCredentials
	}
	if len(c.TargetLanguages) == 0 {
		return errors.New("at least one target language is required")
	}
	if _, err := translation.ParseMode(c.Mode); err != nil {
		return err
	}
	if c.LineMaxTokens < 1 || c.DocumentMaxTokens < 1 {
		return errors.New("max tokens must be at least 1")
	}
	return nil
}

// ClientConfig projects the backend connection settings.
func (c *Config) ClientConfig() translation.ClientConfig {
	return translation.ClientConfig{
		APIKey:  c.APIKey,
		BaseURL: c.BaseURL,
		Timeout: c.RequestTimeout,
	}
}

// DriverOptions projects the translation settings. Validate must have passed.
func (c *Config) DriverOptions() translation.Options {
	mode, _ := translation.ParseMode(c.Mode)
	return translation.Options{
		Model:             c.Model,
		TargetLanguages:   append([]string(nil), c.TargetLanguages...),
		Mode:              mode,
		LineMaxTokens:     c.LineMaxTokens,
		DocumentMaxTokens: c.DocumentMaxTokens,
	}
}

// Clone returns a copy that can be modified per request.
func (c *Config) Clone() *Config {
	cp := *c
	cp.TargetLanguages = append([]string(nil), c.TargetLanguages...)
	cp.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	return &cp
}

// SplitList splits a comma separated list, dropping empty items.
func SplitList(s string) []string {
	return cleanList(strings.Split(s, ","))
}

func cleanList(items []string) []string {
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
