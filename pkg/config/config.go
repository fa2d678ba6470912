package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
)

const (
	envConfigPath = "RTMBOT_CONFIG"
	envSlackToken = "SLACK_API_TOKEN"
	envAPIBaseURL = "RTMBOT_API_BASE_URL"
	envBotName    = "RTMBOT_BOT"
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Slack     SlackConfig     `json:"slack"`
	Bot       BotConfig       `json:"bot"`
	Providers ProvidersConfig `json:"providers"`
	Gateway   GatewayConfig   `json:"gateway"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// SlackConfig holds the platform credential and endpoints.
type SlackConfig struct {
	Token              string `json:"token"`
	APIBaseURL         string `json:"api_base_url"`
	DialTimeoutSeconds int    `json:"dial_timeout_seconds"`
}

// BotConfig selects the bot logic and its settings.
type BotConfig struct {
	Name           string            `json:"name"`
	Commands       map[string]string `json:"commands"`
	RejectReaction string            `json:"reject_reaction"`
	HistoryLimit   int               `json:"history_limit"`
}

// ProvidersConfig stores per-provider connection settings.
type ProvidersConfig struct {
	OpenAI OpenAIProviderConfig `json:"openai"`
}

// OpenAIProviderConfig configures the OpenAI client used by the assistant bot.
type OpenAIProviderConfig struct {
	BaseURL               string `json:"base_url"`
	APIKeyEnv             string `json:"api_key_env"`
	Organization          string `json:"organization"`
	Project               string `json:"project"`
	Model                 string `json:"model"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

// GatewayConfig configures the optional status server.
type GatewayConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

// LoadConfig resolves config.json, unmarshals it, and applies environment overrides.
//
// A missing config file is not an error unless RTMBOT_CONFIG names it; the
// runtime can be driven from the environment alone.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := json.Unmarshal(jsonc.ToJSON(content), &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// LoadDotEnv loads environment variables from path. A missing file is ignored.
// Variables already set in the process environment win.
func LoadDotEnv(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}

	return nil
}

// Credential returns the trimmed bot token or an error when none is configured.
func (c *Config) Credential() (string, error) {
	if c == nil {
		return "", errors.New("config is required")
	}

	token := strings.TrimSpace(c.Slack.Token)
	if token == "" {
		return "", fmt.Errorf("slack.token is required (or set %s)", envSlackToken)
	}

	return token, nil
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if token := strings.TrimSpace(os.Getenv(envSlackToken)); token != "" {
		cfg.Slack.Token = token
	}

	if baseURL := strings.TrimSpace(os.Getenv(envAPIBaseURL)); baseURL != "" {
		cfg.Slack.APIBaseURL = baseURL
	}

	if botName := strings.TrimSpace(os.Getenv(envBotName)); botName != "" {
		cfg.Bot.Name = botName
	}
}

// findConfigPath resolves the active config file location.
//
// Precedence is RTMBOT_CONFIG first, then cwd-local fallback paths. An empty
// path with a nil error means no config file exists.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
