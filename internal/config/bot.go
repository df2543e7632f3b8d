package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.yaml.in/yaml/v3"
)

// BotTokenEnv names the environment variable holding the Telegram bot token.
const BotTokenEnv = "TELEGRAM_BOT_TOKEN"

// ErrMissingBotToken is returned when BotTokenEnv is unset or empty.
var ErrMissingBotToken = errors.New("bot token not found: set " + BotTokenEnv)

const (
	defaultProvider = "cloudflare"
	defaultWorkers  = 8
	defaultHTTPAddr = ":8081"
)

// BotConfig holds the DNS provider type and settings plus the bot's own
// runtime options.
type BotConfig struct {
	Provider string            `yaml:"provider"`
	Workers  int               `yaml:"workers"`
	HTTPAddr string            `yaml:"http_addr"`
	Settings map[string]string `yaml:"settings"`
}

// LoadBotToken reads the Telegram bot token from the environment.
func LoadBotToken() (string, error) {
	token := os.Getenv(BotTokenEnv)
	if token == "" {
		return "", ErrMissingBotToken
	}
	return token, nil
}

// LoadBotConfig reads the bot configuration from the path specified by the
// BOT_CONFIG_PATH environment variable, defaulting to "configs/bot.yaml".
// A missing default file yields the default configuration.
func LoadBotConfig() (*BotConfig, error) {
	path := os.Getenv("BOT_CONFIG_PATH")
	if path == "" {
		cfg, err := LoadBotConfigFromPath("configs/bot.yaml")
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultBotConfig(), nil
		}
		return cfg, err
	}
	return LoadBotConfigFromPath(path)
}

// DefaultBotConfig returns the configuration used when no file is present.
func DefaultBotConfig() *BotConfig {
	cfg := &BotConfig{}
	cfg.applyDefaults()
	return cfg
}

// LoadBotConfigFromPath reads the bot configuration from the given file path.
func LoadBotConfigFromPath(path string) (*BotConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bot config file: %w", err)
	}

	var cfg BotConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing bot config file: %w", err)
	}

	if cfg.Workers < 0 {
		return nil, fmt.Errorf("bot config: workers must not be negative, got %d", cfg.Workers)
	}
	cfg.applyDefaults()

	// Expand ${ENV_VAR} references in setting values.
	for k, v := range cfg.Settings {
		cfg.Settings[k] = os.ExpandEnv(v)
	}

	return &cfg, nil
}

func (c *BotConfig) applyDefaults() {
	if c.Provider == "" {
		c.Provider = defaultProvider
	}
	if c.Workers == 0 {
		c.Workers = defaultWorkers
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = defaultHTTPAddr
	}
	if c.Settings == nil {
		c.Settings = map[string]string{}
	}
}
