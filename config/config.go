package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	Discord struct {
		BotToken       string `koanf:"bot_token" yaml:"bot_token"`
		ChannelID      string `koanf:"channel_id" yaml:"channel_id"`
		AnnounceOnline bool   `koanf:"announce_online" yaml:"announce_online"`
	} `koanf:"discord" yaml:"discord"`

	Imgbb struct {
		APIKey   string        `koanf:"api_key" yaml:"api_key"`
		Endpoint string        `koanf:"endpoint" yaml:"endpoint"`
		Timeout  time.Duration `koanf:"timeout" yaml:"timeout"`
	} `koanf:"imgbb" yaml:"imgbb"`

	Confirm struct {
		Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
		Emoji   string        `koanf:"emoji" yaml:"emoji"`
	} `koanf:"confirm" yaml:"confirm"`

	Liveness struct {
		Addr string `koanf:"addr" yaml:"addr"`
	} `koanf:"liveness" yaml:"liveness"`

	// Metrics.Addr is empty unless a separate metrics listener is wanted.
	Metrics struct {
		Addr string `koanf:"addr" yaml:"addr"`
	} `koanf:"metrics" yaml:"metrics"`

	Telemetry struct {
		OTLPEndpoint string `koanf:"otlp_endpoint" yaml:"otlp_endpoint"`
	} `koanf:"telemetry" yaml:"telemetry"`

	Log struct {
		Level string `koanf:"level" yaml:"level"`
	} `koanf:"log" yaml:"log"`
}

// Global singleton config instance
var (
	cfg  *AppConfig
	once sync.Once
)

// defaultLocations are searched in order; the first file found wins.
var defaultLocations = []string{
	"/etc/uploader/config.yaml",       // Standard system location
	"/config/config.yaml",             // Docker mounted volume location
	filepath.Join(".", "config.yaml"), // Local file in current directory
}

// envAliases maps the bare variable names used by hosting dashboards onto config keys.
var envAliases = map[string]string{
	"DISCORD_TOKEN": "discord.bot_token",
	"CHANNEL_ID":    "discord.channel_id",
	"IMGBB_API_KEY": "imgbb.api_key",
}

// Get returns the global AppConfig instance
func Get() *AppConfig {
	once.Do(func() {
		var err error
		cfg, err = load(defaultLocations)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
	})
	return cfg
}

// Load configuration from various sources with proper precedence
func load(locations []string) (*AppConfig, error) {
	k := koanf.New(".")

	// Default configuration
	defaultConfig := map[string]interface{}{
		"imgbb.endpoint":  "https://api.imgbb.com/1/upload",
		"imgbb.timeout":   "60s",
		"confirm.timeout": "30s",
		"confirm.emoji":   "✅",
		"liveness.addr":   "0.0.0.0:10000",
		"log.level":       "debug",
	}
	if err := k.Load(confmap.Provider(defaultConfig, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	configLoaded := false
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			slog.Info("Loading configuration file", "path", loc)
			if err := k.Load(file.Provider(loc), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("error loading config file %s: %w", loc, err)
			}
			configLoaded = true
			break
		}
	}

	if !configLoaded {
		slog.Warn("No config file found in any of the expected locations",
			"searched_locations", locations)
	}

	// A .env file never overrides variables that are already set.
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	aliased := make(map[string]interface{})
	for name, key := range envAliases {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			aliased[key] = v
		}
	}
	if err := k.Load(confmap.Provider(aliased, "."), nil); err != nil {
		return nil, fmt.Errorf("error loading environment aliases: %w", err)
	}

	// Environment variables (highest priority)
	// Format: APP_IMGBB_API_KEY -> imgbb.api_key
	callback := func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "app_")
		return strings.Replace(s, "_", ".", 1)
	}

	if err := k.Load(env.Provider("APP_", ".", callback), nil); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var cfg AppConfig
	decoderConfig := koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	}

	if err := k.UnmarshalWithConf("", &cfg, decoderConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Log configuration details (with sensitive information redacted)
	slog.Debug("Configuration loaded",
		"channel_id", cfg.Discord.ChannelID,
		"bot_token_present", cfg.Discord.BotToken != "",
		"imgbb_key_present", cfg.Imgbb.APIKey != "",
		"imgbb_endpoint", cfg.Imgbb.Endpoint,
		"confirm_timeout", cfg.Confirm.Timeout,
		"liveness_addr", cfg.Liveness.Addr)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Discord.BotToken == "" {
		return errors.New("discord.bot_token is required (DISCORD_TOKEN)")
	}
	if c.Discord.ChannelID == "" {
		return errors.New("discord.channel_id is required (CHANNEL_ID)")
	}
	if _, err := strconv.ParseUint(c.Discord.ChannelID, 10, 64); err != nil {
		return fmt.Errorf("discord.channel_id must be a numeric snowflake: %w", err)
	}
	if c.Imgbb.APIKey == "" {
		return errors.New("imgbb.api_key is required (IMGBB_API_KEY)")
	}
	if c.Imgbb.Timeout <= 0 {
		return fmt.Errorf("imgbb.timeout must be positive, got %s", c.Imgbb.Timeout)
	}
	if c.Confirm.Timeout <= 0 {
		return fmt.Errorf("confirm.timeout must be positive, got %s", c.Confirm.Timeout)
	}
	if c.Confirm.Emoji == "" {
		return errors.New("confirm.emoji must not be empty")
	}
	return nil
}
