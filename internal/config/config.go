// Package config loads the bot configuration from YAML with environment
// overrides for credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Chat    ChatConfig    `yaml:"chat"`
	Bot     BotConfig     `yaml:"bot"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// ChatConfig holds the service endpoint and login credentials.
type ChatConfig struct {
	// Domain is the site domain, e.g. "stackexchange.com". The chat host
	// is derived as chat.<domain>.
	Domain   string `yaml:"domain"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`

	// MaxMessageLength is the single-line length cap. Zero means the
	// service default of 500.
	MaxMessageLength int `yaml:"max_message_length"`
}

// BotConfig holds the engine's behavioral settings.
type BotConfig struct {
	Trigger    string  `yaml:"trigger"`
	Rooms      []int64 `yaml:"rooms"`
	HomeRooms  []int64 `yaml:"home_rooms"`
	QuietRooms []int64 `yaml:"quiet_rooms"`
	Admins     []int64 `yaml:"admins"`
	Banned     []int64 `yaml:"banned"`

	// AllowList, when non-empty, restricts the bot to messages from the
	// listed user ids.
	AllowList []int64 `yaml:"allow_list"`

	// MaxRooms caps the number of simultaneously joined rooms.
	MaxRooms int `yaml:"max_rooms"`

	// HideOneboxAfter is the delay before a onebox or condensable message
	// is condensed. Empty disables the condense lifecycle entirely.
	HideOneboxAfter Duration `yaml:"hide_onebox_after"`
}

// StoreConfig locates the persistence backend.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds the log level; sink selection stays env-driven.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Duration is a yaml-parseable time.Duration ("90s", "2m", ...).
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the setting as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load reads and validates a YAML config file. SECHAT_EMAIL and
// SECHAT_PASSWORD override the file values so credentials can stay out of
// checked-in configs.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if v := os.Getenv("SECHAT_EMAIL"); v != "" {
		cfg.Chat.Email = v
	}
	if v := os.Getenv("SECHAT_PASSWORD"); v != "" {
		cfg.Chat.Password = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings a running bot cannot do without.
func (c *Config) Validate() error {
	if c.Chat.Domain == "" {
		return fmt.Errorf("chat.domain is required")
	}
	if c.Bot.Trigger == "" {
		return fmt.Errorf("bot.trigger is required")
	}
	if c.Bot.MaxRooms < 0 {
		return fmt.Errorf("bot.max_rooms must not be negative")
	}
	if c.Chat.MaxMessageLength == 0 {
		c.Chat.MaxMessageLength = 500
	}
	if c.Bot.MaxRooms == 0 {
		c.Bot.MaxRooms = 10
	}
	return nil
}
