package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/wricardo/bingo-server/game/bingo"
)

// EnvPrefix is prepended to every environment override, e.g. BINGO_PORT.
const EnvPrefix = "BINGO"

// Config holds the server settings.
type Config struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	WinRule         string        `mapstructure:"win_rule"`
	RoomIdleTTL     time.Duration `mapstructure:"room_idle_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	SendBuffer      int           `mapstructure:"send_buffer"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	Ngrok           NgrokConfig   `mapstructure:"ngrok"`
}

// NgrokConfig controls the optional public tunnel.
type NgrokConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	AuthToken string `mapstructure:"auth_token"`
	Domain    string `mapstructure:"domain"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 8080)
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("win_rule", string(bingo.RuleFullCard))
	v.SetDefault("room_idle_ttl", "0s")
	v.SetDefault("cleanup_interval", "1m")
	v.SetDefault("max_message_size", 4096)
	v.SetDefault("send_buffer", 256)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("ngrok.enabled", false)
	v.SetDefault("ngrok.auth_token", "")
	v.SetDefault("ngrok.domain", "")
}

// Load reads defaults, then the YAML file at path (or bingo.yaml in the
// working directory or ./config when path is empty), then BINGO_*
// environment variables. A missing default file is not an error; a missing
// explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("bingo")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Debug().Str("module", "config").Msg("no config file found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", v.ConfigFileUsed()).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if _, err := bingo.ParseWinRule(c.WinRule); err != nil {
		return err
	}
	if c.RoomIdleTTL < 0 {
		return fmt.Errorf("room_idle_ttl must not be negative")
	}
	if c.RoomIdleTTL > 0 && c.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup_interval must be positive when room_idle_ttl is set")
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("max_message_size must be positive")
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be positive")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log_format %q (want console or json)", c.LogFormat)
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
