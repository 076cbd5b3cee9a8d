package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	Client ClientConfig `mapstructure:"client"`
}

// ClientConfig holds the channel manager's reconnect policy. The defaults
// mirror the browser client: five attempts, three seconds apart.
type ClientConfig struct {
	ServerURL            string        `mapstructure:"server_url"`
	ReconnectEnabled     bool          `mapstructure:"reconnect_enabled"`
	ReconnectMaxAttempts int           `mapstructure:"reconnect_max_attempts"`
	ReconnectInterval    time.Duration `mapstructure:"reconnect_interval"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("client.server_url", "ws://localhost:8080/ws")
	v.SetDefault("client.reconnect_enabled", true)
	v.SetDefault("client.reconnect_max_attempts", 5)
	v.SetDefault("client.reconnect_interval", "3s")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
