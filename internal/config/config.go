package config

import (
	"github.com/spf13/viper"
)

type AppConfig struct {
	TCPAddr      string `mapstructure:"tcp_addr"`
	HTTPAddr     string `mapstructure:"http_addr"`
	LogLevel     string `mapstructure:"log_level"`
	OutboundSize int    `mapstructure:"outbound_size"`
}

// Load reads configuration from the environment. Every key has a
// working default so the server starts with no configuration at all.
func Load() *AppConfig {
	v := viper.New()

	v.SetEnvPrefix("scribble")
	v.AutomaticEnv()

	v.SetDefault("tcp_addr", ":5555")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("outbound_size", 64)

	return &AppConfig{
		TCPAddr:      v.GetString("tcp_addr"),
		HTTPAddr:     v.GetString("http_addr"),
		LogLevel:     v.GetString("log_level"),
		OutboundSize: v.GetInt("outbound_size"),
	}
}
