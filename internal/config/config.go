// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	WhatsApp   WhatsAppConfig   `mapstructure:"whatsapp"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
}

type ServerConfig struct {
	Port         string `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	// URL is the Postgres DSN. Empty means durable storage is not desired
	// and the service runs in volatile mode permanently.
	URL string `mapstructure:"url"`
	// ConnectTimeout bounds the background connection attempt, in seconds.
	ConnectTimeout int `mapstructure:"connect_timeout"`
}

// WantDurable reports whether configuration requests a durable backend.
func (d *DatabaseConfig) WantDurable() bool {
	return strings.TrimSpace(d.URL) != ""
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type WhatsAppConfig struct {
	Token         string `mapstructure:"token"`
	PhoneNumberID string `mapstructure:"phone_number_id"`
	APIBaseURL    string `mapstructure:"api_base_url"`
	VerifyToken   string `mapstructure:"verify_token"`
	// AppSecret signs inbound webhook payloads. Empty disables the
	// signature check.
	AppSecret      string               `mapstructure:"app_secret"`
	SendTimeout    int                  `mapstructure:"send_timeout"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"`
	Timeout          int     `mapstructure:"timeout"`
	FailureRatio     float64 `mapstructure:"failure_ratio"`
	ConsecutiveFails uint32  `mapstructure:"consecutive_fails"`
}

type AdminConfig struct {
	// Token gates reply/delete operations. Empty runs the dashboard API in
	// open mode.
	Token string `mapstructure:"token"`
}

type MiddlewareConfig struct {
	RateLimit      int      `mapstructure:"rate_limit"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", 10)
	viper.SetDefault("server.write_timeout", 10)
	viper.SetDefault("database.connect_timeout", 8)
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("whatsapp.api_base_url", "https://graph.facebook.com/v20.0")
	viper.SetDefault("whatsapp.send_timeout", 15)
	viper.SetDefault("whatsapp.circuit_breaker.max_requests", 3)
	viper.SetDefault("whatsapp.circuit_breaker.interval", 60)
	viper.SetDefault("whatsapp.circuit_breaker.timeout", 60)
	viper.SetDefault("whatsapp.circuit_breaker.failure_ratio", 0.6)
	viper.SetDefault("whatsapp.circuit_breaker.consecutive_fails", 5)
	viper.SetDefault("middleware.rate_limit", 100)
	viper.SetDefault("middleware.rate_limit_burst", 1000)
	viper.SetDefault("middleware.allowed_origins", []string{"*"})

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
