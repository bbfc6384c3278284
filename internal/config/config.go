package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Venue    VenueConfig    `mapstructure:"venue"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Rate     RateConfig     `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

type AuthConfig struct {
	RequireAPIKey bool   `mapstructure:"require_api_key"`
	APIKey        string `mapstructure:"api_key"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr                  string `mapstructure:"addr"`
	Password              string `mapstructure:"password"`
	DB                    int    `mapstructure:"db"`
	IdempotencyTTLSeconds int    `mapstructure:"idempotency_ttl_seconds"`
}

type VenueConfig struct {
	BaseURL              string  `mapstructure:"base_url"`
	TimeoutMs            int     `mapstructure:"timeout_ms"`
	MetadataTTLSeconds   int     `mapstructure:"metadata_ttl_seconds"`
	MinOrderUSD          float64 `mapstructure:"min_order_usd"`
	DefaultSlippage      float64 `mapstructure:"default_slippage"`
	DefaultExecutionType string  `mapstructure:"default_execution_type"`
}

// RiskConfig 两个入口刻意使用不同的杠杆上限：
// robo (委托策略) 20x，direct (用户直连) 100x。不要合并。
type RiskConfig struct {
	MaxLeverageRobo   float64 `mapstructure:"max_leverage_robo"`
	MaxLeverageDirect float64 `mapstructure:"max_leverage_direct"`
	MinStakeUSD       float64 `mapstructure:"min_stake_usd"`
}

type RateConfig struct {
	QPS   float64 `mapstructure:"qps"`
	Burst int     `mapstructure:"burst"`
}

func (v VenueConfig) Timeout() time.Duration {
	if v.TimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(v.TimeoutMs) * time.Millisecond
}

func (v VenueConfig) MetadataTTL() time.Duration {
	if v.MetadataTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(v.MetadataTTLSeconds) * time.Second
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. ROBOGATE_DATABASE_DSN
	viper.SetEnvPrefix("robogate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("auth.require_api_key", false)
	viper.SetDefault("redis.idempotency_ttl_seconds", 86400)
	viper.SetDefault("venue.timeout_ms", 10000)
	viper.SetDefault("venue.metadata_ttl_seconds", 300)
	viper.SetDefault("venue.min_order_usd", 10)
	viper.SetDefault("venue.default_slippage", 0.05)
	viper.SetDefault("venue.default_execution_type", "market")
	viper.SetDefault("risk.max_leverage_robo", 20)
	viper.SetDefault("risk.max_leverage_direct", 100)
	viper.SetDefault("risk.min_stake_usd", 1)
	viper.SetDefault("rate_limit.qps", 10)
	viper.SetDefault("rate_limit.burst", 20)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
