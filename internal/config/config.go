// Package config loads server settings from the environment and an
// optional config file.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/sipmarket/market-engine/internal/model"
)

type Config struct {
	Port        string        `mapstructure:"port"`
	DatabaseURL string        `mapstructure:"database_url"`
	RedisURL    string        `mapstructure:"redis_url"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	LogLevel    string        `mapstructure:"log_level"`

	MaxSipsPerBet    float64 `mapstructure:"max_sips_per_bet"`    // 0 disables
	MaxSipsPerPlayer float64 `mapstructure:"max_sips_per_player"` // 0 disables
	RNGSeed          uint64  `mapstructure:"rng_seed"`            // 0 seeds from the clock

	Rules RulesConfig `mapstructure:",squash"`
}

// RulesConfig holds the defaults applied to games created without overrides.
type RulesConfig struct {
	Rounds           int     `mapstructure:"default_rounds"`
	InvestMultiplier float64 `mapstructure:"default_invest_multiplier"`
	ShortMultiplier  float64 `mapstructure:"default_short_multiplier"`
	CallPercent      float64 `mapstructure:"default_call_percent"`
	PutPercent       float64 `mapstructure:"default_put_percent"`
	CallBaseAmount   float64 `mapstructure:"default_call_base_amount"`
	PutBaseAmount    float64 `mapstructure:"default_put_base_amount"`
}

// Load reads settings. Environment variables use the upper-cased key names
// (PORT, DATABASE_URL, DEFAULT_ROUNDS, ...). path may be empty.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("cache_ttl", "30s")
	v.SetDefault("log_level", "info")
	v.SetDefault("max_sips_per_bet", 30)
	v.SetDefault("max_sips_per_player", 60)
	v.SetDefault("rng_seed", 0)

	v.SetDefault("default_rounds", 10)
	v.SetDefault("default_invest_multiplier", 2)
	v.SetDefault("default_short_multiplier", 2)
	v.SetDefault("default_call_percent", 50)
	v.SetDefault("default_put_percent", 50)
	v.SetDefault("default_call_base_amount", 7)
	v.SetDefault("default_put_base_amount", 7)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if cfg.Rules.Rounds < 1 {
		return Config{}, fmt.Errorf("config: default_rounds must be at least 1, got %d", cfg.Rules.Rounds)
	}
	return cfg, nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// GameRules converts the rule defaults into the model type.
func (c Config) GameRules() model.GameRules {
	r := c.Rules
	return model.GameRules{
		Rounds:           r.Rounds,
		InvestMultiplier: decimal.NewFromFloat(r.InvestMultiplier),
		ShortMultiplier:  decimal.NewFromFloat(r.ShortMultiplier),
		CallPercent:      r.CallPercent,
		PutPercent:       r.PutPercent,
		CallBaseAmount:   decimal.NewFromFloat(r.CallBaseAmount),
		PutBaseAmount:    decimal.NewFromFloat(r.PutBaseAmount),
	}
}

// BetLimits returns the per-bet and per-player sip caps.
func (c Config) BetLimits() (perBet, perPlayer decimal.Decimal) {
	return decimal.NewFromFloat(c.MaxSipsPerBet), decimal.NewFromFloat(c.MaxSipsPerPlayer)
}
