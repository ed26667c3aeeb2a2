// Package config loads and validates monitor settings from flags,
// environment variables (POOLWATCH_ prefix), or a config file. Validation
// failures are fatal at startup; nothing here surfaces mid-run.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"poolwatch/internal/dex"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL         string
	TokenAddress   string
	TokenSymbol    string
	FactoryAddress string
	MinLiquidity   string

	PollInterval    time.Duration
	RecheckInterval time.Duration
	ErrorCooldown   time.Duration
	MaxWorkers      int
	ChunkSize       uint64
	ChunkDelay      time.Duration

	PGDSN       string
	MetricsAddr string
	LogLevel    string

	DiscordWebhook string
	TelegramToken  string
	TelegramChatID string

	SMTPHost       string
	SMTPPort       int
	SenderEmail    string
	ReceiverEmails []string
	EmailPassword  string

	// Derived by Validate.
	MinLiquidityValue *big.Int `mapstructure:"-"`
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("POOLWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("factory", dex.DefaultFactoryAddress)
	v.SetDefault("token-symbol", "TOKEN")
	v.SetDefault("min-liquidity", "1000")
	v.SetDefault("poll-interval", 12*time.Second)
	v.SetDefault("recheck-interval", 30*time.Second)
	v.SetDefault("error-cooldown", 30*time.Second)
	v.SetDefault("max-workers", 5)
	v.SetDefault("chunk-size", uint64(1000))
	v.SetDefault("chunk-delay", 100*time.Millisecond)
	v.SetDefault("metrics-addr", ":8000")
	v.SetDefault("log-level", "info")
	v.SetDefault("smtp-host", "smtp.gmail.com")
	v.SetDefault("smtp-port", 587)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:          v.GetString("rpc"),
		TokenAddress:    v.GetString("token"),
		TokenSymbol:     v.GetString("token-symbol"),
		FactoryAddress:  v.GetString("factory"),
		MinLiquidity:    v.GetString("min-liquidity"),
		PollInterval:    v.GetDuration("poll-interval"),
		RecheckInterval: v.GetDuration("recheck-interval"),
		ErrorCooldown:   v.GetDuration("error-cooldown"),
		MaxWorkers:      v.GetInt("max-workers"),
		ChunkSize:       v.GetUint64("chunk-size"),
		ChunkDelay:      v.GetDuration("chunk-delay"),
		PGDSN:           v.GetString("pg-dsn"),
		MetricsAddr:     v.GetString("metrics-addr"),
		LogLevel:        v.GetString("log-level"),
		DiscordWebhook:  v.GetString("discord-webhook"),
		TelegramToken:   v.GetString("telegram-token"),
		TelegramChatID:  v.GetString("telegram-chat-id"),
		SMTPHost:        v.GetString("smtp-host"),
		SMTPPort:        v.GetInt("smtp-port"),
		SenderEmail:     v.GetString("sender-email"),
		ReceiverEmails:  splitAndClean(v.GetString("receiver-emails")),
		EmailPassword:   v.GetString("email-password"),
	}

	return cfg, nil
}

// Validate checks required settings, normalizes addresses, and parses the
// liquidity threshold. It must be called before the config is used.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.TokenAddress == "" {
		return fmt.Errorf("target token address is required")
	}

	token, err := dex.NormalizeHexAddress(c.TokenAddress)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	c.TokenAddress = token

	factory, err := dex.NormalizeHexAddress(c.FactoryAddress)
	if err != nil {
		return fmt.Errorf("factory: %w", err)
	}
	c.FactoryAddress = factory

	threshold, ok := new(big.Int).SetString(strings.TrimSpace(c.MinLiquidity), 10)
	if !ok || threshold.Sign() < 0 {
		return fmt.Errorf("min liquidity must be a non-negative integer, got %q", c.MinLiquidity)
	}
	c.MinLiquidityValue = threshold

	if c.MaxWorkers < 1 {
		return fmt.Errorf("max workers must be at least 1")
	}
	if c.ChunkSize == 0 {
		return fmt.Errorf("chunk size must be greater than zero")
	}
	if c.PollInterval <= 0 || c.RecheckInterval <= 0 {
		return fmt.Errorf("poll and recheck intervals must be positive")
	}
	if c.SenderEmail != "" && len(c.ReceiverEmails) == 0 {
		return fmt.Errorf("receiver emails are required when sender email is set")
	}

	return nil
}

// EmailEnabled reports whether the primary email channel is configured.
func (c *Config) EmailEnabled() bool {
	return c.SenderEmail != "" && len(c.ReceiverEmails) > 0
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
