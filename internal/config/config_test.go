package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolwatch/internal/dex"
)

func validConfig() Config {
	return Config{
		RPCURL:          "https://eth.example.org",
		TokenAddress:    "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		TokenSymbol:     "TOKEN",
		FactoryAddress:  dex.DefaultFactoryAddress,
		MinLiquidity:    "1000",
		PollInterval:    12 * time.Second,
		RecheckInterval: 30 * time.Second,
		ErrorCooldown:   30 * time.Second,
		MaxWorkers:      5,
		ChunkSize:       1000,
		ChunkDelay:      100 * time.Millisecond,
	}
}

func TestValidateNormalizesAddresses(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", cfg.TokenAddress)
	assert.Equal(t, "0x1f98431c8ad98523631ae4a59f267346ea31f984", cfg.FactoryAddress)
	require.NotNil(t, cfg.MinLiquidityValue)
	assert.Equal(t, int64(1000), cfg.MinLiquidityValue.Int64())
}

func TestValidateLargeThreshold(t *testing.T) {
	cfg := validConfig()
	// A uint128-scale value must survive parsing intact.
	cfg.MinLiquidity = "340282366920938463463374607431768211455"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, cfg.MinLiquidity, cfg.MinLiquidityValue.String())
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing rpc", func(c *Config) { c.RPCURL = "" }},
		{"missing token", func(c *Config) { c.TokenAddress = "" }},
		{"bad token", func(c *Config) { c.TokenAddress = "not-hex" }},
		{"bad factory", func(c *Config) { c.FactoryAddress = "0x123" }},
		{"bad threshold", func(c *Config) { c.MinLiquidity = "lots" }},
		{"negative threshold", func(c *Config) { c.MinLiquidity = "-5" }},
		{"zero workers", func(c *Config) { c.MaxWorkers = 0 }},
		{"zero chunk", func(c *Config) { c.ChunkSize = 0 }},
		{"zero poll", func(c *Config) { c.PollInterval = 0 }},
		{"sender without receivers", func(c *Config) { c.SenderEmail = "bot@example.org" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, dex.DefaultFactoryAddress, cfg.FactoryAddress)
	assert.Equal(t, "1000", cfg.MinLiquidity)
	assert.Equal(t, 12*time.Second, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.RecheckInterval)
	assert.Equal(t, 5, cfg.MaxWorkers)
	assert.Equal(t, uint64(1000), cfg.ChunkSize)
	assert.Equal(t, 100*time.Millisecond, cfg.ChunkDelay)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTPHost)
	assert.Equal(t, 587, cfg.SMTPPort)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("POOLWATCH_RPC", "wss://node.example.org")
	t.Setenv("POOLWATCH_TOKEN", "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	t.Setenv("POOLWATCH_MIN_LIQUIDITY", "2500")
	t.Setenv("POOLWATCH_RECEIVER_EMAILS", "one@example.org, two@example.org,,")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "wss://node.example.org", cfg.RPCURL)
	assert.Equal(t, "2500", cfg.MinLiquidity)
	assert.Equal(t, []string{"one@example.org", "two@example.org"}, cfg.ReceiverEmails)
}

func TestEmailEnabled(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.EmailEnabled())

	cfg.SenderEmail = "bot@example.org"
	cfg.ReceiverEmails = []string{"ops@example.org"}
	assert.True(t, cfg.EmailEnabled())
}
