package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, 1000.0, cfg.Account.InitialCapital)
	assert.Equal(t, 20.0, cfg.Account.MaxLeverage)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "ADAUSDT"}, cfg.Trading.Symbols)
	assert.NoError(t, cfg.Validate())

	p, err := cfg.Cadence.Policy()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, p.Cooldown)
	assert.Equal(t, 5*time.Minute, p.Interval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"zero capital", func(c *Config) { c.Account.InitialCapital = 0 }, "account.initial_capital must be positive"},
		{"leverage below one", func(c *Config) { c.Account.MaxLeverage = 0.5 }, "account.max_leverage must be at least 1"},
		{"no symbols", func(c *Config) { c.Trading.Symbols = nil }, "trading.symbols is required"},
		{"blank symbol", func(c *Config) { c.Trading.Symbols = []string{"BTCUSDT", " "} }, "empty symbol"},
		{"bad loop interval", func(c *Config) { c.Trading.LoopInterval = "soon" }, "trading.loop_interval"},
		{"zero kline limit", func(c *Config) { c.Trading.KlineLimit = 0 }, "trading.kline_limit must be positive"},
		{"bad cadence interval", func(c *Config) { c.Cadence.Interval = "later" }, "cadence.interval"},
		{"cooldown above interval", func(c *Config) { c.Cadence.Cooldown = "10m" }, "exceeds interval"},
		{"position pct above one", func(c *Config) { c.Risk.MaxPositionPct = 1.5 }, "risk.max_position_pct"},
		{"negative risk", func(c *Config) { c.Risk.MaxRiskPct = -0.1 }, "risk limits must not be negative"},
		{"no model", func(c *Config) { c.LLM.Model = "" }, "llm.model is required"},
		{"bad journal type", func(c *Config) { c.Journal.Type = "mongo" }, "journal.type must be"},
		{"csv without files", func(c *Config) { c.Journal.TradesFile = "" }, "trades_file and equity_file required"},
		{"sqlite without path", func(c *Config) { c.Journal.Type = "sqlite" }, "db_path required"},
		{"journal none", func(c *Config) { c.Journal = JournalConfig{Type: "none"} }, ""},
		{"bad state type", func(c *Config) { c.State.Type = "s3" }, "state.type must be"},
		{"state without path", func(c *Config) { c.State.Path = "" }, "state.path required"},
		{"dashboard without addr", func(c *Config) { c.Dashboard.Addr = "" }, "dashboard.addr is required"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "unknown log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		err  bool
	}{
		{"", 0, false},
		{"300", 300 * time.Second, false},
		{"1.5", 1500 * time.Millisecond, false},
		{"2m", 2 * time.Minute, false},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestSaveAndLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "levtrader.yaml")
	cfg := Default()
	cfg.Account.InitialCapital = 5000
	cfg.Trading.Symbols = []string{"BTCUSDT", "ETHUSDT"}
	cfg.Risk.MaxOpenPositions = 3
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, loaded.Account.InitialCapital)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, loaded.Trading.Symbols)
	assert.Equal(t, 3, loaded.Risk.MaxOpenPositions)
	assert.Equal(t, 0.20, loaded.Risk.MaxPositionPct)
}

func TestSaveAndLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "levtrader.json")
	cfg := Default()
	cfg.LLM.Model = "qwen-plus"
	require.NoError(t, cfg.SaveToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"model": "qwen-plus"`)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "qwen-plus", loaded.LLM.Model)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  max_leverage: 10\ntrading:\n  symbols: [btcusdt]\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10.0, cfg.Account.MaxLeverage)
	assert.Equal(t, 1000.0, cfg.Account.InitialCapital)
	assert.Equal(t, []string{"BTCUSDT"}, cfg.Trading.Symbols)
	assert.Equal(t, "1h", cfg.Trading.KlineInterval)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  initial_capital: -5\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account.initial_capital must be positive")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("DASHSCOPE_API_KEY", "sk-legacy")
	t.Setenv("INITIAL_CAPITAL", "2500")
	t.Setenv("DECISION_INTERVAL", "600")
	t.Setenv("LEVTRADER_ACCOUNT_MAX_LEVERAGE", "15")
	t.Setenv("MAX_LEVERAGE", "5")
	t.Setenv("LEVTRADER_TRADING_SYMBOLS", "BTCUSDT,SOLUSDT")
	t.Setenv("LEVTRADER_JOURNAL_DB_PATH", "/tmp/j.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-legacy", cfg.LLM.APIKey)
	assert.Equal(t, 2500.0, cfg.Account.InitialCapital)
	assert.Equal(t, 15.0, cfg.Account.MaxLeverage, "prefixed variable wins")
	assert.Equal(t, []string{"BTCUSDT", "SOLUSDT"}, cfg.Trading.Symbols)
	assert.Equal(t, "/tmp/j.db", cfg.Journal.DBPath)

	p, err := cfg.Cadence.Policy()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, p.Interval)
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("risk:\n  max_open_positions: 2\n"), 0o644))

	var seen atomic.Int64
	require.NoError(t, Watch(path, func(c *Config) {
		seen.Store(int64(c.Risk.MaxOpenPositions))
	}))

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("risk:\n  max_open_positions: 4\n"), 0o644)
		return seen.Load() == 4
	}, 5*time.Second, 100*time.Millisecond)
}
