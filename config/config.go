// Package config loads levtrader's settings from defaults, an optional
// YAML or JSON file, a .env file and the environment, in that order.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/levtrader/cadence"
	"github.com/rustyeddy/levtrader/internal/logger"
	"github.com/rustyeddy/levtrader/market"
	"github.com/rustyeddy/levtrader/risk"
)

// Config represents the complete bot configuration
type Config struct {
	Account   AccountConfig   `json:"account" yaml:"account"`
	Trading   TradingConfig   `json:"trading" yaml:"trading"`
	Cadence   CadenceConfig   `json:"cadence" yaml:"cadence"`
	Risk      risk.Policy     `json:"risk" yaml:"risk"`
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Binance   BinanceConfig   `json:"binance" yaml:"binance"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	State     StateConfig     `json:"state" yaml:"state"`
	Dashboard DashboardConfig `json:"dashboard" yaml:"dashboard"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// AccountConfig contains ledger initialization parameters
type AccountConfig struct {
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
	MaxLeverage    float64 `json:"max_leverage" yaml:"max_leverage"`
}

// TradingConfig controls the bot loop
type TradingConfig struct {
	Symbols       []string `json:"symbols" yaml:"symbols"`
	LoopInterval  string   `json:"loop_interval" yaml:"loop_interval"`   // e.g. "30s"
	KlineInterval string   `json:"kline_interval" yaml:"kline_interval"` // Binance interval, e.g. "1h"
	KlineLimit    int      `json:"kline_limit" yaml:"kline_limit"`
	SummaryEvery  int      `json:"summary_every" yaml:"summary_every"`
	SaveEvery     int      `json:"save_every" yaml:"save_every"`
}

// CadenceConfig mirrors cadence.Policy with string durations
type CadenceConfig struct {
	Cooldown              string  `json:"cooldown" yaml:"cooldown"`
	Interval              string  `json:"interval" yaml:"interval"`
	Volatility            float64 `json:"volatility" yaml:"volatility"`
	Emergency             float64 `json:"emergency" yaml:"emergency"`
	MarketVolatilityCoins int     `json:"market_volatility_coins" yaml:"market_volatility_coins"`
	PositionRisk          float64 `json:"position_risk" yaml:"position_risk"`
	DecayFraction         float64 `json:"decay_fraction" yaml:"decay_fraction"`
	DecayFactor           float64 `json:"decay_factor" yaml:"decay_factor"`
}

type LLMConfig struct {
	BaseURL     string  `json:"base_url" yaml:"base_url"`
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Timeout     string  `json:"timeout" yaml:"timeout"`
	MaxRetries  int     `json:"max_retries" yaml:"max_retries"`
}

type BinanceConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	Timeout string `json:"timeout" yaml:"timeout"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// StateConfig controls session persistence
type StateConfig struct {
	Type   string `json:"type" yaml:"type"` // "file", "sqlite" or "none"
	Path   string `json:"path" yaml:"path"`
	Resume bool   `json:"resume" yaml:"resume"`
	Keep   int    `json:"keep" yaml:"keep"`
}

type DashboardConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type LogConfig struct {
	Level      string `json:"level" yaml:"level"`
	File       string `json:"file,omitempty" yaml:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

// ParseDuration reads a Go duration string. A bare number is seconds, which
// is how DECISION_INTERVAL has always been given.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

func (t TradingConfig) Loop() (time.Duration, error) { return ParseDuration(t.LoopInterval) }

// Policy converts the section into a cadence.Policy.
func (c CadenceConfig) Policy() (cadence.Policy, error) {
	cooldown, err := ParseDuration(c.Cooldown)
	if err != nil {
		return cadence.Policy{}, fmt.Errorf("cadence.cooldown: %w", err)
	}
	interval, err := ParseDuration(c.Interval)
	if err != nil {
		return cadence.Policy{}, fmt.Errorf("cadence.interval: %w", err)
	}
	return cadence.Policy{
		Cooldown:              cooldown,
		Interval:              interval,
		Volatility:            c.Volatility,
		Emergency:             c.Emergency,
		MarketVolatilityCoins: c.MarketVolatilityCoins,
		PositionRisk:          c.PositionRisk,
		DecayFraction:         c.DecayFraction,
		DecayFactor:           c.DecayFactor,
	}, nil
}

func (l LLMConfig) TimeoutDuration() (time.Duration, error) { return ParseDuration(l.Timeout) }

func (b BinanceConfig) TimeoutDuration() (time.Duration, error) { return ParseDuration(b.Timeout) }

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.InitialCapital <= 0 {
		return fmt.Errorf("account.initial_capital must be positive")
	}
	if c.Account.MaxLeverage < 1 {
		return fmt.Errorf("account.max_leverage must be at least 1")
	}
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("trading.symbols is required")
	}
	for _, s := range c.Trading.Symbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("trading.symbols contains an empty symbol")
		}
	}
	if d, err := c.Trading.Loop(); err != nil || d <= 0 {
		return fmt.Errorf("trading.loop_interval must be a positive duration")
	}
	if c.Trading.KlineInterval == "" {
		return fmt.Errorf("trading.kline_interval is required")
	}
	if c.Trading.KlineLimit <= 0 {
		return fmt.Errorf("trading.kline_limit must be positive")
	}
	if c.Trading.SummaryEvery < 0 || c.Trading.SaveEvery < 0 {
		return fmt.Errorf("trading.summary_every and trading.save_every must not be negative")
	}

	p, err := c.Cadence.Policy()
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	if c.Risk.MaxPositionPct < 0 || c.Risk.MaxPositionPct > 1 {
		return fmt.Errorf("risk.max_position_pct must be between 0 and 1")
	}
	if c.Risk.MaxPositionUSD < 0 || c.Risk.MaxLeverage < 0 || c.Risk.MaxRiskPct < 0 ||
		c.Risk.MinRR < 0 || c.Risk.MaxDailyLossPct < 0 || c.Risk.MaxOpenPositions < 0 {
		return fmt.Errorf("risk limits must not be negative")
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if _, err := c.LLM.TimeoutDuration(); err != nil {
		return fmt.Errorf("llm.timeout: %w", err)
	}
	if _, err := c.Binance.TimeoutDuration(); err != nil {
		return fmt.Errorf("binance.timeout: %w", err)
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}

	switch c.State.Type {
	case "file", "sqlite":
		if c.State.Path == "" {
			return fmt.Errorf("state.path required for %s type", c.State.Type)
		}
	case "none":
	default:
		return fmt.Errorf("state.type must be 'file', 'sqlite' or 'none'")
	}

	if c.Dashboard.Enabled && c.Dashboard.Addr == "" {
		return fmt.Errorf("dashboard.addr is required when the dashboard is enabled")
	}
	if !logger.ValidLevel(c.Log.Level) {
		return fmt.Errorf("unknown log.level %q", c.Log.Level)
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			InitialCapital: 1000,
			MaxLeverage:    20,
		},
		Trading: TradingConfig{
			Symbols:       market.DefaultSymbols(),
			LoopInterval:  "30s",
			KlineInterval: "1h",
			KlineLimit:    100,
			SummaryEvery:  5,
			SaveEvery:     1,
		},
		Cadence: CadenceConfig{
			Cooldown:              "60s",
			Interval:              "300s",
			Volatility:            0.02,
			Emergency:             0.05,
			MarketVolatilityCoins: 2,
			PositionRisk:          0.03,
			DecayFraction:         0.6,
			DecayFactor:           0.75,
		},
		Risk: risk.DefaultPolicy(),
		LLM: LLMConfig{
			BaseURL:     "https://dashscope.aliyuncs.com/compatible-mode/v1",
			Model:       "qwen3-max",
			Temperature: 0.7,
			MaxTokens:   2000,
			Timeout:     "60s",
			MaxRetries:  2,
		},
		Binance: BinanceConfig{
			BaseURL: "https://fapi.binance.com",
			Timeout: "10s",
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
		State: StateConfig{
			Type:   "file",
			Path:   "./trading_data.json",
			Resume: true,
		},
		Dashboard: DashboardConfig{
			Enabled: true,
			Addr:    "127.0.0.1:5000",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}
