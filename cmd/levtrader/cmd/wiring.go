package cmd

import (
	"fmt"

	"github.com/rustyeddy/levtrader/binance"
	"github.com/rustyeddy/levtrader/bot"
	"github.com/rustyeddy/levtrader/config"
	"github.com/rustyeddy/levtrader/journal"
	"github.com/rustyeddy/levtrader/llm"
	"github.com/rustyeddy/levtrader/state"
)

func openJournal(c config.JournalConfig) (journal.Journal, error) {
	switch c.Type {
	case "csv":
		return journal.NewCSV(c.TradesFile, c.EquityFile)
	case "sqlite":
		return journal.NewSQLite(c.DBPath)
	case "none", "":
		return journal.Nop{}, nil
	}
	return nil, fmt.Errorf("unknown journal type %q", c.Type)
}

func openStore(c config.StateConfig) (state.Store, error) {
	return state.Open(state.Config{Type: c.Type, Path: c.Path, Keep: c.Keep})
}

func newFeed(cfg *config.Config) (*binance.Client, error) {
	timeout, err := cfg.Binance.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	return binance.New(binance.Config{BaseURL: cfg.Binance.BaseURL, Timeout: timeout}), nil
}

func newAgent(cfg *config.Config) (*llm.Agent, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("llm.api_key is not set (use %s_LLM_API_KEY or DASHSCOPE_API_KEY)", config.EnvPrefix)
	}
	timeout, err := cfg.LLM.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	client := &llm.Client{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     timeout,
		MaxRetries:  cfg.LLM.MaxRetries,
	}
	return llm.NewAgent(client), nil
}

func botOptions(cfg *config.Config) (bot.Options, error) {
	loop, err := cfg.Trading.Loop()
	if err != nil {
		return bot.Options{}, err
	}
	pol, err := cfg.Cadence.Policy()
	if err != nil {
		return bot.Options{}, err
	}
	return bot.Options{
		InitialCapital: cfg.Account.InitialCapital,
		MaxLeverage:    cfg.Account.MaxLeverage,
		Symbols:        cfg.Trading.Symbols,
		LoopInterval:   loop,
		KlineInterval:  cfg.Trading.KlineInterval,
		KlineLimit:     cfg.Trading.KlineLimit,
		SummaryEvery:   cfg.Trading.SummaryEvery,
		SaveEvery:      cfg.Trading.SaveEvery,
		Cadence:        pol,
		Risk:           cfg.Risk,
	}, nil
}
