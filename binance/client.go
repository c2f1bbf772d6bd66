// Package binance reads prices and candles from the Binance USDT-M futures
// REST API. It never places orders.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"github.com/rustyeddy/levtrader/internal/logger"
	"github.com/rustyeddy/levtrader/market"
)

const maxKlineLimit = 1500

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = "https://fapi.binance.com"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// Client implements market.PriceFeed.
type Client struct {
	cfg    Config
	client *futures.Client
}

var _ market.PriceFeed = (*Client)(nil)

func New(cfg Config) *Client {
	final := cfg.withDefaults()
	client := futures.NewClient("", "")
	client.BaseURL = strings.TrimRight(final.BaseURL, "/")
	client.HTTPClient = &http.Client{Timeout: final.Timeout}
	return &Client{cfg: final, client: client}
}

// Prices returns last prices for symbols. One request fetches every ticker
// and the result is filtered locally; symbols without a usable price are
// left out rather than failing the call.
func (c *Client) Prices(ctx context.Context, symbols []string) (market.Prices, error) {
	all, err := c.client.NewListPricesService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance prices: %w", err)
	}

	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[strings.ToUpper(strings.TrimSpace(s))] = true
	}

	out := make(market.Prices, len(symbols))
	for _, p := range all {
		if p == nil || !want[p.Symbol] {
			continue
		}
		v := parseFloat(p.Price)
		if v <= 0 {
			logger.Warnf("binance: ignoring non-positive price %q for %s", p.Price, p.Symbol)
			continue
		}
		out[p.Symbol] = v
	}
	for s := range want {
		if _, ok := out[s]; !ok {
			logger.Warnf("binance: no price for %s", s)
		}
	}
	return out, nil
}

// Klines returns up to limit candles, oldest first.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("binance klines: symbol is required")
	}
	interval = strings.TrimSpace(interval)
	if interval == "" {
		return nil, fmt.Errorf("binance klines: interval is required")
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}

	kls, err := c.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s %s: %w", symbol, interval, err)
	}

	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  time.UnixMilli(kl.OpenTime).UTC(),
			CloseTime: time.UnixMilli(kl.CloseTime).UTC(),
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
		})
	}
	return out, nil
}

// Ticker24h returns rolling 24 hour statistics for symbol.
func (c *Client) Ticker24h(ctx context.Context, symbol string) (market.Ticker24h, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	stats, err := c.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return market.Ticker24h{}, fmt.Errorf("binance 24h %s: %w", symbol, err)
	}
	for _, s := range stats {
		if s == nil || s.Symbol != symbol {
			continue
		}
		return market.Ticker24h{
			Symbol:             s.Symbol,
			LastPrice:          parseFloat(s.LastPrice),
			PriceChange:        parseFloat(s.PriceChange),
			PriceChangePercent: parseFloat(s.PriceChangePercent),
			High:               parseFloat(s.HighPrice),
			Low:                parseFloat(s.LowPrice),
			Volume:             parseFloat(s.Volume),
			QuoteVolume:        parseFloat(s.QuoteVolume),
			CloseTime:          time.UnixMilli(s.CloseTime).UTC(),
		}, nil
	}
	return market.Ticker24h{}, fmt.Errorf("binance 24h %s: symbol not in response", symbol)
}

func parseFloat(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f
}
