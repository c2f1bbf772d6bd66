package market

import (
	"context"
	"sort"
	"time"
)

// Prices is a point-in-time snapshot of last prices keyed by symbol.
// A symbol that is absent has no known price.
type Prices map[string]float64

// Get returns the price for symbol and whether a usable one exists.
func (p Prices) Get(symbol string) (float64, bool) {
	v, ok := p[symbol]
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// Clone returns an independent copy.
func (p Prices) Clone() Prices {
	out := make(Prices, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Symbols returns the symbols in sorted order.
func (p Prices) Symbols() []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// PriceFeed is the read side of an exchange: last prices, candles and
// rolling 24h statistics.
type PriceFeed interface {
	Prices(ctx context.Context, symbols []string) (Prices, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	Ticker24h(ctx context.Context, symbol string) (Ticker24h, error)
}

// Ticker24h holds rolling 24 hour statistics for a symbol.
type Ticker24h struct {
	Symbol             string    `json:"symbol"`
	LastPrice          float64   `json:"last_price"`
	PriceChange        float64   `json:"price_change"`
	PriceChangePercent float64   `json:"price_change_percent"`
	High               float64   `json:"high"`
	Low                float64   `json:"low"`
	Volume             float64   `json:"volume"`
	QuoteVolume        float64   `json:"quote_volume"`
	CloseTime          time.Time `json:"close_time"`
}
