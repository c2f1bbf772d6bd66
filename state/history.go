package state

import (
	"sort"
	"time"

	"github.com/rustyeddy/levtrader/market"
)

// HistoryCap is the default number of points kept per series.
const HistoryCap = 100

// History is a capped record of account value and per-symbol prices.
// It is not safe for concurrent use.
type History struct {
	limit  int
	values []ValuePoint
	prices map[string][]PricePoint
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = HistoryCap
	}
	return &History{limit: limit, prices: map[string][]PricePoint{}}
}

// Record appends one value point and one price point per symbol.
func (h *History) Record(t time.Time, value float64, prices market.Prices) {
	h.values = appendCapped(h.values, ValuePoint{Time: t, Value: value}, h.limit)
	for _, s := range prices.Symbols() {
		p, ok := prices.Get(s)
		if !ok {
			continue
		}
		h.prices[s] = appendCapped(h.prices[s], PricePoint{Time: t, Price: p}, h.limit)
	}
}

// Restore replaces the history with saved series, trimmed to the cap.
func (h *History) Restore(values []ValuePoint, prices map[string][]PricePoint) {
	h.values = tail(values, h.limit)
	h.prices = make(map[string][]PricePoint, len(prices))
	for s, pts := range prices {
		h.prices[s] = tail(pts, h.limit)
	}
}

func (h *History) Values() []ValuePoint {
	return append([]ValuePoint(nil), h.values...)
}

func (h *History) Prices() map[string][]PricePoint {
	out := make(map[string][]PricePoint, len(h.prices))
	for s, pts := range h.prices {
		out[s] = append([]PricePoint(nil), pts...)
	}
	return out
}

func (h *History) Symbols() []string {
	out := make([]string, 0, len(h.prices))
	for s := range h.prices {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func appendCapped[T any](xs []T, x T, limit int) []T {
	xs = append(xs, x)
	if len(xs) > limit {
		xs = append(xs[:0:0], xs[len(xs)-limit:]...)
	}
	return xs
}

func tail[T any](xs []T, n int) []T {
	if len(xs) > n {
		xs = xs[len(xs)-n:]
	}
	return append([]T(nil), xs...)
}
