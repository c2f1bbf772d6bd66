package sim

import (
	"time"

	"github.com/rustyeddy/levtrader/journal"
	"github.com/rustyeddy/levtrader/market"
)

// Statistics summarizes the account against a price snapshot.
type Statistics struct {
	InitialCapital  float64 `json:"initial_capital"`
	Cash            float64 `json:"current_capital"`
	TotalValue      float64 `json:"total_value"`
	TotalPnL        float64 `json:"total_pnl"`
	ROIPercent      float64 `json:"roi_percent"`
	OpenPositions   int     `json:"open_positions"`
	ClosedPositions int     `json:"closed_positions"`
	TotalTrades     int     `json:"total_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	WinRate         float64 `json:"win_rate"`
	RealizedPnL     float64 `json:"realized_pnl"`
	UnrealizedPnL   float64 `json:"unrealized_pnl"`
	MarginUsed      float64 `json:"margin_used"`
}

// PositionSummary is the flat view of one open position at a price.
type PositionSummary struct {
	ID            PositionID `json:"id"`
	Symbol        string     `json:"symbol"`
	Direction     Direction  `json:"type"`
	Size          float64    `json:"size"`
	EntryPrice    float64    `json:"entry_price"`
	CurrentPrice  float64    `json:"current_price"`
	Leverage      float64    `json:"leverage"`
	Margin        float64    `json:"margin"`
	UnrealizedPnL float64    `json:"current_pnl"`
	PnLPercent    float64    `json:"pnl_percent"`
	TargetPrice   *float64   `json:"target_price,omitempty"`
	StopLoss      *float64   `json:"stop_loss,omitempty"`
	OpenedAt      time.Time  `json:"entry_time"`
}

func (l *Ledger) Statistics(prices market.Prices) Statistics {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statisticsLocked(prices)
}

func (l *Ledger) statisticsLocked(prices market.Prices) Statistics {
	s := Statistics{
		InitialCapital:  l.initialCapital,
		Cash:            l.cash,
		OpenPositions:   len(l.order),
		ClosedPositions: len(l.closed),
		TotalTrades:     len(l.closed),
	}

	for _, pid := range l.order {
		p := l.open[pid]
		s.MarginUsed += p.Margin()
		if price, ok := prices.Get(p.Symbol); ok {
			s.UnrealizedPnL += p.PnL(price)
		}
	}
	for _, p := range l.closed {
		s.RealizedPnL += p.RealizedPnL
		if p.RealizedPnL > 0 {
			s.WinningTrades++
		} else {
			s.LosingTrades++
		}
	}

	s.TotalValue = l.cash + s.MarginUsed + s.UnrealizedPnL
	s.TotalPnL = s.TotalValue - l.initialCapital
	s.ROIPercent = s.TotalPnL / l.initialCapital * 100
	if s.ClosedPositions > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.ClosedPositions) * 100
	}
	return s
}

// OpenPositionsSummary returns one record per open position whose symbol
// has a price. Positions without a price are omitted.
func (l *Ledger) OpenPositionsSummary(prices market.Prices) []PositionSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.summaryLocked(prices)
}

func (l *Ledger) summaryLocked(prices market.Prices) []PositionSummary {
	out := make([]PositionSummary, 0, len(l.order))
	for _, pid := range l.order {
		p := l.open[pid]
		price, ok := prices.Get(p.Symbol)
		if !ok {
			continue
		}
		pnl := p.PnL(price)
		out = append(out, PositionSummary{
			ID:            p.ID,
			Symbol:        p.Symbol,
			Direction:     p.Direction,
			Size:          p.Size,
			EntryPrice:    p.EntryPrice,
			CurrentPrice:  price,
			Leverage:      p.Leverage,
			Margin:        p.Margin(),
			UnrealizedPnL: pnl,
			PnLPercent:    pnl / p.Size * 100,
			TargetPrice:   copyPrice(p.TargetPrice),
			StopLoss:      copyPrice(p.StopLoss),
			OpenedAt:      p.OpenedAt,
		})
	}
	return out
}

// View is a consistent read of the ledger taken under a single lock.
type View struct {
	Statistics Statistics            `json:"stats"`
	Positions  []PositionSummary     `json:"positions"`
	Open       []Position            `json:"open_positions"`
	Closed     []Position            `json:"closed_positions"`
	TradeLog   []journal.TradeRecord `json:"trades"`
}

func (l *Ledger) View(prices market.Prices) View {
	l.mu.Lock()
	defer l.mu.Unlock()

	return View{
		Statistics: l.statisticsLocked(prices),
		Positions:  l.summaryLocked(prices),
		Open:       l.openLocked(),
		Closed:     l.closedLocked(),
		TradeLog:   append([]journal.TradeRecord(nil), l.tradeLog...),
	}
}
