package bot

import (
	"errors"
	"strings"
	"time"

	"github.com/rustyeddy/levtrader/internal/logger"
	"github.com/rustyeddy/levtrader/llm"
	"github.com/rustyeddy/levtrader/market"
	"github.com/rustyeddy/levtrader/risk"
	"github.com/rustyeddy/levtrader/sim"
)

// execute applies one action. Nothing here is fatal: rejected or malformed
// actions are logged and skipped.
func (b *Bot) execute(now time.Time, a llm.Action, prices market.Prices) {
	a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
	switch a.Kind() {
	case llm.ActionOpen:
		b.open(now, a, prices)
	case llm.ActionClose:
		b.closeSymbol(a, prices)
	case llm.ActionHold, "":
		logger.Infof("hold %s: %s", a.Symbol, a.Reason)
	default:
		logger.Warnf("unknown action %q for %s skipped", a.Action, a.Symbol)
	}
}

func (b *Bot) open(now time.Time, a llm.Action, prices market.Prices) {
	a = a.WithDefaults()
	price, ok := prices.Get(a.Symbol)
	if !ok {
		logger.Warnf("open %s skipped: no price", a.Symbol)
		return
	}
	dir, err := a.Direction()
	if err != nil {
		logger.Warnf("open %s skipped: %v", a.Symbol, err)
		return
	}

	_, riskPol := b.policies()
	stats := b.ledger.Statistics(prices)
	intent := risk.Intent{
		Now:         now,
		Symbol:      a.Symbol,
		Direction:   dir,
		Size:        a.Size,
		Leverage:    a.Leverage,
		Price:       price,
		TargetPrice: a.TargetPrice,
		StopLoss:    a.StopLoss,
	}
	dec := risk.Evaluate(riskPol, intent, risk.AccountSnapshot{
		Cash:          stats.Cash,
		TotalValue:    stats.TotalValue,
		OpenPositions: stats.OpenPositions,
		DayRealized:   dayRealized(b.ledger.ClosedPositions(), now),
	})
	if !dec.Allowed {
		logger.Warnf("open %s %s rejected: %v", dir, a.Symbol, dec.Err())
		return
	}

	pos, err := b.ledger.Open(sim.OpenRequest{
		Symbol:      a.Symbol,
		Direction:   dir,
		Size:        a.Size,
		Price:       price,
		Leverage:    a.Leverage,
		TargetPrice: a.TargetPrice,
		StopLoss:    a.StopLoss,
		Reason:      a.Reason,
	})
	if err != nil {
		if errors.Is(err, sim.ErrInsufficientCapital) {
			logger.Warnf("open %s %s rejected: available $%.2f, required $%.2f",
				dir, a.Symbol, b.ledger.AvailableCapital(), dec.Margin)
			return
		}
		logger.Warnf("open %s %s rejected: %v", dir, a.Symbol, err)
		return
	}
	qty, err := market.SymbolQuantity(pos.Symbol, pos.Size, pos.EntryPrice)
	if err != nil {
		logger.Debugf("quantity %s: %v", pos.Symbol, err)
	}
	logger.Infof("opened %s %s $%.2f (%g %s) @ $%.2f, %gx, margin $%.2f (%s)",
		pos.Direction, pos.Symbol, pos.Size, qty, market.BaseAsset(pos.Symbol),
		pos.EntryPrice, pos.Leverage, pos.Margin(), pos.ID)
}

func (b *Bot) closeSymbol(a llm.Action, prices market.Prices) {
	price, ok := prices.Get(a.Symbol)
	if !ok {
		logger.Warnf("close %s skipped: no price", a.Symbol)
		return
	}
	reason := a.Reason
	if reason == "" {
		reason = "decision_close"
	}
	closed, err := b.ledger.CloseSymbol(a.Symbol, price, reason)
	if errors.Is(err, sim.ErrPositionNotFound) {
		logger.Infof("close %s: no open position", a.Symbol)
		return
	}
	if err != nil {
		logger.Warnf("close %s: %v", a.Symbol, err)
	}
	for _, p := range closed {
		logger.Infof("closed %s %s @ $%.2f, P&L $%+.2f (%s)",
			p.Direction, p.Symbol, p.ExitPrice, p.RealizedPnL, p.ID)
	}
}

// dayRealized sums P&L of positions closed on now's UTC day.
func dayRealized(closed []sim.Position, now time.Time) float64 {
	y, m, d := now.UTC().Date()
	var sum float64
	for _, p := range closed {
		if p.ClosedAt == nil {
			continue
		}
		cy, cm, cd := p.ClosedAt.UTC().Date()
		if cy == y && cm == m && cd == d {
			sum += p.RealizedPnL
		}
	}
	return sum
}
