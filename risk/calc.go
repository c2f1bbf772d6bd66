package risk

import (
	"math"

	"github.com/rustyeddy/levtrader/sim"
)

// MaxPositionSize is the largest margin a single new position may lock
// given cash on hand.
func (p Policy) MaxPositionSize(cash float64) float64 {
	limit := math.Inf(1)
	if p.MaxPositionPct > 0 {
		limit = cash * p.MaxPositionPct
	}
	if p.MaxPositionUSD > 0 && p.MaxPositionUSD < limit {
		limit = p.MaxPositionUSD
	}
	if math.IsInf(limit, 1) {
		return cash
	}
	return math.Max(0, limit)
}

// LossAtStop is the loss, as a positive amount, a position would realize
// if closed at stop. It is zero when the stop is on the profitable side.
func LossAtStop(d sim.Direction, size, leverage, entry, stop float64) float64 {
	p := sim.Position{Direction: d, Size: size, Leverage: leverage, EntryPrice: entry}
	return math.Max(0, -p.PnL(stop))
}

// RR is reward over risk measured in price distance from entry.
func RR(entry, stop, target float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(target-entry) / risk
}

func RiskPct(loss, equity float64) float64 {
	if equity <= 0 {
		return math.Inf(1)
	}
	return loss / equity
}
