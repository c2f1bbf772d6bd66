package risk

import (
	"time"

	"github.com/rustyeddy/levtrader/sim"
)

// Policy holds the pre-trade limits the bot applies before asking the
// ledger to open a position. A zero limit is disabled.
type Policy struct {
	// Margin per position is capped at min(cash*MaxPositionPct, MaxPositionUSD).
	MaxPositionPct float64 `json:"max_position_pct" yaml:"max_position_pct"` // 0.20
	MaxPositionUSD float64 `json:"max_position_usd" yaml:"max_position_usd"` // 200

	// Exposure limits
	MaxOpenPositions int     `json:"max_open_positions" yaml:"max_open_positions"`
	MaxLeverage      float64 `json:"max_leverage" yaml:"max_leverage"` // may be tighter than the ledger's

	// Loss at stop as a fraction of total account value
	MaxRiskPct float64 `json:"max_risk_pct" yaml:"max_risk_pct"`
	MinRR      float64 `json:"min_rr" yaml:"min_rr"`

	// Circuit breaker
	MaxDailyLossPct float64 `json:"max_daily_loss_pct" yaml:"max_daily_loss_pct"`
}

func DefaultPolicy() Policy {
	return Policy{
		MaxPositionPct: 0.20,
		MaxPositionUSD: 200,
	}
}

// Intent is an order the decision source wants to place.
type Intent struct {
	Now         time.Time
	Symbol      string
	Direction   sim.Direction
	Size        float64 // leveraged notional
	Leverage    float64
	Price       float64
	TargetPrice *float64
	StopLoss    *float64
}

// Margin is the capital the intent would lock.
func (i Intent) Margin() float64 {
	if i.Leverage <= 0 {
		return 0
	}
	return i.Size / i.Leverage
}

type AccountSnapshot struct {
	Cash          float64
	TotalValue    float64
	OpenPositions int
	DayRealized   float64 // realized P&L since the start of the UTC day
}
