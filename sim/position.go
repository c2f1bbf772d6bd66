package sim

import "time"

// PositionID is an opaque identifier assigned by the ledger.
type PositionID string

// Position is one leveraged bet. Size is the leveraged notional in quote
// currency; the margin posted for it is Size/Leverage.
type Position struct {
	ID          PositionID `json:"id"`
	Symbol      string     `json:"symbol"`
	Direction   Direction  `json:"type"`
	Size        float64    `json:"size"`
	EntryPrice  float64    `json:"entry_price"`
	Leverage    float64    `json:"leverage"`
	OpenedAt    time.Time  `json:"entry_time"`
	TargetPrice *float64   `json:"target_price,omitempty"`
	StopLoss    *float64   `json:"stop_loss,omitempty"`

	// Written once, at close.
	ExitPrice   float64    `json:"exit_price,omitempty"`
	ClosedAt    *time.Time `json:"exit_time,omitempty"`
	RealizedPnL float64    `json:"pnl,omitempty"`
}

func (p Position) IsOpen() bool { return p.ClosedAt == nil }

// Margin is the capital locked by the position.
func (p Position) Margin() float64 { return p.Size / p.Leverage }

// PnL returns the profit or loss of the position at price. Leverage scales
// the price move once; Size is already the leveraged notional.
func (p Position) PnL(price float64) float64 {
	var frac float64
	if p.Direction == Short {
		frac = (p.EntryPrice - price) / p.EntryPrice
	} else {
		frac = (price - p.EntryPrice) / p.EntryPrice
	}
	return p.Size * frac * p.Leverage
}

// TargetStatus is the result of CheckTargets.
type TargetStatus int

const (
	TargetNone TargetStatus = iota
	TargetReached
	StopLossHit
)

func (s TargetStatus) String() string {
	switch s {
	case TargetReached:
		return "target_reached"
	case StopLossHit:
		return "stop_loss_hit"
	}
	return "none"
}

// CheckTargets reports whether price has crossed the position's target or
// stop. Both must be set for anything but TargetNone to be returned. The
// ledger never acts on the result.
func (p Position) CheckTargets(price float64) TargetStatus {
	if p.TargetPrice == nil || p.StopLoss == nil {
		return TargetNone
	}
	switch {
	case hitTarget(p.Direction, *p.TargetPrice, price):
		return TargetReached
	case hitStop(p.Direction, *p.StopLoss, price):
		return StopLossHit
	}
	return TargetNone
}

func (p Position) clone() Position {
	c := p
	if p.TargetPrice != nil {
		v := *p.TargetPrice
		c.TargetPrice = &v
	}
	if p.StopLoss != nil {
		v := *p.StopLoss
		c.StopLoss = &v
	}
	if p.ClosedAt != nil {
		v := *p.ClosedAt
		c.ClosedAt = &v
	}
	return c
}
