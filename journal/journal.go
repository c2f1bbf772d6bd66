// journal/journal.go
package journal

import "time"

// Trade log actions.
const (
	ActionOpen  = "open"
	ActionClose = "close"
)

// TradeRecord is one entry of the trade log. An open record carries the
// entry side of a position; a close record additionally carries the exit
// price and realized P&L. Records are observational: the ledger that
// produced them stays authoritative.
type TradeRecord struct {
	ID          string    `json:"id"`
	PositionID  string    `json:"position_id"`
	Action      string    `json:"action"`
	Symbol      string    `json:"symbol"`
	Direction   string    `json:"type"`
	Size        float64   `json:"size"`
	Leverage    float64   `json:"leverage"`
	Margin      float64   `json:"margin"`
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price,omitempty"`
	RealizedPnL float64   `json:"pnl,omitempty"`
	Time        time.Time `json:"timestamp"`
	Reason      string    `json:"reason,omitempty"`
}

// IsClose reports whether the record closed a position.
func (t TradeRecord) IsClose() bool { return t.Action == ActionClose }

// EquitySnapshot is the account state at one instant.
type EquitySnapshot struct {
	Time          time.Time `json:"time"`
	Cash          float64   `json:"cash"`
	TotalValue    float64   `json:"total_value"`
	MarginUsed    float64   `json:"margin_used"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	OpenPositions int       `json:"open_positions"`
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }
