package sim

import (
	"fmt"

	"github.com/rustyeddy/levtrader/journal"
)

// Snapshot is the serializable state of a ledger. Restoring it yields a
// ledger that behaves exactly like the one it was taken from.
type Snapshot struct {
	InitialCapital  float64               `json:"initial_capital"`
	Cash            float64               `json:"capital"`
	MaxLeverage     float64               `json:"max_leverage"`
	OpenPositions   []Position            `json:"open_positions"`
	ClosedPositions []Position            `json:"closed_positions"`
	TradeLog        []journal.TradeRecord `json:"trade_history"`
}

func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Snapshot{
		InitialCapital:  l.initialCapital,
		Cash:            l.cash,
		MaxLeverage:     l.maxLeverage,
		OpenPositions:   l.openLocked(),
		ClosedPositions: l.closedLocked(),
		TradeLog:        append([]journal.TradeRecord(nil), l.tradeLog...),
	}
}

// Restore rebuilds a ledger from s after validating it.
func Restore(s Snapshot, opts ...Option) (*Ledger, error) {
	l, err := New(s.InitialCapital, s.MaxLeverage, opts...)
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	if s.Cash < 0 {
		return nil, fmt.Errorf("restore: %w: cash is negative (%v)", ErrInvalidSnapshot, s.Cash)
	}
	l.cash = s.Cash

	seen := make(map[PositionID]bool, len(s.OpenPositions))
	for i, p := range s.OpenPositions {
		if err := validateRestored(p, s.MaxLeverage); err != nil {
			return nil, fmt.Errorf("restore: open position %d: %w", i, err)
		}
		if !p.IsOpen() {
			return nil, fmt.Errorf("restore: %w: open position %q has close fields", ErrInvalidSnapshot, p.ID)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("restore: %w: duplicate position id %q", ErrInvalidSnapshot, p.ID)
		}
		seen[p.ID] = true

		c := p.clone()
		l.open[c.ID] = &c
		l.order = append(l.order, c.ID)
	}

	for i, p := range s.ClosedPositions {
		if err := validateRestored(p, s.MaxLeverage); err != nil {
			return nil, fmt.Errorf("restore: closed position %d: %w", i, err)
		}
		if p.IsOpen() {
			return nil, fmt.Errorf("restore: %w: closed position %q has no exit time", ErrInvalidSnapshot, p.ID)
		}
		l.closed = append(l.closed, p.clone())
	}

	l.tradeLog = append([]journal.TradeRecord(nil), s.TradeLog...)
	return l, nil
}

func validateRestored(p Position, maxLeverage float64) error {
	switch {
	case p.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidSnapshot)
	case p.Symbol == "":
		return fmt.Errorf("%w: position %q has no symbol", ErrInvalidSnapshot, p.ID)
	case !p.Direction.Valid():
		return fmt.Errorf("%w: position %q: %w", ErrInvalidSnapshot, p.ID, ErrUnknownDirection)
	case !(p.Size > 0):
		return fmt.Errorf("%w: position %q has size %v", ErrInvalidSnapshot, p.ID, p.Size)
	case !(p.EntryPrice > 0):
		return fmt.Errorf("%w: position %q has entry price %v", ErrInvalidSnapshot, p.ID, p.EntryPrice)
	case p.Leverage < 1 || p.Leverage > maxLeverage:
		return fmt.Errorf("%w: position %q has leverage %v", ErrInvalidSnapshot, p.ID, p.Leverage)
	}
	return nil
}
