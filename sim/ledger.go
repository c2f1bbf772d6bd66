package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/levtrader/internal/id"
	"github.com/rustyeddy/levtrader/journal"
	"github.com/rustyeddy/levtrader/market"
)

// Ledger is the sole authority for cash and position state. Every method
// runs under one mutex and performs no I/O, so callers may read from other
// goroutines while a single writer drives it.
type Ledger struct {
	mu sync.Mutex

	initialCapital float64
	cash           float64
	maxLeverage    float64

	open     map[PositionID]*Position
	order    []PositionID
	closed   []Position
	tradeLog []journal.TradeRecord

	now   func() time.Time
	newID func() string
}

type Option func(*Ledger)

// WithClock overrides the time source used for open and close timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDGenerator overrides how position and record ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) {
		if gen != nil {
			l.newID = gen
		}
	}
}

func New(initialCapital, maxLeverage float64, opts ...Option) (*Ledger, error) {
	if initialCapital <= 0 {
		return nil, fmt.Errorf("%w: initial capital must be positive, got %v", ErrInvalidConfig, initialCapital)
	}
	if maxLeverage < 1 {
		return nil, fmt.Errorf("%w: max leverage must be at least 1, got %v", ErrInvalidConfig, maxLeverage)
	}

	l := &Ledger{
		initialCapital: initialCapital,
		cash:           initialCapital,
		maxLeverage:    maxLeverage,
		open:           make(map[PositionID]*Position),
	}
	l.applyOptions(opts)
	return l, nil
}

func (l *Ledger) applyOptions(opts []Option) {
	l.now = time.Now
	for _, o := range opts {
		o(l)
	}
	if l.newID == nil {
		l.newID = func() string { return id.NewAt(l.now()) }
	}
}

// OpenRequest describes a position to open.
type OpenRequest struct {
	Symbol      string
	Direction   Direction
	Size        float64 // leveraged notional
	Price       float64
	Leverage    float64
	TargetPrice *float64
	StopLoss    *float64
	Reason      string
}

// Open validates req and, if it passes, opens a position at req.Price.
// Checks run in order: order shape, leverage range, margin against cash.
// A failed check leaves the ledger untouched.
func (l *Ledger) Open(req OpenRequest) (Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case req.Symbol == "":
		return Position{}, fmt.Errorf("open: %w: symbol is required", ErrInvalidOrder)
	case !req.Direction.Valid():
		return Position{}, fmt.Errorf("open %s: %w: %w", req.Symbol, ErrInvalidOrder, ErrUnknownDirection)
	case !(req.Size > 0):
		return Position{}, fmt.Errorf("open %s: %w: size must be positive, got %v", req.Symbol, ErrInvalidOrder, req.Size)
	case !(req.Price > 0):
		return Position{}, fmt.Errorf("open %s: %w: price must be positive, got %v", req.Symbol, ErrInvalidOrder, req.Price)
	}

	if req.Leverage < 1 || req.Leverage > l.maxLeverage {
		return Position{}, fmt.Errorf("open %s: %w: %vx not in [1, %vx]",
			req.Symbol, ErrLeverageOutOfRange, req.Leverage, l.maxLeverage)
	}

	margin := req.Size / req.Leverage
	if margin > l.cash {
		return Position{}, fmt.Errorf("open %s: %w: margin %.2f exceeds available %.2f",
			req.Symbol, ErrInsufficientCapital, margin, l.cash)
	}

	id := PositionID(l.newID())
	if _, dup := l.open[id]; dup {
		return Position{}, fmt.Errorf("open %s: %w: position id %q already open", req.Symbol, ErrInvalidOrder, id)
	}

	now := l.now()
	p := &Position{
		ID:          id,
		Symbol:      req.Symbol,
		Direction:   req.Direction,
		Size:        req.Size,
		EntryPrice:  req.Price,
		Leverage:    req.Leverage,
		OpenedAt:    now,
		TargetPrice: copyPrice(req.TargetPrice),
		StopLoss:    copyPrice(req.StopLoss),
	}

	l.open[p.ID] = p
	l.order = append(l.order, p.ID)
	l.cash -= margin
	l.tradeLog = append(l.tradeLog, journal.TradeRecord{
		ID:         l.newID(),
		PositionID: string(p.ID),
		Action:     journal.ActionOpen,
		Symbol:     p.Symbol,
		Direction:  p.Direction.String(),
		Size:       p.Size,
		Leverage:   p.Leverage,
		Margin:     margin,
		EntryPrice: p.EntryPrice,
		Time:       now,
		Reason:     req.Reason,
	})

	return p.clone(), nil
}

// Close closes an open position at price and returns the realized P&L.
// Closing an id that is not open returns ErrPositionNotFound.
func (l *Ledger) Close(pid PositionID, price float64) (float64, error) {
	return l.CloseWithReason(pid, price, "")
}

func (l *Ledger) CloseWithReason(pid PositionID, price float64, reason string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := l.closeLocked(pid, price, reason)
	if err != nil {
		return 0, err
	}
	return p.RealizedPnL, nil
}

// CloseSymbol closes every open position on symbol at price, in the order
// they were opened. It returns ErrPositionNotFound if none exist.
func (l *Ledger) CloseSymbol(symbol string, price float64, reason string) ([]Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var ids []PositionID
	for _, pid := range l.order {
		if l.open[pid].Symbol == symbol {
			ids = append(ids, pid)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("close %s: %w", symbol, ErrPositionNotFound)
	}

	out := make([]Position, 0, len(ids))
	for _, pid := range ids {
		p, err := l.closeLocked(pid, price, reason)
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, nil
}

// CloseAll closes every open position whose symbol has a price in prices.
// Positions without a price stay open.
func (l *Ledger) CloseAll(prices market.Prices) []Position {
	return l.CloseAllWithReason(prices, "close_all")
}

func (l *Ledger) CloseAllWithReason(prices market.Prices, reason string) []Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := append([]PositionID(nil), l.order...)
	var out []Position
	for _, pid := range ids {
		price, ok := prices.Get(l.open[pid].Symbol)
		if !ok {
			continue
		}
		p, err := l.closeLocked(pid, price, reason)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (l *Ledger) closeLocked(pid PositionID, price float64, reason string) (Position, error) {
	p, ok := l.open[pid]
	if !ok {
		return Position{}, fmt.Errorf("close position %q: %w", pid, ErrPositionNotFound)
	}
	if !(price > 0) {
		return Position{}, fmt.Errorf("close position %q: %w: price must be positive, got %v", pid, ErrInvalidOrder, price)
	}

	now := l.now()
	pnl := p.PnL(price)
	margin := p.Margin()

	p.ExitPrice = price
	p.ClosedAt = &now
	p.RealizedPnL = pnl

	l.cash += margin + pnl
	delete(l.open, pid)
	l.removeFromOrder(pid)
	l.closed = append(l.closed, *p)

	l.tradeLog = append(l.tradeLog, journal.TradeRecord{
		ID:          l.newID(),
		PositionID:  string(p.ID),
		Action:      journal.ActionClose,
		Symbol:      p.Symbol,
		Direction:   p.Direction.String(),
		Size:        p.Size,
		Leverage:    p.Leverage,
		Margin:      margin,
		EntryPrice:  p.EntryPrice,
		ExitPrice:   price,
		RealizedPnL: pnl,
		Time:        now,
		Reason:      reason,
	})

	return p.clone(), nil
}

func (l *Ledger) removeFromOrder(pid PositionID) {
	for i, v := range l.order {
		if v == pid {
			l.order = append(l.order[:i], l.order[i+1:]...)
			return
		}
	}
}

// TotalValue is cash plus locked margin plus unrealized P&L for every open
// position whose symbol has a price.
func (l *Ledger) TotalValue(prices market.Prices) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalValueLocked(prices)
}

func (l *Ledger) totalValueLocked(prices market.Prices) float64 {
	total := l.cash
	for _, pid := range l.order {
		p := l.open[pid]
		total += p.Margin()
		if price, ok := prices.Get(p.Symbol); ok {
			total += p.PnL(price)
		}
	}
	return total
}

func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

// AvailableCapital is the cash that can still be posted as margin.
func (l *Ledger) AvailableCapital() float64 { return l.Cash() }

func (l *Ledger) InitialCapital() float64 { return l.initialCapital }

func (l *Ledger) MaxLeverage() float64 { return l.maxLeverage }

// Position returns a copy of an open position.
func (l *Ledger) Position(pid PositionID) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.open[pid]
	if !ok {
		return Position{}, false
	}
	return p.clone(), true
}

// OpenPositions returns copies of the open positions in insertion order.
func (l *Ledger) OpenPositions() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.openLocked()
}

func (l *Ledger) openLocked() []Position {
	out := make([]Position, 0, len(l.order))
	for _, pid := range l.order {
		out = append(out, l.open[pid].clone())
	}
	return out
}

// PositionsBySymbol returns copies of the open positions on symbol.
func (l *Ledger) PositionsBySymbol(symbol string) []Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Position
	for _, pid := range l.order {
		if p := l.open[pid]; p.Symbol == symbol {
			out = append(out, p.clone())
		}
	}
	return out
}

func (l *Ledger) ClosedPositions() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closedLocked()
}

func (l *Ledger) closedLocked() []Position {
	out := make([]Position, len(l.closed))
	for i, p := range l.closed {
		out[i] = p.clone()
	}
	return out
}

func (l *Ledger) TradeLog() []journal.TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]journal.TradeRecord(nil), l.tradeLog...)
}

// TradeLogSince returns the records appended at or after index n, plus the
// current length to use as the next cursor.
func (l *Ledger) TradeLogSince(n int) ([]journal.TradeRecord, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n < 0 {
		n = 0
	}
	if n >= len(l.tradeLog) {
		return nil, len(l.tradeLog)
	}
	return append([]journal.TradeRecord(nil), l.tradeLog[n:]...), len(l.tradeLog)
}

func copyPrice(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
