// Package bot runs the trading loop: fetch prices, account, decide when to
// wake the decision source, and apply what it says to the ledger.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/levtrader/cadence"
	"github.com/rustyeddy/levtrader/dashboard"
	"github.com/rustyeddy/levtrader/internal/logger"
	"github.com/rustyeddy/levtrader/journal"
	"github.com/rustyeddy/levtrader/llm"
	"github.com/rustyeddy/levtrader/market"
	"github.com/rustyeddy/levtrader/risk"
	"github.com/rustyeddy/levtrader/sim"
	"github.com/rustyeddy/levtrader/state"
)

// DecisionMaker turns a market context into actions.
type DecisionMaker interface {
	Decide(ctx context.Context, mc llm.MarketContext) (llm.Decision, error)
	Last() (llm.Exchange, bool)
	Invocations() int
}

// Publisher receives read-only snapshots for display.
type Publisher interface {
	SetRunning(bool)
	PublishIteration(iteration int, u dashboard.Update)
	PublishConversation(c dashboard.Conversation)
}

type nopPublisher struct{}

func (nopPublisher) SetRunning(bool)                            {}
func (nopPublisher) PublishIteration(int, dashboard.Update)     {}
func (nopPublisher) PublishConversation(dashboard.Conversation) {}

type Options struct {
	InitialCapital float64
	MaxLeverage    float64
	Symbols        []string
	LoopInterval   time.Duration
	KlineInterval  string
	KlineLimit     int
	SummaryEvery   int
	SaveEvery      int
	Cadence        cadence.Policy
	Risk           risk.Policy
}

type Deps struct {
	Feed      market.PriceFeed
	Decider   DecisionMaker
	Journal   journal.Journal
	Store     state.Store
	Publisher Publisher
	Clock     func() time.Time
}

// ErrNoPrices means the feed returned nothing usable for this iteration.
var ErrNoPrices = errors.New("bot: no prices")

// Bot owns the ledger and drives it from one goroutine. Only the cadence
// and risk policies may be changed from elsewhere.
type Bot struct {
	opts    Options
	ledger  *sim.Ledger
	feed    market.PriceFeed
	decider DecisionMaker
	journal journal.Journal
	store   state.Store
	pub     Publisher
	now     func() time.Time
	history *state.History

	iteration    int
	lastDecision time.Time
	lastPrices   market.Prices
	logCursor    int

	policyMu   sync.RWMutex
	cadencePol cadence.Policy
	riskPol    risk.Policy
}

func New(opts Options, deps Deps) (*Bot, error) {
	if deps.Feed == nil {
		return nil, fmt.Errorf("bot: price feed is required")
	}
	if deps.Decider == nil {
		return nil, fmt.Errorf("bot: decision maker is required")
	}
	if len(opts.Symbols) == 0 {
		return nil, fmt.Errorf("bot: no symbols")
	}
	if err := opts.Cadence.Validate(); err != nil {
		return nil, err
	}
	if opts.LoopInterval <= 0 {
		opts.LoopInterval = 30 * time.Second
	}
	if opts.KlineInterval == "" {
		opts.KlineInterval = "1h"
	}
	if opts.KlineLimit <= 0 {
		opts.KlineLimit = 100
	}

	b := &Bot{
		opts:       opts,
		feed:       deps.Feed,
		decider:    deps.Decider,
		journal:    deps.Journal,
		store:      deps.Store,
		pub:        deps.Publisher,
		now:        deps.Clock,
		history:    state.NewHistory(state.HistoryCap),
		cadencePol: opts.Cadence,
		riskPol:    opts.Risk,
	}
	if b.journal == nil {
		b.journal = journal.Nop{}
	}
	if b.store == nil {
		b.store = state.Nop{}
	}
	if b.pub == nil {
		b.pub = nopPublisher{}
	}
	if b.now == nil {
		b.now = time.Now
	}

	l, err := sim.New(opts.InitialCapital, opts.MaxLeverage, sim.WithClock(b.now))
	if err != nil {
		return nil, err
	}
	b.ledger = l
	return b, nil
}

func (b *Bot) Ledger() *sim.Ledger { return b.ledger }

func (b *Bot) Iteration() int { return b.iteration }

// SetPolicies swaps the cadence and risk policies, typically after a config
// reload. An invalid cadence policy is rejected and the old one kept.
func (b *Bot) SetPolicies(c cadence.Policy, r risk.Policy) error {
	if err := c.Validate(); err != nil {
		return err
	}
	b.policyMu.Lock()
	defer b.policyMu.Unlock()
	b.cadencePol = c
	b.riskPol = r
	return nil
}

func (b *Bot) policies() (cadence.Policy, risk.Policy) {
	b.policyMu.RLock()
	defer b.policyMu.RUnlock()
	return b.cadencePol, b.riskPol
}

// Resume restores the last saved session, if any. It reports whether a
// session was found.
func (b *Bot) Resume(ctx context.Context) (bool, error) {
	doc, found, err := b.store.Load(ctx)
	if err != nil || !found {
		return false, err
	}
	l, err := sim.Restore(doc.Ledger, sim.WithClock(b.now))
	if err != nil {
		return false, fmt.Errorf("resume: %w", err)
	}
	b.ledger = l
	b.iteration = doc.Iteration
	b.history.Restore(doc.ValueHistory, doc.PriceHistory)
	_, b.logCursor = l.TradeLogSince(0)
	if r, ok := b.decider.(interface{ Restore(int) }); ok {
		r.Restore(doc.Invocations)
	}

	logger.Infof("resumed session saved at %s: iteration %d, cash $%.2f, %d open, %d closed",
		doc.SavedAt.Format(time.RFC3339), doc.Iteration, l.Cash(),
		len(doc.Ledger.OpenPositions), len(doc.Ledger.ClosedPositions))
	return true, nil
}

// Save writes the current session to the store.
func (b *Bot) Save(ctx context.Context) error {
	doc := state.Document{
		SavedAt:      b.now().UTC(),
		Iteration:    b.iteration,
		Invocations:  b.decider.Invocations(),
		Ledger:       b.ledger.Snapshot(),
		ValueHistory: b.history.Values(),
		PriceHistory: b.history.Prices(),
	}
	if err := b.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// flushJournal forwards trade records the journal has not seen yet.
func (b *Bot) flushJournal() {
	recs, next := b.ledger.TradeLogSince(b.logCursor)
	for _, r := range recs {
		if err := b.journal.RecordTrade(r); err != nil {
			logger.Errorf("journal trade %s: %v", r.ID, err)
		}
	}
	b.logCursor = next
}
