package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/levtrader/cadence"
	"github.com/rustyeddy/levtrader/dashboard"
	"github.com/rustyeddy/levtrader/indicators"
	"github.com/rustyeddy/levtrader/internal/logger"
	"github.com/rustyeddy/levtrader/journal"
	"github.com/rustyeddy/levtrader/llm"
	"github.com/rustyeddy/levtrader/market"
	"github.com/rustyeddy/levtrader/sim"
)

const klineWorkers = 4

// RunIteration performs one pass of the loop. A failed price fetch skips
// the pass and is returned; everything after that is logged, not returned.
func (b *Bot) RunIteration(ctx context.Context) error {
	b.iteration++
	n := b.iteration
	now := b.now()
	logger.Infof("--- Iteration %d ---", n)

	prices, err := b.feed.Prices(ctx, b.opts.Symbols)
	if err == nil && len(prices) == 0 {
		err = ErrNoPrices
	}
	if err != nil {
		logger.Warnf("failed to fetch prices, skipping iteration: %v", err)
		return fmt.Errorf("iteration %d: %w", n, err)
	}

	view := b.ledger.View(prices)
	b.recordEquity(now, view.Statistics)
	b.history.Record(now, view.Statistics.TotalValue, prices)
	b.pub.PublishIteration(n, dashboard.Update{
		Time:         now,
		Prices:       prices,
		Positions:    view.Positions,
		Closed:       view.Closed,
		Stats:        view.Statistics,
		ValueHistory: b.history.Values(),
		PriceHistory: b.history.Prices(),
	})
	if b.opts.SummaryEvery > 0 && n%b.opts.SummaryEvery == 0 {
		logger.InfoBlock(FormatSummary(view.Statistics))
	}

	cadencePol, _ := b.policies()
	res := cadencePol.Evaluate(cadence.Input{
		Now:          now,
		LastDecision: b.lastDecision,
		Prices:       prices,
		LastPrices:   b.lastPrices,
		Positions:    cadence.Exposures(view.Open),
	})
	if res.Wake {
		logger.Infof("waking decision source: %s", res)
		b.decide(ctx, now, prices, res)
	} else {
		logger.Debugf("decision skipped: %s", res)
	}

	b.lastPrices = prices.Clone()
	b.flushJournal()

	if b.opts.SaveEvery > 0 && n%b.opts.SaveEvery == 0 {
		if err := b.Save(ctx); err != nil {
			logger.Errorf("%v", err)
		}
	}
	return nil
}

func (b *Bot) recordEquity(now time.Time, st sim.Statistics) {
	err := b.journal.RecordEquity(journal.EquitySnapshot{
		Time:          now,
		Cash:          st.Cash,
		TotalValue:    st.TotalValue,
		MarginUsed:    st.MarginUsed,
		UnrealizedPnL: st.UnrealizedPnL,
		OpenPositions: st.OpenPositions,
	})
	if err != nil {
		logger.Errorf("journal equity: %v", err)
	}
}

func (b *Bot) decide(ctx context.Context, now time.Time, prices market.Prices, res cadence.Result) {
	analyses := b.analyze(ctx, prices)
	_, riskPol := b.policies()

	view := b.ledger.View(prices)
	mc := llm.MarketContext{
		Now:             now,
		Analyses:        analyses,
		Stats:           view.Statistics,
		Positions:       view.Positions,
		MaxPositionSize: riskPol.MaxPositionSize(view.Statistics.Cash),
		WakeReason:      res.String(),
	}

	d, err := b.decider.Decide(ctx, mc)
	b.lastDecision = now
	if err != nil {
		logger.Warnf("decision failed: %v", err)
	}
	logger.Infof("LLM summary: %s", d.Summary)

	var prompt string
	if ex, ok := b.decider.Last(); ok {
		prompt = ex.Prompt
	}
	b.pub.PublishConversation(dashboard.ConversationFrom(d, prompt, res.String()))

	for _, a := range d.Actions {
		b.execute(now, a, prices)
		b.flushJournal()
	}
}

// analyze fetches candles for every priced symbol concurrently. A symbol
// whose candles cannot be fetched is left out.
func (b *Bot) analyze(ctx context.Context, prices market.Prices) map[string]indicators.Analysis {
	var mu sync.Mutex
	out := make(map[string]indicators.Analysis, len(prices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(klineWorkers)
	for _, sym := range prices.Symbols() {
		sym := sym
		g.Go(func() error {
			candles, err := b.feed.Klines(gctx, sym, b.opts.KlineInterval, b.opts.KlineLimit)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				logger.Warnf("klines %s: %v", sym, err)
				return nil
			}
			an, err := indicators.Analyze(candles)
			if err != nil {
				logger.Warnf("analyze %s: %v", sym, err)
				return nil
			}
			mu.Lock()
			out[sym] = an
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warnf("analysis interrupted: %v", err)
	}
	return out
}
