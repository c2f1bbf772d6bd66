package bot

import (
	"context"
	"time"

	"github.com/rustyeddy/levtrader/internal/logger"
)

// ReasonShutdown tags positions closed when the loop stops.
const ReasonShutdown = "shutdown"

// Run drives the loop until ctx is cancelled, then shuts down. The first
// iteration runs immediately.
func (b *Bot) Run(ctx context.Context) error {
	logger.Infof("trading %v every %s, capital $%.2f, max leverage %gx",
		b.opts.Symbols, b.opts.LoopInterval, b.ledger.InitialCapital(), b.ledger.MaxLeverage())
	b.pub.SetRunning(true)

	ticker := time.NewTicker(b.opts.LoopInterval)
	defer ticker.Stop()

	for {
		if err := b.RunIteration(ctx); err != nil {
			logger.Debugf("%v", err)
		}
		select {
		case <-ctx.Done():
			return b.Shutdown(context.WithoutCancel(ctx))
		case <-ticker.C:
		}
	}
}

// Shutdown closes every open position at the latest prices, flushes the
// journal, saves the session and logs the final report.
func (b *Bot) Shutdown(ctx context.Context) error {
	defer b.pub.SetRunning(false)
	logger.Infof("shutting down after %d iterations", b.iteration)

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	prices, err := b.feed.Prices(ctx, b.opts.Symbols)
	if err != nil || len(prices) == 0 {
		logger.Warnf("no prices at shutdown, falling back to last seen: %v", err)
		prices = b.lastPrices
	}
	if len(b.ledger.OpenPositions()) > 0 {
		closed := b.ledger.CloseAllWithReason(prices, ReasonShutdown)
		logger.Infof("closed %d positions at shutdown", len(closed))
	}
	b.flushJournal()

	saveErr := b.Save(ctx)
	if saveErr != nil {
		logger.Errorf("%v", saveErr)
	}

	logger.InfoBlock(FormatFinalReport(b.ledger.Statistics(prices), b.ledger.ClosedPositions()))
	return saveErr
}
