package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/levtrader/bot"
	"github.com/rustyeddy/levtrader/config"
	"github.com/rustyeddy/levtrader/dashboard"
	"github.com/rustyeddy/levtrader/internal/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop",
	Long: `Run the paper-trading loop against live Binance prices.

The loop fetches prices every trading.loop_interval, asks the LLM for a
decision when the cadence policy wakes it, and applies the decision to the
simulated ledger. Open positions are closed when the process is stopped.

Examples:
  levtrader run
  levtrader run -c levtrader.yaml --watch
  levtrader run --fresh --no-dashboard`,
	Args: cobra.NoArgs,
	RunE: runBot,
}

var (
	runWatch       bool
	runFresh       bool
	runNoDashboard bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runWatch, "watch", false, "reload cadence and risk settings when the config file changes")
	runCmd.Flags().BoolVar(&runFresh, "fresh", false, "discard any saved session before starting")
	runCmd.Flags().BoolVar(&runNoDashboard, "no-dashboard", false, "do not start the HTTP dashboard")
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logCloser, err := logger.Setup(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agent, err := newAgent(cfg)
	if err != nil {
		return err
	}
	feed, err := newFeed(cfg)
	if err != nil {
		return err
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	store, err := openStore(cfg.State)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer store.Close()

	if runFresh {
		if err := store.Delete(ctx); err != nil {
			return fmt.Errorf("reset state: %w", err)
		}
		logger.Infof("saved session discarded")
	}

	hub := dashboard.NewHub()
	opts, err := botOptions(cfg)
	if err != nil {
		return err
	}
	b, err := bot.New(opts, bot.Deps{
		Feed:      feed,
		Decider:   agent,
		Journal:   j,
		Store:     store,
		Publisher: hub,
	})
	if err != nil {
		return err
	}

	if cfg.State.Resume && !runFresh {
		if _, err := b.Resume(ctx); err != nil {
			return fmt.Errorf("resume: %w", err)
		}
	}

	if runWatch {
		if configPath == "" {
			return fmt.Errorf("--watch needs --config")
		}
		err := config.Watch(configPath, func(c *config.Config) {
			pol, err := c.Cadence.Policy()
			if err == nil {
				err = b.SetPolicies(pol, c.Risk)
			}
			if err != nil {
				logger.Errorf("config reload not applied: %v", err)
				return
			}
			logger.SetLevel(c.Log.Level)
			logger.Infof("cadence and risk settings updated")
		})
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(gctx) })
	if cfg.Dashboard.Enabled && !runNoDashboard {
		srv := dashboard.NewServer(cfg.Dashboard.Addr, hub)
		g.Go(func() error { return srv.Run(gctx) })
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
