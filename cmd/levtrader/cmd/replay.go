package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/levtrader/replay"
	"github.com/rustyeddy/levtrader/sim"
)

var replayCmd = &cobra.Command{
	Use:   "replay <events.csv>",
	Short: "Replay prices and scripted events from CSV",
	Long: `Replay a CSV of prices and events through a fresh ledger.

Rows are time,symbol,price[,event,args...]. Events are OPEN, OPEN_TPSL,
CLOSE, CLOSE_ID and CLOSE_ALL. Trades are written to the configured
journal.

Examples:
  levtrader replay testdata/scenario.csv
  levtrader replay --triggers=false --capital 5000 scenario.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

var (
	replayCapital  float64
	replayLeverage float64
	replayTriggers bool
	replayCloseEnd bool
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().Float64Var(&replayCapital, "capital", 0, "initial capital (default from config)")
	replayCmd.Flags().Float64Var(&replayLeverage, "max-leverage", 0, "max leverage (default from config)")
	replayCmd.Flags().BoolVar(&replayTriggers, "triggers", true, "close positions when their target or stop is crossed")
	replayCmd.Flags().BoolVar(&replayCloseEnd, "close-end", true, "close all open positions at end")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	capital := cfg.Account.InitialCapital
	if replayCapital > 0 {
		capital = replayCapital
	}
	leverage := cfg.Account.MaxLeverage
	if replayLeverage > 0 {
		leverage = replayLeverage
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	clk := &replay.Clock{}
	ledger, err := sim.New(capital, leverage, sim.WithClock(clk.Now))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Replaying events from: %s\n", args[0])
	res, err := replay.CSV(cmd.Context(), args[0], ledger, replay.Options{Clock: clk, Triggers: replayTriggers})
	if err != nil {
		return fmt.Errorf("replay error: %w", err)
	}
	if replayCloseEnd {
		closed := ledger.CloseAllWithReason(res.Prices, "end_of_replay")
		res.Closed += len(closed)
		res.Statistics = ledger.Statistics(res.Prices)
	}

	for _, rec := range ledger.TradeLog() {
		if err := j.RecordTrade(rec); err != nil {
			return fmt.Errorf("journal trade: %w", err)
		}
	}

	st := res.Statistics
	fmt.Fprintf(out, "\nReplay complete!\n")
	fmt.Fprintf(out, "  Rows: %d\n", res.Rows)
	fmt.Fprintf(out, "  Opened: %d  Closed: %d  Rejected: %d  Triggered: %d\n", res.Opened, res.Closed, res.Rejected, res.Triggered)
	fmt.Fprintf(out, "  Cash: $%.2f\n", st.Cash)
	fmt.Fprintf(out, "  Total Value: $%.2f\n", st.TotalValue)
	fmt.Fprintf(out, "  Total P&L: $%+.2f (%+.2f%%)\n", st.TotalPnL, st.ROIPercent)
	fmt.Fprintf(out, "  Win Rate: %.1f%% (%d/%d)\n", st.WinRate, st.WinningTrades, st.TotalTrades)
	return nil
}
