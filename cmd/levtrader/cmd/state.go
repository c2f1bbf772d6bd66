package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/levtrader/market"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or reset the saved session",
	Long: `Inspect or reset the session saved by 'levtrader run'.

Subcommands:
  show   - Print a summary of the saved session
  reset  - Delete the saved session

Examples:
  levtrader state show
  levtrader state show --json
  levtrader state reset`,
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a summary of the saved session",
	Args:  cobra.NoArgs,
	RunE:  runStateShow,
}

var stateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the saved session",
	Args:  cobra.NoArgs,
	RunE:  runStateReset,
}

var stateShowJSON bool

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateResetCmd)

	stateShowCmd.Flags().BoolVar(&stateShowJSON, "json", false, "print the raw document")
}

func runStateShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg.State)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer store.Close()

	doc, found, err := store.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	out := cmd.OutOrStdout()
	if !found {
		fmt.Fprintln(out, "No saved session.")
		return nil
	}

	if stateShowJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	// Value open positions at the last recorded prices.
	prices := market.Prices{}
	for sym, pts := range doc.PriceHistory {
		if len(pts) > 0 {
			prices[sym] = pts[len(pts)-1].Price
		}
	}
	snap := doc.Ledger
	fmt.Fprintf(out, "Saved at: %s\n", doc.SavedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Iterations: %d  LLM invocations: %d\n", doc.Iteration, doc.Invocations)
	fmt.Fprintf(out, "Initial Capital: $%.2f\n", snap.InitialCapital)
	fmt.Fprintf(out, "Cash: $%.2f\n", snap.Cash)
	fmt.Fprintf(out, "Open Positions: %d\n", len(snap.OpenPositions))
	for _, p := range snap.OpenPositions {
		line := fmt.Sprintf("  %s %s $%.2f @ $%.2f %gx", p.Symbol, p.Direction, p.Size, p.EntryPrice, p.Leverage)
		if px, ok := prices.Get(p.Symbol); ok {
			line += fmt.Sprintf("  P&L $%+.2f @ $%.2f", p.PnL(px), px)
		}
		fmt.Fprintln(out, line)
	}
	var realized float64
	for _, p := range snap.ClosedPositions {
		realized += p.RealizedPnL
	}
	fmt.Fprintf(out, "Closed Positions: %d (realized $%+.2f)\n", len(snap.ClosedPositions), realized)
	if n := len(doc.ValueHistory); n > 0 {
		fmt.Fprintf(out, "Last Value: $%.2f\n", doc.ValueHistory[n-1].Value)
	}
	return nil
}

func runStateReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg.State)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer store.Close()

	if err := store.Delete(cmd.Context()); err != nil {
		return fmt.Errorf("reset state: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved session deleted (%s)\n", cfg.State.Path)
	return nil
}
