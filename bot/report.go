package bot

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/levtrader/sim"
)

const (
	rule       = "============================================================"
	thinRule   = "------------------------------------------------------------"
	lastTrades = 10
)

// FormatSummary renders the periodic account summary.
func FormatSummary(st sim.Statistics) string {
	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString("TRADING SUMMARY\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Initial Capital: $%.2f\n", st.InitialCapital)
	fmt.Fprintf(&b, "Current Value: $%.2f\n", st.TotalValue)
	fmt.Fprintf(&b, "Total P&L: $%+.2f\n", st.TotalPnL)
	fmt.Fprintf(&b, "ROI: %+.2f%%\n", st.ROIPercent)
	fmt.Fprintf(&b, "Open Positions: %d\n", st.OpenPositions)
	fmt.Fprintf(&b, "Closed Trades: %d\n", st.ClosedPositions)
	fmt.Fprintf(&b, "Winning: %d | Losing: %d\n", st.WinningTrades, st.LosingTrades)
	fmt.Fprintf(&b, "Win Rate: %.1f%%\n", st.WinRate)
	b.WriteString(rule)
	return b.String()
}

// FormatFinalReport renders the report written at shutdown, including the
// most recent closed trades.
func FormatFinalReport(st sim.Statistics, closed []sim.Position) string {
	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString("FINAL TRADING REPORT\n")
	b.WriteString(rule + "\n")

	b.WriteString("PERFORMANCE METRICS\n")
	b.WriteString(thinRule + "\n")
	fmt.Fprintf(&b, "Initial Capital: $%.2f\n", st.InitialCapital)
	fmt.Fprintf(&b, "Final Value: $%.2f\n", st.TotalValue)
	fmt.Fprintf(&b, "Total P&L: $%+.2f\n", st.TotalPnL)
	fmt.Fprintf(&b, "ROI: %+.2f%%\n", st.ROIPercent)
	b.WriteString("\n")

	b.WriteString("TRADING STATISTICS\n")
	b.WriteString(thinRule + "\n")
	fmt.Fprintf(&b, "Total Trades: %d\n", st.TotalTrades)
	fmt.Fprintf(&b, "Winning Trades: %d\n", st.WinningTrades)
	fmt.Fprintf(&b, "Losing Trades: %d\n", st.LosingTrades)
	fmt.Fprintf(&b, "Win Rate: %.1f%%\n", st.WinRate)
	fmt.Fprintf(&b, "Open Positions: %d\n", st.OpenPositions)

	if len(closed) > 0 {
		b.WriteString("\n")
		fmt.Fprintf(&b, "LAST %d TRADES\n", min(lastTrades, len(closed)))
		b.WriteString(thinRule + "\n")
		start := max(0, len(closed)-lastTrades)
		for i, p := range closed[start:] {
			fmt.Fprintf(&b, "%d. %s %s: $%.2f @ $%.2f -> $%.2f (P&L: $%+.2f)\n",
				i+1, p.Symbol, strings.ToUpper(p.Direction.String()),
				p.Size, p.EntryPrice, p.ExitPrice, p.RealizedPnL)
		}
	}
	b.WriteString(rule)
	return b.String()
}
