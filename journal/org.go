package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode block. Structured
// facts live in a PROPERTIES drawer so they stay searchable.
func FormatTradeOrg(t TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** %s %s %s (%s)\n", heading(t.Action), strings.ToUpper(t.Direction), t.Symbol, shortID(t.PositionID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ID: %s\n", t.ID)
	fmt.Fprintf(&b, ":POSITION_ID: %s\n", t.PositionID)
	fmt.Fprintf(&b, ":ACTION: %s\n", t.Action)
	fmt.Fprintf(&b, ":SYMBOL: %s\n", t.Symbol)
	fmt.Fprintf(&b, ":DIRECTION: %s\n", t.Direction)
	fmt.Fprintf(&b, ":SIZE: %.2f\n", t.Size)
	fmt.Fprintf(&b, ":LEVERAGE: %.1fx\n", t.Leverage)
	fmt.Fprintf(&b, ":MARGIN: %.2f\n", t.Margin)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %.4f\n", t.EntryPrice)
	if t.IsClose() {
		fmt.Fprintf(&b, ":EXIT_PRICE: %.4f\n", t.ExitPrice)
		fmt.Fprintf(&b, ":REALIZED_PNL: %.2f\n", t.RealizedPnL)
	}
	fmt.Fprintf(&b, ":TIME: %s\n", t.Time.UTC().Format(time.RFC3339))
	if t.Reason != "" {
		fmt.Fprintf(&b, ":REASON: %s\n", t.Reason)
	}
	b.WriteString(":END:\n")
	if t.IsClose() {
		b.WriteString("\n*** Review\n- \n")
	} else {
		b.WriteString("\n*** Thesis\n- \n")
	}
	return b.String()
}

// FormatTradesOrg renders multiple records separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func heading(action string) string {
	if action == "" {
		return "Trade"
	}
	return strings.ToUpper(action[:1]) + action[1:]
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[len(full)-8:]
}
