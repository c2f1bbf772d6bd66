package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/levtrader/market"
)

var pricesCmd = &cobra.Command{
	Use:   "prices [symbol...]",
	Short: "Show current prices and 24h statistics",
	Long: `Fetch last prices and rolling 24 hour statistics from Binance.

Without arguments the configured trading symbols are shown. The qty
column is the base-asset quantity one --notional of exposure buys,
truncated to the symbol's lot size.

Examples:
  levtrader prices
  levtrader prices btcusdt ethusdt --notional 500`,
	RunE: runPrices,
}

var pricesNotional float64

func init() {
	rootCmd.AddCommand(pricesCmd)

	pricesCmd.Flags().Float64Var(&pricesNotional, "notional", 100, "notional in USDT for the qty column")
}

func runPrices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	feed, err := newFeed(cfg)
	if err != nil {
		return err
	}
	return printPrices(cmd, feed, symbolsOr(args, cfg.Trading.Symbols))
}

func symbolsOr(args, fallback []string) []string {
	if len(args) == 0 {
		return fallback
	}
	out := make([]string, 0, len(args))
	for _, a := range args {
		out = append(out, strings.ToUpper(strings.TrimSpace(a)))
	}
	return out
}

func printPrices(cmd *cobra.Command, feed market.PriceFeed, symbols []string) error {
	ctx := cmd.Context()
	prices, err := feed.Prices(ctx, symbols)
	if err != nil {
		return fmt.Errorf("fetch prices: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-10s %14s %9s %14s %14s %12s\n", "SYMBOL", "PRICE", "24H", "HIGH", "LOW", "QTY")
	for _, sym := range symbols {
		price, ok := prices.Get(sym)
		if !ok {
			fmt.Fprintf(out, "%-10s %14s\n", sym, "n/a")
			continue
		}
		qty, err := market.SymbolQuantity(sym, pricesNotional, price)
		if err != nil {
			return err
		}
		t, err := feed.Ticker24h(ctx, sym)
		if err != nil {
			fmt.Fprintf(out, "%-10s %14.4f %9s %14s %14s %12g\n", sym, price, "n/a", "", "", qty)
			continue
		}
		fmt.Fprintf(out, "%-10s %14.4f %+8.2f%% %14.4f %14.4f %12g\n",
			sym, price, t.PriceChangePercent, t.High, t.Low, qty)
	}
	return nil
}
