package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/levtrader/config"
	"github.com/rustyeddy/levtrader/internal/logger"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "levtrader",
	Short: "A leveraged crypto futures paper-trading bot driven by an LLM",
	Long: `levtrader paper-trades leveraged long and short positions on Binance
USDT-M futures prices. An LLM decides what to open and close; a local
ledger does the accounting. No real orders are ever placed.

It provides tools for:
  - Running the trading loop with a live dashboard
  - Replaying scripted price and event CSVs through the ledger
  - Querying the trade journal
  - Inspecting and resetting saved sessions
  - Generating and validating configuration files`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevel != "" {
			if !logger.ValidLevel(logLevel) {
				return fmt.Errorf("unknown log level %q", logLevel)
			}
			logger.SetLevel(logLevel)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML or JSON config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}
