package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/levtrader/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  levtrader config init -o levtrader.yaml
  levtrader config validate -f levtrader.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings. The format
follows the extension: .json writes JSON, anything else YAML.

Example:
  levtrader config init -o levtrader.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded, with
environment overrides applied.

Example:
  levtrader config validate -f levtrader.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "levtrader.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nSet DASHSCOPE_API_KEY, edit the file and run with:")
	fmt.Fprintf(out, "  levtrader run -c %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Account: $%.2f, max leverage %gx\n", cfg.Account.InitialCapital, cfg.Account.MaxLeverage)
	fmt.Fprintf(out, "  Symbols: %v every %s\n", cfg.Trading.Symbols, cfg.Trading.LoopInterval)
	fmt.Fprintf(out, "  Cadence: interval %s, cooldown %s\n", cfg.Cadence.Interval, cfg.Cadence.Cooldown)
	fmt.Fprintf(out, "  LLM: %s (key set: %t)\n", cfg.LLM.Model, cfg.LLM.APIKey != "")
	fmt.Fprintf(out, "  Journal: %s  State: %s\n", cfg.Journal.Type, cfg.State.Type)
	return nil
}
