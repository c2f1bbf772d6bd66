package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the levtrader CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "levtrader version %s\n", version)
		fmt.Fprintln(out, "A leveraged crypto futures paper-trading bot driven by an LLM")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
