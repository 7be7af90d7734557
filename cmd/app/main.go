package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "quantpulse",
	Short: "QuantPulse ensemble prediction service",
	Long: `QuantPulse fuses a quant forecast, a market-topology risk adjustment and a news
sentiment multiplier into one price prediction, falling back to a deterministic
synthetic result whenever the live agents are unavailable.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path")
	rootCmd.AddCommand(serveCmd, predictCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
