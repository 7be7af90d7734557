package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"QuantPulse/internal/di"
	"QuantPulse/internal/domain/models"
	"QuantPulse/internal/handler/api"
	"QuantPulse/pkg/config"

	"github.com/spf13/cobra"
)

var (
	predictShock   bool
	predictPrice   float64
	predictJSON    bool
	predictTimeout time.Duration
)

var predictCmd = &cobra.Command{
	Use:   "predict SYMBOL",
	Short: "Compute one ensemble prediction and print it",
	Args:  cobra.ExactArgs(1),
	RunE:  runPredict,
}

func init() {
	predictCmd.Flags().BoolVar(&predictShock, "shock", false, "apply the shock simulation")
	predictCmd.Flags().Float64Var(&predictPrice, "price", 0, "current price (0 resolves it from quotes)")
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "print the raw JSON result")
	predictCmd.Flags().DurationVar(&predictTimeout, "timeout", 30*time.Second, "overall deadline")
}

func runPredict(cmd *cobra.Command, args []string) error {
	req, err := models.NewPredictionRequest(args[0], predictShock, predictPrice)
	if err != nil {
		return err
	}

	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	// keep stdout clean for the result
	cfg.Logger.Output = "stderr"
	cfg.Logger.Level = "warn"

	svc, cleanup, err := di.InitializeEnsemble(cfg)
	if err != nil {
		return fmt.Errorf("ensemble initialization failed: %w", err)
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(cmd.Context(), predictTimeout)
	defer cancel()

	res, err := svc.GetEnsemble(ctx, req)
	if err != nil {
		return err
	}
	return writeResult(cmd.OutOrStdout(), res, predictJSON)
}

func writeResult(w io.Writer, res models.EnsembleResult, asJSON bool) error {
	out := api.Present(res)
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	_, err := fmt.Fprintln(w, renderResult(out, res.Source))
	return err
}
