package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/safescan/recall-cli/internal/recall"
	"github.com/safescan/recall-cli/internal/store"
)

var (
	sweepConcurrency  int
	sweepAllowRescind bool
	sweepCountry      string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Re-check all stored products against the current corpus",
	Long:  "Resolves every stored product against the freshly loaded recall corpus and persists status changes. Recalled-to-safe transitions are logged as anomalies and skipped unless --allow-rescind is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		products, err := env.Store.ListProducts(cmd.Context(), store.ProductFilter{Country: sweepCountry})
		if err != nil {
			return err
		}

		concurrency := sweepConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Sweep.Concurrency
		}
		allowRescind := sweepAllowRescind || cfg.Sweep.AllowRescind

		sweeper := recall.NewSweeper(env.Store.UpdateProductStatus, concurrency, allowRescind)
		stats, err := sweeper.Run(cmd.Context(), products, env.Corpus)
		if err != nil {
			return err
		}

		zap.L().Info("sweep complete",
			zap.Int("total", stats.Total),
			zap.Int("changed", stats.Changed),
			zap.Int("newly_recalled", stats.NewlyRecalled),
			zap.Int("rescinds", stats.Rescinds),
			zap.Int("rescinds_skipped", stats.RescindsSkipped),
		)

		return json.NewEncoder(cmd.OutOrStdout()).Encode(stats)
	},
}

func init() {
	sweepCmd.Flags().IntVar(&sweepConcurrency, "concurrency", 0, "worker count (default from config)")
	sweepCmd.Flags().BoolVar(&sweepAllowRescind, "allow-rescind", false, "apply recalled-to-safe transitions")
	sweepCmd.Flags().StringVar(&sweepCountry, "country", "", "only sweep products from one country")
	rootCmd.AddCommand(sweepCmd)
}
