package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	brandsSuggestLimit int
	brandsThreshold    float64
	brandsPruneDays    int
)

var brandsCmd = &cobra.Command{
	Use:   "brands",
	Short: "Brand corpus operations",
}

var brandsSuggestCmd = &cobra.Command{
	Use:   "suggest <text>",
	Short: "Suggest brand corrections for an OCR'd name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		limit := brandsSuggestLimit
		if limit <= 0 {
			limit = cfg.Matching.MaxSuggestions
		}
		threshold := brandsThreshold
		if threshold == 0 {
			threshold = cfg.Matching.SuggestThreshold
		}

		matches := env.Matcher.FindTopMatches(args[0], limit, threshold)
		return json.NewEncoder(cmd.OutOrStdout()).Encode(matches)
	},
}

var brandsExtractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract known brands from OCR text on stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		text, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return eris.Wrap(err, "read stdin")
		}

		threshold := brandsThreshold
		if threshold == 0 {
			threshold = cfg.Matching.SuggestThreshold
		}

		matches := env.Matcher.ExtractBrandsFromText(string(text), threshold)
		return json.NewEncoder(cmd.OutOrStdout()).Encode(matches)
	},
}

var brandsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a user brand to the corpus",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.AddUserBrand(cmd.Context(), args[0]); err != nil {
			return err
		}
		zap.L().Info("user brand added", zap.String("name", args[0]))
		return nil
	},
}

var brandsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List user brands",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		names, err := env.Store.ListUserBrands(cmd.Context())
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(names)
	},
}

var brandsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop user brands unused beyond the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		days := brandsPruneDays
		if days <= 0 {
			days = cfg.Brands.RetentionDays
		}

		n, err := env.Store.PruneUserBrands(cmd.Context(), time.Duration(days)*24*time.Hour)
		if err != nil {
			return err
		}
		zap.L().Info("user brands pruned", zap.Int("removed", n), zap.Int("retention_days", days))
		return nil
	},
}

func init() {
	brandsSuggestCmd.Flags().IntVar(&brandsSuggestLimit, "limit", 0, "max suggestions (default from config)")
	brandsCmd.PersistentFlags().Float64Var(&brandsThreshold, "threshold", 0, "similarity threshold (default from config)")
	brandsPruneCmd.Flags().IntVar(&brandsPruneDays, "days", 0, "retention window in days (default from config)")

	brandsCmd.AddCommand(brandsSuggestCmd, brandsExtractCmd, brandsAddCmd, brandsListCmd, brandsPruneCmd)
	rootCmd.AddCommand(brandsCmd)
}
