package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/safescan/recall-cli/internal/feed"
)

var (
	checkBrand   string
	checkCountry string
	checkStdin   bool
)

var checkCmd = &cobra.Command{
	Use:   "check [candidates...]",
	Short: "Check OCR lot candidates against the recall corpus",
	Long:  "Runs the fast scan-time correlation: every candidate string from the label is checked against the recall corpus for the given brand and country. The first hit wins.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		candidates := args
		if checkStdin {
			candidates, err = feed.ReadCandidates(os.Stdin)
			if err != nil {
				return err
			}
		}

		result := env.Correlator.CheckAllCandidates(candidates, checkBrand, checkCountry, env.Corpus)
		if result.HasRecall {
			zap.L().Warn("recall hit",
				zap.String("candidate", result.MatchedCandidate),
				zap.String("recall_id", result.MatchedRecall.ID),
			)
		}

		return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkBrand, "brand", "", "product brand (empty matches any)")
	checkCmd.Flags().StringVar(&checkCountry, "country", "", "restrict corpus to one country")
	checkCmd.Flags().BoolVar(&checkStdin, "stdin", false, "read candidates from stdin, one per line")
	rootCmd.AddCommand(checkCmd)
}
