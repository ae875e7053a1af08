package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/safescan/recall-cli/internal/normalize"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Lot pattern learning operations",
}

var patternsObserveCmd = &cobra.Command{
	Use:   "observe <brand> <lot>",
	Short: "Record a confirmed brand/lot pairing",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		p, err := env.Patterns.Observe(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if p == nil {
			zap.L().Debug("observation skipped", zap.String("brand", args[0]))
			return nil
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(p)
	},
}

var patternsValidateCmd = &cobra.Command{
	Use:   "validate <brand> <lot>",
	Short: "Check a lot number against a brand's learned shapes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		v, err := env.Patterns.Validate(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(v)
	},
}

var patternsListCmd = &cobra.Command{
	Use:   "list <brand>",
	Short: "List learned lot patterns for a brand",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		patterns, err := env.Store.ListLotPatterns(cmd.Context(), normalize.Brand(args[0]))
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(patterns)
	},
}

func init() {
	patternsCmd.AddCommand(patternsObserveCmd, patternsValidateCmd, patternsListCmd)
	rootCmd.AddCommand(patternsCmd)
}
