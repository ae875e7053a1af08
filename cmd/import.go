package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/safescan/recall-cli/internal/feed"
	"github.com/safescan/recall-cli/internal/model"
)

var importReplace bool

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import corpus files",
}

var importRecallsCmd = &cobra.Command{
	Use:   "recalls <file.json>",
	Short: "Import a per-country recall corpus file",
	Long:  "Loads a recall corpus JSON file into the store. With --replace the file's country partitions are replaced wholesale, otherwise recalls are upserted by id.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		recalls, err := feed.LoadRecalls(args[0])
		if err != nil {
			return err
		}

		var n int
		if importReplace {
			// Group by country so each partition is replaced atomically.
			byCountry := map[string][]model.Recall{}
			for _, r := range recalls {
				byCountry[r.Country] = append(byCountry[r.Country], r)
			}
			for country, part := range byCountry {
				c, err := env.Store.ReplaceRecalls(cmd.Context(), country, part)
				if err != nil {
					return err
				}
				n += c
			}
		} else {
			n, err = env.Store.UpsertRecalls(cmd.Context(), recalls)
			if err != nil {
				return err
			}
		}

		zap.L().Info("recalls imported",
			zap.String("file", args[0]),
			zap.Int("count", n),
			zap.Bool("replace", importReplace),
		)
		return nil
	},
}

var importBrandsCmd = &cobra.Command{
	Use:   "brands <file.yaml>",
	Short: "Import a brand corpus file as user brands",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		brands, err := feed.LoadBrands(args[0])
		if err != nil {
			return err
		}
		for _, name := range brands {
			if err := env.Store.AddUserBrand(cmd.Context(), name); err != nil {
				return err
			}
		}

		zap.L().Info("brands imported", zap.String("file", args[0]), zap.Int("count", len(brands)))
		return nil
	},
}

func init() {
	importRecallsCmd.Flags().BoolVar(&importReplace, "replace", false, "replace country partitions instead of upserting")
	importCmd.AddCommand(importRecallsCmd, importBrandsCmd)
	rootCmd.AddCommand(importCmd)
}
