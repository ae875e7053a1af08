package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/safescan/recall-cli/internal/model"
	"github.com/safescan/recall-cli/internal/report"
	"github.com/safescan/recall-cli/internal/store"
)

var (
	exportOut     string
	exportCountry string
	exportStatus  string
)

var exportCmd = &cobra.Command{
	Use:   "export <products|recalls>",
	Short: "Export products or the recall corpus as a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		switch args[0] {
		case "products":
			products, err := env.Store.ListProducts(cmd.Context(), store.ProductFilter{
				Country: exportCountry,
				Status:  model.RecallStatus(exportStatus),
			})
			if err != nil {
				return err
			}
			if err := report.WriteProductsXLSX(exportOut, products); err != nil {
				return err
			}
			zap.L().Info("products exported", zap.String("file", exportOut), zap.Int("count", len(products)))

		case "recalls":
			recalls, err := env.Store.ListRecalls(cmd.Context(), exportCountry)
			if err != nil {
				return err
			}
			if err := report.WriteRecallsXLSX(exportOut, recalls); err != nil {
				return err
			}
			zap.L().Info("recalls exported", zap.String("file", exportOut), zap.Int("count", len(recalls)))

		default:
			return eris.Errorf("unknown export target: %s", args[0])
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "export.xlsx", "output file path")
	exportCmd.Flags().StringVar(&exportCountry, "country", "", "filter by country")
	exportCmd.Flags().StringVar(&exportStatus, "status", "", "filter products by recall status")
	rootCmd.AddCommand(exportCmd)
}
