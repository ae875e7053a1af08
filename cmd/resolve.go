package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/safescan/recall-cli/internal/model"
)

var (
	resolveID      string
	resolveBrand   string
	resolveLot     string
	resolveCountry string
	resolveSave    bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the authoritative recall status for a product",
	Long:  "Runs the thorough resolution pass over the full recall corpus, either for a stored product by id or for an ad-hoc brand/lot/country triple.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		var product model.Product
		if resolveID != "" {
			p, err := env.Store.GetProduct(cmd.Context(), resolveID)
			if err != nil {
				return err
			}
			product = *p
		} else {
			if resolveLot == "" {
				return eris.New("either --id or --lot is required")
			}
			product = model.Product{
				Brand:     resolveBrand,
				LotNumber: resolveLot,
				Country:   resolveCountry,
			}
		}

		det := env.Resolver.GetRecallStatus(product, env.Corpus)

		if resolveSave && resolveID != "" {
			if err := env.Store.UpdateProductStatus(cmd.Context(), resolveID, det); err != nil {
				return err
			}
			zap.L().Info("product status updated",
				zap.String("id", resolveID),
				zap.String("status", string(det.Status)),
			)
		}

		return json.NewEncoder(cmd.OutOrStdout()).Encode(det)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveID, "id", "", "stored product id")
	resolveCmd.Flags().StringVar(&resolveBrand, "brand", "", "product brand")
	resolveCmd.Flags().StringVar(&resolveLot, "lot", "", "product lot number")
	resolveCmd.Flags().StringVar(&resolveCountry, "country", "", "product country")
	resolveCmd.Flags().BoolVar(&resolveSave, "save", false, "persist the determination (with --id)")
	rootCmd.AddCommand(resolveCmd)
}
