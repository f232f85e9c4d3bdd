package cmd

import (
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/tokenforge/internal/registry"
	"github.com/Mohsinsiddi/tokenforge/internal/ui"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	tokensChain    string
	tokensDeployer string
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "List recorded token deployments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.log.Sync() //nolint:errcheck

		records, err := a.registry.All()
		if err != nil {
			return err
		}
		records = lo.Filter(records, func(rec registry.Record, _ int) bool {
			return (tokensChain == "" || rec.Chain == tokensChain) &&
				(tokensDeployer == "" || strings.EqualFold(rec.Deployer, tokensDeployer))
		})

		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, ui.Meta("No tokens recorded."))
			return nil
		}
		rows := lo.Map(records, func(rec registry.Record, _ int) []string {
			return []string{rec.Chain, rec.Token, rec.Address, string(rec.Status), rec.Deployer}
		})
		fmt.Fprintln(out, ui.RenderTable([]string{"Chain", "Token", "Address", "Status", "Deployer"}, rows))
		return nil
	},
}

func init() {
	tokensCmd.Flags().StringVar(&tokensChain, "chain", "", "only tokens on this chain")
	tokensCmd.Flags().StringVar(&tokensDeployer, "deployer", "", "only tokens deployed by this address")
}
