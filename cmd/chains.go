package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/Mohsinsiddi/tokenforge/internal/config"
	"github.com/Mohsinsiddi/tokenforge/internal/rpc"
	"github.com/Mohsinsiddi/tokenforge/internal/ui"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var chainsCheck bool

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List configured chains",
	Long:  "Lists the chains file. With --check every RPC endpoint is probed in parallel and its chain id compared with the configured one.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := config.LoadSettings(envFile)
		if err != nil {
			return err
		}
		chains, err := config.LoadChains(settings.ChainsFile)
		if err != nil {
			return err
		}

		list := lo.Values(chains)
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
		out := cmd.OutOrStdout()

		if !chainsCheck {
			rows := lo.Map(list, func(c config.ChainConfig, _ int) []string {
				return []string{c.Name, strconv.FormatInt(c.ChainID, 10), c.RPCURL, yesNo(c.HasExplorer())}
			})
			fmt.Fprintln(out, ui.RenderTable([]string{"Chain", "Chain ID", "RPC", "Explorer"}, rows))
			return nil
		}

		spin := ui.NewSpinner("Probing RPC endpoints...", cmd.ErrOrStderr())
		spin.Start()
		results := rpc.CheckAll(cmd.Context(), list, dialRPC)
		spin.Stop()

		rows := lo.Map(results, func(h rpc.Health, _ int) []string {
			status := ui.Success("ok")
			if h.Err != nil {
				status = ui.Err(h.Err.Error())
			}
			return []string{h.Chain, strconv.FormatInt(h.ChainID, 10), h.Latency.Round(time.Millisecond).String(), status}
		})
		fmt.Fprintln(out, ui.RenderTable([]string{"Chain", "Node Chain ID", "Latency", "Status"}, rows))

		if lo.SomeBy(results, func(h rpc.Health) bool { return !h.Healthy }) {
			return fmt.Errorf("%d of %d chains unhealthy", lo.CountBy(results, func(h rpc.Health) bool { return !h.Healthy }), len(results))
		}
		return nil
	},
}

func init() {
	chainsCmd.Flags().BoolVar(&chainsCheck, "check", false, "probe every RPC endpoint")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
