package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/Mohsinsiddi/vaultctl/internal/rpc"
	"github.com/Mohsinsiddi/vaultctl/internal/ui"
	"github.com/spf13/cobra"
)

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage RPC endpoints",
}

var rpcAddCmd = &cobra.Command{
	Use:   "add <network> <url>",
	Short: "Add a custom RPC URL for a network",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := args[0], args[1]
		if _, err := chain.NewRegistry().GetByName(name); err != nil {
			return fmt.Errorf("unknown network %q", name)
		}
		if err := cfg.AddRPC(name, url); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Added RPC for %s: %s", ui.ChainName(name), url)))
		return nil
	},
}

var rpcRemoveCmd = &cobra.Command{
	Use:   "remove <network> <url>",
	Short: "Remove a custom RPC URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := args[0], args[1]
		if err := cfg.RemoveRPC(name, url); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Removed RPC for %s: %s", name, url)))
		return nil
	},
}

// networkRPCs returns custom RPCs first, then the built-in ones.
func networkRPCs(name string) (*chain.Network, []string, error) {
	n, err := chain.NewRegistry().GetByName(name)
	if err != nil {
		return nil, nil, fmt.Errorf("unknown network %q", name)
	}
	urls := append([]string{}, runCfg.GetRPCs(name)...)
	return n, append(urls, n.RPCs...), nil
}

var rpcListCmd = &cobra.Command{
	Use:   "list [network]",
	Short: "List RPCs for a network (default: active network)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := runCfg.Network
		if len(args) == 1 {
			name = args[0]
		}
		n, _, err := networkRPCs(name)
		if err != nil {
			return err
		}

		fmt.Println(ui.StyleTitle.Render(fmt.Sprintf("RPCs for %s", n.DisplayName)))
		for _, r := range n.RPCs {
			fmt.Printf("  %s %s\n", ui.Meta("(built-in)"), r)
		}
		for _, r := range runCfg.GetRPCs(name) {
			fmt.Printf("  %s %s\n", ui.Meta("(custom)  "), r)
		}
		return nil
	},
}

var rpcBenchmarkCmd = &cobra.Command{
	Use:   "benchmark [network]",
	Short: "Benchmark RPCs for a network and show which one would be used",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := runCfg.Network
		if len(args) == 1 {
			name = args[0]
		}
		n, urls, err := networkRPCs(name)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), config.RPCSelectTimeout)
		defer cancel()

		var results []rpc.Endpoint
		spin(fmt.Sprintf("Benchmarking %s RPCs...", n.DisplayName), func() {
			results = rpc.Benchmark(ctx, urls, chain.WithRateLimit(runCfg.RPCRateLimit))
		})

		algo := rpc.ParseAlgorithm(runCfg.RPCAlgorithm)
		winner, pickErr := rpc.NewSelector(algo).Pick(results)

		t := ui.NewTable([]ui.Column{
			{Title: "RPC URL", Width: 44},
			{Title: "Latency", Width: 10, Right: true},
			{Title: "Block #", Width: 12, Right: true},
			{Title: "Status", Width: 10},
		})
		for _, r := range results {
			status := ui.Success("healthy")
			latency := fmt.Sprintf("%dms", r.Latency.Milliseconds())
			block := fmt.Sprintf("%d", r.BlockNumber)
			if r.Err != nil {
				status = ui.Err("down")
				latency = "-"
				block = "-"
			}
			if pickErr == nil && r.URL == winner.URL {
				status = ui.StyleSelected.Render("selected")
			}
			t.AddRow(ui.Row{r.URL, latency, block, status})
		}
		fmt.Println(t.Render())

		if pickErr != nil {
			return pickErr
		}
		fmt.Println(ui.Meta(fmt.Sprintf("algorithm: %s", algo)))
		return nil
	},
}

var rpcAlgorithmCmd = &cobra.Command{
	Use:   "algorithm <fastest|round-robin|failover>",
	Short: "Set the RPC selection algorithm",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set("rpc_algorithm", args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("RPC algorithm set to %q", args[0])))
		return nil
	},
}

func init() {
	rpcCmd.AddCommand(rpcAddCmd, rpcRemoveCmd, rpcListCmd, rpcBenchmarkCmd, rpcAlgorithmCmd)
}
