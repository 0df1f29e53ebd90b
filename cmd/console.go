package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/Mohsinsiddi/vaultctl/internal/logging"
	"github.com/Mohsinsiddi/vaultctl/internal/provider"
	"github.com/Mohsinsiddi/vaultctl/internal/ui"
	"github.com/spf13/cobra"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open the interactive vault console",
	Long: `Open a full-screen console with the wallet and vault controls:

  Connect · Network · Disconnect
  Check Balance · Check Is Owner · Check Contract Owner
  Send Money to Contract · Withdraw Money from Contract

Wallet requests show an approval prompt inside the console (skip with --yes).
Logs go to ~/.vaultctl/vaultctl.log (config key log_file).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closer, err := logging.SetupFile(runCfg.LogPath(), logLevel)
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		approvals := ui.NewApprovals()
		var approve provider.Approver = approvals.Approve
		if yes {
			approve = provider.AutoApprove
		}

		a, local, err := newApp(approve, log)
		if err != nil {
			return err
		}
		a.Start()
		defer a.Close()

		if local != nil {
			go local.WatchChain(ctx, config.ChainWatchInterval)
		}

		log.Info("console started", "network", runCfg.Network, "contract", a.Contract().Hex())
		if err := ui.RunConsole(ctx, a, approvals); err != nil {
			return fmt.Errorf("running console: %w", err)
		}
		return nil
	},
}
