package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Mohsinsiddi/vaultctl/internal/app"
	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/Mohsinsiddi/vaultctl/internal/provider"
	"github.com/Mohsinsiddi/vaultctl/internal/rpc"
	"github.com/Mohsinsiddi/vaultctl/internal/ui"
	"github.com/Mohsinsiddi/vaultctl/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

var errNoContract = errors.New("no vault contract configured")

// contractAddress returns the configured vault address.
func contractAddress() (common.Address, error) {
	if runCfg.Contract == "" {
		return common.Address{}, fmt.Errorf("%w\n  Set one with: vaultctl config set contract 0x...", errNoContract)
	}
	if !common.IsHexAddress(runCfg.Contract) {
		return common.Address{}, fmt.Errorf("invalid contract address %q", runCfg.Contract)
	}
	return common.HexToAddress(runCfg.Contract), nil
}

// newWalletManager opens the wallet store and the OS keychain.
func newWalletManager() (*wallet.Manager, error) {
	ks, err := wallet.OpenKeystore(cfg.Dir())
	if err != nil {
		return nil, err
	}
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeystore(ks),
	), nil
}

// cliApprover asks on the terminal unless --yes was given.
func cliApprover() provider.Approver {
	if yes {
		return provider.AutoApprove
	}
	return ui.PromptApprover(os.Stdin, os.Stderr)
}

// newApp wires the local provider into an App. The returned provider is nil
// when no signing wallet is configured; the App then runs without one and
// connect fails with ErrProviderAbsent.
func newApp(approve provider.Approver, log *slog.Logger) (*app.App, *provider.Local, error) {
	addr, err := contractAddress()
	if err != nil {
		return nil, nil, err
	}
	mgr, err := newWalletManager()
	if err != nil {
		return nil, nil, err
	}

	local, err := provider.Detect(provider.LocalConfig{
		Wallets:      mgr,
		WalletName:   runCfg.DefaultWallet,
		Network:      runCfg.Network,
		CustomRPCs:   runCfg.CustomRPCs,
		Algorithm:    rpc.ParseAlgorithm(runCfg.RPCAlgorithm),
		RateLimit:    runCfg.RPCRateLimit,
		PollInterval: runCfg.PollIntervalDuration(),
		Approve:      approve,
		Logger:       log,
	})

	// A nil *Local must not end up inside the Provider interface.
	var p provider.Provider
	switch {
	case err == nil:
		p = local
	case errors.Is(err, provider.ErrProviderAbsent):
		log.Warn("no signing wallet available", "error", err)
		local = nil
	default:
		return nil, nil, err
	}

	a := app.New(app.Options{
		Provider:       p,
		Contract:       addr,
		Logger:         log,
		CallTimeout:    config.RPCCallTimeout,
		ConfirmTimeout: runCfg.ConfirmTimeoutDuration(),
	})
	return a, local, nil
}

func errorLine(err error) string {
	if errors.Is(err, provider.ErrProviderAbsent) {
		return ui.Err(err.Error()) + "\n" + ui.Hint("Add a signing wallet with: vaultctl wallet add <name> --key <private-key>")
	}
	return ui.Err(err.Error())
}
