package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Mohsinsiddi/vaultctl/internal/app"
	"github.com/Mohsinsiddi/vaultctl/internal/chain"
	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/Mohsinsiddi/vaultctl/internal/ens"
	"github.com/Mohsinsiddi/vaultctl/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var withdrawToFlag string

// nameService is implemented by providers that can use ENS.
type nameService interface {
	ResolveName(ctx context.Context, name string) (common.Address, error)
	LookupAddress(ctx context.Context, address common.Address) (string, error)
}

// recipient parses s as an address, or resolves it through ENS.
func recipient(ctx context.Context, a *app.App, s string) (common.Address, error) {
	if common.IsHexAddress(s) {
		return common.HexToAddress(s), nil
	}
	ns, ok := a.Sessions().Provider().(nameService)
	if !ok {
		return common.Address{}, fmt.Errorf("cannot resolve %q: provider has no name service", s)
	}
	rctx, cancel := context.WithTimeout(ctx, config.RPCCallTimeout)
	defer cancel()
	to, err := ns.ResolveName(rctx, s)
	if err != nil {
		return common.Address{}, fmt.Errorf("resolving %s: %w", s, err)
	}
	logger.Info("resolved ENS name", "name", s, "address", to.Hex())
	return to, nil
}

// ensName returns the account's primary ENS name, or "" when it has none.
func ensName(ctx context.Context, a *app.App, account common.Address) string {
	ns, ok := a.Sessions().Provider().(nameService)
	if !ok {
		return ""
	}
	rctx, cancel := context.WithTimeout(ctx, config.RPCCallTimeout)
	defer cancel()
	name, err := ns.LookupAddress(rctx, account)
	if err != nil {
		logger.Debug("no ENS name", "account", account.Hex(), "error", err)
		return ""
	}
	return name
}

// withSession connects the wallet, runs action and reports the first failure.
// Failures are already logged by the app; the error only sets the exit code.
func withSession(cmd *cobra.Command, action func(ctx context.Context, a *app.App) error) (*app.App, error) {
	ctx := cmd.Context()
	a, _, err := newApp(cliApprover(), logger)
	if err != nil {
		return nil, err
	}
	a.Start()
	defer a.Close()

	a.Connect(ctx)
	if err := a.Err(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if action != nil {
		if err := action(ctx, a); err != nil {
			return a, err
		}
		if err := a.Err(); err != nil {
			return a, err
		}
	}
	return a, nil
}

// spin runs fn behind a spinner on stderr.
func spin(msg string, fn func()) {
	s := ui.NewSpinner(os.Stderr, msg)
	s.Start()
	fn()
	s.Stop()
}

func sessionPairs(st app.State) [][2]string {
	return [][2]string{
		{"Account", ui.Addr(st.Account)},
		{"Network", ui.ChainName(st.Network) + ui.Meta(fmt.Sprintf(" (%d)", st.ChainID))},
		{"Balance", ui.Val(st.Balance + " ETH")},
	}
}

func txPairs(a *app.App, st app.State) [][2]string {
	pairs := [][2]string{
		{"Account", ui.Addr(st.Account)},
		{"Balance", ui.Val(st.Balance + " ETH")},
		{"Vault", ui.Addr(a.Contract().Hex())},
		{"Vault balance", ui.Val(st.ContractBalance + " ETH")},
	}
	if st.LastTx != "" {
		pairs = append(pairs, [2]string{"Tx", ui.Addr(st.LastTx)})
		if n, err := chain.NewRegistry().GetByName(st.Network); err == nil {
			if url := n.TxURL(st.LastTx); url != "" {
				pairs = append(pairs, [2]string{"Explorer", ui.Meta(url)})
			}
		}
	}
	return pairs
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect the wallet and show account, network and balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := withSession(cmd, nil)
		if err != nil {
			return err
		}
		st := a.Snapshot()
		pairs := sessionPairs(st)
		if name := ensName(cmd.Context(), a, common.HexToAddress(st.Account)); name != "" {
			pairs = append(pairs, [2]string{"ENS", ui.Val(name)})
		}
		pairs = append(pairs, [2]string{"Vault", ui.Addr(a.Contract().Hex())})
		fmt.Println(ui.Success("Connected: " + ui.ShortAddr(st.Account)))
		fmt.Println(ui.KeyValueBlock("Wallet", pairs))
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the connected account's balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := withSession(cmd, nil)
		if err != nil {
			return err
		}
		fmt.Println(ui.KeyValueBlock("Wallet", sessionPairs(a.Snapshot())))
		return nil
	},
}

var contractBalanceCmd = &cobra.Command{
	Use:   "contract-balance",
	Short: "Show the vault contract's balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := withSession(cmd, func(ctx context.Context, a *app.App) error {
			spin("Reading vault balance...", func() { a.CheckBalance(ctx) })
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Println(ui.KeyValueBlock("Vault", [][2]string{
			{"Address", ui.Addr(a.Contract().Hex())},
			{"Balance", ui.Val(a.Snapshot().ContractBalance + " ETH")},
		}))
		return nil
	},
}

var ownerCmd = &cobra.Command{
	Use:   "owner",
	Short: "Show the vault contract's owner",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := withSession(cmd, func(ctx context.Context, a *app.App) error {
			spin("Reading owner...", func() { a.CheckContractOwner(ctx) })
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Println(ui.KeyValueBlock("Vault", [][2]string{
			{"Address", ui.Addr(a.Contract().Hex())},
			{"Owner", ui.Addr(a.Snapshot().ContractOwner)},
		}))
		return nil
	},
}

var isOwnerCmd = &cobra.Command{
	Use:   "is-owner",
	Short: "Check whether the connected account owns the vault",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := withSession(cmd, func(ctx context.Context, a *app.App) error {
			spin("Checking ownership...", func() { a.CheckIsOwner(ctx) })
			return nil
		})
		if err != nil {
			return err
		}
		st := a.Snapshot()
		if st.IsOwner == "true" {
			fmt.Println(ui.Success(ui.ShortAddr(st.Account) + " owns the vault"))
		} else {
			fmt.Println(ui.Warn(ui.ShortAddr(st.Account) + " is not the vault owner"))
		}
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <amount>",
	Short: "Deposit ETH into the vault",
	Long: `Send <amount> ETH from the connected account to the vault contract and
wait for the transaction to be mined. Both balances are re-read afterwards.

  vaultctl send 0.01`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := chain.ParseEther(args[0]); err != nil {
			return err
		}
		a, err := withSession(cmd, func(ctx context.Context, a *app.App) error {
			a.SetSendAmount(args[0])
			fmt.Fprintln(os.Stderr, ui.Info(fmt.Sprintf("Sending %s ETH to the vault...", args[0])))
			a.Send(ctx)
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Println(ui.Success("Deposit confirmed"))
		fmt.Println(ui.KeyValueBlock("Deposit", txPairs(a, a.Snapshot())))
		return nil
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <amount>",
	Short: "Withdraw ETH from the vault",
	Long: `Call withdraw(to, amount) on the vault and wait for the transaction to be
mined. The recipient is the connected account unless --to is given. The
contract decides who may withdraw; a refused call surfaces as a revert.

  vaultctl withdraw 0.5
  vaultctl withdraw 0.5 --to 0xRecipient
  vaultctl withdraw 0.5 --to treasury.eth`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := chain.ParseEther(args[0]); err != nil {
			return err
		}
		if withdrawToFlag != "" && !ens.IsName(withdrawToFlag) && !common.IsHexAddress(withdrawToFlag) {
			return fmt.Errorf("invalid recipient %q: expected an address or ENS name", withdrawToFlag)
		}

		a, err := withSession(cmd, func(ctx context.Context, a *app.App) error {
			a.SetWithdrawAmount(args[0])
			if withdrawToFlag == "" {
				fmt.Fprintln(os.Stderr, ui.Info(fmt.Sprintf("Withdrawing %s ETH from the vault...", args[0])))
				a.Withdraw(ctx)
				return nil
			}
			to, err := recipient(ctx, a, withdrawToFlag)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, ui.Info(fmt.Sprintf("Withdrawing %s ETH from the vault to %s...", args[0], to.Hex())))
			a.WithdrawTo(ctx, to)
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Println(ui.Success("Withdrawal confirmed"))
		fmt.Println(ui.KeyValueBlock("Withdrawal", txPairs(a, a.Snapshot())))
		return nil
	},
}

func init() {
	withdrawCmd.Flags().StringVar(&withdrawToFlag, "to", "", "recipient address or ENS name (default: connected account)")
}
