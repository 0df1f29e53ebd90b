package app

import (
	"context"
	"math/big"

	"github.com/Mohsinsiddi/vaultctl/internal/metrics"
	"github.com/Mohsinsiddi/vaultctl/internal/session"
	"github.com/Mohsinsiddi/vaultctl/internal/vault"
	"github.com/ethereum/go-ethereum/common"
)

// Connect requests wallet access and displays the account, network and balance.
func (a *App) Connect(ctx context.Context) {
	a.run(ActionConnect, func() error {
		s, err := a.sessions.Connect(ctx)
		if err != nil {
			return err
		}
		a.showSession(s)
		a.probe(ctx)
		return nil
	})
}

// probe warns when the configured address does not look like the vault.
func (a *App) probe(ctx context.Context) {
	r, ok := a.provider.(vault.CodeReader)
	if !ok {
		return
	}
	pctx, cancel := a.readCtx(ctx)
	defer cancel()
	if err := vault.Probe(pctx, r, a.contract); err != nil {
		a.log.Warn("vault contract check failed", "contract", a.contract.Hex(), "error", err)
	}
}

// Disconnect forgets the session locally.
func (a *App) Disconnect() {
	a.run(ActionDisconnect, func() error {
		a.sessions.Disconnect()
		a.update(func(st *State) {
			st.Account = ""
			st.Network = ""
			st.ChainID = 0
			st.Balance = ""
			st.IsOwner = ""
		})
		return nil
	})
}

// CheckBalance reads the vault balance.
func (a *App) CheckBalance(ctx context.Context) {
	a.run(ActionBalance, func() error {
		rctx, cancel := a.readCtx(ctx)
		defer cancel()
		bal, err := a.facade.ContractBalance(rctx)
		if err != nil {
			return err
		}
		a.update(func(st *State) { st.ContractBalance = ether(bal) })
		return nil
	})
}

// CheckIsOwner asks whether the connected account owns the vault.
func (a *App) CheckIsOwner(ctx context.Context) {
	a.run(ActionIsOwner, func() error {
		s := a.sessions.Active()
		if s == nil {
			return session.ErrNoSession
		}
		rctx, cancel := a.readCtx(ctx)
		defer cancel()
		ok, err := a.facade.IsOwner(rctx, s.Account())
		if err != nil {
			return err
		}
		a.update(func(st *State) {
			st.IsOwner = "false"
			if ok {
				st.IsOwner = "true"
			}
		})
		return nil
	})
}

// CheckContractOwner reads the vault owner.
func (a *App) CheckContractOwner(ctx context.Context) {
	a.run(ActionOwner, func() error {
		rctx, cancel := a.readCtx(ctx)
		defer cancel()
		owner, err := a.facade.Owner(rctx)
		if err != nil {
			return err
		}
		a.update(func(st *State) { st.ContractOwner = owner.Hex() })
		return nil
	})
}

// SetSendAmount stores the send input as typed.
func (a *App) SetSendAmount(v string) {
	a.update(func(st *State) { st.SendAmount = v })
}

// SetWithdrawAmount stores the withdraw input as typed.
func (a *App) SetWithdrawAmount(v string) {
	a.update(func(st *State) { st.WithdrawAmount = v })
}

// Send deposits the send amount into the vault.
func (a *App) Send(ctx context.Context) {
	amount := a.Snapshot().SendAmount
	a.run(ActionSend, func() error {
		a.pending(1)
		defer a.pending(-1)

		bal, err := a.facade.Deposit(ctx, amount)
		a.showBalances(bal)
		if err != nil {
			return err
		}
		a.update(func(st *State) { st.SendAmount = DefaultAmount })
		return nil
	})
}

// Withdraw withdraws the withdraw amount to the connected account.
func (a *App) Withdraw(ctx context.Context) {
	s := a.sessions.Active()
	if s == nil {
		a.run(ActionWithdraw, func() error { return session.ErrNoSession })
		return
	}
	a.WithdrawTo(ctx, s.Account())
}

// WithdrawTo withdraws the withdraw amount to an explicit address.
func (a *App) WithdrawTo(ctx context.Context, to common.Address) {
	amount := a.Snapshot().WithdrawAmount
	a.run(ActionWithdraw, func() error {
		a.pending(1)
		defer a.pending(-1)

		bal, err := a.facade.Withdraw(ctx, to, amount)
		a.showBalances(bal)
		if err != nil {
			return err
		}
		a.update(func(st *State) { st.WithdrawAmount = DefaultAmount })
		return nil
	})
}

// SwitchNetwork moves the provider to the next registry network. The
// chain-changed listener refreshes the session afterwards.
func (a *App) SwitchNetwork(ctx context.Context) {
	a.run(ActionSwitchNetwork, func() error {
		sw, ok := a.provider.(NetworkSwitcher)
		if !ok {
			return errNoSwitcher
		}
		next := a.registry.Next(sw.NetworkName())
		if err := sw.SwitchNetwork(ctx, next.Name); err != nil {
			return err
		}
		a.update(func(st *State) { st.TargetNetwork = next.Name })
		return nil
	})
}

// onChainChanged is the provider's chain-changed listener.
func (a *App) onChainChanged(chainID *big.Int) {
	metrics.NetworkChanges.Inc()
	a.run(ActionNetworkChange, func() error {
		ctx, cancel := a.readCtx(context.Background())
		defer cancel()

		if sw, ok := a.provider.(NetworkSwitcher); ok {
			a.update(func(st *State) { st.TargetNetwork = sw.NetworkName() })
		}
		s, ok, err := a.sessions.OnNetworkChanged(ctx, chainID)
		if err != nil || !ok {
			return err
		}
		a.showSession(s)
		return nil
	})
}

func (a *App) showSession(s *session.Session) {
	n := s.Network()
	bal := s.Balance()
	a.update(func(st *State) {
		st.Account = s.Account().Hex()
		st.Network = n.Name
		st.ChainID = n.ChainID
		st.Balance = ether(bal)
	})
}

// showBalances writes whichever balances were refreshed.
func (a *App) showBalances(b session.Balances) {
	a.update(func(st *State) {
		if b.TxHash != (common.Hash{}) {
			st.LastTx = b.TxHash.Hex()
		}
		if b.Account != nil {
			st.Balance = ether(b.Account)
		}
		if b.Contract != nil {
			st.ContractBalance = ether(b.Contract)
		}
	})
}
