package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
	"github.com/Mohsinsiddi/vaultctl/internal/metrics"
	"github.com/Mohsinsiddi/vaultctl/internal/provider"
	"github.com/ethereum/go-ethereum/common"
)

// Balances are the values re-queried after a write. A nil balance means
// that refresh failed.
type Balances struct {
	TxHash   common.Hash
	Account  *big.Int
	Contract *big.Int
}

// Facade issues vault calls on behalf of the active session.
type Facade struct {
	sessions       *Manager
	confirmTimeout time.Duration
	log            *slog.Logger
}

// FacadeOption configures a Facade.
type FacadeOption func(*Facade)

// WithConfirmTimeout bounds how long a write waits for its receipt.
func WithConfirmTimeout(d time.Duration) FacadeOption {
	return func(f *Facade) { f.confirmTimeout = d }
}

// WithLogger sets the facade logger.
func WithLogger(l *slog.Logger) FacadeOption {
	return func(f *Facade) { f.log = l }
}

// NewFacade returns a Facade over m's sessions.
func NewFacade(m *Manager, opts ...FacadeOption) *Facade {
	f := &Facade{sessions: m, log: slog.Default()}
	for _, o := range opts {
		o(f)
	}
	return f
}

// live returns the active session or the reason there is none.
func (f *Facade) live() (*Session, error) {
	s := f.sessions.Active()
	if s == nil {
		return nil, ErrNoSession
	}
	return s, nil
}

func guard(s *Session) error {
	if !s.Alive() {
		return ErrSessionClosed
	}
	return nil
}

// ContractBalance returns the vault's balance in wei.
func (f *Facade) ContractBalance(ctx context.Context) (*big.Int, error) {
	s, err := f.live()
	if err != nil {
		return nil, err
	}
	return s.contract.GetBalance(ctx)
}

// IsOwner asks the vault whether account is its owner.
func (f *Facade) IsOwner(ctx context.Context, account common.Address) (bool, error) {
	s, err := f.live()
	if err != nil {
		return false, err
	}
	return s.contract.IsOwner(ctx, account)
}

// Owner returns the vault owner.
func (f *Facade) Owner(ctx context.Context) (common.Address, error) {
	s, err := f.live()
	if err != nil {
		return common.Address{}, err
	}
	return s.contract.Owner(ctx)
}

// Deposit sends amount ether from the session account to the vault, waits
// for the receipt and re-queries both balances.
func (f *Facade) Deposit(ctx context.Context, amount string) (Balances, error) {
	s, err := f.live()
	if err != nil {
		return Balances{}, err
	}
	wei, err := parseAmount(amount)
	if err != nil {
		return Balances{}, err
	}

	tx, err := s.signer.SendTransaction(ctx, provider.TxRequest{To: s.contract.Address(), Value: wei})
	if err != nil {
		return Balances{}, fmt.Errorf("deposit: %w", err)
	}
	f.log.Info("deposit submitted", "hash", tx.Hash().Hex(), "amount", chain.FormatEther(wei))
	return f.confirm(ctx, s, tx)
}

// Withdraw calls withdraw(to, amount) on the vault. Authorization is left to
// the contract.
func (f *Facade) Withdraw(ctx context.Context, to common.Address, amount string) (Balances, error) {
	s, err := f.live()
	if err != nil {
		return Balances{}, err
	}
	wei, err := parseAmount(amount)
	if err != nil {
		return Balances{}, err
	}

	tx, err := s.contract.Withdraw(ctx, to, wei)
	if err != nil {
		return Balances{}, err
	}
	f.log.Info("withdraw submitted", "hash", tx.Hash().Hex(), "to", to.Hex(), "amount", chain.FormatEther(wei))
	return f.confirm(ctx, s, tx)
}

// confirm waits for tx and refreshes balances if s is still live.
func (f *Facade) confirm(ctx context.Context, s *Session, tx provider.Tx) (Balances, error) {
	waitCtx := ctx
	if f.confirmTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, f.confirmTimeout)
		defer cancel()
	}

	start := time.Now()
	receipt, err := tx.Wait(waitCtx)
	metrics.TxConfirmSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return Balances{TxHash: tx.Hash()}, fmt.Errorf("waiting for %s: %w", tx.Hash().Hex(), err)
	}
	f.log.Info("transaction confirmed", "hash", receipt.TxHash.Hex(), "block", receipt.BlockNumber, "gas_used", receipt.GasUsed)

	if err := guard(s); err != nil {
		return Balances{TxHash: tx.Hash()}, err
	}
	out, err := f.refresh(ctx, s)
	out.TxHash = tx.Hash()
	return out, err
}

// refresh re-queries the account and contract balances.
func (f *Facade) refresh(ctx context.Context, s *Session) (Balances, error) {
	var out Balances

	acct, err := f.sessions.provider.BalanceAt(ctx, s.account)
	if err != nil {
		return out, fmt.Errorf("refreshing account balance: %w", err)
	}
	s.setBalance(acct)
	out.Account = acct

	if err := guard(s); err != nil {
		return out, err
	}
	contract, err := s.contract.GetBalance(ctx)
	if err != nil {
		return out, fmt.Errorf("refreshing contract balance: %w", err)
	}
	out.Contract = contract
	return out, nil
}

func parseAmount(amount string) (*big.Int, error) {
	wei, err := chain.ParseEther(amount)
	if err != nil {
		return nil, err
	}
	if wei.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q is negative", chain.ErrInvalidAmount, amount)
	}
	return wei, nil
}
