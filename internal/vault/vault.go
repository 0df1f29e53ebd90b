// Package vault binds the deployed vault contract to a wallet signer.
package vault

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/Mohsinsiddi/vaultctl/internal/provider"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ErrNoSigner is returned when binding without a signer.
var ErrNoSigner = errors.New("vault: signer is required")

// Contract is the method surface of the vault contract.
type Contract interface {
	Address() common.Address
	// GetBalance returns the contract's held balance in wei.
	GetBalance(ctx context.Context) (*big.Int, error)
	IsOwner(ctx context.Context, account common.Address) (bool, error)
	Owner(ctx context.Context) (common.Address, error)
	// Withdraw submits withdraw(to, amount). Authorization is enforced on chain.
	Withdraw(ctx context.Context, to common.Address, amount *big.Int) (provider.Tx, error)
}

// Binder creates a Contract handle bound to signer.
type Binder func(signer provider.Signer) (Contract, error)

// NewBinder returns a Binder for the vault deployed at address.
func NewBinder(address common.Address) Binder {
	return func(signer provider.Signer) (Contract, error) {
		return Bind(address, signer)
	}
}

var (
	parsedOnce sync.Once
	parsedABI  abi.ABI
	parseErr   error
)

// ABI returns the parsed vault ABI.
func ABI() (abi.ABI, error) {
	parsedOnce.Do(func() {
		parsedABI, parseErr = abi.JSON(strings.NewReader(vaultABIJSON))
	})
	return parsedABI, parseErr
}

// Binding is a Contract that packs calls with the vault ABI and sends them
// through a provider.Signer.
type Binding struct {
	address common.Address
	signer  provider.Signer
	abi     abi.ABI
}

// Bind returns a Binding for address using signer.
func Bind(address common.Address, signer provider.Signer) (*Binding, error) {
	if signer == nil {
		return nil, ErrNoSigner
	}
	parsed, err := ABI()
	if err != nil {
		return nil, fmt.Errorf("parsing vault ABI: %w", err)
	}
	return &Binding{address: address, signer: signer, abi: parsed}, nil
}

func (b *Binding) Address() common.Address { return b.address }

// Signer returns the signer the binding sends through.
func (b *Binding) Signer() provider.Signer { return b.signer }

func (b *Binding) GetBalance(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	if err := b.call(ctx, &out, "getBalance"); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Binding) IsOwner(ctx context.Context, account common.Address) (bool, error) {
	var out bool
	if err := b.call(ctx, &out, "isOwner", account); err != nil {
		return false, err
	}
	return out, nil
}

func (b *Binding) Owner(ctx context.Context) (common.Address, error) {
	var out common.Address
	if err := b.call(ctx, &out, "owner"); err != nil {
		return common.Address{}, err
	}
	return out, nil
}

func (b *Binding) Withdraw(ctx context.Context, to common.Address, amount *big.Int) (provider.Tx, error) {
	data, err := b.abi.Pack("withdraw", to, amount)
	if err != nil {
		return nil, fmt.Errorf("encoding withdraw: %w", err)
	}
	tx, err := b.signer.SendTransaction(ctx, provider.TxRequest{To: b.address, Data: data})
	if err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	return tx, nil
}

// call runs a view method and unpacks its single return value into out.
func (b *Binding) call(ctx context.Context, out interface{}, method string, args ...interface{}) error {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", method, err)
	}
	raw, err := b.signer.Call(ctx, b.address, data)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("%s: empty result (no contract at %s?)", method, b.address.Hex())
	}
	if err := b.abi.UnpackIntoInterface(out, method, raw); err != nil {
		return fmt.Errorf("decoding %s: %w", method, err)
	}
	return nil
}
