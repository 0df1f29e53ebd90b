// Package provider defines the wallet-provider boundary: account access,
// network queries, balances, transaction signing and chain-changed
// notifications. The application only talks to wallets through these
// interfaces so that any wallet backend (or a test fake) can stand in.
package provider

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Errors.
var (
	// ErrProviderAbsent means no wallet provider is available at all.
	ErrProviderAbsent = errors.New("no wallet provider available")
	// ErrUserRejected means the user declined an account or transaction request.
	ErrUserRejected = errors.New("user rejected the request")
	// ErrNoAccounts means the provider has no accounts to offer.
	ErrNoAccounts = errors.New("no accounts available")
	// ErrUnknownAccount means a signer was requested for an account that was never approved.
	ErrUnknownAccount = errors.New("account not authorized")
	// ErrTxReverted means the transaction was mined but failed.
	ErrTxReverted = errors.New("transaction reverted")
)

// Network describes the chain the provider is pointed at.
type Network struct {
	ChainID int64
	Name    string
}

// Provider is the wallet capability surface.
type Provider interface {
	// RequestAccounts asks the wallet for account access.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Network resolves the active network.
	Network(ctx context.Context) (Network, error)
	// BalanceAt returns the native balance of account in base units.
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	// Signer returns a transaction-signing handle for an approved account.
	Signer(account common.Address) (Signer, error)
	// OnChainChanged registers fn for chain-changed notifications and
	// returns the function that removes it.
	OnChainChanged(fn func(chainID *big.Int)) (remove func())
}

// TxRequest is a transaction to be signed and sent.
type TxRequest struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// Signer approves and submits transactions for one account.
type Signer interface {
	Address() common.Address
	SendTransaction(ctx context.Context, req TxRequest) (Tx, error)
	// Call runs a read-only call through the signer's provider.
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// Tx is a submitted transaction.
type Tx interface {
	Hash() common.Hash
	// Wait blocks until the transaction is mined. A reverted transaction
	// returns its receipt together with ErrTxReverted.
	Wait(ctx context.Context) (*Receipt, error)
}

// Receipt is the on-chain result of a mined transaction.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Status      uint64
}

// Approver asks the user to approve a request. It returns false on refusal.
type Approver func(ctx context.Context, prompt string) bool

// AutoApprove approves everything. Only for non-interactive use.
func AutoApprove(context.Context, string) bool { return true }
