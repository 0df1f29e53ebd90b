// Package fakechain is an in-memory wallet provider and vault contract used
// by tests. Contract calls are dispatched through the real vault ABI, so a
// vault.Binding over a fakechain signer exercises the same encoding paths as
// a live node.
package fakechain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/Mohsinsiddi/vaultctl/internal/provider"
	"github.com/Mohsinsiddi/vaultctl/internal/vault"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Operation names accepted by Fail.
const (
	OpRequestAccounts = "RequestAccounts"
	OpNetwork         = "Network"
	OpBalanceAt       = "BalanceAt"
	OpSigner          = "Signer"
	OpSend            = "SendTransaction"
	OpCall            = "Call"
	OpWait            = "Wait"
)

// Withdrawal records one withdraw(to, amount) call as received by the contract.
type Withdrawal struct {
	From   common.Address
	To     common.Address
	Amount *big.Int
}

// Chain is a fake provider plus the vault contract state.
type Chain struct {
	mu          sync.Mutex
	chainID     int64
	network     string
	accounts    []common.Address
	balances    map[common.Address]*big.Int
	vault       common.Address
	owner       common.Address
	approved    map[common.Address]bool
	fail        map[string]error
	rejectConn  bool
	rejectTx    bool
	gate        chan struct{}
	nonce       uint64
	withdrawals []Withdrawal
	calls       map[string]int

	lmu       sync.Mutex
	nextID    int
	listeners map[int]func(*big.Int)
}

// Default accounts.
var (
	Alice = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	Bob   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	Vault = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
)

// Ether is 1e18 wei.
var Ether = big.NewInt(1_000_000_000_000_000_000)

// New returns a chain on sepolia where Alice holds 10 ETH, owns the vault,
// and the vault holds 1 ETH.
func New() *Chain {
	return &Chain{
		chainID:  11155111,
		network:  "sepolia",
		accounts: []common.Address{Alice},
		balances: map[common.Address]*big.Int{
			Alice: new(big.Int).Mul(big.NewInt(10), Ether),
			Vault: new(big.Int).Set(Ether),
		},
		vault:     Vault,
		owner:     Alice,
		approved:  make(map[common.Address]bool),
		fail:      make(map[string]error),
		calls:     make(map[string]int),
		listeners: make(map[int]func(*big.Int)),
	}
}

// --- knobs ---

// SetAccounts replaces the accounts RequestAccounts returns.
func (c *Chain) SetAccounts(accounts ...common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts = accounts
}

// SetOwner changes the vault owner.
func (c *Chain) SetOwner(owner common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owner = owner
}

// SetBalance sets an account's balance in wei.
func (c *Chain) SetBalance(account common.Address, wei *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[account] = new(big.Int).Set(wei)
}

// RejectConnect makes RequestAccounts fail with ErrUserRejected.
func (c *Chain) RejectConnect(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejectConn = v
}

// RejectTx makes SendTransaction fail with ErrUserRejected.
func (c *Chain) RejectTx(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejectTx = v
}

// Fail makes op return err until cleared with a nil err.
func (c *Chain) Fail(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.fail, op)
		return
	}
	c.fail[op] = err
}

// Hold makes every Tx.Wait block until the returned release is called.
func (c *Chain) Hold() (release func()) {
	g := make(chan struct{})
	c.mu.Lock()
	c.gate = g
	c.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			if c.gate == g {
				c.gate = nil
			}
			c.mu.Unlock()
			close(g)
		})
	}
}

// SwitchChain changes the active chain and notifies listeners.
func (c *Chain) SwitchChain(chainID int64, name string) {
	c.mu.Lock()
	c.chainID = chainID
	c.network = name
	c.mu.Unlock()

	c.lmu.Lock()
	fns := make([]func(*big.Int), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.lmu.Unlock()
	for _, fn := range fns {
		fn(big.NewInt(chainID))
	}
}

// --- inspection ---

// Balance returns an account's balance in wei.
func (c *Chain) Balance(account common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balanceLocked(account)
}

// Withdrawals returns the withdraw calls the contract executed.
func (c *Chain) Withdrawals() []Withdrawal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Withdrawal(nil), c.withdrawals...)
}

// Calls returns how often op was invoked.
func (c *Chain) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// Listeners returns the number of registered chain-changed listeners.
func (c *Chain) Listeners() int {
	c.lmu.Lock()
	defer c.lmu.Unlock()
	return len(c.listeners)
}

// Binder binds the real vault ABI binding at the fake vault address.
func (c *Chain) Binder() vault.Binder { return vault.NewBinder(c.vault) }

// Code returns fake dispatcher bytecode for the vault and nothing elsewhere.
func (c *Chain) Code(_ context.Context, address common.Address) ([]byte, error) {
	if address != c.vault {
		return nil, nil
	}
	code := []byte{0x60, 0x80, 0x60, 0x40, 0x52}
	for _, sig := range vault.Signatures {
		sel := vault.Selector(sig)
		code = append(code, 0x63)
		code = append(code, sel[:]...)
	}
	return code, nil
}

// --- provider.Provider ---

func (c *Chain) RequestAccounts(context.Context) ([]common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(OpRequestAccounts); err != nil {
		return nil, err
	}
	if c.rejectConn {
		return nil, provider.ErrUserRejected
	}
	if len(c.accounts) == 0 {
		return nil, provider.ErrNoAccounts
	}
	for _, a := range c.accounts {
		c.approved[a] = true
	}
	return append([]common.Address(nil), c.accounts...), nil
}

func (c *Chain) Network(context.Context) (provider.Network, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(OpNetwork); err != nil {
		return provider.Network{}, err
	}
	return provider.Network{ChainID: c.chainID, Name: c.network}, nil
}

func (c *Chain) BalanceAt(_ context.Context, account common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(OpBalanceAt); err != nil {
		return nil, err
	}
	return c.balanceLocked(account), nil
}

func (c *Chain) Signer(account common.Address) (provider.Signer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(OpSigner); err != nil {
		return nil, err
	}
	if !c.approved[account] {
		return nil, fmt.Errorf("%w: %s", provider.ErrUnknownAccount, account.Hex())
	}
	return &signer{c: c, from: account}, nil
}

func (c *Chain) OnChainChanged(fn func(*big.Int)) func() {
	c.lmu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.lmu.Unlock()
	return func() {
		c.lmu.Lock()
		delete(c.listeners, id)
		c.lmu.Unlock()
	}
}

// enter counts the call and returns any injected failure. c.mu must be held.
func (c *Chain) enter(op string) error {
	c.calls[op]++
	return c.fail[op]
}

func (c *Chain) balanceLocked(a common.Address) *big.Int {
	if b, ok := c.balances[a]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (c *Chain) transferLocked(from, to common.Address, amount *big.Int) error {
	if c.balanceLocked(from).Cmp(amount) < 0 {
		return errors.New("insufficient funds")
	}
	c.balances[from] = new(big.Int).Sub(c.balanceLocked(from), amount)
	c.balances[to] = new(big.Int).Add(c.balanceLocked(to), amount)
	return nil
}

// --- provider.Signer ---

type signer struct {
	c    *Chain
	from common.Address
}

func (s *signer) Address() common.Address { return s.from }

func (s *signer) Call(_ context.Context, to common.Address, data []byte) ([]byte, error) {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(OpCall); err != nil {
		return nil, err
	}
	if to != c.vault {
		return nil, nil
	}

	parsed, err := vault.ABI()
	if err != nil {
		return nil, err
	}
	if len(data) < 4 {
		return nil, errors.New("execution reverted")
	}
	method, err := parsed.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("execution reverted: %w", err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("execution reverted: %w", err)
	}

	switch method.Name {
	case "getBalance":
		return method.Outputs.Pack(c.balanceLocked(c.vault))
	case "owner":
		return method.Outputs.Pack(c.owner)
	case "isOwner":
		return method.Outputs.Pack(args[0].(common.Address) == c.owner)
	default:
		return nil, fmt.Errorf("execution reverted: %s is not a view", method.Name)
	}
}

func (s *signer) SendTransaction(_ context.Context, req provider.TxRequest) (provider.Tx, error) {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(OpSend); err != nil {
		return nil, err
	}
	if c.rejectTx {
		return nil, provider.ErrUserRejected
	}
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	if c.balanceLocked(s.from).Cmp(value) < 0 {
		return nil, errors.New("insufficient funds for transfer")
	}

	c.nonce++
	hash := crypto.Keccak256Hash(s.from.Bytes(), new(big.Int).SetUint64(c.nonce).Bytes(), req.Data)
	return &tx{c: c, hash: hash, from: s.from, req: provider.TxRequest{To: req.To, Value: value, Data: req.Data}, block: c.nonce}, nil
}

// --- provider.Tx ---

type tx struct {
	c     *Chain
	hash  common.Hash
	from  common.Address
	req   provider.TxRequest
	block uint64

	once    sync.Once
	receipt *provider.Receipt
	err     error
}

func (t *tx) Hash() common.Hash { return t.hash }

// Wait executes the transaction against the ledger the first time it is called.
func (t *tx) Wait(ctx context.Context) (*provider.Receipt, error) {
	t.c.mu.Lock()
	gate := t.c.gate
	t.c.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	t.once.Do(func() {
		c := t.c
		c.mu.Lock()
		defer c.mu.Unlock()
		if err := c.enter(OpWait); err != nil {
			t.err = err
			return
		}
		status := uint64(1)
		if err := t.execLocked(); err != nil {
			status = 0
		}
		t.receipt = &provider.Receipt{TxHash: t.hash, BlockNumber: t.block, GasUsed: 21000, Status: status}
		if status == 0 {
			t.err = fmt.Errorf("%w: %s", provider.ErrTxReverted, t.hash.Hex())
		}
	})
	return t.receipt, t.err
}

func (t *tx) execLocked() error {
	c := t.c
	if len(t.req.Data) == 0 {
		return c.transferLocked(t.from, t.req.To, t.req.Value)
	}
	if t.req.To != c.vault || len(t.req.Data) < 4 {
		return errors.New("execution reverted")
	}

	parsed, err := vault.ABI()
	if err != nil {
		return err
	}
	method, err := parsed.MethodById(t.req.Data[:4])
	if err != nil || method.Name != "withdraw" {
		return errors.New("unknown method")
	}
	args, err := method.Inputs.Unpack(t.req.Data[4:])
	if err != nil {
		return err
	}
	to, amount := args[0].(common.Address), args[1].(*big.Int)

	c.withdrawals = append(c.withdrawals, Withdrawal{From: t.from, To: to, Amount: new(big.Int).Set(amount)})
	if t.from != c.owner {
		return errors.New("not owner")
	}
	return c.transferLocked(c.vault, to, amount)
}
