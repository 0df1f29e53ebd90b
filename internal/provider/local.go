package provider

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/Mohsinsiddi/vaultctl/internal/ens"
	"github.com/Mohsinsiddi/vaultctl/internal/rpc"
	"github.com/Mohsinsiddi/vaultctl/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// LocalConfig configures a Local provider.
type LocalConfig struct {
	Wallets      *wallet.Manager
	WalletName   string // empty = default wallet
	Network      string // registry name
	CustomRPCs   map[string][]string
	Algorithm    rpc.Algorithm
	RateLimit    float64 // requests per second, 0 = unlimited
	PollInterval time.Duration
	Approve      Approver
	Logger       *slog.Logger
}

// Local is a wallet provider backed by the local wallet store and keychain,
// talking JSON-RPC to the selected network.
type Local struct {
	wallets    *wallet.Manager
	walletName string
	registry   *chain.Registry
	selector   *rpc.Selector
	custom     map[string][]string
	clientOpts []chain.ClientOption
	approve    Approver
	poll       time.Duration
	log        *slog.Logger

	mu          sync.RWMutex
	network     string
	client      *chain.EVMClient
	lastChainID int64
	approved    map[common.Address]*wallet.Wallet

	listeners listeners
}

// Detect returns a Local provider, or ErrProviderAbsent when there is no
// signing wallet to offer. Detection does no network I/O.
func Detect(cfg LocalConfig) (*Local, error) {
	if cfg.Wallets == nil {
		return nil, ErrProviderAbsent
	}
	if _, err := cfg.Wallets.Resolve(cfg.WalletName); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderAbsent, err)
	}

	reg := chain.NewRegistry()
	if _, err := reg.GetByName(cfg.Network); err != nil {
		return nil, fmt.Errorf("network %q: %w", cfg.Network, err)
	}

	if cfg.Approve == nil {
		cfg.Approve = AutoApprove
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = config.ReceiptPollDefault
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	opts := []chain.ClientOption{chain.WithRateLimit(cfg.RateLimit)}

	return &Local{
		wallets:    cfg.Wallets,
		walletName: cfg.WalletName,
		registry:   reg,
		selector:   rpc.NewSelector(cfg.Algorithm, opts...),
		custom:     cfg.CustomRPCs,
		clientOpts: opts,
		approve:    cfg.Approve,
		poll:       cfg.PollInterval,
		log:        cfg.Logger,
		network:    cfg.Network,
		approved:   make(map[common.Address]*wallet.Wallet),
	}, nil
}

// RequestAccounts asks the user to expose the configured wallet.
func (p *Local) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	w, err := p.wallets.Resolve(p.walletName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAccounts, err)
	}
	if !p.approve(ctx, fmt.Sprintf("Connect wallet %q (%s)?", w.Name, w.Address.Hex())) {
		return nil, ErrUserRejected
	}

	p.mu.Lock()
	p.approved[w.Address] = w
	p.mu.Unlock()
	return []common.Address{w.Address}, nil
}

// Network resolves the chain the current RPC endpoint serves.
func (p *Local) Network(ctx context.Context) (Network, error) {
	c, err := p.current(ctx)
	if err != nil {
		return Network{}, err
	}
	id, err := c.ChainID(ctx)
	if err != nil {
		return Network{}, fmt.Errorf("querying chain id: %w", err)
	}
	p.mu.Lock()
	p.lastChainID = id
	p.mu.Unlock()
	return Network{ChainID: id, Name: p.registry.NameOf(id)}, nil
}

// BalanceAt returns account's native balance in wei.
func (p *Local) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	c, err := p.current(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetBalance(ctx, account)
}

// Code returns the bytecode deployed at address on the current network.
func (p *Local) Code(ctx context.Context, address common.Address) ([]byte, error) {
	c, err := p.current(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetCode(ctx, address)
}

// Signer returns a signing handle for an account approved by RequestAccounts.
func (p *Local) Signer(account common.Address) (Signer, error) {
	p.mu.RLock()
	w, ok := p.approved[account]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, account.Hex())
	}
	return &localSigner{p: p, w: w, signer: wallet.NewSigner(w, p.wallets.Keystore())}, nil
}

// ResolveName resolves an ENS name on the current network.
func (p *Local) ResolveName(ctx context.Context, name string) (common.Address, error) {
	c, err := p.current(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return ens.Resolve(ctx, c, name)
}

// LookupAddress returns the primary ENS name of address on the current network.
func (p *Local) LookupAddress(ctx context.Context, address common.Address) (string, error) {
	c, err := p.current(ctx)
	if err != nil {
		return "", err
	}
	return ens.ReverseLookup(ctx, c, address)
}

// OnChainChanged registers fn for chain-changed notifications.
func (p *Local) OnChainChanged(fn func(chainID *big.Int)) func() {
	return p.listeners.add(fn)
}

// NetworkName returns the registry name the provider is targeting.
func (p *Local) NetworkName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.network
}

// SwitchNetwork re-targets the provider at another registry network and
// notifies chain-changed listeners.
func (p *Local) SwitchNetwork(ctx context.Context, name string) error {
	c, err := p.dial(ctx, name)
	if err != nil {
		return err
	}
	id, err := c.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("querying chain id on %s: %w", name, err)
	}

	p.mu.Lock()
	p.client = c
	p.network = name
	p.lastChainID = id
	p.mu.Unlock()

	p.log.Info("switched network", "network", name, "chain_id", id, "rpc", c.URL())
	p.listeners.fire(big.NewInt(id))
	return nil
}

// WatchChain polls eth_chainId every interval and notifies listeners when
// the endpoint starts serving a different chain. It returns when ctx is done.
func (p *Local) WatchChain(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c, err := p.current(ctx)
		if err != nil {
			p.log.Debug("chain watch: no client", "error", err)
			continue
		}
		id, err := c.ChainID(ctx)
		if err != nil {
			p.log.Debug("chain watch: chain id query failed", "error", err)
			continue
		}

		p.mu.Lock()
		prev := p.lastChainID
		p.lastChainID = id
		if prev != 0 && prev != id {
			if n, err := p.registry.GetByChainID(id); err == nil {
				p.network = n.Name
			}
		}
		p.mu.Unlock()

		if prev != 0 && prev != id {
			p.log.Info("endpoint chain changed", "from", prev, "to", id)
			p.listeners.fire(big.NewInt(id))
		}
	}
}

// current returns the live client, dialing the configured network on first use.
func (p *Local) current(ctx context.Context) (*chain.EVMClient, error) {
	p.mu.RLock()
	c, name := p.client, p.network
	p.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	c, err := p.dial(ctx, name)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		p.client = c
	}
	return p.client, nil
}

func (p *Local) dial(ctx context.Context, name string) (*chain.EVMClient, error) {
	n, err := p.registry.GetByName(name)
	if err != nil {
		return nil, fmt.Errorf("network %q: %w", name, err)
	}
	urls := append(append([]string{}, p.custom[n.Name]...), n.RPCs...)

	selectCtx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	defer cancel()
	url, err := p.selector.Select(selectCtx, urls)
	if err != nil {
		return nil, fmt.Errorf("selecting RPC for %s: %w", n.Name, err)
	}
	p.log.Debug("selected RPC", "network", n.Name, "url", url)
	return chain.NewEVMClient(url, p.clientOpts...), nil
}

// --- signer ---

type localSigner struct {
	p      *Local
	w      *wallet.Wallet
	signer *wallet.Signer
}

func (s *localSigner) Address() common.Address { return s.w.Address }

func (s *localSigner) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	c, err := s.p.current(ctx)
	if err != nil {
		return nil, err
	}
	return c.CallContract(ctx, s.w.Address, to, data)
}

func (s *localSigner) SendTransaction(ctx context.Context, req TxRequest) (Tx, error) {
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("negative transaction value %s", value)
	}

	c, err := s.p.current(ctx)
	if err != nil {
		return nil, err
	}
	chainID, err := c.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying chain id: %w", err)
	}

	if !s.p.approve(ctx, describeTx(s.w, req.To, value, req.Data, s.p.registry.NameOf(chainID))) {
		return nil, ErrUserRejected
	}

	from := s.w.Address
	nonce, err := c.GetPendingNonce(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("getting nonce: %w", err)
	}
	gasPrice, err := c.GasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting gas price: %w", err)
	}
	gas, err := c.EstimateGas(ctx, from, req.To, req.Data, value)
	if err != nil {
		gas = config.GasLimitContractCall
		if len(req.Data) == 0 {
			if code, cerr := c.GetCode(ctx, req.To); cerr == nil && len(code) == 0 {
				gas = config.GasLimitETHTransfer
			}
		}
		s.p.log.Warn("gas estimation failed, using fallback", "gas", gas, "error", err)
	}

	to := req.To
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(chainID),
		Nonce:     nonce,
		GasTipCap: gasPrice,
		GasFeeCap: new(big.Int).Mul(gasPrice, big.NewInt(2)),
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      req.Data,
	})

	signed, err := s.signer.SignTx(tx, big.NewInt(chainID))
	if err != nil {
		return nil, err
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshaling signed tx: %w", err)
	}
	hash, err := c.SendRawTransaction(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("broadcasting transaction: %w", err)
	}

	s.p.log.Info("transaction sent", "hash", hash.Hex(), "to", to.Hex(), "value", chain.FormatEther(value), "nonce", nonce)
	return &pendingTx{hash: hash, client: c, poll: s.p.poll}, nil
}

func describeTx(w *wallet.Wallet, to common.Address, value *big.Int, data []byte, network string) string {
	if len(data) >= 4 {
		return fmt.Sprintf("Sign contract call 0x%x on %s from %q to %s (value %s)?",
			data[:4], network, w.Name, to.Hex(), chain.FormatEther(value))
	}
	return fmt.Sprintf("Send %s from %q to %s on %s?", chain.FormatEther(value), w.Name, to.Hex(), network)
}

// --- pending transaction ---

type pendingTx struct {
	hash   common.Hash
	client *chain.EVMClient
	poll   time.Duration
}

func (t *pendingTx) Hash() common.Hash { return t.hash }

func (t *pendingTx) Wait(ctx context.Context) (*Receipt, error) {
	r, err := t.client.WaitForReceipt(ctx, t.hash, t.poll)
	if err != nil {
		return nil, err
	}
	receipt := &Receipt{TxHash: r.Hash, BlockNumber: r.BlockNumber, GasUsed: r.GasUsed, Status: r.Status}
	if r.Status == 0 {
		return receipt, fmt.Errorf("%w: %s", ErrTxReverted, t.hash.Hex())
	}
	return receipt, nil
}
