// Package session owns the wallet session lifecycle and the contract facade
// that is only usable while a session is live.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/Mohsinsiddi/vaultctl/internal/provider"
	"github.com/Mohsinsiddi/vaultctl/internal/vault"
	"github.com/ethereum/go-ethereum/common"
)

// Errors.
var (
	ErrNoSession     = errors.New("no active wallet session")
	ErrSessionClosed = errors.New("wallet session closed")
)

// Session is one live wallet connection. Once closed it stays closed.
type Session struct {
	account  common.Address
	signer   provider.Signer
	contract vault.Contract
	closed   atomic.Bool

	mu      sync.RWMutex
	network provider.Network
	balance *big.Int
}

func (s *Session) Account() common.Address  { return s.account }
func (s *Session) Signer() provider.Signer  { return s.signer }
func (s *Session) Contract() vault.Contract { return s.contract }

// Alive reports whether the session has not been disconnected or replaced.
func (s *Session) Alive() bool { return !s.closed.Load() }

func (s *Session) Network() provider.Network {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.network
}

// Balance returns the last fetched native balance of the account.
func (s *Session) Balance() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.balance)
}

func (s *Session) setNetwork(n provider.Network) {
	s.mu.Lock()
	s.network = n
	s.mu.Unlock()
}

func (s *Session) setBalance(b *big.Int) {
	s.mu.Lock()
	s.balance = new(big.Int).Set(b)
	s.mu.Unlock()
}

func (s *Session) close() { s.closed.Store(true) }

// Manager creates, replaces and clears the active session.
type Manager struct {
	provider provider.Provider
	bind     vault.Binder
	log      *slog.Logger

	mu     sync.Mutex
	active *Session
}

// NewManager returns a Manager. p may be nil when no wallet provider is present.
func NewManager(p provider.Provider, bind vault.Binder, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{provider: p, bind: bind, log: logger}
}

// Provider returns the wallet provider, or nil when absent.
func (m *Manager) Provider() provider.Provider { return m.provider }

// Active returns the live session, or nil.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || !m.active.Alive() {
		return nil
	}
	return m.active
}

// Connect requests account access and builds a new session around the first
// account. On failure the previous session, if any, is left in place.
func (m *Manager) Connect(ctx context.Context) (*Session, error) {
	if m.provider == nil {
		return nil, provider.ErrProviderAbsent
	}

	accounts, err := m.provider.RequestAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("requesting accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, provider.ErrNoAccounts
	}
	account := accounts[0]

	network, err := m.provider.Network(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving network: %w", err)
	}
	signer, err := m.provider.Signer(account)
	if err != nil {
		return nil, fmt.Errorf("acquiring signer: %w", err)
	}
	balance, err := m.provider.BalanceAt(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("fetching balance: %w", err)
	}
	contract, err := m.bind(signer)
	if err != nil {
		return nil, fmt.Errorf("binding contract: %w", err)
	}

	s := &Session{
		account:  account,
		signer:   signer,
		contract: contract,
		network:  network,
		balance:  new(big.Int).Set(balance),
	}

	m.mu.Lock()
	prev := m.active
	m.active = s
	m.mu.Unlock()
	if prev != nil {
		prev.close()
	}

	m.log.Info("wallet connected", "account", account.Hex(), "network", network.Name, "chain_id", network.ChainID)
	return s, nil
}

// Disconnect closes and forgets the active session. The provider is not called.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	s := m.active
	m.active = nil
	m.mu.Unlock()
	if s != nil {
		s.close()
		m.log.Info("wallet disconnected", "account", s.account.Hex())
	}
}

// OnNetworkChanged refreshes network metadata and balance of the active
// session. It reports false without a session.
func (m *Manager) OnNetworkChanged(ctx context.Context, chainID *big.Int) (*Session, bool, error) {
	s := m.Active()
	if s == nil {
		return nil, false, nil
	}

	network, err := m.provider.Network(ctx)
	if err != nil {
		return s, false, fmt.Errorf("resolving network: %w", err)
	}
	if chainID != nil && chainID.Int64() != network.ChainID {
		m.log.Warn("network changed again during refresh", "notified", chainID, "resolved", network.ChainID)
	}
	balance, err := m.provider.BalanceAt(ctx, s.account)
	if err != nil {
		return s, false, fmt.Errorf("fetching balance: %w", err)
	}
	if !s.Alive() {
		return nil, false, ErrSessionClosed
	}

	s.setNetwork(network)
	s.setBalance(balance)
	m.log.Info("network changed", "network", network.Name, "chain_id", network.ChainID)
	return s, true, nil
}
