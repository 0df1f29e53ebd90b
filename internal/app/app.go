// Package app holds the console's displayed state and one handler per UI
// event. Handlers never return errors: failures are logged, counted and
// leave the displayed state as it was.
package app

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
	"github.com/Mohsinsiddi/vaultctl/internal/metrics"
	"github.com/Mohsinsiddi/vaultctl/internal/provider"
	"github.com/Mohsinsiddi/vaultctl/internal/session"
	"github.com/Mohsinsiddi/vaultctl/internal/vault"
	"github.com/ethereum/go-ethereum/common"
)

// Action names, used as metric labels and log messages.
const (
	ActionConnect       = "connect"
	ActionDisconnect    = "disconnect"
	ActionBalance       = "check_balance"
	ActionIsOwner       = "check_is_owner"
	ActionOwner         = "check_owner"
	ActionSend          = "send"
	ActionWithdraw      = "withdraw"
	ActionSwitchNetwork = "switch_network"
	ActionNetworkChange = "network_changed"
)

// DefaultAmount is the initial and post-write value of both amount inputs.
const DefaultAmount = "0"

var errNoSwitcher = errors.New("network switching not supported by this provider")

// NetworkSwitcher is implemented by providers that can change network on request.
type NetworkSwitcher interface {
	NetworkName() string
	SwitchNetwork(ctx context.Context, name string) error
}

// State is what the console displays. Empty strings mean "not loaded".
type State struct {
	Account         string
	Network         string
	ChainID         int64
	Balance         string
	ContractBalance string
	ContractOwner   string
	IsOwner         string
	SendAmount      string
	WithdrawAmount  string
	TargetNetwork   string
	LastTx          string
	Pending         int
}

// Connected reports whether a wallet account is displayed.
func (s State) Connected() bool { return s.Account != "" }

// Options configures an App.
type Options struct {
	// Provider is nil when no wallet provider was detected.
	Provider       provider.Provider
	Contract       common.Address
	Logger         *slog.Logger
	CallTimeout    time.Duration
	ConfirmTimeout time.Duration
}

// App wires the session manager and facade to displayed state.
type App struct {
	sessions *session.Manager
	facade   *session.Facade
	provider provider.Provider
	contract common.Address
	registry *chain.Registry
	timeout  time.Duration
	log      *slog.Logger

	mu     sync.Mutex
	state  State
	err    error
	subs   map[int]func(State)
	nextID int
	remove func()
}

// New returns an App. Call Start to subscribe to network changes.
func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := session.NewManager(opts.Provider, vault.NewBinder(opts.Contract), logger)

	a := &App{
		sessions: m,
		facade:   session.NewFacade(m, session.WithConfirmTimeout(opts.ConfirmTimeout), session.WithLogger(logger)),
		provider: opts.Provider,
		contract: opts.Contract,
		registry: chain.NewRegistry(),
		timeout:  opts.CallTimeout,
		log:      logger,
		subs:     make(map[int]func(State)),
		state:    State{SendAmount: DefaultAmount, WithdrawAmount: DefaultAmount},
	}
	if sw, ok := opts.Provider.(NetworkSwitcher); ok {
		a.state.TargetNetwork = sw.NetworkName()
	}
	return a
}

// Sessions exposes the session manager.
func (a *App) Sessions() *session.Manager { return a.sessions }

// Contract returns the vault address.
func (a *App) Contract() common.Address { return a.contract }

// Start installs the chain-changed listener once when a provider is present.
func (a *App) Start() {
	if a.provider == nil {
		a.log.Warn("no wallet provider detected; connect will be unavailable")
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.remove != nil {
		return
	}
	a.remove = a.provider.OnChainChanged(a.onChainChanged)
}

// Close removes the chain-changed listener.
func (a *App) Close() {
	a.mu.Lock()
	remove := a.remove
	a.remove = nil
	a.mu.Unlock()
	if remove != nil {
		remove()
	}
}

// Snapshot returns a copy of the displayed state.
func (a *App) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Err returns the failure of the most recent action, or nil.
func (a *App) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Subscribe calls fn with the new state after every action completes.
func (a *App) Subscribe(fn func(State)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

// update applies fn to the state under the lock.
func (a *App) update(fn func(*State)) {
	a.mu.Lock()
	fn(&a.state)
	a.mu.Unlock()
}

func (a *App) notify() {
	a.mu.Lock()
	st := a.state
	subs := make([]func(State), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.mu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

// run executes one UI action and absorbs its failure.
func (a *App) run(action string, fn func() error) {
	err := fn()

	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
		a.log.Debug("action completed", "action", action)
	case errors.Is(err, session.ErrNoSession), errors.Is(err, session.ErrSessionClosed):
		outcome = metrics.OutcomeSkip
		a.log.Info("action skipped: wallet not connected", "action", action)
	case errors.Is(err, provider.ErrUserRejected):
		outcome = metrics.OutcomeFailed
		a.log.Warn("request rejected in wallet", "action", action)
	default:
		outcome = metrics.OutcomeFailed
		a.log.Error("action failed", "action", action, "error", err)
	}
	metrics.ActionsTotal.WithLabelValues(action, outcome).Inc()

	a.mu.Lock()
	a.err = err
	a.mu.Unlock()
	a.notify()
}

// readCtx bounds a single read call.
func (a *App) readCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (a *App) pending(delta int) {
	a.update(func(s *State) { s.Pending += delta })
	a.notify()
}

func ether(wei *big.Int) string {
	if wei == nil {
		return ""
	}
	return chain.FormatEther(wei)
}
