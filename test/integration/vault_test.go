package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Mohsinsiddi/vaultctl/internal/app"
	"github.com/Mohsinsiddi/vaultctl/internal/provider"
	"github.com/Mohsinsiddi/vaultctl/internal/rpc"
	"github.com/Mohsinsiddi/vaultctl/internal/vault"
	"github.com/Mohsinsiddi/vaultctl/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Anvil account #0. Never fund on mainnet.
const aliceKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	alice     = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob       = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	vaultAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	ether     = big.NewInt(1_000_000_000_000_000_000)
	quiet     = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func eth(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), ether) }

// vaultNode is a JSON-RPC endpoint that executes value transfers and the
// vault's withdraw against in-memory balances. Gas is not charged.
type vaultNode struct {
	chainID      atomic.Int64
	chainIDCalls atomic.Int64

	mu       sync.Mutex
	balances map[common.Address]*big.Int
	owner    common.Address
	nonce    uint64
	receipts map[common.Hash]uint64
}

func newVaultNode(t *testing.T) (*vaultNode, *httptest.Server) {
	t.Helper()
	n := &vaultNode{
		balances: map[common.Address]*big.Int{alice: eth(10), vaultAddr: eth(1)},
		owner:    alice,
		receipts: make(map[common.Hash]uint64),
	}
	n.chainID.Store(31337)
	srv := httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(srv.Close)
	return n, srv
}

func (n *vaultNode) balance(a common.Address) *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if b, ok := n.balances[a]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (n *vaultNode) setOwner(a common.Address) {
	n.mu.Lock()
	n.owner = a
	n.mu.Unlock()
}

// transferLocked moves amount and reports whether from could cover it.
func (n *vaultNode) transferLocked(from, to common.Address, amount *big.Int) bool {
	fb := n.balances[from]
	if fb == nil || fb.Cmp(amount) < 0 {
		return false
	}
	n.balances[from] = new(big.Int).Sub(fb, amount)
	tb := n.balances[to]
	if tb == nil {
		tb = new(big.Int)
	}
	n.balances[to] = new(big.Int).Add(tb, amount)
	return true
}

// execLocked applies tx and returns the receipt status.
func (n *vaultNode) execLocked(tx *types.Transaction) uint64 {
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return 0
	}
	if len(tx.Data()) == 0 {
		if n.transferLocked(from, *tx.To(), tx.Value()) {
			return 1
		}
		return 0
	}

	parsed, _ := vault.ABI()
	m, err := parsed.MethodById(tx.Data()[:4])
	if err != nil || m.Name != "withdraw" || from != n.owner {
		return 0
	}
	args, err := m.Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		return 0
	}
	if n.transferLocked(vaultAddr, args[0].(common.Address), args[1].(*big.Int)) {
		return 1
	}
	return 0
}

func (n *vaultNode) call(data []byte) (hexutil.Bytes, error) {
	parsed, _ := vault.ABI()
	m, err := parsed.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	switch m.Name {
	case "getBalance":
		b := n.balances[vaultAddr]
		if b == nil {
			b = new(big.Int)
		}
		return m.Outputs.Pack(b)
	case "owner":
		return m.Outputs.Pack(n.owner)
	case "isOwner":
		args, err := m.Inputs.Unpack(data[4:])
		if err != nil {
			return nil, err
		}
		return m.Outputs.Pack(args[0].(common.Address) == n.owner)
	}
	return nil, nil
}

func (n *vaultNode) code() hexutil.Bytes {
	var code []byte
	for _, sig := range vault.Signatures {
		sel := vault.Selector(sig)
		code = append(code, 0x63)
		code = append(code, sel[:]...)
	}
	return code
}

func (n *vaultNode) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
		ID     int               `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var (
		result interface{}
		rpcErr map[string]interface{}
	)
	fail := func(err error) {
		rpcErr = map[string]interface{}{"code": -32000, "message": err.Error()}
	}

	switch req.Method {
	case "eth_chainId":
		n.chainIDCalls.Add(1)
		result = hexutil.EncodeUint64(uint64(n.chainID.Load()))
	case "eth_blockNumber":
		result = "0x10"
	case "eth_gasPrice":
		result = "0x3b9aca00"
	case "eth_estimateGas":
		result = "0xc350"
	case "eth_getBalance":
		var a common.Address
		_ = json.Unmarshal(req.Params[0], &a)
		result = (*hexutil.Big)(n.balance(a))
	case "eth_getTransactionCount":
		n.mu.Lock()
		result = hexutil.EncodeUint64(n.nonce)
		n.mu.Unlock()
	case "eth_getCode":
		var a common.Address
		_ = json.Unmarshal(req.Params[0], &a)
		if a == vaultAddr {
			result = n.code()
		} else {
			result = "0x"
		}
	case "eth_call":
		var args struct {
			Data hexutil.Bytes `json:"data"`
		}
		_ = json.Unmarshal(req.Params[0], &args)
		out, err := n.call(args.Data)
		if err != nil {
			fail(err)
			break
		}
		result = out
	case "eth_sendRawTransaction":
		var raw hexutil.Bytes
		_ = json.Unmarshal(req.Params[0], &raw)
		tx := new(types.Transaction)
		if err := tx.UnmarshalBinary(raw); err != nil {
			fail(err)
			break
		}
		n.mu.Lock()
		n.nonce++
		n.receipts[tx.Hash()] = n.execLocked(tx)
		n.mu.Unlock()
		result = tx.Hash()
	case "eth_getTransactionReceipt":
		var h common.Hash
		_ = json.Unmarshal(req.Params[0], &h)
		n.mu.Lock()
		status, ok := n.receipts[h]
		n.mu.Unlock()
		if ok {
			result = map[string]interface{}{
				"status":      hexutil.EncodeUint64(status),
				"blockNumber": "0x11",
				"gasUsed":     "0x5208",
			}
		}
	default:
		rpcErr = map[string]interface{}{"code": -32601, "message": "method not found"}
	}

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func setup(t *testing.T) (*vaultNode, *provider.Local, *app.App) {
	t.Helper()
	node, srv := newVaultNode(t)

	mgr := wallet.NewManager()
	_, err := mgr.Add("alice", aliceKey)
	require.NoError(t, err)

	local, err := provider.Detect(provider.LocalConfig{
		Wallets:      mgr,
		Network:      "anvil",
		CustomRPCs:   map[string][]string{"anvil": {srv.URL}},
		Algorithm:    rpc.AlgorithmFailover,
		PollInterval: 10 * time.Millisecond,
		Logger:       quiet,
	})
	require.NoError(t, err)

	a := app.New(app.Options{
		Provider:       local,
		Contract:       vaultAddr,
		Logger:         quiet,
		CallTimeout:    5 * time.Second,
		ConfirmTimeout: 5 * time.Second,
	})
	a.Start()
	t.Cleanup(a.Close)

	a.Connect(context.Background())
	require.NoError(t, a.Err())
	return node, local, a
}

func TestConnectOverJSONRPC(t *testing.T) {
	_, _, a := setup(t)

	st := a.Snapshot()
	assert.Equal(t, alice.Hex(), st.Account)
	assert.Equal(t, "anvil", st.Network)
	assert.Equal(t, int64(31337), st.ChainID)
	assert.Equal(t, "10.0", st.Balance)
}

func TestVaultReads(t *testing.T) {
	_, _, a := setup(t)
	ctx := context.Background()

	a.CheckBalance(ctx)
	require.NoError(t, a.Err())
	a.CheckContractOwner(ctx)
	require.NoError(t, a.Err())
	a.CheckIsOwner(ctx)
	require.NoError(t, a.Err())

	st := a.Snapshot()
	assert.Equal(t, "1.0", st.ContractBalance)
	assert.Equal(t, alice.Hex(), st.ContractOwner)
	assert.Equal(t, "true", st.IsOwner)
}

func TestDepositThenWithdraw(t *testing.T) {
	node, _, a := setup(t)
	ctx := context.Background()

	a.SetSendAmount("0.5")
	a.Send(ctx)
	require.NoError(t, a.Err())

	st := a.Snapshot()
	assert.Equal(t, "1.5", st.ContractBalance)
	assert.Equal(t, "9.5", st.Balance)
	assert.Equal(t, app.DefaultAmount, st.SendAmount)
	assert.NotEmpty(t, st.LastTx)

	a.SetWithdrawAmount("1.25")
	a.Withdraw(ctx)
	require.NoError(t, a.Err())

	st = a.Snapshot()
	assert.Equal(t, "0.25", st.ContractBalance)
	assert.Equal(t, "10.75", st.Balance)
	assert.Equal(t, app.DefaultAmount, st.WithdrawAmount)

	want, _ := new(big.Int).SetString("250000000000000000", 10)
	assert.Equal(t, 0, node.balance(vaultAddr).Cmp(want))
}

func TestWithdrawByNonOwnerReverts(t *testing.T) {
	node, _, a := setup(t)
	node.setOwner(bob)

	a.SetWithdrawAmount("0.5")
	a.Withdraw(context.Background())

	assert.ErrorIs(t, a.Err(), provider.ErrTxReverted)
	assert.Equal(t, 0, node.balance(vaultAddr).Cmp(eth(1)))
	assert.Equal(t, "0.5", a.Snapshot().WithdrawAmount)
}

func TestEndpointChainChangeRefreshesSession(t *testing.T) {
	node, local, a := setup(t)

	changed := make(chan app.State, 1)
	unsubscribe := a.Subscribe(func(st app.State) {
		if st.Network == "sepolia" {
			select {
			case changed <- st:
			default:
			}
		}
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go local.WatchChain(ctx, 10*time.Millisecond)

	// Let the watcher record the current chain before switching it.
	before := node.chainIDCalls.Load()
	require.Eventually(t, func() bool { return node.chainIDCalls.Load() > before+1 },
		2*time.Second, 5*time.Millisecond)
	node.chainID.Store(11155111)

	select {
	case st := <-changed:
		assert.Equal(t, int64(11155111), st.ChainID)
		assert.Equal(t, alice.Hex(), st.Account)
	case <-time.After(3 * time.Second):
		t.Fatal("session was not refreshed after the chain changed")
	}
}
