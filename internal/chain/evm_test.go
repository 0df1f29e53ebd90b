package chain

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// rpcMock creates a test HTTP server that serves a fixed JSON-RPC response
// per method. Pass method→result pairs; any unknown method returns an RPC error.
func rpcMock(t *testing.T, responses map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     int    `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if result, ok := responses[req.Method]; ok {
			json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  result,
			})
		} else {
			json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]interface{}{"code": -32601, "message": "method not found"},
			})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// rpcBadJSON creates a server that returns malformed JSON.
func rpcBadJSON(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{not valid json`)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

var testAddr = common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")

// ---------------------------------------------------------------------------
// reads
// ---------------------------------------------------------------------------

func TestGetBalanceSuccess(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getBalance": "0xde0b6b3a7640000"})
	bal, err := NewEVMClient(srv.URL).GetBalance(context.Background(), testAddr)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", bal.String())
}

func TestGetBalanceZero(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getBalance": "0x0"})
	bal, err := NewEVMClient(srv.URL).GetBalance(context.Background(), testAddr)
	require.NoError(t, err)
	assert.Equal(t, 0, bal.Sign())
}

func TestGetBalanceRPCError(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{})
	_, err := NewEVMClient(srv.URL).GetBalance(context.Background(), testAddr)
	require.Error(t, err)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32601, rpcErr.Code)
}

func TestGetBalanceConnectionRefused(t *testing.T) {
	_, err := NewEVMClient("http://127.0.0.1:1").GetBalance(context.Background(), testAddr)
	assert.Error(t, err)
}

func TestGetBalanceInvalidJSON(t *testing.T) {
	srv := rpcBadJSON(t)
	_, err := NewEVMClient(srv.URL).GetBalance(context.Background(), testAddr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing response")
}

func TestChainIDSepolia(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_chainId": "0xaa36a7"})
	id, err := NewEVMClient(srv.URL).ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(11155111), id)
}

func TestGetBlockNumberSuccess(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_blockNumber": "0x10"})
	n, err := NewEVMClient(srv.URL).GetBlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(16), n)
}

func TestGetPendingNonce(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getTransactionCount": "0x7"})
	n, err := NewEVMClient(srv.URL).GetPendingNonce(context.Background(), testAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n)
}

func TestEstimateGas(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_estimateGas": "0x5208"})
	gas, err := NewEVMClient(srv.URL).EstimateGas(context.Background(), testAddr, testAddr, nil, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(21000), gas)
}

func TestCallContractReturnsBytes(t *testing.T) {
	word := "0x0000000000000000000000000000000000000000000000000000000000000064"
	srv := rpcMock(t, map[string]interface{}{"eth_call": word})
	out, err := NewEVMClient(srv.URL).CallContract(context.Background(), testAddr, testAddr, []byte{0x12, 0x06, 0x5f, 0xe0})
	require.NoError(t, err)
	require.Len(t, out, 32)
	assert.Equal(t, byte(0x64), out[31])
}

func TestGetCodeEmpty(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getCode": "0x"})
	code, err := NewEVMClient(srv.URL).GetCode(context.Background(), testAddr)
	require.NoError(t, err)
	assert.Empty(t, code)
}

// ---------------------------------------------------------------------------
// writes and receipts
// ---------------------------------------------------------------------------

func TestSendRawTransactionSuccess(t *testing.T) {
	hash := "0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b"
	srv := rpcMock(t, map[string]interface{}{"eth_sendRawTransaction": hash})
	got, err := NewEVMClient(srv.URL).SendRawTransaction(context.Background(), []byte{0x02, 0xf8})
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash(hash), got)
}

func TestGetTransactionReceiptPending(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getTransactionReceipt": nil})
	r, err := NewEVMClient(srv.URL).GetTransactionReceipt(context.Background(), common.Hash{1})
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestGetTransactionReceiptMined(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getTransactionReceipt": map[string]interface{}{
		"status":      "0x1",
		"blockNumber": "0x2a",
		"gasUsed":     "0x5208",
	}})
	r, err := NewEVMClient(srv.URL).GetTransactionReceipt(context.Background(), common.Hash{1})
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, uint64(1), r.Status)
	assert.Equal(t, uint64(42), r.BlockNumber)
	assert.Equal(t, uint64(21000), r.GasUsed)
}

func TestWaitForReceiptPollsUntilMined(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var result interface{}
		if calls.Add(1) >= 3 {
			result = map[string]interface{}{"status": "0x1", "blockNumber": "0x1", "gasUsed": "0x1"}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": result}) //nolint:errcheck
	}))
	defer srv.Close()

	r, err := NewEVMClient(srv.URL).WaitForReceipt(context.Background(), common.Hash{1}, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.Status)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestWaitForReceiptTimeout(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getTransactionReceipt": nil})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := NewEVMClient(srv.URL).WaitForReceipt(ctx, common.Hash{1}, 5*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTxNotMined) || errors.Is(err, context.DeadlineExceeded))
}

// ---------------------------------------------------------------------------
// rate limiting
// ---------------------------------------------------------------------------

func TestRateLimitSpacesRequests(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_blockNumber": "0x1"})
	c := NewEVMClient(srv.URL, WithRateLimit(20))

	start := time.Now()
	for i := 0; i < 25; i++ {
		_, err := c.GetBlockNumber(context.Background())
		require.NoError(t, err)
	}
	// burst of 20, then 5 more at 20/s ≈ 250ms.
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestRateLimitHonoursContext(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_blockNumber": "0x1"})
	c := NewEVMClient(srv.URL, WithRateLimit(0.5))

	_, err := c.GetBlockNumber(context.Background()) // consumes the single token
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.GetBlockNumber(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestPingReportsBlock(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_blockNumber": "0x64"})
	latency, block, err := NewEVMClient(srv.URL).Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), block)
	assert.Greater(t, latency, time.Duration(0))
}
