package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/Mohsinsiddi/vaultctl/internal/metrics"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/time/rate"
)

// ErrTxNotMined is returned by WaitForReceipt when the context expires first.
var ErrTxNotMined = errors.New("transaction not mined")

// EVMClient is a minimal JSON-RPC client for EVM chains.
type EVMClient struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// ClientOption configures an EVMClient.
type ClientOption func(*EVMClient)

// WithRateLimit caps outgoing requests at rps per second. Zero disables the cap.
func WithRateLimit(rps float64) ClientOption {
	return func(c *EVMClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *EVMClient) { c.client = hc }
}

// NewEVMClient creates a new EVM JSON-RPC client pointed at url.
func NewEVMClient(url string, opts ...ClientOption) *EVMClient {
	c := &EVMClient{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint this client talks to.
func (c *EVMClient) URL() string { return c.url }

// ChainID returns the chain's ID.
func (c *EVMClient) ChainID(ctx context.Context) (int64, error) {
	id, err := c.callBig(ctx, "eth_chainId")
	if err != nil {
		return 0, err
	}
	return id.Int64(), nil
}

// GetBalance returns the native balance of address in wei.
func (c *EVMClient) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	return c.callBig(ctx, "eth_getBalance", address, "latest")
}

// GetBlockNumber returns the latest block number.
func (c *EVMClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.callBig(ctx, "eth_blockNumber")
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// GetPendingNonce returns the transaction count including queued transactions.
func (c *EVMClient) GetPendingNonce(ctx context.Context, address common.Address) (uint64, error) {
	n, err := c.callBig(ctx, "eth_getTransactionCount", address, "pending")
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// GasPrice returns the current legacy gas price.
func (c *EVMClient) GasPrice(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "eth_gasPrice")
}

// EstimateGas estimates gas for a call from → to carrying data and value.
func (c *EVMClient) EstimateGas(ctx context.Context, from, to common.Address, data []byte, value *big.Int) (uint64, error) {
	n, err := c.callBig(ctx, "eth_estimateGas", callArgs(from, to, data, value))
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// CallContract executes a read-only call and returns the raw return data.
func (c *EVMClient) CallContract(ctx context.Context, from, to common.Address, data []byte) ([]byte, error) {
	var out hexutil.Bytes
	if err := c.call(ctx, &out, "eth_call", callArgs(from, to, data, nil), "latest"); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCode returns the bytecode at address. Empty means an EOA.
func (c *EVMClient) GetCode(ctx context.Context, address common.Address) ([]byte, error) {
	var out hexutil.Bytes
	if err := c.call(ctx, &out, "eth_getCode", address, "latest"); err != nil {
		return nil, err
	}
	return out, nil
}

// SendRawTransaction broadcasts a signed raw transaction and returns its hash.
func (c *EVMClient) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var hash common.Hash
	if err := c.call(ctx, &hash, "eth_sendRawTransaction", hexutil.Bytes(raw)); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// TxReceipt holds the on-chain receipt of a mined transaction.
type TxReceipt struct {
	Hash        common.Hash
	Status      uint64 // 1 = success, 0 = reverted
	BlockNumber uint64
	GasUsed     uint64
}

// GetTransactionReceipt fetches the receipt for hash.
// Returns nil, nil if the transaction is still pending.
func (c *EVMClient) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*TxReceipt, error) {
	var r *struct {
		Status      hexutil.Uint64 `json:"status"`
		BlockNumber hexutil.Uint64 `json:"blockNumber"`
		GasUsed     hexutil.Uint64 `json:"gasUsed"`
	}
	if err := c.call(ctx, &r, "eth_getTransactionReceipt", hash); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	return &TxReceipt{
		Hash:        hash,
		Status:      uint64(r.Status),
		BlockNumber: uint64(r.BlockNumber),
		GasUsed:     uint64(r.GasUsed),
	}, nil
}

// WaitForReceipt polls every interval until the transaction is mined or ctx
// is done. A reverted receipt is returned as-is; callers inspect Status.
func (c *EVMClient) WaitForReceipt(ctx context.Context, hash common.Hash, interval time.Duration) (*TxReceipt, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		receipt, err := c.GetTransactionReceipt(ctx, hash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrTxNotMined, hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// Ping tests the RPC endpoint and returns latency + block number.
func (c *EVMClient) Ping(ctx context.Context) (latency time.Duration, blockNum uint64, err error) {
	start := time.Now()
	blockNum, err = c.GetBlockNumber(ctx)
	return time.Since(start), blockNum, err
}

// --- internal JSON-RPC plumbing ---

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

func callArgs(from, to common.Address, data []byte, value *big.Int) map[string]interface{} {
	args := map[string]interface{}{
		"from": from,
		"to":   to,
	}
	if len(data) > 0 {
		args["data"] = hexutil.Bytes(data)
	}
	if value != nil && value.Sign() > 0 {
		args["value"] = (*hexutil.Big)(value)
	}
	return args
}

func (c *EVMClient) callBig(ctx context.Context, method string, params ...interface{}) (*big.Int, error) {
	var out hexutil.Big
	if err := c.call(ctx, &out, method, params...); err != nil {
		return nil, err
	}
	return out.ToInt(), nil
}

func (c *EVMClient) call(ctx context.Context, result interface{}, method string, params ...interface{}) (err error) {
	metrics.RPCCallsTotal.WithLabelValues(method).Inc()
	start := time.Now()
	defer func() {
		metrics.RPCLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.RPCErrorsTotal.WithLabelValues(method).Inc()
		}
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	if params == nil {
		params = []interface{}{}
	}
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("parsing result of %s: %w", method, err)
	}
	return nil
}
