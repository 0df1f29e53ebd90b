package vault

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/Mohsinsiddi/vaultctl/internal/provider"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	vaultAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	ownerAddr = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	otherAddr = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

// stubSigner answers view calls from a per-method table and records writes.
type stubSigner struct {
	t       *testing.T
	returns map[string][]interface{}
	callErr error

	calls []provider.TxRequest
	sent  []provider.TxRequest
}

func (s *stubSigner) Address() common.Address { return ownerAddr }

func (s *stubSigner) Call(_ context.Context, to common.Address, data []byte) ([]byte, error) {
	s.calls = append(s.calls, provider.TxRequest{To: to, Data: data})
	if s.callErr != nil {
		return nil, s.callErr
	}
	parsed, err := ABI()
	require.NoError(s.t, err)
	method, err := parsed.MethodById(data[:4])
	require.NoError(s.t, err)
	ret, ok := s.returns[method.Name]
	if !ok {
		return nil, nil
	}
	return method.Outputs.Pack(ret...)
}

func (s *stubSigner) SendTransaction(_ context.Context, req provider.TxRequest) (provider.Tx, error) {
	s.sent = append(s.sent, req)
	return nil, nil
}

func TestABISelectors(t *testing.T) {
	parsed, err := ABI()
	require.NoError(t, err)

	for name, want := range map[string]string{
		"getBalance": "12065fe0",
		"isOwner":    "2f54bf6e",
		"owner":      "8da5cb5b",
		"withdraw":   "f3fef3a3",
	} {
		assert.Equal(t, want, common.Bytes2Hex(parsed.Methods[name].ID), name)
	}
	assert.True(t, parsed.HasReceive())
}

func TestBindRequiresSigner(t *testing.T) {
	_, err := Bind(vaultAddr, nil)
	assert.ErrorIs(t, err, ErrNoSigner)
}

func TestBinderBindsSigner(t *testing.T) {
	s := &stubSigner{t: t}
	c, err := NewBinder(vaultAddr)(s)
	require.NoError(t, err)
	assert.Equal(t, vaultAddr, c.Address())
	assert.Same(t, s, c.(*Binding).Signer())
}

func TestGetBalance(t *testing.T) {
	s := &stubSigner{t: t, returns: map[string][]interface{}{"getBalance": {big.NewInt(42)}}}
	b, _ := Bind(vaultAddr, s)

	bal, err := b.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), bal.Int64())
	require.Len(t, s.calls, 1)
	assert.Equal(t, vaultAddr, s.calls[0].To)
}

func TestIsOwnerPassesAccount(t *testing.T) {
	s := &stubSigner{t: t, returns: map[string][]interface{}{"isOwner": {true}}}
	b, _ := Bind(vaultAddr, s)

	ok, err := b.IsOwner(context.Background(), otherAddr)
	require.NoError(t, err)
	assert.True(t, ok)

	parsed, _ := ABI()
	args, err := parsed.Methods["isOwner"].Inputs.Unpack(s.calls[0].Data[4:])
	require.NoError(t, err)
	assert.Equal(t, otherAddr, args[0])
}

func TestOwner(t *testing.T) {
	s := &stubSigner{t: t, returns: map[string][]interface{}{"owner": {ownerAddr}}}
	b, _ := Bind(vaultAddr, s)

	owner, err := b.Owner(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ownerAddr, owner)
}

func TestCallEmptyResult(t *testing.T) {
	b, _ := Bind(vaultAddr, &stubSigner{t: t})
	_, err := b.Owner(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty result")
}

func TestCallError(t *testing.T) {
	boom := errors.New("boom")
	b, _ := Bind(vaultAddr, &stubSigner{t: t, callErr: boom})
	_, err := b.GetBalance(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestWithdrawForwardsExactArguments(t *testing.T) {
	s := &stubSigner{t: t}
	b, _ := Bind(vaultAddr, s)

	amount, _ := new(big.Int).SetString("1234500000000000000", 10)
	_, err := b.Withdraw(context.Background(), otherAddr, amount)
	require.NoError(t, err)

	require.Len(t, s.sent, 1)
	req := s.sent[0]
	assert.Equal(t, vaultAddr, req.To)
	assert.Nil(t, req.Value)

	parsed, _ := ABI()
	method, err := parsed.MethodById(req.Data[:4])
	require.NoError(t, err)
	assert.Equal(t, "withdraw", method.Name)
	args, err := method.Inputs.Unpack(req.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, otherAddr, args[0])
	assert.Equal(t, amount.String(), args[1].(*big.Int).String())
}
