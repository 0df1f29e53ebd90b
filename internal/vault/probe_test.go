package vault

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codeFunc func(ctx context.Context, address common.Address) ([]byte, error)

func (f codeFunc) Code(ctx context.Context, address common.Address) ([]byte, error) {
	return f(ctx, address)
}

func staticCode(code []byte) CodeReader {
	return codeFunc(func(context.Context, common.Address) ([]byte, error) { return code, nil })
}

// dispatcher fakes a Solidity selector table for the given signatures.
func dispatcher(sigs ...string) []byte {
	code := []byte{0x60, 0x80, 0x60, 0x40, 0x52}
	for _, sig := range sigs {
		sel := Selector(sig)
		code = append(code, 0x80, 0x63)
		code = append(code, sel[:]...)
		code = append(code, 0x14, 0x61, 0x00, 0x10, 0x57)
	}
	return code
}

func TestSelector(t *testing.T) {
	sel := Selector("withdraw(address,uint256)")
	assert.Equal(t, "f3fef3a3", common.Bytes2Hex(sel[:]))
	sel = Selector("owner()")
	assert.Equal(t, "8da5cb5b", common.Bytes2Hex(sel[:]))
}

func TestProbeOK(t *testing.T) {
	require.NoError(t, Probe(context.Background(), staticCode(dispatcher(Signatures...)), vaultAddr))
}

func TestProbeNoCode(t *testing.T) {
	err := Probe(context.Background(), staticCode(nil), vaultAddr)
	assert.ErrorIs(t, err, ErrNoCode)
}

func TestProbeMissingSelector(t *testing.T) {
	err := Probe(context.Background(), staticCode(dispatcher("getBalance()", "owner()")), vaultAddr)
	assert.ErrorIs(t, err, ErrMissingSelector)
	assert.Contains(t, err.Error(), "isOwner(address)")
}

func TestProbeFetchError(t *testing.T) {
	boom := errors.New("rpc down")
	err := Probe(context.Background(), codeFunc(func(context.Context, common.Address) ([]byte, error) {
		return nil, boom
	}), vaultAddr)
	assert.ErrorIs(t, err, boom)
}
