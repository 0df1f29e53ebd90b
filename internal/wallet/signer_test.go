package wallet

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPrivKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testSignerAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func testWallet(t *testing.T) (*Wallet, Keystore) {
	t.Helper()
	ks := NewMemoryKeystore()
	ref, err := ks.Store("w", testPrivKeyHex)
	require.NoError(t, err)
	return &Wallet{Name: "w", Address: common.HexToAddress(testSignerAddr), KeyRef: ref}, ks
}

func sampleTx() *types.Transaction {
	to := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(11155111),
		Nonce:     3,
		GasTipCap: big.NewInt(1_000_000_000),
		GasFeeCap: big.NewInt(2_000_000_000),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(1),
	})
}

func TestSignerAddress(t *testing.T) {
	w, ks := testWallet(t)
	assert.Equal(t, testSignerAddr, NewSigner(w, ks).Address().Hex())
}

func TestSignTxRecoversSender(t *testing.T) {
	w, ks := testWallet(t)
	chainID := big.NewInt(11155111)

	signed, err := NewSigner(w, ks).SignTx(sampleTx(), chainID)
	require.NoError(t, err)

	from, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, from.Hex())
	assert.Equal(t, uint64(3), signed.Nonce())
}

func TestSignTxMissingKey(t *testing.T) {
	w, _ := testWallet(t)
	_, err := NewSigner(w, NewMemoryKeystore()).SignTx(sampleTx(), big.NewInt(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestSignTxKeyAddressMismatch(t *testing.T) {
	w, ks := testWallet(t)
	w.Address = common.HexToAddress("0x0000000000000000000000000000000000000001")
	_, err := NewSigner(w, ks).SignTx(sampleTx(), big.NewInt(11155111))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "belongs to")
}

func TestSignTxCorruptKey(t *testing.T) {
	ks := NewMemoryKeystore()
	ref, _ := ks.Store("w", "zzzz")
	w := &Wallet{Name: "w", Address: common.HexToAddress(testSignerAddr), KeyRef: ref}
	_, err := NewSigner(w, ks).SignTx(sampleTx(), big.NewInt(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing private key")
}
