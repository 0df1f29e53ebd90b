package ens

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// RegistryAddress is the ENS registry, deployed at the same address on
// mainnet, Sepolia and Holesky.
var RegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

// Errors.
var (
	ErrNoResolver = errors.New("ens: no resolver set")
	ErrNoRecord   = errors.New("ens: no record")
)

// Function selectors.
var (
	selResolver = []byte{0x01, 0x78, 0xb8, 0xbf} // resolver(bytes32)
	selAddr     = []byte{0x3b, 0x3b, 0x57, 0xde} // addr(bytes32)
	selName     = []byte{0x69, 0x1f, 0x34, 0x31} // name(bytes32)
)

// Caller executes a read-only contract call.
type Caller interface {
	CallContract(ctx context.Context, from, to common.Address, data []byte) ([]byte, error)
}

// IsName reports whether s looks like an ENS name rather than an address.
func IsName(s string) bool {
	return strings.Contains(s, ".") && !common.IsHexAddress(s)
}

// Resolve resolves an ENS name to an address.
// It queries the registry for the resolver, then calls addr(bytes32) on it.
func Resolve(ctx context.Context, c Caller, name string) (common.Address, error) {
	node := Namehash(strings.ToLower(name))

	resolver, err := resolverOf(ctx, c, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}

	out, err := c.CallContract(ctx, common.Address{}, resolver, append(append([]byte{}, selAddr...), node[:]...))
	if err != nil {
		return common.Address{}, fmt.Errorf("querying ENS resolver: %w", err)
	}
	addr, ok := wordAddress(out)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: address of %q", ErrNoRecord, name)
	}
	return addr, nil
}

// ReverseLookup resolves an address to its primary ENS name via addr.reverse.
func ReverseLookup(ctx context.Context, c Caller, address common.Address) (string, error) {
	reverse := strings.ToLower(strings.TrimPrefix(address.Hex(), "0x")) + ".addr.reverse"
	node := Namehash(reverse)

	resolver, err := resolverOf(ctx, c, node)
	if err != nil {
		return "", fmt.Errorf("%s: %w", address.Hex(), err)
	}

	out, err := c.CallContract(ctx, common.Address{}, resolver, append(append([]byte{}, selName...), node[:]...))
	if err != nil {
		return "", fmt.Errorf("querying reverse resolver: %w", err)
	}
	name := decodeString(out)
	if name == "" {
		return "", fmt.Errorf("%w: name of %s", ErrNoRecord, address.Hex())
	}
	return name, nil
}

func resolverOf(ctx context.Context, c Caller, node common.Hash) (common.Address, error) {
	out, err := c.CallContract(ctx, common.Address{}, RegistryAddress, append(append([]byte{}, selResolver...), node[:]...))
	if err != nil {
		return common.Address{}, fmt.Errorf("querying ENS registry: %w", err)
	}
	addr, ok := wordAddress(out)
	if !ok {
		return common.Address{}, ErrNoResolver
	}
	return addr, nil
}

// Namehash implements the EIP-137 namehash algorithm.
// namehash("") = 0x00...00
// namehash("eth") = keccak256(namehash("") + keccak256("eth"))
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := keccak256([]byte(labels[i]))
		node = common.BytesToHash(keccak256(append(node[:], label...)))
	}
	return node
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// wordAddress reads an address from a 32-byte ABI word. The zero address
// counts as unset.
func wordAddress(word []byte) (common.Address, bool) {
	if len(word) < 32 {
		return common.Address{}, false
	}
	addr := common.BytesToAddress(word[12:32])
	return addr, addr != (common.Address{})
}

var stringArgs = func() abi.Arguments {
	t, _ := abi.NewType("string", "", nil)
	return abi.Arguments{{Type: t}}
}()

// decodeString decodes an ABI-encoded string return value, or "".
func decodeString(data []byte) string {
	vals, err := stringArgs.Unpack(data)
	if err != nil || len(vals) == 0 {
		return ""
	}
	s, _ := vals[0].(string)
	return s
}
