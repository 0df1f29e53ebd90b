package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Probe errors.
var (
	ErrNoCode          = errors.New("no contract code at address")
	ErrMissingSelector = errors.New("function selector not found in bytecode")
)

// CodeReader fetches deployed bytecode.
type CodeReader interface {
	Code(ctx context.Context, address common.Address) ([]byte, error)
}

// Signatures lists the functions the vault must expose.
var Signatures = []string{
	"getBalance()",
	"isOwner(address)",
	"owner()",
	"withdraw(address,uint256)",
}

// Selector computes the 4-byte function selector of a canonical signature.
func Selector(signature string) [4]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	var sel [4]byte
	copy(sel[:], h.Sum(nil)[:4])
	return sel
}

// Probe checks that code is deployed at address and that every vault
// selector appears in it behind a PUSH4. Solidity dispatchers compare
// against PUSH4 immediates, so a match is a strong hint, not a proof.
func Probe(ctx context.Context, r CodeReader, address common.Address) error {
	code, err := r.Code(ctx, address)
	if err != nil {
		return fmt.Errorf("fetching code: %w", err)
	}
	if len(code) == 0 {
		return fmt.Errorf("%w: %s", ErrNoCode, address.Hex())
	}
	for _, sig := range Signatures {
		sel := Selector(sig)
		push := append([]byte{0x63}, sel[:]...) // PUSH4 <selector>
		if !bytes.Contains(code, push) {
			return fmt.Errorf("%w: %s (0x%x)", ErrMissingSelector, sig, sel)
		}
	}
	return nil
}
