package wallet

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

const keychainService = "vaultctl"

// PasswordEnv unlocks the encrypted file backend without a terminal prompt.
const PasswordEnv = "VAULTCTL_KEYRING_PASSWORD"

// ErrKeyNotFound is returned when a key reference has no stored key.
var ErrKeyNotFound = errors.New("key not found")

// Keystore stores private keys by reference.
type Keystore interface {
	Store(name, hexKey string) (ref string, err error)
	Retrieve(ref string) (string, error)
	Delete(ref string) error
}

// KeyringKeystore keeps keys in the OS keychain, falling back to an
// encrypted file under dir on headless machines.
type KeyringKeystore struct {
	ring keyring.Keyring
}

// OpenKeystore opens the OS keychain. dir is used only by the file backend.
func OpenKeystore(dir string) (*KeyringKeystore, error) {
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  dir,
		FilePasswordFunc:         filePassword,
	}

	// On Linux without a GUI, fall back to file-based storage.
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		ring, err = keyring.Open(keyring.Config{
			ServiceName:      keychainService,
			AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
			FileDir:          dir,
			FilePasswordFunc: filePassword,
		})
		if err != nil {
			return nil, fmt.Errorf("opening keychain: %w", err)
		}
	}
	return &KeyringKeystore{ring: ring}, nil
}

// NewKeyringKeystore wraps an already-open keyring (tests use the file backend).
func NewKeyringKeystore(ring keyring.Keyring) *KeyringKeystore {
	return &KeyringKeystore{ring: ring}
}

func filePassword(prompt string) (string, error) {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}
	return keyring.TerminalPrompt(prompt)
}

// Store saves a private key for a wallet name and returns its reference.
func (k *KeyringKeystore) Store(name, hexKey string) (string, error) {
	ref := keyRef(name)
	if err := k.ring.Set(keyring.Item{Key: ref, Data: []byte(hexKey), Label: "vaultctl wallet " + name}); err != nil {
		return "", fmt.Errorf("keychain store: %w", err)
	}
	return ref, nil
}

// Retrieve fetches a private key by its reference.
func (k *KeyringKeystore) Retrieve(ref string) (string, error) {
	item, err := k.ring.Get(ref)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("keychain retrieve: %w", err)
	}
	return string(item.Data), nil
}

// Delete removes a stored key. Missing keys are not an error.
func (k *KeyringKeystore) Delete(ref string) error {
	err := k.ring.Remove(ref)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MemoryKeystore keeps keys in memory (tests, throwaway sessions).
type MemoryKeystore struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemoryKeystore creates an empty in-memory keystore.
func NewMemoryKeystore() *MemoryKeystore {
	return &MemoryKeystore{data: make(map[string]string)}
}

func (k *MemoryKeystore) Store(name, hexKey string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	ref := keyRef(name)
	k.data[ref] = hexKey
	return ref, nil
}

func (k *MemoryKeystore) Retrieve(ref string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.data[ref]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, ref)
	}
	return v, nil
}

func (k *MemoryKeystore) Delete(ref string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.data, ref)
	return nil
}

func keyRef(name string) string { return keychainService + "." + name }
