package wallet

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/99designs/keyring"
)

const (
	keychainService = "tokenforge"

	// KeyringPrefix marks a keys-file secret stored in the OS keychain.
	KeyringPrefix = "keyring:"
)

// ErrKeystoreUnavailable is returned when no keychain backend could be opened.
var ErrKeystoreUnavailable = errors.New("keystore not available")

// Backend is anything that can hand out a stored private key by reference.
type Backend interface {
	Store(name, hexKey string) (string, error)
	Retrieve(ref string) (string, error)
}

// Keystore keeps deployer keys in the OS keychain under the "tokenforge"
// service. Entries are addressed by "tokenforge.<label>".
type Keystore struct {
	ring keyring.Keyring
}

// desktopBackends are tried in order on Linux; the encrypted file backend
// covers headless machines.
var desktopBackends = []keyring.BackendType{
	keyring.SecretServiceBackend,
	keyring.KWalletBackend,
	keyring.FileBackend,
}

// DefaultKeystore opens the platform keychain. A keystore whose backend could
// not be opened reports ErrKeystoreUnavailable on use.
func DefaultKeystore() *Keystore {
	cfg := keyring.Config{ServiceName: keychainService, KeychainTrustApplication: true}
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = desktopBackends
	}
	if ring, err := keyring.Open(cfg); err == nil {
		return &Keystore{ring: ring}
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:     keychainService,
		AllowedBackends: []keyring.BackendType{keyring.FileBackend},
	})
	if err != nil {
		return &Keystore{}
	}
	return &Keystore{ring: ring}
}

// NewFileKeystore opens an encrypted file keystore in dir.
func NewFileKeystore(dir string, password keyring.PromptFunc) (*Keystore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      keychainService,
		AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
		FileDir:          dir,
		FilePasswordFunc: password,
	})
	if err != nil {
		return nil, fmt.Errorf("opening file keystore: %w", err)
	}
	return &Keystore{ring: ring}, nil
}

func refFor(label string) string { return keychainService + "." + label }

// Store saves hexKey for label and returns the reference to put in the keys
// file (without the "keyring:" prefix).
func (k *Keystore) Store(label, hexKey string) (string, error) {
	if k.ring == nil {
		return "", ErrKeystoreUnavailable
	}
	ref := refFor(label)
	item := keyring.Item{Key: ref, Data: []byte(normaliseHexKey(hexKey)), Label: "tokenforge deployer " + label}
	if err := k.ring.Set(item); err != nil {
		return "", fmt.Errorf("storing %s in keychain: %w", label, err)
	}
	return ref, nil
}

// Retrieve returns the hex key stored under ref.
func (k *Keystore) Retrieve(ref string) (string, error) {
	if k.ring == nil {
		return "", ErrKeystoreUnavailable
	}
	item, err := k.ring.Get(ref)
	if err != nil {
		return "", fmt.Errorf("reading %s from keychain: %w", ref, err)
	}
	return normaliseHexKey(string(item.Data)), nil
}

// InMemoryKeystore is a Backend for tests.
type InMemoryKeystore map[string]string

func NewInMemoryKeystore() InMemoryKeystore { return make(InMemoryKeystore) }

func (k InMemoryKeystore) Store(label, hexKey string) (string, error) {
	ref := refFor(label)
	k[ref] = normaliseHexKey(hexKey)
	return ref, nil
}

func (k InMemoryKeystore) Retrieve(ref string) (string, error) {
	if v, ok := k[ref]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%s: %w", ref, keyring.ErrKeyNotFound)
}

// ResolveSecret returns the hex private key a keys-file secret stands for:
// either the secret itself or, for "keyring:<ref>", the keychain entry.
func ResolveSecret(b Backend, secret string) (string, error) {
	ref, ok := strings.CutPrefix(strings.TrimSpace(secret), KeyringPrefix)
	if !ok {
		return normaliseHexKey(secret), nil
	}
	if b == nil {
		return "", ErrKeystoreUnavailable
	}
	if ref == "" {
		return "", fmt.Errorf("%w: empty keyring reference", ErrInvalidKey)
	}
	return b.Retrieve(ref)
}

// KeyringSecret formats a reference for the keys file.
func KeyringSecret(ref string) string { return KeyringPrefix + ref }

func normaliseHexKey(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
