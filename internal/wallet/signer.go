package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/tokenforge/internal/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidKey is returned for secrets that are not secp256k1 private keys.
var ErrInvalidKey = errors.New("invalid private key")

// Signer signs EVM transactions with a single private key.
type Signer struct {
	label   string
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner parses a hex private key (with or without 0x).
func NewSigner(label, hexKey string) (*Signer, error) {
	privKey, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w for %q: %v", ErrInvalidKey, label, err)
	}
	return &Signer{
		label:   label,
		key:     privKey,
		address: crypto.PubkeyToAddress(privKey.PublicKey),
	}, nil
}

// Unlock resolves a key entry's secret through b and returns its signer.
func Unlock(entry config.KeyEntry, b Backend) (*Signer, error) {
	hexKey, err := ResolveSecret(b, entry.Secret)
	if err != nil {
		return nil, fmt.Errorf("resolving key %q: %w", entry.Label, err)
	}
	return NewSigner(entry.Label, hexKey)
}

// Label returns the key's label from the keys file.
func (s *Signer) Label() string { return s.label }

// Address returns the deployer address derived from the key.
func (s *Signer) Address() common.Address { return s.address }

// PrivateKeyHex returns the 0x-prefixed key, as forge expects it.
func (s *Signer) PrivateKeyHex() string {
	return "0x" + hex.EncodeToString(crypto.FromECDSA(s.key))
}

// SignTx signs an EIP-1559 transaction for chainID.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.NewLondonSigner(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	return signed, nil
}
