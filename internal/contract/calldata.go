package contract

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Input validation errors. Callers re-prompt on these.
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidAmount  = errors.New("invalid amount")
)

const wordSize = 32

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Selector returns the 4-byte function selector for a canonical signature
// such as "transfer(address,uint256)".
func Selector(signature string) [4]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	var sel [4]byte
	copy(sel[:], h.Sum(nil)[:4])
	return sel
}

// SelectorHex returns Selector as a 0x-prefixed hex string.
func SelectorHex(signature string) string {
	sel := Selector(signature)
	return "0x" + hex.EncodeToString(sel[:])
}

// ParseAddress validates a 0x-prefixed 20-byte hex address. All-lowercase and
// all-uppercase forms are accepted as is; mixed case must carry a valid
// EIP-55 checksum.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, fmt.Errorf("%w: %q: missing 0x prefix", ErrInvalidAddress, s)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q: want 40 hex digits", ErrInvalidAddress, s)
	}
	addr := common.HexToAddress(s)
	body := s[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && addr.Hex() != "0x"+body {
		return common.Address{}, fmt.Errorf("%w: %q: bad checksum", ErrInvalidAddress, s)
	}
	return addr, nil
}

// ParseAmount parses a non-negative base-10 integer that fits in 256 bits.
// Signs, decimals, exponents and hex are rejected.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%w: %q is not a base-10 integer", ErrInvalidAmount, s)
		}
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if n.Cmp(maxUint256) > 0 {
		return nil, fmt.Errorf("%w: %q exceeds uint256", ErrInvalidAmount, s)
	}
	return n, nil
}

// encodeAddress left-pads addr to a 32-byte word.
func encodeAddress(addr common.Address) []byte {
	return common.LeftPadBytes(addr.Bytes(), wordSize)
}

// encodeUint256 encodes n as an unsigned big-endian 32-byte word.
func encodeUint256(n *big.Int) []byte {
	word := make([]byte, wordSize)
	return n.FillBytes(word)
}
