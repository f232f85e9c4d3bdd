package contract

import (
	"fmt"

	"github.com/Mohsinsiddi/tokenforge/internal/config"
)

// Kind is one of the administrative calls the token contract exposes.
type Kind int

const (
	KindMint Kind = iota
	KindBurn
	KindTransfer
	KindRenounce
)

var kindInfo = map[Kind]struct {
	name      string
	signature string
	gas       uint64
}{
	KindMint:     {"mint", "mint(address,uint256)", config.GasLimitMint},
	KindBurn:     {"burn", "burn(uint256)", config.GasLimitBurn},
	KindTransfer: {"transfer", "transfer(address,uint256)", config.GasLimitTransfer},
	KindRenounce: {"renounce", "renounce()", config.GasLimitRenounce},
}

func (k Kind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Signature returns the canonical Solidity signature.
func (k Kind) Signature() string { return kindInfo[k].signature }

// GasLimit returns the fixed gas limit for the call.
func (k Kind) GasLimit() uint64 {
	if info, ok := kindInfo[k]; ok {
		return info.gas
	}
	return config.GasLimitFallback
}

// Operation is an unvalidated call request as entered by the operator.
// Recipient and Amount are validated by Builder.Build.
type Operation struct {
	Kind      Kind
	Recipient string
	Amount    string
}

// Mint creates amount whole tokens for recipient.
func Mint(recipient, amount string) Operation {
	return Operation{Kind: KindMint, Recipient: recipient, Amount: amount}
}

// Burn destroys amount whole tokens held by the sender.
func Burn(amount string) Operation {
	return Operation{Kind: KindBurn, Amount: amount}
}

// Transfer moves amount base units to recipient.
func Transfer(recipient, amount string) Operation {
	return Operation{Kind: KindTransfer, Recipient: recipient, Amount: amount}
}

// Renounce gives up contract ownership.
func Renounce() Operation {
	return Operation{Kind: KindRenounce}
}

// Calldata encodes the operation: selector followed by its arguments.
func (op Operation) Calldata() ([]byte, error) {
	if _, ok := kindInfo[op.Kind]; !ok {
		return nil, fmt.Errorf("unsupported operation %s", op.Kind)
	}
	sel := Selector(op.Kind.Signature())
	data := append([]byte{}, sel[:]...)

	switch op.Kind {
	case KindMint, KindTransfer:
		to, err := ParseAddress(op.Recipient)
		if err != nil {
			return nil, err
		}
		amount, err := ParseAmount(op.Amount)
		if err != nil {
			return nil, err
		}
		data = append(data, encodeAddress(to)...)
		data = append(data, encodeUint256(amount)...)
	case KindBurn:
		amount, err := ParseAmount(op.Amount)
		if err != nil {
			return nil, err
		}
		data = append(data, encodeUint256(amount)...)
	}
	return data, nil
}
