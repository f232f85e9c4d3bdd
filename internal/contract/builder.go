package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// GasPolicy is the fixed fee schedule applied to every intent.
type GasPolicy struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// Intent is a fully specified, unsigned transaction.
type Intent struct {
	Op                   Kind
	To                   common.Address
	Data                 []byte
	GasLimit             uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	ChainID              *big.Int
	Nonce                uint64
}

// Tx converts the intent into an EIP-1559 dynamic-fee transaction.
func (in *Intent) Tx() *types.Transaction {
	to := in.To
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).Set(in.ChainID),
		Nonce:     in.Nonce,
		GasTipCap: new(big.Int).Set(in.MaxPriorityFeePerGas),
		GasFeeCap: new(big.Int).Set(in.MaxFeePerGas),
		Gas:       in.GasLimit,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      in.Data,
	})
}

// Builder assembles intents. It performs no I/O.
type Builder struct {
	gas GasPolicy
}

// NewBuilder creates a Builder with the given fee schedule.
func NewBuilder(gas GasPolicy) *Builder {
	return &Builder{gas: gas}
}

// Build encodes op against the token at contract. Invalid recipients and
// amounts surface as ErrInvalidAddress and ErrInvalidAmount.
func (b *Builder) Build(op Operation, contract string, chainID int64, nonce uint64) (*Intent, error) {
	to, err := ParseAddress(contract)
	if err != nil {
		return nil, fmt.Errorf("contract address: %w", err)
	}
	data, err := op.Calldata()
	if err != nil {
		return nil, err
	}
	if b.gas.MaxFeePerGas == nil || b.gas.MaxPriorityFeePerGas == nil {
		return nil, fmt.Errorf("gas policy not configured")
	}
	return &Intent{
		Op:                   op.Kind,
		To:                   to,
		Data:                 data,
		GasLimit:             op.Kind.GasLimit(),
		MaxFeePerGas:         new(big.Int).Set(b.gas.MaxFeePerGas),
		MaxPriorityFeePerGas: new(big.Int).Set(b.gas.MaxPriorityFeePerGas),
		ChainID:              big.NewInt(chainID),
		Nonce:                nonce,
	}, nil
}
