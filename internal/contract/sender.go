package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/tokenforge/internal/chain"
	"github.com/Mohsinsiddi/tokenforge/internal/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// ErrTransaction is wrapped by every failure after the intent was built.
var ErrTransaction = errors.New("transaction failed")

// TxError reports which step of sending a transaction failed.
type TxError struct {
	Op    Kind
	Stage string // "nonce", "sign" or "broadcast"
	Err   error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Stage, e.Err)
}

func (e *TxError) Unwrap() []error { return []error{ErrTransaction, e.Err} }

// TxSigner signs transactions for a single account.
type TxSigner interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Sender builds, signs and broadcasts administrative calls.
type Sender struct {
	client  chain.Client
	signer  TxSigner
	builder *Builder
	chainID int64
	log     *zap.Logger
}

// NewSender creates a Sender for one (key, chain) pair.
func NewSender(client chain.Client, signer TxSigner, builder *Builder, chainID int64, log *zap.Logger) *Sender {
	log = logging.OrNop(log)
	return &Sender{
		client:  client,
		signer:  signer,
		builder: builder,
		chainID: chainID,
		log:     log,
	}
}

// Send calls op on the token at contract and returns the transaction hash.
// The nonce is fetched from the node on every call. No retry is attempted.
func (s *Sender) Send(ctx context.Context, op Operation, contract string) (common.Hash, error) {
	from := s.signer.Address()

	// Validate before touching the network.
	if _, err := s.builder.Build(op, contract, s.chainID, 0); err != nil {
		return common.Hash{}, err
	}

	nonce, err := s.client.PendingNonce(ctx, from)
	if err != nil {
		return common.Hash{}, &TxError{Op: op.Kind, Stage: "nonce", Err: err}
	}

	intent, err := s.builder.Build(op, contract, s.chainID, nonce)
	if err != nil {
		return common.Hash{}, err
	}

	signed, err := s.signer.SignTx(intent.Tx(), intent.ChainID)
	if err != nil {
		return common.Hash{}, &TxError{Op: op.Kind, Stage: "sign", Err: err}
	}

	hash, err := s.client.Broadcast(ctx, signed)
	if err != nil {
		return common.Hash{}, &TxError{Op: op.Kind, Stage: "broadcast", Err: err}
	}

	s.log.Info("transaction sent",
		zap.String("op", op.Kind.String()),
		zap.String("to", intent.To.Hex()),
		zap.Uint64("nonce", nonce),
		zap.String("hash", hash.Hex()))
	return hash, nil
}
