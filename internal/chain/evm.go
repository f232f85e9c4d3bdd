// Package chain talks to EVM JSON-RPC nodes.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Mohsinsiddi/tokenforge/internal/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrChainMismatch is returned when a node reports a chain id other than the
// one configured for it.
var ErrChainMismatch = errors.New("chain id mismatch")

// Client is the RPC capability the rest of the tool needs.
type Client interface {
	PendingNonce(ctx context.Context, addr common.Address) (uint64, error)
	Broadcast(ctx context.Context, tx *types.Transaction) (common.Hash, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
	Close()
}

// EVMClient is a Client backed by go-ethereum's ethclient.
type EVMClient struct {
	eth     *ethclient.Client
	timeout time.Duration
}

// Dial connects to the node at url. HTTP endpoints are not contacted until
// the first call.
func Dial(ctx context.Context, url string) (*EVMClient, error) {
	if url == "" {
		return nil, fmt.Errorf("dialing rpc: empty url")
	}
	ctx, cancel := context.WithTimeout(ctx, config.RPCDialTimeout)
	defer cancel()

	eth, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	return &EVMClient{eth: eth, timeout: config.RPCCallTimeout}, nil
}

// PendingNonce returns the next nonce for addr, counting pending transactions.
func (c *EVMClient) PendingNonce(ctx context.Context, addr common.Address) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	nonce, err := c.eth.PendingNonceAt(ctx, addr)
	if err != nil {
		return 0, fmt.Errorf("getting pending nonce: %w", err)
	}
	return nonce, nil
}

// Broadcast submits a signed transaction and returns its hash.
func (c *EVMClient) Broadcast(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.eth.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, fmt.Errorf("broadcasting transaction: %w", err)
	}
	return tx.Hash(), nil
}

// ChainID returns the chain id reported by the node.
func (c *EVMClient) ChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting chain id: %w", err)
	}
	return id, nil
}

// Balance returns the latest native balance of addr in wei.
func (c *EVMClient) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	wei, err := c.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("getting balance: %w", err)
	}
	return wei, nil
}

// Close releases the underlying connection.
func (c *EVMClient) Close() { c.eth.Close() }

// CheckChainID verifies that the node behind c serves the configured chain.
func CheckChainID(ctx context.Context, c Client, want int64) error {
	got, err := c.ChainID(ctx)
	if err != nil {
		return err
	}
	if got.Cmp(big.NewInt(want)) != 0 {
		return fmt.Errorf("%w: node reports %s, configured %d", ErrChainMismatch, got, want)
	}
	return nil
}

// WeiToETH formats a wei amount with 18 decimals.
func WeiToETH(wei *big.Int) string { return formatUnits(wei, 18) }

func formatUnits(raw *big.Int, decimals int) string {
	if raw == nil {
		return "0"
	}
	if decimals == 0 {
		return raw.String()
	}
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(raw, divisor, new(big.Int))
	digits := frac.String()
	if pad := decimals - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	return whole.String() + "." + digits
}
