// Package rpc probes the configured chains' RPC endpoints.
package rpc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Mohsinsiddi/tokenforge/internal/chain"
	"github.com/Mohsinsiddi/tokenforge/internal/config"
)

// probeTimeout bounds a single health check.
const probeTimeout = 5 * time.Second

// ErrNoRPCURL is reported for chains configured without an RPC_URL.
var ErrNoRPCURL = errors.New("no rpc url configured")

// Dialer connects to an RPC endpoint.
type Dialer func(ctx context.Context, url string) (chain.Client, error)

// Health is the outcome of probing one chain.
type Health struct {
	Chain   string
	URL     string
	Latency time.Duration
	ChainID int64 // as reported by the node, 0 if unreachable
	Healthy bool  // reachable and on the configured chain id
	Err     error
}

// HealthCheck dials c's RPC endpoint and compares the node's chain id with
// the configured one.
func HealthCheck(ctx context.Context, c config.ChainConfig, dial Dialer) Health {
	h := Health{Chain: c.Name, URL: c.RPCURL}
	if c.RPCURL == "" {
		h.Err = ErrNoRPCURL
		return h
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	client, err := dial(ctx, c.RPCURL)
	if err != nil {
		h.Err = err
		return h
	}
	defer client.Close()

	id, err := client.ChainID(ctx)
	h.Latency = time.Since(start)
	if err != nil {
		h.Err = err
		return h
	}
	h.ChainID = id.Int64()

	if c.ChainID != 0 && h.ChainID != c.ChainID {
		h.Err = chain.ErrChainMismatch
		return h
	}
	h.Healthy = true
	return h
}

// CheckAll probes every chain in parallel. Results keep the input order.
func CheckAll(ctx context.Context, chains []config.ChainConfig, dial Dialer) []Health {
	results := make([]Health, len(chains))
	var wg sync.WaitGroup

	for i, c := range chains {
		wg.Add(1)
		go func(idx int, c config.ChainConfig) {
			defer wg.Done()
			results[idx] = HealthCheck(ctx, c, dial)
		}(i, c)
	}

	wg.Wait()
	return results
}
