// check-balances: prints the native balance of every plaintext deployer key
// on every configured chain, queried in parallel. Keychain-backed keys are
// listed but not unlocked.
//
// Run from the module root:
//
//	go run ./scripts/check-balances
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/Mohsinsiddi/tokenforge/internal/chain"
	"github.com/Mohsinsiddi/tokenforge/internal/config"
	"github.com/Mohsinsiddi/tokenforge/internal/ui"
	"github.com/Mohsinsiddi/tokenforge/internal/wallet"
	"github.com/samber/lo"
)

type result struct {
	chain   string
	key     string
	address string
	balance string
	note    string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Err(err.Error()))
		os.Exit(1)
	}
}

func run() error {
	settings, err := config.LoadSettings("")
	if err != nil {
		return err
	}
	keys, err := config.LoadKeys(settings.KeysFile)
	if err != nil {
		return err
	}
	chains, err := config.LoadChains(settings.ChainsFile)
	if err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []result
	)
	add := func(r result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	for _, entry := range keys {
		if strings.HasPrefix(entry.Secret, wallet.KeyringPrefix) {
			add(result{key: entry.Label, balance: "-", note: "keychain"})
			continue
		}
		signer, err := wallet.NewSigner(entry.Label, entry.Secret)
		if err != nil {
			add(result{key: entry.Label, balance: "-", note: "invalid key"})
			continue
		}

		for _, c := range chains {
			wg.Add(1)
			go func(c config.ChainConfig, s *wallet.Signer) {
				defer wg.Done()
				add(balanceOf(c, s))
			}(c, signer)
		}
	}

	wg.Wait()
	printTable(results)
	return nil
}

func balanceOf(c config.ChainConfig, s *wallet.Signer) result {
	r := result{chain: c.Name, key: s.Label(), address: ui.TruncateAddr(s.Address().Hex()), balance: "-"}

	ctx, cancel := context.WithTimeout(context.Background(), config.RPCDialTimeout)
	defer cancel()

	client, err := chain.Dial(ctx, c.RPCURL)
	if err != nil {
		r.note = "unreachable"
		return r
	}
	defer client.Close()

	bal, err := client.Balance(ctx, s.Address())
	if err != nil {
		r.note = shortErr(err)
		return r
	}
	r.balance = trimZeros(chain.WeiToETH(bal))
	return r
}

func printTable(results []result) {
	// Sort by chain, then key label.
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.chain != b.chain {
			return a.chain < b.chain
		}
		return a.key < b.key
	})

	rows := lo.Map(results, func(r result, _ int) []string {
		return []string{r.chain, r.key, r.address, r.balance, r.note}
	})
	fmt.Println(ui.RenderTable([]string{"Chain", "Key", "Address", "Balance", "Note"}, rows))
}

func shortErr(err error) string {
	s := err.Error()
	if len(s) > 30 {
		return s[:30] + "…"
	}
	return s
}

// trimZeros removes trailing zeros after the decimal point: "0.050000" → "0.05".
func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" {
		return "0"
	}
	return s
}
