// vault-survey: looks for a vault contract at one address on every registry
// network in parallel and prints whether it is deployed and what it holds.
//
// Run from the module root:
//
//	go run ./scripts/vault-survey 0x5FbDB2315678afecb367f032d93F642f64180aa3
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
	"github.com/Mohsinsiddi/vaultctl/internal/vault"
	"github.com/ethereum/go-ethereum/common"
)

const rpcTimeout = 12 * time.Second

type result struct {
	network string
	chainID int64
	status  string
	balance string
	symbol  string
	note    string
}

// codeReader adapts an EVMClient to vault.CodeReader.
type codeReader struct{ c *chain.EVMClient }

func (r codeReader) Code(ctx context.Context, a common.Address) ([]byte, error) {
	return r.c.GetCode(ctx, a)
}

func main() {
	if len(os.Args) != 2 || !common.IsHexAddress(os.Args[1]) {
		fmt.Fprintln(os.Stderr, "usage: vault-survey <vault-address>")
		os.Exit(2)
	}
	addr := common.HexToAddress(os.Args[1])

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []result
	)
	for _, n := range chain.NewRegistry().All() {
		if len(n.RPCs) == 0 {
			continue
		}
		wg.Add(1)
		go func(n chain.Network) {
			defer wg.Done()
			r := survey(n, addr)
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}(n)
	}
	wg.Wait()

	printTable(results)
}

func survey(n chain.Network, addr common.Address) result {
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	r := result{network: n.Name, chainID: n.ChainID, symbol: n.NativeCurrency, balance: "-"}
	client := chain.NewEVMClient(n.RPCs[0])

	if _, _, err := client.Ping(ctx); err != nil {
		r.status = "unreachable"
		return r
	}

	switch err := vault.Probe(ctx, codeReader{client}, addr); {
	case err == nil:
		r.status = "vault"
	case errors.Is(err, vault.ErrNoCode):
		r.status = "no code"
		return r
	case errors.Is(err, vault.ErrMissingSelector):
		r.status = "other contract"
		r.note = shortErr(err)
	default:
		r.status = "error"
		r.note = shortErr(err)
		return r
	}

	bal, err := client.GetBalance(ctx, addr)
	if err != nil {
		r.note = shortErr(err)
		return r
	}
	r.balance = chain.FormatEther(bal)
	return r
}

func printTable(results []result) {
	sort.Slice(results, func(i, j int) bool { return results[i].network < results[j].network })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NETWORK\tCHAIN ID\tSTATUS\tBALANCE\tSYMBOL\tNOTE")
	fmt.Fprintln(w, strings.Repeat("-", 16)+"\t"+
		strings.Repeat("-", 9)+"\t"+
		strings.Repeat("-", 14)+"\t"+
		strings.Repeat("-", 22)+"\t"+
		strings.Repeat("-", 6)+"\t"+
		strings.Repeat("-", 12))
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			r.network, r.chainID, r.status, r.balance, r.symbol, r.note)
	}
	w.Flush()
}

func shortErr(err error) string {
	s := err.Error()
	if len(s) > 40 {
		return s[:40] + "…"
	}
	return s
}
