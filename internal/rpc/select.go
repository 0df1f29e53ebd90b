package rpc

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
)

// ErrNoHealthyRPC is returned when no healthy RPC endpoint is available.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an RPC endpoint is selected.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"

	// Discard nodes more than this many blocks behind the best.
	staleBlockThreshold = 3
	// Reuse a benchmark winner for this long.
	cacheTTL = 5 * time.Minute
)

// ParseAlgorithm maps a config string to an Algorithm, defaulting to fastest.
func ParseAlgorithm(s string) Algorithm {
	switch Algorithm(s) {
	case AlgorithmRoundRobin, AlgorithmFailover:
		return Algorithm(s)
	default:
		return AlgorithmFastest
	}
}

// Endpoint is one benchmarked RPC URL.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Err         error
}

// Healthy reports whether the endpoint answered the benchmark.
func (e Endpoint) Healthy() bool { return e.Err == nil }

// Benchmark pings every URL in parallel. Results keep the input order.
func Benchmark(ctx context.Context, urls []string, opts ...chain.ClientOption) []Endpoint {
	out := make([]Endpoint, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(idx int, url string) {
			defer wg.Done()
			latency, block, err := chain.NewEVMClient(url, opts...).Ping(ctx)
			out[idx] = Endpoint{URL: url, Latency: latency, BlockNumber: block, Err: err}
		}(i, u)
	}
	wg.Wait()
	return out
}

// Selector chooses an endpoint from a network's URL list.
type Selector struct {
	algo Algorithm
	opts []chain.ClientOption

	mu      sync.Mutex
	rrIndex int
	cached  map[string]cachedWinner // keyed by first URL of the list
}

type cachedWinner struct {
	url     string
	expires time.Time
}

// NewSelector creates a Selector. opts are applied to benchmark clients.
func NewSelector(algo Algorithm, opts ...chain.ClientOption) *Selector {
	return &Selector{algo: algo, opts: opts, cached: make(map[string]cachedWinner)}
}

// Select returns the URL to use. A single URL is returned without probing.
func (s *Selector) Select(ctx context.Context, urls []string) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}

	if s.algo == AlgorithmFastest {
		s.mu.Lock()
		c, ok := s.cached[urls[0]]
		s.mu.Unlock()
		if ok && time.Now().Before(c.expires) {
			return c.url, nil
		}
	}

	winner, err := s.Pick(Benchmark(ctx, urls, s.opts...))
	if err != nil {
		return "", err
	}

	if s.algo == AlgorithmFastest {
		s.mu.Lock()
		s.cached[urls[0]] = cachedWinner{url: winner.URL, expires: time.Now().Add(cacheTTL)}
		s.mu.Unlock()
	}
	return winner.URL, nil
}

// Pick applies the algorithm to already-benchmarked endpoints.
func (s *Selector) Pick(endpoints []Endpoint) (Endpoint, error) {
	healthy := make([]Endpoint, 0, len(endpoints))
	for _, e := range endpoints {
		if e.Healthy() {
			healthy = append(healthy, e)
		}
	}
	if len(healthy) == 0 {
		return Endpoint{}, ErrNoHealthyRPC
	}

	switch s.algo {
	case AlgorithmFailover:
		return healthy[0], nil
	case AlgorithmRoundRobin:
		s.mu.Lock()
		defer s.mu.Unlock()
		e := healthy[s.rrIndex%len(healthy)]
		s.rrIndex = (s.rrIndex + 1) % len(healthy)
		return e, nil
	default:
		return fastest(healthy)
	}
}

// fastest drops stale nodes and returns the lowest-latency survivor.
func fastest(healthy []Endpoint) (Endpoint, error) {
	var best uint64
	for _, e := range healthy {
		if e.BlockNumber > best {
			best = e.BlockNumber
		}
	}

	fresh := healthy[:0:0]
	for _, e := range healthy {
		if best-e.BlockNumber <= staleBlockThreshold {
			fresh = append(fresh, e)
		}
	}
	if len(fresh) == 0 {
		return Endpoint{}, ErrNoHealthyRPC
	}

	sort.SliceStable(fresh, func(i, j int) bool { return fresh[i].Latency < fresh[j].Latency })
	return fresh[0], nil
}
