package webhook

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"
)

// Strategy determines how the pool picks the next endpoint.
type Strategy string

const (
	// StrategyRoundRobin cycles endpoints in configuration order.
	StrategyRoundRobin Strategy = "round_robin"
	// StrategyRandom picks a healthy endpoint uniformly at random.
	StrategyRandom Strategy = "random"
)

// Pool tracks webhook endpoints and their cooldown state.
// Thread-safe for concurrent access.
type Pool struct {
	mu        sync.Mutex
	endpoints []*endpointState
	strategy  Strategy
	cooldown  time.Duration
	rrIndex   int64
}

// endpointState holds runtime state for a single endpoint.
type endpointState struct {
	url           string
	cooldownUntil time.Time // zero when healthy
	failures      int64
}

// NewPool creates an endpoint pool. An empty strategy defaults to
// round-robin.
func NewPool(urls []string, strategy Strategy, cooldown time.Duration) (*Pool, error) {
	if len(urls) == 0 {
		return nil, errors.New("webhook pool requires at least one endpoint")
	}

	switch strategy {
	case "":
		strategy = StrategyRoundRobin
	case StrategyRoundRobin, StrategyRandom:
	default:
		return nil, fmt.Errorf("unknown pool strategy %q", strategy)
	}

	endpoints := make([]*endpointState, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			return nil, errors.New("webhook pool endpoint URL must be non-empty")
		}
		endpoints = append(endpoints, &endpointState{url: u})
	}

	return &Pool{
		endpoints: endpoints,
		strategy:  strategy,
		cooldown:  cooldown,
	}, nil
}

// Next returns the endpoint URL to try. Endpoints on cooldown are
// skipped; when every endpoint is cooling down the pool fails open and
// returns the next pick anyway.
func (p *Pool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	n := len(p.endpoints)

	if p.strategy == StrategyRandom {
		healthy := p.healthyLocked(now)
		if len(healthy) > 0 {
			return p.endpoints[healthy[randIndex(len(healthy))]].url
		}
		return p.endpoints[randIndex(n)].url
	}

	for range n {
		ep := p.endpoints[int(p.rrIndex%int64(n))]
		p.rrIndex++
		if ep.cooldownUntil.IsZero() || !ep.cooldownUntil.After(now) {
			return ep.url
		}
	}

	// Every endpoint is cooling down. Fail open with the next in order;
	// the caller's retry backoff provides the spacing.
	ep := p.endpoints[int(p.rrIndex%int64(n))]
	p.rrIndex++
	return ep.url
}

// healthyLocked returns the indexes of endpoints not on cooldown.
// Caller must hold p.mu.
func (p *Pool) healthyLocked(now time.Time) []int {
	healthy := make([]int, 0, len(p.endpoints))
	for i, ep := range p.endpoints {
		if ep.cooldownUntil.IsZero() || !ep.cooldownUntil.After(now) {
			healthy = append(healthy, i)
		}
	}
	return healthy
}

// randIndex selects uniformly at random from n candidates.
// A crypto/rand read failure falls back to the first candidate.
func randIndex(n int) int {
	if n <= 1 {
		return 0
	}
	bigIdx, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(bigIdx.Int64())
}

// MarkFailed puts the endpoint on cooldown so subsequent picks prefer
// healthy endpoints.
func (p *Pool) MarkFailed(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ep := range p.endpoints {
		if ep.url == url {
			ep.cooldownUntil = time.Now().Add(p.cooldown)
			ep.failures++
			return
		}
	}
}

// MarkHealthy clears the endpoint's cooldown after a successful delivery.
func (p *Pool) MarkHealthy(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ep := range p.endpoints {
		if ep.url == url {
			ep.cooldownUntil = time.Time{}
			return
		}
	}
}

// PoolStats reports pool state for logs and run reports.
type PoolStats struct {
	Endpoints   int
	CoolingDown int
	Failures    int64
}

// Stats returns a snapshot of the pool state.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	stats := PoolStats{Endpoints: len(p.endpoints)}
	for _, ep := range p.endpoints {
		if !ep.cooldownUntil.IsZero() && ep.cooldownUntil.After(now) {
			stats.CoolingDown++
		}
		stats.Failures += ep.failures
	}
	return stats
}
