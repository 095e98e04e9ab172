package configstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lychee-technology/filterdetect"
	"go.uber.org/zap"
)

// ErrCircuitOpen is joined into the error returned while a guarded store is short-circuited.
var ErrCircuitOpen = errors.New("configuration store circuit open")

// CircuitBreaker counts store outages within a sliding window and, once open, makes GuardedStore
// fail fast until the open period ends.
type CircuitBreaker struct {
	mu           sync.Mutex
	failures     []time.Time
	threshold    int
	window       time.Duration
	openUntil    time.Time
	openDuration time.Duration
	now          func() time.Time
}

// NewCircuitBreaker opens after threshold failures within window and stays open for openDuration.
func NewCircuitBreaker(threshold int, window, openDuration time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:    threshold,
		window:       window,
		openDuration: openDuration,
		failures:     make([]time.Time, 0, threshold),
		now:          time.Now,
	}
}

// RecordFailure counts one store outage at the current time. Reaching threshold outages inside the
// window short-circuits the store for openDuration.
func (cb *CircuitBreaker) RecordFailure() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	// only outages inside the window count
	cutoff := now.Add(-cb.window)
	i := 0
	for ; i < len(cb.failures); i++ {
		if cb.failures[i].After(cutoff) {
			break
		}
	}
	cb.failures = append(cb.failures[:0], cb.failures[i:]...)
	cb.failures = append(cb.failures, now)

	if len(cb.failures) >= cb.threshold {
		cb.openUntil = now.Add(cb.openDuration)
	}
}

// RecordSuccess closes the breaker and forgets earlier outages; a node was served.
func (cb *CircuitBreaker) RecordSuccess() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = cb.failures[:0]
	cb.openUntil = time.Time{}
}

// IsOpen reports whether the store is short-circuited at the current time.
func (cb *CircuitBreaker) IsOpen() bool {
	if cb == nil {
		return false
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.now().Before(cb.openUntil)
}

// GuardedStore short-circuits OpenNode on a remote store that keeps failing. Only
// ErrStoreUnavailable failures count; missing nodes, invalid documents and severe errors do not.
type GuardedStore struct {
	store   filterdetect.ConfigurationProvider
	breaker *CircuitBreaker
	name    string
}

// NewGuardedStore wraps store. A nil breaker passes every call through.
func NewGuardedStore(name string, store filterdetect.ConfigurationProvider, breaker *CircuitBreaker) *GuardedStore {
	return &GuardedStore{store: store, breaker: breaker, name: name}
}

// Unwrap returns the guarded store.
func (g *GuardedStore) Unwrap() filterdetect.ConfigurationProvider { return g.store }

// OpenNode implements filterdetect.ConfigurationProvider.
func (g *GuardedStore) OpenNode(ctx context.Context, nodePath string) (filterdetect.NodeAccess, error) {
	if g.breaker.IsOpen() {
		zap.S().Debugw("configuration store short-circuited", "store", g.name, "node_path", nodePath)
		return nil, filterdetect.NewStoreUnavailableError("store "+g.name+" short-circuited", ErrCircuitOpen).
			WithDetail("node_path", nodePath)
	}

	node, err := g.store.OpenNode(ctx, nodePath)
	switch {
	case err == nil:
		g.breaker.RecordSuccess()
	case errors.Is(err, filterdetect.ErrStoreUnavailable) && !filterdetect.IsSevere(err):
		g.breaker.RecordFailure()
		if g.breaker.IsOpen() {
			zap.S().Warnw("configuration store circuit opened", "store", g.name, "error", err)
		}
	}
	return node, err
}
