// Package dedup tracks identity keys already handled within one run.
package dedup

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxSize comfortably exceeds the number of apps or developers in any store listing.
const DefaultMaxSize = 1_000_000

// Ledger is a set of seen keys. It is bounded so a runaway input cannot grow it
// without limit; the least recently marked keys are evicted first.
// It is owned by a single run and is not shared across goroutines by callers.
type Ledger struct {
	keys *lru.Cache[string, struct{}]
}

// NewLedger returns an empty ledger holding at most maxSize keys.
func NewLedger(maxSize int) (*Ledger, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	cache, err := lru.New[string, struct{}](maxSize)
	if err != nil {
		return nil, fmt.Errorf("create dedup ledger: %w", err)
	}
	return &Ledger{keys: cache}, nil
}

// Seen reports whether key was marked.
func (l *Ledger) Seen(key string) bool {
	return l.keys.Contains(key)
}

// Mark records key as seen.
func (l *Ledger) Mark(key string) {
	l.keys.Add(key, struct{}{})
}

// Len returns the number of keys currently held.
func (l *Ledger) Len() int {
	return l.keys.Len()
}
