// Package billing meters operation invocations. The dispatch layer
// charges the operation's fixed price once per invocation after input
// validation succeeds; validation failures are never billed.
package billing

import (
	"context"
	"sync"
	"time"
)

// Meter charges a fixed price for one operation invocation.
type Meter interface {
	Charge(ctx context.Context, opKey string, price int64) error
}

// Entry is one recorded charge.
type Entry struct {
	OpKey string    `json:"opKey"`
	Price int64     `json:"price"`
	At    time.Time `json:"at"`
}

// Ledger is a thread-safe in-memory Meter that records every charge.
type Ledger struct {
	mu      sync.Mutex
	entries []Entry
	total   int64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Charge records one charge. It never fails.
func (l *Ledger) Charge(_ context.Context, opKey string, price int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{OpKey: opKey, Price: price, At: time.Now().UTC()})
	l.total += price
	return nil
}

// Total returns the sum of all recorded charges.
func (l *Ledger) Total() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Entries returns a copy of all recorded charges in order.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Count returns the number of recorded charges.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
