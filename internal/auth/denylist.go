package auth

import (
	"context"
	"sync"
	"time"
)

// DefaultPruneInterval is how often expired entries are dropped.
const DefaultPruneInterval = time.Hour

// Denylist remembers logged-out token ids until the tokens would have
// expired anyway. It lives for the life of the process and is not persisted.
type Denylist struct {
	mu       sync.RWMutex
	entries  map[string]time.Time
	now      func() time.Time
	interval time.Duration

	stopMu sync.Mutex
	stop   chan struct{}
	done   chan struct{}
}

// NewDenylist builds an empty denylist. A nil clock means time.Now and a
// non-positive interval means DefaultPruneInterval.
func NewDenylist(now func() time.Time, interval time.Duration) *Denylist {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	return &Denylist{
		entries:  make(map[string]time.Time),
		now:      now,
		interval: interval,
	}
}

// Add denies tokenID until expiresAt. Entries already past expiry are ignored.
func (d *Denylist) Add(tokenID string, expiresAt time.Time) {
	if tokenID == "" || !expiresAt.After(d.now()) {
		return
	}
	d.mu.Lock()
	d.entries[tokenID] = expiresAt
	d.mu.Unlock()
}

// Contains reports whether tokenID has been denied and has not yet expired.
func (d *Denylist) Contains(tokenID string) bool {
	d.mu.RLock()
	expiresAt, ok := d.entries[tokenID]
	d.mu.RUnlock()
	return ok && expiresAt.After(d.now())
}

// Len is the number of entries currently held, expired or not.
func (d *Denylist) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Prune drops expired entries and returns how many were removed.
func (d *Denylist) Prune() int {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	removed := 0
	for id, expiresAt := range d.entries {
		if !expiresAt.After(now) {
			delete(d.entries, id)
			removed++
		}
	}
	return removed
}

// Reset empties the denylist.
func (d *Denylist) Reset() {
	d.mu.Lock()
	d.entries = make(map[string]time.Time)
	d.mu.Unlock()
}

// Start prunes on a ticker until ctx is done or Stop is called. Calling
// Start twice without Stop is a no-op.
func (d *Denylist) Start(ctx context.Context) {
	d.stopMu.Lock()
	defer d.stopMu.Unlock()
	if d.stop != nil {
		return
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.pruneLoop(ctx, d.stop, d.done)
}

func (d *Denylist) pruneLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.Prune()
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts the prune loop and waits for it to exit.
func (d *Denylist) Stop() {
	d.stopMu.Lock()
	defer d.stopMu.Unlock()
	if d.stop == nil {
		return
	}
	close(d.stop)
	<-d.done
	d.stop = nil
	d.done = nil
}
