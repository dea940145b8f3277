package membership

import (
	"context"
	"sync"
	"time"
)

// DefaultLedgerRetention bounds how long processed event IDs are remembered.
// It must cover the provider's redelivery window; Paddle retries for up to
// three days, 30 days leaves generous slack.
const DefaultLedgerRetention = 30 * 24 * time.Hour

// Ledger is the dedup ledger of processed event IDs. It makes at-least-once
// webhook delivery safe: a second sighting of an event ID short-circuits
// into an idempotent no-op before the state machine runs.
//
// Seen and MarkProcessed are separate so an event is only marked after its
// record write succeeded; a failed write leaves the ledger untouched and the
// provider's redelivery gets a clean retry. The Reconciler serializes both
// calls per customer, so the split does not race.
type Ledger interface {
	// Seen reports whether the event ID was already processed within the
	// retention window.
	Seen(ctx context.Context, eventID string) (bool, error)

	// MarkProcessed records an event ID with bounded retention.
	MarkProcessed(ctx context.Context, eventID string) error
}

type memLedger struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	retention time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryLedger returns an in-process Ledger with bounded retention.
// Expired entries are swept lazily on write. Pass zero to use
// DefaultLedgerRetention.
func NewMemoryLedger(retention time.Duration) Ledger {
	if retention <= 0 {
		retention = DefaultLedgerRetention
	}
	return &memLedger{
		seen:      make(map[string]time.Time),
		retention: retention,
		now:       time.Now,
	}
}

func (l *memLedger) Seen(_ context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiry, ok := l.seen[eventID]
	return ok && l.now().Before(expiry), nil
}

func (l *memLedger) MarkProcessed(_ context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)
	l.seen[eventID] = now.Add(l.retention)
	return nil
}

// sweep drops expired entries at most once per hour to keep writes cheap.
func (l *memLedger) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < time.Hour {
		return
	}
	l.lastSweep = now
	for id, expiry := range l.seen {
		if !now.Before(expiry) {
			delete(l.seen, id)
		}
	}
}
