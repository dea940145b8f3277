package membership

import (
	"fmt"
	"time"
)

// Event is the canonical internal form of a billing provider event.
// Raw webhook payloads are parsed into this closed shape at the boundary;
// the Reconciler never sees provider-specific structures.
//
// Events are ephemeral: constructed per delivery, applied once, and not
// persisted beyond the dedup ledger entry for their ID.
type Event struct {
	// ID is the provider-assigned event identifier, unique per event and
	// stable across redeliveries. Used for deduplication.
	ID string

	// Seq is the provider's ordering hint, when it supplies one. Absent
	// for providers (Paddle included) that only timestamp their events;
	// ordering then falls back to OccurredAt.
	Seq *int64

	Kind EventKind

	ProviderCustomerID     string
	ProviderSubscriptionID string

	// PriceID references the provider price the event concerns, mapped
	// back to a plan through the registry. Empty for payment events.
	PriceID string

	// PlanID is the internal plan ID when the event originated locally
	// (free-plan activation). Provider events leave it empty and resolve
	// through PriceID instead.
	PlanID string

	// Status is the provider-reported subscription status, already parsed
	// into the closed Status set. Empty when the event carries none.
	Status Status

	PeriodEnd  *time.Time
	OccurredAt time.Time
}

// Validate checks the minimal shape required for reconciliation.
// Noop events are exempt: they are acknowledged and dropped before any
// field is read.
func (e Event) Validate() error {
	if e.Kind == EventNoop {
		return nil
	}
	if e.ID == "" {
		return fmt.Errorf("%w: missing event ID", ErrInvalidEvent)
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("%w: missing occurrence time", ErrInvalidEvent)
	}
	return nil
}

// tightensAccess reports whether applying the event would move the record
// toward a more restrictive status. Used by the default tie-break policy.
func (e Event) tightensAccess(current Status) bool {
	next := e.Status
	if e.Kind == EventSubscriptionDeleted {
		next = StatusCanceled
	}
	if next == "" {
		return false
	}
	return restrictiveness(next) > restrictiveness(current)
}
