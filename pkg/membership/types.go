package membership

import "fmt"

// Status is the canonical local membership state. The set is closed: values
// arriving from the provider are parsed through ParseStatus at the boundary
// and never stored raw.
type Status string

const (
	// StatusNone means the user never subscribed. Absent records evaluate
	// as StatusNone; stored records hold it only as a stub carrying the
	// provider customer mapping created at checkout initiation.
	StatusNone     Status = "none"
	StatusActive   Status = "active"
	StatusTrialing Status = "trialing"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
)

// ParseStatus validates a provider-supplied status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNone, StatusActive, StatusTrialing, StatusPastDue, StatusCanceled:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// restrictiveness orders statuses from most permissive to most restrictive.
// Used by the tie-break policy when two events carry the same timestamp.
func restrictiveness(s Status) int {
	switch s {
	case StatusActive:
		return 0
	case StatusTrialing:
		return 1
	case StatusPastDue:
		return 2
	case StatusCanceled:
		return 3
	case StatusNone:
		return 4
	}
	return 0
}

// EventKind is the normalized billing event type. Provider events outside
// this set map to EventNoop and are explicitly ignored downstream.
type EventKind string

const (
	EventCheckoutCompleted   EventKind = "checkout_completed"
	EventSubscriptionUpdated EventKind = "subscription_updated"
	EventSubscriptionDeleted EventKind = "subscription_deleted"
	EventPaymentFailed       EventKind = "payment_failed"
	EventPaymentSucceeded    EventKind = "payment_succeeded"
	EventNoop                EventKind = "noop"
)

// Decision is the result of a guard evaluation.
type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
)

// Allowed is a convenience predicate over Decision.
func (d Decision) Allowed() bool {
	return d == Allow
}
