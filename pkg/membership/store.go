package membership

import (
	"context"

	"github.com/google/uuid"
)

// Store defines persistence for membership records. Each user has at most
// one record, keyed by user ID; provider identifiers are unique secondary
// keys when set.
//
// Upsert must be atomic per user so the Reconciler's read-modify-write cycle
// (already serialized per customer) observes a consistent record.
type Store interface {
	// ByUser retrieves a user's record.
	// Returns ErrRecordNotFound if no record exists.
	ByUser(ctx context.Context, userID uuid.UUID) (*Record, error)

	// ByProviderSubscription retrieves a record by the provider's
	// subscription ID. Returns ErrRecordNotFound if none matches.
	ByProviderSubscription(ctx context.Context, providerSubID string) (*Record, error)

	// ByProviderCustomer retrieves a record by the provider's customer ID.
	// The Reconciler uses it to anchor inbound events to a local user.
	// Returns ErrRecordNotFound if none matches.
	ByProviderCustomer(ctx context.Context, providerCustomerID string) (*Record, error)

	// Upsert creates or replaces a record, keyed by UserID.
	Upsert(ctx context.Context, rec *Record) error

	// List returns all records for audit purposes, in no particular order.
	List(ctx context.Context) ([]*Record, error)
}
