package membership

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BillingProvider abstracts the external billing service of record. The
// provider owns checkout, payment collection, and invoicing; this system
// only consumes session URLs and the event stream. Implementations should
// use the official provider SDK and keep provider quirks internal.
//
// All methods that reach the network must honor the context deadline and
// wrap transient failures in ErrProviderUnavailable so callers can surface
// them as retriable.
type BillingProvider interface {
	// EnsureCustomer returns the provider customer ID for a user,
	// creating the customer remotely when none exists yet.
	EnsureCustomer(ctx context.Context, userID uuid.UUID, email string) (string, error)

	// CreateCheckoutSession creates a hosted checkout session for a paid
	// plan.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// CreatePortalSession returns a pre-authenticated customer portal
	// session where users manage payment methods and cancellation.
	CreatePortalSession(ctx context.Context, rec *Record) (*PortalSession, error)

	// CancelSubscription requests cancellation of a provider
	// subscription. Local state changes only when the resulting
	// subscription_deleted event is reconciled.
	CancelSubscription(ctx context.Context, providerSubID string) error

	// ParseWebhook verifies the payload signature and normalizes the
	// event. Returns ErrWebhookVerificationFailed on a bad signature;
	// provider event types outside the normalized set come back as
	// EventNoop rather than errors.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (Event, error)
}

// CheckoutRequest carries what the provider needs to open a checkout
// session for a paid plan.
type CheckoutRequest struct {
	PriceID            string
	ProviderCustomerID string
	UserID             uuid.UUID // round-tripped through provider metadata
	Email              string
	SuccessURL         string
	CancelURL          string
}

// CheckoutSession is a hosted checkout session at the provider.
type CheckoutSession struct {
	URL       string
	SessionID string
	ExpiresAt time.Time
}

// PortalSession is a pre-authenticated customer portal session.
type PortalSession struct {
	URL              string
	CancelURL        string
	UpdatePaymentURL string
	ExpiresAt        time.Time
}
