package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/membergate/pkg/plan"
)

// Service is the public surface consumed by the routing and component
// layer: guard evaluation, checkout/portal initiation, cancellation, and
// webhook ingestion.
type Service interface {
	// EvaluateGuard decides whether the user passes the guard. It reads
	// only the locally reconciled record and never contacts the billing
	// provider; local truth may lag provider truth by the reconciliation
	// latency.
	EvaluateGuard(ctx context.Context, userID uuid.UUID, spec GuardSpec) (Decision, error)

	// InitiateCheckout starts a subscription to the plan, or to the
	// registry default when planID is empty. Free plans skip the provider
	// and activate immediately through the reconciliation pipeline.
	InitiateCheckout(ctx context.Context, userID uuid.UUID, planID string, opts CheckoutOptions) (*CheckoutResult, error)

	// InitiatePortal returns a provider customer portal session.
	InitiatePortal(ctx context.Context, userID uuid.UUID) (*PortalSession, error)

	// Cancel requests cancellation of the user's subscription. Paid
	// subscriptions cancel at the provider and the local record follows
	// via webhook; free memberships cancel locally through the same state
	// machine.
	Cancel(ctx context.Context, userID uuid.UUID) error

	// HandleWebhook ingests one provider webhook delivery. A nil return
	// means the delivery is settled and must be acknowledged with 2xx,
	// including idempotent no-ops and discarded events provider retries
	// cannot fix. A non-nil return must map to a non-2xx response so the
	// provider redelivers.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error

	// Record returns the user's membership record.
	Record(ctx context.Context, userID uuid.UUID) (*Record, error)

	// ListRecords returns all membership records for audit.
	ListRecords(ctx context.Context) ([]*Record, error)

	// Plans lists the offerable plan catalog.
	Plans() []plan.Plan
}

// CheckoutOptions carries caller-supplied checkout session parameters.
type CheckoutOptions struct {
	Email      string // billing email, used when the provider customer is first created
	SuccessURL string // redirect after successful payment
	CancelURL  string // redirect if the customer abandons checkout
}

// CheckoutResult is the outcome of InitiateCheckout. Either the caller
// redirects the user to RedirectURL, or SkippedCheckout reports that a free
// plan activated immediately with no provider involvement.
type CheckoutResult struct {
	RedirectURL     string
	SessionID       string
	SkippedCheckout bool
}

type service struct {
	plans      *plan.Registry
	provider   BillingProvider
	store      Store
	reconciler *Reconciler
	log        *slog.Logger
	now        func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*service)

// WithLogger sets the service logger. The default discards everything.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithReconciler replaces the internally constructed Reconciler, for
// callers that need custom reconciliation options (tie-break policy,
// customer resolver, transition hooks).
func WithReconciler(r *Reconciler) ServiceOption {
	return func(s *service) {
		if r != nil {
			s.reconciler = r
		}
	}
}

// NewService assembles the membership service. Panics if a required
// dependency is nil to fail fast during initialization.
func NewService(plans *plan.Registry, provider BillingProvider, store Store, ledger Ledger, opts ...ServiceOption) Service {
	if plans == nil {
		panic("membership: plan registry is required")
	}
	if provider == nil {
		panic("membership: BillingProvider is required")
	}
	if store == nil {
		panic("membership: Store is required")
	}
	if ledger == nil {
		panic("membership: Ledger is required")
	}

	s := &service{
		plans:    plans,
		provider: provider,
		store:    store,
		log:      slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reconciler == nil {
		s.reconciler = NewReconciler(store, ledger, plans, WithReconcilerLogger(s.log))
	}
	return s
}

func (s *service) EvaluateGuard(ctx context.Context, userID uuid.UUID, spec GuardSpec) (Decision, error) {
	rec, err := s.store.ByUser(ctx, userID)
	if errors.Is(err, ErrRecordNotFound) {
		rec = nil
	} else if err != nil {
		// Fail closed: an unreadable store must not open gated content.
		return Deny, err
	}
	return Evaluate(rec, spec), nil
}

func (s *service) InitiateCheckout(ctx context.Context, userID uuid.UUID, planID string, opts CheckoutOptions) (*CheckoutResult, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUserID
	}

	var p plan.Plan
	if planID == "" {
		p = s.plans.Default()
	} else {
		var err error
		if p, err = s.plans.Get(planID); err != nil {
			return nil, err
		}
	}

	rec, err := s.store.ByUser(ctx, userID)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}
	switch rec.EffectiveStatus() {
	case StatusActive, StatusTrialing, StatusPastDue:
		// Plan changes for live subscriptions go through the portal.
		return nil, ErrAlreadySubscribed
	}

	if p.Free {
		return s.activateFreePlan(ctx, userID, p, opts)
	}

	customerID := ""
	if rec != nil {
		customerID = rec.ProviderCustomerID
	}
	if customerID == "" {
		customerID, err = s.provider.EnsureCustomer(ctx, userID, opts.Email)
		if err != nil {
			return nil, err
		}
		// Persist the customer mapping before checkout so the completion
		// webhook can anchor to this user even if it races the redirect.
		stub := rec.clone()
		if stub == nil {
			now := s.now().UTC()
			stub = &Record{UserID: userID, Status: StatusNone, CreatedAt: now}
		}
		stub.ProviderCustomerID = customerID
		stub.UpdatedAt = s.now().UTC()
		if err := s.store.Upsert(ctx, stub); err != nil {
			return nil, errors.Join(ErrFailedToSaveRecord, err)
		}
	}

	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		PriceID:            p.PriceID,
		ProviderCustomerID: customerID,
		UserID:             userID,
		Email:              opts.Email,
		SuccessURL:         opts.SuccessURL,
		CancelURL:          opts.CancelURL,
	})
	if err != nil {
		return nil, err
	}

	return &CheckoutResult{
		RedirectURL: session.URL,
		SessionID:   session.SessionID,
	}, nil
}

// activateFreePlan transitions the user without contacting the provider.
// The synthesized event runs through the identical transition table as
// webhook-delivered checkouts.
func (s *service) activateFreePlan(ctx context.Context, userID uuid.UUID, p plan.Plan, opts CheckoutOptions) (*CheckoutResult, error) {
	ev := Event{
		ID:         "local_" + uuid.NewString(),
		Kind:       EventCheckoutCompleted,
		PlanID:     p.ID,
		OccurredAt: s.now().UTC(),
	}
	if _, err := s.reconciler.ApplyForUser(ctx, userID, ev); err != nil {
		return nil, err
	}
	return &CheckoutResult{
		RedirectURL:     opts.SuccessURL,
		SkippedCheckout: true,
	}, nil
}

func (s *service) InitiatePortal(ctx context.Context, userID uuid.UUID) (*PortalSession, error) {
	rec, err := s.store.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec.ProviderCustomerID == "" {
		return nil, fmt.Errorf("%w: no customer portal for local-only memberships", ErrNoProviderSubscription)
	}
	return s.provider.CreatePortalSession(ctx, rec)
}

func (s *service) Cancel(ctx context.Context, userID uuid.UUID) error {
	rec, err := s.store.ByUser(ctx, userID)
	if err != nil {
		return err
	}

	switch rec.Status {
	case StatusActive, StatusTrialing, StatusPastDue:
	default:
		return fmt.Errorf("%w: nothing to cancel in status %s", ErrNoProviderSubscription, rec.Status)
	}

	if rec.ProviderSubscriptionID != "" {
		return s.provider.CancelSubscription(ctx, rec.ProviderSubscriptionID)
	}

	// Free membership: cancel locally through the state machine.
	ev := Event{
		ID:         "local_" + uuid.NewString(),
		Kind:       EventSubscriptionDeleted,
		OccurredAt: s.now().UTC(),
	}
	_, err = s.reconciler.ApplyForUser(ctx, userID, ev)
	return err
}

func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}

	if ev.Kind == EventNoop {
		s.log.DebugContext(ctx, "ignoring unhandled provider event",
			slog.String("event_id", ev.ID))
		return nil
	}

	_, err = s.reconciler.Apply(ctx, ev)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleEvent):
		// Expected under redelivery; already logged by the reconciler.
		return nil
	case errors.Is(err, ErrUnknownCustomer):
		// Alertable, but a provider retry cannot create the missing user
		// mapping, so the delivery is still acknowledged.
		s.log.WarnContext(ctx, "discarded event for unknown customer",
			slog.String("event_id", ev.ID),
			slog.Any("error", err))
		return nil
	default:
		return err
	}
}

func (s *service) Record(ctx context.Context, userID uuid.UUID) (*Record, error) {
	return s.store.ByUser(ctx, userID)
}

func (s *service) ListRecords(ctx context.Context) ([]*Record, error) {
	return s.store.List(ctx)
}

func (s *service) Plans() []plan.Plan {
	return s.plans.List()
}
