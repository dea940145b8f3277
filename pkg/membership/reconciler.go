package membership

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/membergate/pkg/plan"
)

// TieBreakPolicy decides the fate of an event whose timestamp equals the
// record's last applied one when no sequence numbers are available. The
// provider gives no ordering guarantee for ties, so the choice is policy.
type TieBreakPolicy string

const (
	// TieBreakPreferRestrictive applies a tied event only when it moves
	// the record toward past_due/canceled, erring on the provider's side
	// of truth for billing-affecting states. This is the default.
	TieBreakPreferRestrictive TieBreakPolicy = "prefer_restrictive"

	// TieBreakApplyIncoming always applies a tied event.
	TieBreakApplyIncoming TieBreakPolicy = "apply_incoming"

	// TieBreakDropIncoming always drops a tied event.
	TieBreakDropIncoming TieBreakPolicy = "drop_incoming"
)

// TransitionHook observes applied status transitions, e.g. to send dunning
// notifications. Hooks run synchronously after the record write; they must
// not block and their failures must stay internal.
type TransitionHook func(ctx context.Context, rec *Record, from, to Status)

// CustomerResolver maps a provider customer ID to a local user when the
// store holds no record for that customer yet. Implementations must never
// synthesize users; return ErrUnknownCustomer when no mapping exists.
type CustomerResolver func(ctx context.Context, providerCustomerID string) (uuid.UUID, error)

// Reconciler applies normalized billing events to membership records. It is
// the single writer of Record state: deduplication, ordering, and the
// status transition table all live here so every path into a record change
// (webhooks and local free-plan activation alike) behaves identically.
type Reconciler struct {
	store    Store
	ledger   Ledger
	plans    *plan.Registry
	resolver CustomerResolver
	tieBreak TieBreakPolicy
	hook     TransitionHook
	log      *slog.Logger
	now      func() time.Time

	// Striped per-user locks serialize the read-modify-write cycle so
	// concurrent deliveries for one record observe consistent prior state,
	// whether they arrive as webhooks or locally synthesized events.
	// Unrelated users proceed in parallel.
	locks [64]sync.Mutex
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithTieBreak overrides the same-timestamp tie-break policy.
func WithTieBreak(p TieBreakPolicy) ReconcilerOption {
	return func(r *Reconciler) {
		switch p {
		case TieBreakPreferRestrictive, TieBreakApplyIncoming, TieBreakDropIncoming:
			r.tieBreak = p
		default:
			panic(fmt.Sprintf("membership: unknown tie-break policy %q", p))
		}
	}
}

// WithCustomerResolver installs a fallback mapping from provider customer
// IDs to users, consulted only when the store has no record for the
// customer. The default resolves through the store alone.
func WithCustomerResolver(fn CustomerResolver) ReconcilerOption {
	return func(r *Reconciler) {
		if fn != nil {
			r.resolver = fn
		}
	}
}

// WithTransitionHook registers an observer for applied status transitions.
func WithTransitionHook(hook TransitionHook) ReconcilerOption {
	return func(r *Reconciler) {
		if hook != nil {
			r.hook = hook
		}
	}
}

// WithReconcilerLogger sets the logger for transition and discard logging.
func WithReconcilerLogger(log *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

// withNow overrides the clock, for tests.
func withNow(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) { r.now = now }
}

// NewReconciler creates a Reconciler. Panics if store, ledger, or plans are
// nil to fail fast during initialization.
func NewReconciler(store Store, ledger Ledger, plans *plan.Registry, opts ...ReconcilerOption) *Reconciler {
	if store == nil {
		panic("membership: Store is required")
	}
	if ledger == nil {
		panic("membership: Ledger is required")
	}
	if plans == nil {
		panic("membership: plan registry is required")
	}

	r := &Reconciler{
		store:    store,
		ledger:   ledger,
		plans:    plans,
		tieBreak: TieBreakPreferRestrictive,
		log:      slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply runs one event through the state machine and persists the result.
//
// Benign discards surface as sentinel errors so callers can distinguish
// them without treating them as failures: ErrStaleEvent for superseded
// events, ErrUnknownCustomer for events with no local anchor. A duplicate
// delivery returns the current record with a nil error. Noop events return
// (nil, nil) without touching any state.
func (r *Reconciler) Apply(ctx context.Context, ev Event) (*Record, error) {
	if ev.Kind == EventNoop {
		return nil, nil
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	if ev.ProviderCustomerID == "" {
		return nil, fmt.Errorf("%w: missing provider customer ID", ErrInvalidEvent)
	}

	// Resolve the record once to learn which user it belongs to, take the
	// per-user lock shared with ApplyForUser, then resolve again: the first
	// read raced other writers and may be stale.
	rec, err := r.resolveRecord(ctx, ev)
	if err != nil {
		return nil, err
	}

	unlock := r.lock(userLockKey(rec.UserID))
	defer unlock()

	rec, err = r.resolveRecord(ctx, ev)
	if err != nil {
		return nil, err
	}

	return r.applyLocked(ctx, rec, ev)
}

// ApplyForUser runs a locally synthesized event through the same transition
// pipeline, anchored by user ID instead of provider identifiers. This is
// the free-plan activation path: no provider round trip, identical state
// machine.
func (r *Reconciler) ApplyForUser(ctx context.Context, userID uuid.UUID, ev Event) (*Record, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUserID
	}
	if ev.Kind == EventNoop {
		return nil, nil
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	unlock := r.lock(userLockKey(userID))
	defer unlock()

	rec, err := r.store.ByUser(ctx, userID)
	if errors.Is(err, ErrRecordNotFound) {
		rec = &Record{UserID: userID, Status: StatusNone}
	} else if err != nil {
		return nil, err
	}

	return r.applyLocked(ctx, rec, ev)
}

func (r *Reconciler) applyLocked(ctx context.Context, rec *Record, ev Event) (*Record, error) {
	seen, err := r.ledger.Seen(ctx, ev.ID)
	if err != nil {
		return nil, err
	}

	if seen || rec.LastEventID == ev.ID {
		r.log.DebugContext(ctx, "duplicate event ignored",
			slog.String("event_id", ev.ID),
			slog.String("event_kind", string(ev.Kind)))
		return rec, nil
	}

	if r.isStale(rec, ev) {
		r.log.InfoContext(ctx, "stale event discarded",
			slog.String("event_id", ev.ID),
			slog.String("event_kind", string(ev.Kind)),
			slog.String("user_id", rec.UserID.String()),
			slog.Time("occurred_at", ev.OccurredAt))
		return rec, ErrStaleEvent
	}

	before := rec.Status
	next := rec.clone()
	r.transition(ctx, next, ev)

	now := r.now().UTC()
	next.LastEventID = ev.ID
	next.LastEventSeq = ev.Seq
	next.LastEventAt = ev.OccurredAt
	next.UpdatedAt = now
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}

	if err := r.store.Upsert(ctx, next); err != nil {
		return nil, errors.Join(ErrFailedToSaveRecord, err)
	}
	// Record write is durable; only now does the event count as processed.
	// A crash between the two writes is recovered by the LastEventID and
	// staleness checks on redelivery.
	if err := r.ledger.MarkProcessed(ctx, ev.ID); err != nil {
		r.log.ErrorContext(ctx, "dedup ledger write failed after apply",
			slog.String("event_id", ev.ID),
			slog.Any("error", err))
	}

	r.log.InfoContext(ctx, "membership state reconciled",
		slog.String("event_id", ev.ID),
		slog.String("event_kind", string(ev.Kind)),
		slog.String("user_id", next.UserID.String()),
		slog.String("status_before", string(before)),
		slog.String("status_after", string(next.Status)))

	if r.hook != nil && before != next.Status {
		r.hook(ctx, next.clone(), before, next.Status)
	}

	return next, nil
}

// resolveRecord anchors an event to a local record: by provider
// subscription ID first, then provider customer ID, then the optional
// resolver for customers the store has never seen.
func (r *Reconciler) resolveRecord(ctx context.Context, ev Event) (*Record, error) {
	if ev.ProviderSubscriptionID != "" {
		rec, err := r.store.ByProviderSubscription(ctx, ev.ProviderSubscriptionID)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrRecordNotFound) {
			return nil, err
		}
	}

	rec, err := r.store.ByProviderCustomer(ctx, ev.ProviderCustomerID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}

	if r.resolver != nil {
		userID, err := r.resolver(ctx, ev.ProviderCustomerID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCustomer, ev.ProviderCustomerID)
		}
		return &Record{
			UserID:             userID,
			ProviderCustomerID: ev.ProviderCustomerID,
			Status:             StatusNone,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownCustomer, ev.ProviderCustomerID)
}

// isStale implements the ordering rule: sequence comparison when both sides
// carry one, occurrence-time comparison otherwise, ties decided by policy.
func (r *Reconciler) isStale(rec *Record, ev Event) bool {
	if ev.Seq != nil && rec.LastEventSeq != nil {
		return *ev.Seq <= *rec.LastEventSeq
	}
	if rec.LastEventAt.IsZero() {
		return false
	}
	if ev.OccurredAt.Before(rec.LastEventAt) {
		return true
	}
	if ev.OccurredAt.Equal(rec.LastEventAt) {
		switch r.tieBreak {
		case TieBreakApplyIncoming:
			return false
		case TieBreakDropIncoming:
			return true
		default:
			return !ev.tightensAccess(rec.Status)
		}
	}
	return false
}

// transition mutates rec in place per the status transition table. It never
// fails: unmappable plans degrade to a partial apply with a warning, and
// events that make no sense for the current status leave it unchanged.
func (r *Reconciler) transition(ctx context.Context, rec *Record, ev Event) {
	switch ev.Kind {
	case EventCheckoutCompleted:
		p, ok := r.resolvePlan(ctx, rec, ev)
		switch {
		case ok && p.Trial && !rec.TrialUsed:
			rec.Status = StatusTrialing
			rec.TrialUsed = true
		case ok && p.Trial && rec.Status == StatusTrialing && rec.PlanID == p.ID:
			// Companion event of the checkout that started this trial;
			// the trial stands.
		default:
			rec.Status = StatusActive
		}
		if ok {
			rec.PlanID = p.ID
		}
		if ev.ProviderSubscriptionID != "" {
			rec.ProviderSubscriptionID = ev.ProviderSubscriptionID
		}
		if ev.PeriodEnd != nil {
			rec.CurrentPeriodEnd = ev.PeriodEnd
		}

	case EventSubscriptionUpdated:
		if ev.Status != "" {
			rec.Status = ev.Status
		}
		if rec.Status == StatusTrialing {
			rec.TrialUsed = true
		}
		if p, ok := r.resolvePlan(ctx, rec, ev); ok {
			rec.PlanID = p.ID
		}
		if ev.ProviderSubscriptionID != "" {
			rec.ProviderSubscriptionID = ev.ProviderSubscriptionID
		}
		if ev.PeriodEnd != nil {
			rec.CurrentPeriodEnd = ev.PeriodEnd
		}

	case EventSubscriptionDeleted:
		rec.Status = StatusCanceled

	case EventPaymentFailed:
		switch rec.Status {
		case StatusActive, StatusTrialing, StatusPastDue:
			rec.Status = StatusPastDue
		}

	case EventPaymentSucceeded:
		if rec.Status == StatusPastDue {
			rec.Status = StatusActive
		}
		if ev.PeriodEnd != nil {
			rec.CurrentPeriodEnd = ev.PeriodEnd
		}
	}
}

// resolvePlan maps the event's plan reference through the registry. A
// reference the registry does not know is a data error: status and period
// still apply, but the stored plan stays put and the mismatch is logged at
// warning level for alerting.
func (r *Reconciler) resolvePlan(ctx context.Context, rec *Record, ev Event) (plan.Plan, bool) {
	switch {
	case ev.PlanID != "":
		p, err := r.plans.Get(ev.PlanID)
		if err == nil {
			return p, true
		}
		r.logPlanMismatch(ctx, rec, ev, ev.PlanID)
	case ev.PriceID != "":
		p, err := r.plans.ByPriceID(ev.PriceID)
		if err == nil {
			return p, true
		}
		r.logPlanMismatch(ctx, rec, ev, ev.PriceID)
	}
	return plan.Plan{}, false
}

func (r *Reconciler) logPlanMismatch(ctx context.Context, rec *Record, ev Event, ref string) {
	r.log.WarnContext(ctx, "event references unknown plan, applying status only",
		slog.String("event_id", ev.ID),
		slog.String("plan_ref", ref),
		slog.String("user_id", rec.UserID.String()))
}

// userLockKey is the one canonical lock key per record. Both entry points
// derive it from the owning user, so webhook deliveries and locally
// synthesized events for the same record always serialize.
func userLockKey(userID uuid.UUID) string {
	return "user:" + userID.String()
}

func (r *Reconciler) lock(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key))
	mu := &r.locks[h.Sum32()%uint32(len(r.locks))]
	mu.Lock()
	return mu.Unlock
}
