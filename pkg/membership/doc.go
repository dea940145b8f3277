// Package membership keeps local subscription state synchronized with a
// billing provider and answers access-control questions against that state.
//
// The package is built around three cooperating pieces:
//
//   - Reconciler: the single writer of membership records. It normalizes
//     provider webhook deliveries into a closed Event type, deduplicates
//     them, discards stale or out-of-order arrivals, and applies the rest
//     through one status transition table.
//   - Guard engine: a pure function from (Record, GuardSpec) to Allow/Deny,
//     used by routing middleware to gate routes and components.
//   - Service: the application-facing surface tying registry, store,
//     provider, and reconciler together: checkout/portal initiation,
//     cancellation, webhook ingestion, and guard evaluation.
//
// # State model
//
// Each user has at most one Record. Its Status moves through a closed set:
//
//	none -> active | trialing        (checkout completed)
//	active/trialing -> past_due      (payment failed / provider update)
//	past_due -> active               (payment recovered)
//	active/trialing/past_due -> canceled (subscription deleted)
//	canceled -> active | trialing    (resubscription, fresh cycle)
//
// Records are never hard-deleted; ended subscriptions stay at canceled so
// the history remains auditable. A record at StatusNone is a stub created
// at checkout initiation to anchor the provider customer mapping.
//
// # Delivery guarantees
//
// Billing providers deliver webhooks at least once, concurrently, and
// without ordering guarantees. Three mechanisms make that safe:
//
//   - A dedup Ledger of processed event IDs (memory or Redis) turns
//     redeliveries into idempotent no-ops.
//   - Sequence numbers, when the provider supplies them, and occurrence
//     timestamps otherwise, drop events already superseded by a later one.
//     Same-timestamp conflicts resolve by a configurable TieBreakPolicy,
//     defaulting to the outcome that restricts access.
//   - Striped per-user locks serialize reconciliation per record across
//     every path into the Reconciler while unrelated users proceed in
//     parallel.
//
// # Guard evaluation
//
// Guards are a closed set of specs evaluated by one pure function:
//
//	membership.Evaluate(rec, membership.MemberAny())          // any subscription history
//	membership.Evaluate(rec, membership.MemberWithStatus(membership.StatusActive))
//	membership.Evaluate(rec, membership.MemberWithPlan("pro", "team"))
//	membership.Evaluate(rec, membership.NonMember())
//
// Evaluation never mutates state and never calls the provider, so gated
// routes stay fast and available when the provider is not. Local truth may
// lag provider truth by the reconciliation latency; that staleness window
// is accepted and bounded.
//
// # Quick start
//
//	reg, err := plan.NewRegistry(ctx, plan.NewStaticSource(
//		plan.Plan{ID: "free", Name: "Free", Free: true, Default: true},
//		plan.Plan{ID: "pro", Name: "Pro", PriceID: "pri_123", Trial: true, TrialDays: 14},
//	))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	provider, err := membership.NewPaddleProvider(paddleCfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	svc := membership.NewService(reg, provider,
//		membership.NewMemoryStore(),
//		membership.NewMemoryLedger(0),
//		membership.WithLogger(logger),
//	)
//
//	r := chi.NewRouter()
//	r.Mount("/billing", membership.Router(svc, logger))
//	r.With(membership.RequireGuard(svc, membership.MemberWithPlan("pro"))).
//		Get("/reports", reportsHandler)
//
// Production deployments swap the memory store for NewPostgresStore or
// NewMongoStore and the memory ledger for NewRedisLedger.
//
// # Free plans
//
// Plans flagged Free never touch the provider. InitiateCheckout synthesizes
// a checkout-completed event and runs it through the same reconciliation
// pipeline as webhook deliveries, so free activation obeys the identical
// transition table, trial bookkeeping, and logging.
package membership
