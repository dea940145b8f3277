// Package notify sends billing lifecycle notifications driven by
// membership status transitions: dunning notices when a subscription goes
// past due and confirmations when it ends.
//
// Wire it into the reconciler as a transition hook:
//
//	sender, err := notify.NewPostmarkSender(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	rec := membership.NewReconciler(store, ledger, plans,
//		membership.WithTransitionHook(notify.TransitionHook(sender, resolveEmail, logger)),
//	)
//
// Senders: Postmark for production, a file-writing dev sender for local
// runs, and a no-op for deployments that notify elsewhere. Delivery
// failures are logged and never propagate into reconciliation.
package notify
