package membership

import (
	"time"

	"github.com/google/uuid"
)

// Record is a user's locally reconciled subscription state.
// Each user has at most one record, created on first checkout and mutated by
// every reconciled event thereafter. Records are never hard-deleted; ended
// subscriptions transition to StatusCanceled to preserve the audit trail.
//
// The record is owned exclusively by the Reconciler. Guard evaluation and
// any other reader treats it as immutable.
type Record struct {
	UserID                 uuid.UUID // primary key, one record per user
	ProviderCustomerID     string
	ProviderSubscriptionID string // empty for free plans
	PlanID                 string
	Status                 Status
	CurrentPeriodEnd       *time.Time

	// TrialUsed is set the first time the user enters trialing so a
	// resubscription cannot start a second trial.
	TrialUsed bool

	// Last applied event, used for idempotence and ordering checks.
	LastEventID  string
	LastEventSeq *int64
	LastEventAt  time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveStatus returns the record's status, treating a nil record as
// StatusNone so callers can evaluate guards without a presence check.
func (r *Record) EffectiveStatus() Status {
	if r == nil {
		return StatusNone
	}
	return r.Status
}

// IsMember reports whether the user ever initiated a subscription,
// regardless of current payment health.
func (r *Record) IsMember() bool {
	return r.EffectiveStatus() != StatusNone
}

// OnPlan reports whether the user currently holds an entitling subscription
// to the given plan. Past-due and canceled records are not "on" a plan.
func (r *Record) OnPlan(planID string) bool {
	if r == nil {
		return false
	}
	if r.Status != StatusActive && r.Status != StatusTrialing {
		return false
	}
	return r.PlanID == planID
}

func (r *Record) clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	if r.CurrentPeriodEnd != nil {
		t := *r.CurrentPeriodEnd
		cp.CurrentPeriodEnd = &t
	}
	if r.LastEventSeq != nil {
		n := *r.LastEventSeq
		cp.LastEventSeq = &n
	}
	return &cp
}
