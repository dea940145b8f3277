package membership

import "slices"

// GuardSpec is a closed set of access predicates over membership state.
// Construct specs through the constructor functions; the zero value denies
// everything.
type GuardSpec struct {
	kind    guardKind
	status  Status
	planIDs []string
}

type guardKind int

const (
	guardInvalid guardKind = iota
	guardMemberAny
	guardMemberWithStatus
	guardMemberWithPlan
	guardNonMember
)

// MemberAny admits any user who ever initiated a subscription, whatever its
// current payment health. Deliberately permissive so past-due and canceled
// users still reach account and billing-management views.
func MemberAny() GuardSpec {
	return GuardSpec{kind: guardMemberAny}
}

// MemberWithStatus admits only users whose record matches the status exactly.
func MemberWithStatus(s Status) GuardSpec {
	return GuardSpec{kind: guardMemberWithStatus, status: s}
}

// MemberWithPlan admits users holding an entitling subscription (active or
// trialing) to one of the given plans. Past-due and canceled users are not
// "on" a plan for plan-gated content.
func MemberWithPlan(planIDs ...string) GuardSpec {
	return GuardSpec{kind: guardMemberWithPlan, planIDs: slices.Clone(planIDs)}
}

// NonMember admits users with no record or a record at StatusNone.
func NonMember() GuardSpec {
	return GuardSpec{kind: guardNonMember}
}

// Evaluate decides allow/deny for a record against a guard spec. It is a
// pure read: no state mutation, no provider calls, safe from any number of
// concurrent request-handling goroutines. A nil record means the user has
// no membership history.
func Evaluate(rec *Record, spec GuardSpec) Decision {
	status := rec.EffectiveStatus()

	switch spec.kind {
	case guardMemberAny:
		if status != StatusNone {
			return Allow
		}
	case guardMemberWithStatus:
		if status != StatusNone && status == spec.status {
			return Allow
		}
	case guardMemberWithPlan:
		if status != StatusActive && status != StatusTrialing {
			return Deny
		}
		if slices.Contains(spec.planIDs, rec.PlanID) {
			return Allow
		}
	case guardNonMember:
		if status == StatusNone {
			return Allow
		}
	}
	return Deny
}
