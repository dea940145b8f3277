package membership_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/membergate/pkg/membership"
)

func recordWith(status membership.Status, planID string) *membership.Record {
	return &membership.Record{
		UserID: uuid.New(),
		PlanID: planID,
		Status: status,
	}
}

func TestEvaluate_MemberAny(t *testing.T) {
	t.Parallel()

	t.Run("allows any subscription history", func(t *testing.T) {
		t.Parallel()
		for _, status := range []membership.Status{
			membership.StatusActive,
			membership.StatusTrialing,
			membership.StatusPastDue,
			membership.StatusCanceled,
		} {
			decision := membership.Evaluate(recordWith(status, "pro"), membership.MemberAny())
			assert.Equal(t, membership.Allow, decision, "status %s", status)
		}
	})

	t.Run("denies absent record", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, membership.Deny, membership.Evaluate(nil, membership.MemberAny()))
	})

	t.Run("denies stub record", func(t *testing.T) {
		t.Parallel()
		decision := membership.Evaluate(recordWith(membership.StatusNone, ""), membership.MemberAny())
		assert.Equal(t, membership.Deny, decision)
	})
}

func TestEvaluate_MemberWithStatus(t *testing.T) {
	t.Parallel()

	t.Run("exact match only", func(t *testing.T) {
		t.Parallel()
		rec := recordWith(membership.StatusPastDue, "pro")

		assert.Equal(t, membership.Allow,
			membership.Evaluate(rec, membership.MemberWithStatus(membership.StatusPastDue)))
		assert.Equal(t, membership.Deny,
			membership.Evaluate(rec, membership.MemberWithStatus(membership.StatusActive)))
	})

	t.Run("denies absent record", func(t *testing.T) {
		t.Parallel()
		decision := membership.Evaluate(nil, membership.MemberWithStatus(membership.StatusActive))
		assert.Equal(t, membership.Deny, decision)
	})
}

func TestEvaluate_MemberWithPlan(t *testing.T) {
	t.Parallel()

	t.Run("active on matching plan", func(t *testing.T) {
		t.Parallel()
		decision := membership.Evaluate(recordWith(membership.StatusActive, "pro"),
			membership.MemberWithPlan("pro"))
		assert.Equal(t, membership.Allow, decision)
	})

	t.Run("trialing on matching plan", func(t *testing.T) {
		t.Parallel()
		decision := membership.Evaluate(recordWith(membership.StatusTrialing, "pro"),
			membership.MemberWithPlan("pro", "team"))
		assert.Equal(t, membership.Allow, decision)
	})

	t.Run("past_due is not on a plan", func(t *testing.T) {
		t.Parallel()
		decision := membership.Evaluate(recordWith(membership.StatusPastDue, "pro"),
			membership.MemberWithPlan("pro"))
		assert.Equal(t, membership.Deny, decision)
	})

	t.Run("canceled is not on a plan", func(t *testing.T) {
		t.Parallel()
		decision := membership.Evaluate(recordWith(membership.StatusCanceled, "pro"),
			membership.MemberWithPlan("pro"))
		assert.Equal(t, membership.Deny, decision)
	})

	t.Run("active on a different plan", func(t *testing.T) {
		t.Parallel()
		decision := membership.Evaluate(recordWith(membership.StatusActive, "basic"),
			membership.MemberWithPlan("pro"))
		assert.Equal(t, membership.Deny, decision)
	})
}

func TestEvaluate_NonMember(t *testing.T) {
	t.Parallel()

	t.Run("allows absent record", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, membership.Allow, membership.Evaluate(nil, membership.NonMember()))
	})

	t.Run("allows stub record", func(t *testing.T) {
		t.Parallel()
		decision := membership.Evaluate(recordWith(membership.StatusNone, ""), membership.NonMember())
		assert.Equal(t, membership.Allow, decision)
	})

	t.Run("denies any member", func(t *testing.T) {
		t.Parallel()
		for _, status := range []membership.Status{
			membership.StatusActive,
			membership.StatusTrialing,
			membership.StatusPastDue,
			membership.StatusCanceled,
		} {
			decision := membership.Evaluate(recordWith(status, "pro"), membership.NonMember())
			assert.Equal(t, membership.Deny, decision, "status %s", status)
		}
	})
}

func TestEvaluate_ZeroSpecDeniesEverything(t *testing.T) {
	t.Parallel()

	var zero membership.GuardSpec
	assert.Equal(t, membership.Deny, membership.Evaluate(nil, zero))
	assert.Equal(t, membership.Deny, membership.Evaluate(recordWith(membership.StatusActive, "pro"), zero))
}
