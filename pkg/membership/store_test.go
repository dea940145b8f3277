package membership_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/membergate/pkg/membership"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("round trip by user", func(t *testing.T) {
		t.Parallel()
		store := membership.NewMemoryStore()
		userID := uuid.New()

		require.NoError(t, store.Upsert(ctx, &membership.Record{
			UserID:                 userID,
			ProviderCustomerID:     "ctm_1",
			ProviderSubscriptionID: "sub_1",
			PlanID:                 "pro",
			Status:                 membership.StatusActive,
		}))

		rec, err := store.ByUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "pro", rec.PlanID)

		rec, err = store.ByProviderSubscription(ctx, "sub_1")
		require.NoError(t, err)
		assert.Equal(t, userID, rec.UserID)

		rec, err = store.ByProviderCustomer(ctx, "ctm_1")
		require.NoError(t, err)
		assert.Equal(t, userID, rec.UserID)
	})

	t.Run("misses", func(t *testing.T) {
		t.Parallel()
		store := membership.NewMemoryStore()

		_, err := store.ByUser(ctx, uuid.New())
		assert.ErrorIs(t, err, membership.ErrRecordNotFound)

		_, err = store.ByProviderSubscription(ctx, "sub_missing")
		assert.ErrorIs(t, err, membership.ErrRecordNotFound)

		// Empty identifiers never match the empty fields of other records.
		_, err = store.ByProviderSubscription(ctx, "")
		assert.ErrorIs(t, err, membership.ErrRecordNotFound)
		_, err = store.ByProviderCustomer(ctx, "")
		assert.ErrorIs(t, err, membership.ErrRecordNotFound)
	})

	t.Run("upsert replaces", func(t *testing.T) {
		t.Parallel()
		store := membership.NewMemoryStore()
		userID := uuid.New()

		require.NoError(t, store.Upsert(ctx, &membership.Record{
			UserID: userID,
			Status: membership.StatusNone,
		}))
		require.NoError(t, store.Upsert(ctx, &membership.Record{
			UserID: userID,
			PlanID: "basic",
			Status: membership.StatusActive,
		}))

		records, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, membership.StatusActive, records[0].Status)
	})

	t.Run("rejects missing user ID", func(t *testing.T) {
		t.Parallel()
		store := membership.NewMemoryStore()

		assert.ErrorIs(t, store.Upsert(ctx, nil), membership.ErrMissingUserID)
		assert.ErrorIs(t, store.Upsert(ctx, &membership.Record{}), membership.ErrMissingUserID)
	})

	t.Run("no aliasing of stored state", func(t *testing.T) {
		t.Parallel()
		store := membership.NewMemoryStore()
		userID := uuid.New()

		in := &membership.Record{UserID: userID, PlanID: "basic", Status: membership.StatusActive}
		require.NoError(t, store.Upsert(ctx, in))
		in.Status = membership.StatusCanceled

		rec, err := store.ByUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, membership.StatusActive, rec.Status)

		rec.Status = membership.StatusCanceled
		again, err := store.ByUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, membership.StatusActive, again.Status)
	})
}

func TestMemoryLedger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("marks and reports", func(t *testing.T) {
		t.Parallel()
		ledger := membership.NewMemoryLedger(0)

		seen, err := ledger.Seen(ctx, "evt_1")
		require.NoError(t, err)
		assert.False(t, seen)

		require.NoError(t, ledger.MarkProcessed(ctx, "evt_1"))

		seen, err = ledger.Seen(ctx, "evt_1")
		require.NoError(t, err)
		assert.True(t, seen)

		seen, err = ledger.Seen(ctx, "evt_2")
		require.NoError(t, err)
		assert.False(t, seen)
	})

	t.Run("entries expire after retention", func(t *testing.T) {
		t.Parallel()
		ledger := membership.NewMemoryLedger(50 * time.Millisecond)

		require.NoError(t, ledger.MarkProcessed(ctx, "evt_1"))
		time.Sleep(80 * time.Millisecond)

		seen, err := ledger.Seen(ctx, "evt_1")
		require.NoError(t, err)
		assert.False(t, seen)
	})
}
