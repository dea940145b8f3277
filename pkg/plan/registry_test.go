package plan_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/membergate/pkg/plan"
)

func validPlans() []plan.Plan {
	return []plan.Plan{
		{ID: "free", Name: "Free", Free: true},
		{ID: "basic", Name: "Basic", PriceID: "pri_basic"},
		{ID: "pro", Name: "Pro", PriceID: "pri_pro", Trial: true, TrialDays: 14, Default: true},
	}
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("valid catalog", func(t *testing.T) {
		t.Parallel()
		reg, err := plan.NewRegistry(ctx, plan.NewStaticSource(validPlans()...))
		require.NoError(t, err)

		p, err := reg.Get("basic")
		require.NoError(t, err)
		assert.Equal(t, "pri_basic", p.PriceID)
		assert.True(t, p.Paid())

		p, err = reg.ByPriceID("pri_pro")
		require.NoError(t, err)
		assert.Equal(t, "pro", p.ID)

		assert.Equal(t, "pro", reg.Default().ID)
		assert.Len(t, reg.List(), 3)
	})

	t.Run("lookup misses", func(t *testing.T) {
		t.Parallel()
		reg, err := plan.NewRegistry(ctx, plan.NewStaticSource(validPlans()...))
		require.NoError(t, err)

		_, err = reg.Get("enterprise")
		assert.ErrorIs(t, err, plan.ErrPlanNotFound)

		_, err = reg.ByPriceID("pri_unknown")
		assert.ErrorIs(t, err, plan.ErrPlanNotFound)
	})

	t.Run("first plan is the implicit default", func(t *testing.T) {
		t.Parallel()
		reg, err := plan.NewRegistry(ctx, plan.NewStaticSource(
			plan.Plan{ID: "basic", PriceID: "pri_basic"},
			plan.Plan{ID: "pro", PriceID: "pri_pro"},
		))
		require.NoError(t, err)
		assert.Equal(t, "basic", reg.Default().ID)
	})

	t.Run("invalid catalogs", func(t *testing.T) {
		t.Parallel()

		cases := map[string][]plan.Plan{
			"empty plan ID":            {{ID: "", PriceID: "pri_1"}},
			"duplicate plan ID":        {{ID: "a", PriceID: "pri_1"}, {ID: "a", PriceID: "pri_2"}},
			"duplicate price ID":       {{ID: "a", PriceID: "pri_1"}, {ID: "b", PriceID: "pri_1"}},
			"free and trial":           {{ID: "a", Free: true, Trial: true, TrialDays: 7}},
			"free with price ID":       {{ID: "a", Free: true, PriceID: "pri_1"}},
			"paid without price ID":    {{ID: "a"}},
			"trial without days":       {{ID: "a", PriceID: "pri_1", Trial: true}},
			"trial days without trial": {{ID: "a", PriceID: "pri_1", TrialDays: 7}},
			"multiple defaults":        {{ID: "a", PriceID: "pri_1", Default: true}, {ID: "b", PriceID: "pri_2", Default: true}},
		}
		for name, plans := range cases {
			t.Run(name, func(t *testing.T) {
				t.Parallel()
				_, err := plan.NewRegistry(ctx, plan.NewStaticSource(plans...))
				assert.ErrorIs(t, err, plan.ErrInvalidPlanConfiguration)
			})
		}
	})
}

func TestYAMLSource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("loads catalog file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "plans.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
plans:
  - id: free
    name: Free
    free: true
    default: true
  - id: pro
    name: Pro
    price_id: pri_pro
    trial: true
    trial_days: 14
`), 0o644))

		reg, err := plan.NewRegistry(ctx, plan.NewYAMLSource(path))
		require.NoError(t, err)

		assert.Equal(t, "free", reg.Default().ID)

		p, err := reg.Get("pro")
		require.NoError(t, err)
		assert.Equal(t, "pri_pro", p.PriceID)
		assert.True(t, p.Trial)
		assert.Equal(t, 14, p.TrialDays)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := plan.NewRegistry(ctx, plan.NewYAMLSource(filepath.Join(t.TempDir(), "nope.yaml")))
		assert.ErrorIs(t, err, plan.ErrFailedToLoadPlans)
	})

	t.Run("empty catalog", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "plans.yaml")
		require.NoError(t, os.WriteFile(path, []byte("plans: []\n"), 0o644))

		_, err := plan.NewRegistry(ctx, plan.NewYAMLSource(path))
		assert.ErrorIs(t, err, plan.ErrNoPlans)
	})
}
