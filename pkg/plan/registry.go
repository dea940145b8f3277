package plan

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Source defines how plans are loaded into a Registry.
// Sources must preserve declaration order so the implicit default is stable.
type Source interface {
	Load(ctx context.Context) ([]Plan, error)
}

// Registry is an immutable, validated catalog of offerable plans.
// It is safe for concurrent use without locking after construction.
type Registry struct {
	byID      map[string]Plan
	byPriceID map[string]Plan
	ordered   []Plan
	defaultID string
}

// NewRegistry loads plans from the source and validates the catalog.
// Validation failures are configuration errors and should abort startup.
func NewRegistry(ctx context.Context, src Source) (*Registry, error) {
	if src == nil {
		panic("plan: Source is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if len(plans) == 0 {
		return nil, ErrNoPlans
	}

	r := &Registry{
		byID:      make(map[string]Plan, len(plans)),
		byPriceID: make(map[string]Plan, len(plans)),
		ordered:   slices.Clone(plans),
	}

	for _, p := range plans {
		if p.ID == "" {
			return nil, errors.Join(ErrInvalidPlanConfiguration, errors.New("plan with empty ID"))
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("duplicate plan ID %q", p.ID))
		}
		if p.Free && p.Trial {
			return nil, errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %q is both free and trial", p.ID))
		}
		if p.Free && p.PriceID != "" {
			return nil, errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("free plan %q must not carry a price ID", p.ID))
		}
		if !p.Free && p.PriceID == "" {
			return nil, errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("paid plan %q requires a price ID", p.ID))
		}
		if p.Trial && p.TrialDays <= 0 {
			return nil, errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("trial plan %q requires positive trial days", p.ID))
		}
		if !p.Trial && p.TrialDays != 0 {
			return nil, errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %q has trial days but no trial flag", p.ID))
		}
		if p.Default {
			if r.defaultID != "" {
				return nil, errors.Join(ErrInvalidPlanConfiguration,
					fmt.Errorf("multiple default plans: %q and %q", r.defaultID, p.ID))
			}
			r.defaultID = p.ID
		}

		r.byID[p.ID] = p
		if p.PriceID != "" {
			if _, dup := r.byPriceID[p.PriceID]; dup {
				return nil, errors.Join(ErrInvalidPlanConfiguration,
					fmt.Errorf("duplicate price ID %q", p.PriceID))
			}
			r.byPriceID[p.PriceID] = p
		}
	}

	// First registered plan is the implicit default.
	if r.defaultID == "" {
		r.defaultID = plans[0].ID
	}

	return r, nil
}

// Get returns a plan by its internal ID.
func (r *Registry) Get(id string) (Plan, error) {
	p, ok := r.byID[id]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p, nil
}

// ByPriceID returns the plan carrying the given provider price ID.
func (r *Registry) ByPriceID(priceID string) (Plan, error) {
	p, ok := r.byPriceID[priceID]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p, nil
}

// Default returns the default plan.
func (r *Registry) Default() Plan {
	return r.byID[r.defaultID]
}

// List returns all plans in registration order.
// The returned slice is a copy and safe to modify.
func (r *Registry) List() []Plan {
	return slices.Clone(r.ordered)
}
