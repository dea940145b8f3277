package plan

// Plan describes an offerable subscription plan.
//
// ID is the internal identifier used across the application and stored on
// membership records. PriceID is the billing provider's price identifier and
// is only set for paid plans; webhook events reference plans by PriceID and
// are mapped back through the registry.
type Plan struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	PriceID     string `yaml:"price_id"`

	// Free plans skip provider checkout entirely and activate immediately.
	Free bool `yaml:"free"`

	// Trial plans start in the trialing status for users that have not
	// consumed a trial before. Mutually exclusive with Free.
	Trial     bool `yaml:"trial"`
	TrialDays int  `yaml:"trial_days"`

	// Default marks the plan used when checkout is initiated without an
	// explicit plan ID. At most one plan may be the default; if none is,
	// the first registered plan is the implicit default.
	Default bool `yaml:"default"`
}

// Paid reports whether subscribing to the plan requires provider checkout.
func (p Plan) Paid() bool {
	return !p.Free
}
