// Package plan provides a static, validated catalog of subscription plans.
//
// Plans are loaded once at startup through a Source (static list or YAML
// file) into an immutable Registry. The registry enforces catalog
// consistency: unique IDs and price IDs, at most one default plan, and the
// free/trial exclusivity rule. After construction the registry is read-only
// and safe for concurrent use from any number of goroutines.
//
// # Usage
//
//	reg, err := plan.NewRegistry(ctx, plan.NewStaticSource(
//		plan.Plan{ID: "free", Name: "Free", Free: true, Default: true},
//		plan.Plan{ID: "pro", Name: "Pro", PriceID: "pri_123", Trial: true, TrialDays: 14},
//	))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	p, err := reg.Get("pro")
//
// For deployments that keep the catalog in configuration, NewYAMLSource
// reads the same shape from a file:
//
//	plans:
//	  - id: free
//	    name: Free
//	    free: true
//	    default: true
//	  - id: pro
//	    name: Pro
//	    price_id: pri_123
//	    trial: true
//	    trial_days: 14
//
// The plan ID is the application-internal identifier stored on membership
// records; the provider's price ID lives in PriceID and is mapped back to a
// plan during webhook reconciliation via Registry.ByPriceID.
package plan
