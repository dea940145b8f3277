package plan

import "errors"

var (
	ErrPlanNotFound             = errors.New("plan not found")
	ErrInvalidPlanConfiguration = errors.New("invalid plan configuration")
	ErrNoPlans                  = errors.New("at least one plan is required")
	ErrFailedToLoadPlans        = errors.New("failed to load plans")
)
