package domain

import "github.com/smallbiznis/pgstay/internal/errs"

var (
	ErrPlanNotFound = errs.New(errs.NotFound, "plan_not_found")
	ErrInvalidPlan  = errs.New(errs.Validation, "invalid_plan")
)
