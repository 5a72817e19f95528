package domain

import "github.com/smallbiznis/pgstay/internal/errs"

var (
	ErrInvalidAccountID = errs.New(errs.Validation, "invalid_account_id")
	ErrUnknownStep      = errs.New(errs.Validation, "unknown_onboarding_step")
	ErrNoPGAssociated   = errs.New(errs.Conflict, "no_pg_associated")
)
