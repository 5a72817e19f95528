package domain

import "github.com/smallbiznis/pgstay/internal/errs"

var (
	ErrAccountNotFound  = errs.New(errs.NotFound, "account_not_found")
	ErrAccountExists    = errs.New(errs.Conflict, "account_exists")
	ErrInvalidEmail     = errs.New(errs.Validation, "invalid_email")
	ErrConcurrentUpdate = errs.New(errs.Transient, "concurrent_update")
	ErrInvalidAccountID = errs.New(errs.Validation, "invalid_account_id")
	ErrInvalidName      = errs.New(errs.Validation, "invalid_name")
	ErrAccountLocked    = errs.New(errs.Authentication, "account_locked")
)
