package domain

import "github.com/smallbiznis/pgstay/internal/errs"

var (
	ErrPGNotFound          = errs.New(errs.NotFound, "pg_not_found")
	ErrBranchNotFound      = errs.New(errs.NotFound, "branch_not_found")
	ErrInvalidName         = errs.New(errs.Validation, "invalid_name")
	ErrInvalidSharingTypes = errs.New(errs.Validation, "invalid_sharing_types")
)
