package domain

import "github.com/smallbiznis/pgstay/internal/errs"

var (
	ErrInvalidAccountID         = errs.New(errs.Validation, "invalid_account_id")
	ErrInvalidPlanID            = errs.New(errs.Validation, "invalid_plan_id")
	ErrInvalidBillingCycle      = errs.New(errs.Validation, "invalid_billing_cycle")
	ErrInvalidPaymentStatus     = errs.New(errs.Validation, "invalid_payment_status")
	ErrInvalidResource          = errs.New(errs.Validation, "invalid_resource")
	ErrInvalidQuantity          = errs.New(errs.Validation, "invalid_quantity")
	ErrCeilingMismatch          = errs.New(errs.Validation, "ceiling_mismatch")
	ErrInvalidPaymentRecord     = errs.New(errs.Validation, "invalid_payment_record")
	ErrActiveSubscriptionExists = errs.New(errs.Conflict, "active_subscription_exists")
	ErrNoActiveSubscription     = errs.New(errs.Conflict, "no_active_subscription")
	ErrInvalidTransition        = errs.New(errs.Conflict, "invalid_status_transition")
	ErrNothingToCancel          = errs.New(errs.Conflict, "nothing_to_cancel")
	ErrDuplicatePayment         = errs.New(errs.Conflict, "duplicate_payment")
)
