package domain

import "github.com/smallbiznis/pgstay/internal/errs"

var (
	ErrInvalidProvider  = errs.New(errs.Validation, "invalid_provider")
	ErrProviderNotFound = errs.New(errs.NotFound, "payment_provider_not_found")
	ErrInvalidConfig    = errs.New(errs.Transient, "payment_provider_not_configured")
	ErrInvalidSignature = errs.New(errs.Authentication, "invalid_signature")
	ErrInvalidPayload   = errs.New(errs.Validation, "invalid_payload")
	ErrInvalidEvent     = errs.New(errs.Validation, "invalid_event")
	ErrMissingNotes     = errs.New(errs.Validation, "missing_payment_notes")
	ErrEventIgnored     = errs.New(errs.Validation, "event_ignored")
	ErrWebhookTimeout   = errs.New(errs.Transient, "webhook_timeout")
)
