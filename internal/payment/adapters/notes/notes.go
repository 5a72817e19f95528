// Package notes reads the subscription fields a checkout attaches to a gateway payment.
package notes

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/smallbiznis/pgstay/internal/payment/domain"
)

const (
	KeyAccountID    = "accountId"
	KeyPlanID       = "planId"
	KeyPlanName     = "planName"
	KeyBillingCycle = "billingCycle"
	KeyBedCount     = "bedCount"
	KeyBranchCount  = "branchCount"
)

// Apply copies the notes into event. Values may be strings or numbers; numbers
// must have been decoded as json.Number to keep snowflake ids exact.
func Apply(event *domain.CapturedEvent, values map[string]any) error {
	var ok bool
	if event.AccountID, ok = String(values, KeyAccountID); !ok {
		return domain.ErrMissingNotes
	}
	if event.PlanID, ok = String(values, KeyPlanID); !ok {
		return domain.ErrMissingNotes
	}
	if event.BillingCycle, ok = String(values, KeyBillingCycle); !ok {
		return domain.ErrMissingNotes
	}
	event.PlanName, _ = String(values, KeyPlanName)

	var err error
	if event.BedCount, err = Int(values, KeyBedCount); err != nil {
		return err
	}
	if event.BranchCount, err = Int(values, KeyBranchCount); err != nil {
		return err
	}
	return nil
}

// String returns a trimmed non-empty value.
func String(values map[string]any, key string) (string, bool) {
	raw, ok := values[key]
	if !ok || raw == nil {
		return "", false
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Int returns zero for an absent key and an error for a malformed or negative one.
func Int(values map[string]any, key string) (int, error) {
	s, ok := String(values, key)
	if !ok {
		switch values[key].(type) {
		case nil, string:
			return 0, nil
		}
		return 0, domain.ErrMissingNotes
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, domain.ErrMissingNotes
	}
	return n, nil
}
