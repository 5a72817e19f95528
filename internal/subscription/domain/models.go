// Package domain contains the subscription embedded in a tenant admin account.
package domain

import (
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/smallbiznis/pgstay/internal/plan/domain"
)

// Status represents lifecycle states for a subscription.
type Status string

const (
	StatusFree      Status = "free"
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusFree, StatusTrial, StatusActive, StatusExpired, StatusCancelled:
		return true
	default:
		return false
	}
}

// Usage counters only grow.
type Usage struct {
	BedsUsed     int `json:"beds_used"`
	BranchesUsed int `json:"branches_used"`
}

// CustomPricing is the capacity and price snapshot produced by a top-up or a sized subscribe.
type CustomPricing struct {
	MaxBedsAllowed     int       `json:"max_beds_allowed"`
	TopUpBeds          int       `json:"top_up_beds"`
	TopUpCost          int64     `json:"top_up_cost"`
	MaxBranchesAllowed int       `json:"max_branches_allowed"`
	ExtraBranches      int       `json:"extra_branches"`
	ExtraBranchCost    int64     `json:"extra_branch_cost"`
	TotalMonthlyPrice  int64     `json:"total_monthly_price"`
	TotalAnnualPrice   int64     `json:"total_annual_price"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Subscription is embedded in the account; one live instance per account.
type Subscription struct {
	Status         Status
	PlanID         *snowflake.ID
	BillingCycle   plandomain.BillingCycle
	StartDate      *time.Time
	EndDate        *time.Time
	TrialEndDate   *time.Time
	CancelledAt    *time.Time
	Usage          Usage
	CustomPricing  *CustomPricing
	PaymentHistory PaymentHistory
	UpdatedAt      time.Time
}

// NewSubscription returns the initial free subscription.
func NewSubscription() Subscription {
	return Subscription{Status: StatusFree}
}

// PeriodEnd is the instant the current paid or trial period lapses.
func (s Subscription) PeriodEnd() *time.Time {
	if s.Status == StatusTrial && s.TrialEndDate != nil {
		return s.TrialEndDate
	}
	return s.EndDate
}

// EffectiveStatus applies read-time expiry: a trial or active subscription whose period
// has ended is reported as expired even before the stored status is updated.
func (s Subscription) EffectiveStatus(now time.Time) Status {
	switch s.Status {
	case "":
		return StatusFree
	case StatusTrial, StatusActive:
		if end := s.PeriodEnd(); end != nil && !end.After(now) {
			return StatusExpired
		}
	}
	return s.Status
}

// IsLive reports a trial or active subscription whose period is still running.
func (s Subscription) IsLive(now time.Time) bool {
	status := s.EffectiveStatus(now)
	return status == StatusTrial || status == StatusActive
}

func (s Subscription) IsTrialActive(now time.Time) bool {
	return s.Status == StatusTrial && s.TrialEndDate != nil && s.TrialEndDate.After(now)
}

// TrialDaysRemaining rounds partial days up and never goes below zero.
func (s Subscription) TrialDaysRemaining(now time.Time) int {
	if s.Status != StatusTrial || s.TrialEndDate == nil {
		return 0
	}
	remaining := s.TrialEndDate.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

func (s Subscription) IsExpiringSoon(now time.Time, thresholdDays int) bool {
	return s.IsTrialActive(now) && s.TrialDaysRemaining(now) <= thresholdDays
}

// HasUsedTrial reports whether a trial period was ever granted.
func (s Subscription) HasUsedTrial() bool {
	return s.TrialEndDate != nil
}

// EffectiveBedCeiling resolves custom pricing, then the plan maximum, then the plan base.
func (s Subscription) EffectiveBedCeiling(plan *plandomain.Plan) int {
	if s.CustomPricing != nil {
		return s.CustomPricing.MaxBedsAllowed
	}
	if plan == nil {
		return 0
	}
	if plan.MaxBedsAllowed != nil {
		return *plan.MaxBedsAllowed
	}
	return plan.BaseBedCount
}

// EffectiveBranchCeiling resolves custom pricing, then the plan maximum, then the included branch.
func (s Subscription) EffectiveBranchCeiling(plan *plandomain.Plan) int {
	if s.CustomPricing != nil {
		return s.CustomPricing.MaxBranchesAllowed
	}
	if plan == nil {
		return 0
	}
	if plan.MaxBranchesAllowed != nil {
		return *plan.MaxBranchesAllowed
	}
	return plandomain.BaseBranchCount
}

// BilledBeds is the bed total the tenant pays for: the plan base plus purchased
// top-ups. Beds a plan maximum includes above its base are never billed.
func (s Subscription) BilledBeds(plan *plandomain.Plan) int {
	if plan == nil {
		return 0
	}
	if s.CustomPricing != nil {
		return plan.BaseBedCount + s.CustomPricing.TopUpBeds
	}
	return plan.BaseBedCount
}

// BilledBranches is the branch counterpart of BilledBeds.
func (s Subscription) BilledBranches(plan *plandomain.Plan) int {
	if plan == nil {
		return 0
	}
	if s.CustomPricing != nil {
		return plandomain.BaseBranchCount + s.CustomPricing.ExtraBranches
	}
	return plandomain.BaseBranchCount
}
