package domain

import (
	"context"
	"strings"
	"time"

	plandomain "github.com/smallbiznis/pgstay/internal/plan/domain"
)

// Resource is a capacity dimension checked before a caller creates something.
type Resource string

const (
	ResourceBeds     Resource = "beds"
	ResourceBranches Resource = "branches"
	ResourceModule   Resource = "module"
)

func ParseResource(raw string) (Resource, bool) {
	switch r := Resource(strings.ToLower(strings.TrimSpace(raw))); r {
	case ResourceBeds, ResourceBranches, ResourceModule:
		return r, true
	default:
		return "", false
	}
}

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusPending   PaymentStatus = "pending"
)

type Service interface {
	ActivateFreeTrial(ctx context.Context, accountID string) (ActivationResult, error)
	Subscribe(ctx context.Context, req SubscribeRequest) (Snapshot, error)
	AddBeds(ctx context.Context, req TopUpRequest) (CustomPricing, error)
	AddBranches(ctx context.Context, req TopUpRequest) (CustomPricing, error)
	CheckCapacity(ctx context.Context, req CapacityRequest) (CapacityResult, error)
	RecordUsage(ctx context.Context, req UsageRequest) (Snapshot, error)
	Cancel(ctx context.Context, accountID string, reason string) (Snapshot, error)
	ExpireIfDue(ctx context.Context, accountID string) (bool, error)
	ExpireDue(ctx context.Context, limit int) (int, error)
	Get(ctx context.Context, accountID string) (Snapshot, error)
	ApplyCapturedPayment(ctx context.Context, payment CapturedPayment) (ApplyResult, error)
}

type SubscribeRequest struct {
	AccountID     string        `json:"-"`
	PlanID        string        `json:"plan_id"`
	BillingCycle  string        `json:"billing_cycle"`
	TotalBeds     int           `json:"total_beds"`
	TotalBranches int           `json:"total_branches"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	AllowUpgrade  bool          `json:"allow_upgrade"`
}

type TopUpRequest struct {
	AccountID       string `json:"-"`
	AdditionalUnits int    `json:"additional_units"`
	NewCeiling      *int   `json:"new_ceiling,omitempty"`
}

type CapacityRequest struct {
	AccountID      string
	Resource       Resource
	RequestedCount int
	Module         string
}

type CapacityResult struct {
	Allowed      bool   `json:"allowed"`
	CurrentUsage int    `json:"current_usage"`
	Limit        int    `json:"limit"`
	Remaining    int    `json:"remaining"`
	Reason       string `json:"reason,omitempty"`
}

type UsageRequest struct {
	AccountID string   `json:"-"`
	Resource  Resource `json:"resource"`
	Delta     int      `json:"delta"`
}

// CapturedPayment is a verified, parsed gateway capture ready to be applied.
type CapturedPayment struct {
	AccountID     string
	PlanID        string
	BillingCycle  string
	TotalBeds     int
	TotalBranches int
	Record        PaymentRecord
}

type ActivationResult struct {
	Activated bool     `json:"activated"`
	Snapshot  Snapshot `json:"subscription"`
}

type ApplyResult struct {
	Applied  bool     `json:"applied"`
	Snapshot Snapshot `json:"subscription"`
}

// Snapshot is the read model of a subscription with the time-derived fields resolved.
type Snapshot struct {
	AccountID          string                  `json:"account_id"`
	Status             Status                  `json:"status"`
	StoredStatus       Status                  `json:"stored_status"`
	PlanID             *string                 `json:"plan_id,omitempty"`
	BillingCycle       plandomain.BillingCycle `json:"billing_cycle,omitempty"`
	StartDate          *time.Time              `json:"start_date,omitempty"`
	EndDate            *time.Time              `json:"end_date,omitempty"`
	TrialEndDate       *time.Time              `json:"trial_end_date,omitempty"`
	CancelledAt        *time.Time              `json:"cancelled_at,omitempty"`
	Usage              Usage                   `json:"usage"`
	CustomPricing      *CustomPricing          `json:"custom_pricing,omitempty"`
	PaymentHistory     []PaymentRecord         `json:"payment_history"`
	IsTrialActive      bool                    `json:"is_trial_active"`
	TrialDaysRemaining int                     `json:"trial_days_remaining"`
	IsExpiringSoon     bool                    `json:"is_expiring_soon"`
	BedLimit           int                     `json:"bed_limit"`
	BranchLimit        int                     `json:"branch_limit"`
}

// Limits resolves the bed and branch ceilings used by snapshots and capacity checks.
type Limits struct {
	Beds     int
	Branches int
}

// NewSnapshot derives the read model at now.
func NewSnapshot(accountID string, s Subscription, limits Limits, now time.Time, expiringSoonDays int) Snapshot {
	snap := Snapshot{
		AccountID:          accountID,
		Status:             s.EffectiveStatus(now),
		StoredStatus:       s.Status,
		BillingCycle:       s.BillingCycle,
		StartDate:          s.StartDate,
		EndDate:            s.EndDate,
		TrialEndDate:       s.TrialEndDate,
		CancelledAt:        s.CancelledAt,
		Usage:              s.Usage,
		CustomPricing:      s.CustomPricing,
		PaymentHistory:     s.PaymentHistory.Records(),
		IsTrialActive:      s.IsTrialActive(now),
		TrialDaysRemaining: s.TrialDaysRemaining(now),
		IsExpiringSoon:     s.IsExpiringSoon(now, expiringSoonDays),
		BedLimit:           limits.Beds,
		BranchLimit:        limits.Branches,
	}
	if snap.StoredStatus == "" {
		snap.StoredStatus = StatusFree
	}
	if s.PlanID != nil {
		id := s.PlanID.String()
		snap.PlanID = &id
	}
	return snap
}
