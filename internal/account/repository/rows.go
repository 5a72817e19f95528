package repository

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/pgstay/internal/account/domain"
	onboardingdomain "github.com/smallbiznis/pgstay/internal/onboarding/domain"
	plandomain "github.com/smallbiznis/pgstay/internal/plan/domain"
	subscriptiondomain "github.com/smallbiznis/pgstay/internal/subscription/domain"
	"gorm.io/datatypes"
)

type accountRow struct {
	ID                  int64      `gorm:"primaryKey"`
	Email               string     `gorm:"type:text;not null;uniqueIndex"`
	Name                string     `gorm:"type:text"`
	Role                string     `gorm:"type:text;not null"`
	PGID                *int64     `gorm:"column:pg_id"`
	SubStatus           string     `gorm:"column:sub_status;type:text;not null;index"`
	SubPlanID           *int64     `gorm:"column:sub_plan_id"`
	SubBillingCycle     string     `gorm:"column:sub_billing_cycle;type:text"`
	SubStartDate        *time.Time `gorm:"column:sub_start_date"`
	SubEndDate          *time.Time `gorm:"column:sub_end_date"`
	SubTrialEndDate     *time.Time `gorm:"column:sub_trial_end_date"`
	SubCancelledAt      *time.Time `gorm:"column:sub_cancelled_at"`
	SubUpdatedAt        *time.Time `gorm:"column:sub_updated_at"`
	BedsUsed            int        `gorm:"not null;default:0"`
	BranchesUsed        int        `gorm:"not null;default:0"`
	CustomPricing       datatypes.JSON
	Onboarding          datatypes.JSON
	FailedLoginAttempts int `gorm:"not null;default:0"`
	LockedUntil         *time.Time
	Version             int64     `gorm:"not null;default:0"`
	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time `gorm:"not null"`
}

func (accountRow) TableName() string { return "tenant_accounts" }

type paymentRecordRow struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	AccountID        int64  `gorm:"not null;index"`
	Seq              int    `gorm:"not null"`
	GatewayPaymentID string `gorm:"type:text;not null;uniqueIndex"`
	GatewayOrderID   string `gorm:"type:text"`
	Amount           int64  `gorm:"not null"`
	Currency         string `gorm:"type:text"`
	Status           string `gorm:"type:text"`
	Method           string `gorm:"type:text"`
	PlanName         string `gorm:"type:text"`
	BedCount         int
	BranchCount      int
	PaidAt           time.Time `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null"`
}

func (paymentRecordRow) TableName() string { return "payment_records" }

type onboardingDoc struct {
	PGCreation      onboardingdomain.StepRecord `json:"pg_creation"`
	BranchSetup     onboardingdomain.StepRecord `json:"branch_setup"`
	PGConfiguration onboardingdomain.StepRecord `json:"pg_configuration"`
}

func toRow(a *accountdomain.Account) (accountRow, error) {
	sub := a.Subscription
	row := accountRow{
		ID:                  a.ID.Int64(),
		Email:               a.Email,
		Name:                a.Name,
		Role:                string(a.Role),
		PGID:                idPtr(a.PGID),
		SubStatus:           string(sub.Status),
		SubPlanID:           idPtr(sub.PlanID),
		SubBillingCycle:     string(sub.BillingCycle),
		SubStartDate:        sub.StartDate,
		SubEndDate:          sub.EndDate,
		SubTrialEndDate:     sub.TrialEndDate,
		SubCancelledAt:      sub.CancelledAt,
		BedsUsed:            sub.Usage.BedsUsed,
		BranchesUsed:        sub.Usage.BranchesUsed,
		FailedLoginAttempts: a.FailedLoginAttempts,
		LockedUntil:         a.LockedUntil,
		Version:             a.Version,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
	if row.SubStatus == "" {
		row.SubStatus = string(subscriptiondomain.StatusFree)
	}
	if !sub.UpdatedAt.IsZero() {
		updated := sub.UpdatedAt
		row.SubUpdatedAt = &updated
	}
	if sub.CustomPricing != nil {
		raw, err := json.Marshal(sub.CustomPricing)
		if err != nil {
			return accountRow{}, err
		}
		row.CustomPricing = datatypes.JSON(raw)
	}
	raw, err := json.Marshal(onboardingDoc{
		PGCreation:      a.Onboarding.PGCreation,
		BranchSetup:     a.Onboarding.BranchSetup,
		PGConfiguration: a.Onboarding.PGConfiguration,
	})
	if err != nil {
		return accountRow{}, err
	}
	row.Onboarding = datatypes.JSON(raw)
	return row, nil
}

func fromRow(row accountRow, payments []paymentRecordRow) (*accountdomain.Account, error) {
	sub := subscriptiondomain.Subscription{
		Status:       subscriptiondomain.Status(row.SubStatus),
		PlanID:       snowflakePtr(row.SubPlanID),
		BillingCycle: plandomain.BillingCycle(row.SubBillingCycle),
		StartDate:    utcPtr(row.SubStartDate),
		EndDate:      utcPtr(row.SubEndDate),
		TrialEndDate: utcPtr(row.SubTrialEndDate),
		CancelledAt:  utcPtr(row.SubCancelledAt),
		Usage: subscriptiondomain.Usage{
			BedsUsed:     row.BedsUsed,
			BranchesUsed: row.BranchesUsed,
		},
	}
	if row.SubUpdatedAt != nil {
		sub.UpdatedAt = row.SubUpdatedAt.UTC()
	}
	if len(row.CustomPricing) > 0 && string(row.CustomPricing) != "null" {
		var pricing subscriptiondomain.CustomPricing
		if err := json.Unmarshal(row.CustomPricing, &pricing); err != nil {
			return nil, err
		}
		sub.CustomPricing = &pricing
	}

	records := make([]subscriptiondomain.PaymentRecord, 0, len(payments))
	for _, p := range payments {
		records = append(records, subscriptiondomain.PaymentRecord{
			GatewayPaymentID: p.GatewayPaymentID,
			GatewayOrderID:   p.GatewayOrderID,
			Amount:           p.Amount,
			Currency:         p.Currency,
			Status:           p.Status,
			Method:           p.Method,
			Plan: subscriptiondomain.PlanSnapshot{
				PlanName:    p.PlanName,
				BedCount:    p.BedCount,
				BranchCount: p.BranchCount,
			},
			PaidAt: p.PaidAt.UTC(),
		})
	}
	sub.PaymentHistory = subscriptiondomain.NewPaymentHistory(records...)

	onboarding := onboardingdomain.New()
	if len(row.Onboarding) > 0 {
		var doc onboardingDoc
		if err := json.Unmarshal(row.Onboarding, &doc); err != nil {
			return nil, err
		}
		onboarding = onboardingdomain.Onboarding{
			PGCreation:      normalizeStep(doc.PGCreation),
			BranchSetup:     normalizeStep(doc.BranchSetup),
			PGConfiguration: normalizeStep(doc.PGConfiguration),
		}
	}

	return &accountdomain.Account{
		ID:                  snowflake.ID(row.ID),
		Email:               row.Email,
		Name:                row.Name,
		Role:                accountdomain.Role(row.Role),
		PGID:                snowflakePtr(row.PGID),
		Subscription:        sub,
		Onboarding:          onboarding,
		FailedLoginAttempts: row.FailedLoginAttempts,
		LockedUntil:         utcPtr(row.LockedUntil),
		Version:             row.Version,
		CreatedAt:           row.CreatedAt.UTC(),
		UpdatedAt:           row.UpdatedAt.UTC(),
	}, nil
}

func toPaymentRow(accountID snowflake.ID, seq int, rec subscriptiondomain.PaymentRecord, now time.Time) paymentRecordRow {
	return paymentRecordRow{
		AccountID:        accountID.Int64(),
		Seq:              seq,
		GatewayPaymentID: rec.GatewayPaymentID,
		GatewayOrderID:   rec.GatewayOrderID,
		Amount:           rec.Amount,
		Currency:         rec.Currency,
		Status:           rec.Status,
		Method:           rec.Method,
		PlanName:         rec.Plan.PlanName,
		BedCount:         rec.Plan.BedCount,
		BranchCount:      rec.Plan.BranchCount,
		PaidAt:           rec.PaidAt,
		CreatedAt:        now,
	}
}

func normalizeStep(rec onboardingdomain.StepRecord) onboardingdomain.StepRecord {
	if rec.Status == "" {
		rec.Status = onboardingdomain.StepNotStarted
	}
	return rec
}

func idPtr(id *snowflake.ID) *int64 {
	if id == nil {
		return nil
	}
	v := id.Int64()
	return &v
}

func snowflakePtr(v *int64) *snowflake.ID {
	if v == nil {
		return nil
	}
	id := snowflake.ID(*v)
	return &id
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
