package domain

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// BaseBranchCount is the number of branches every plan includes.
const BaseBranchCount = 1

type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleAnnual  BillingCycle = "annual"
)

// ParseBillingCycle accepts the common spellings gateways and clients send.
func ParseBillingCycle(raw string) (BillingCycle, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "monthly", "month":
		return BillingCycleMonthly, true
	case "annual", "annually", "yearly", "year":
		return BillingCycleAnnual, true
	default:
		return "", false
	}
}

// ModuleFlag toggles an optional product module for a plan.
type ModuleFlag struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Plan is a read-only catalog entry. Money values are in the smallest currency unit.
// Missing numeric attributes read as zero.
type Plan struct {
	ID                    snowflake.ID
	Name                  string
	BasePrice             int64
	BaseBedCount          int
	MaxBedsAllowed        *int
	MaxBranchesAllowed    *int
	TopUpPricePerBed      int64
	TopUpPricePerBranch   int64
	AllowMultipleBranches bool
	AnnualDiscount        float64
	BillingCycle          BillingCycle
	Modules               []ModuleFlag
	IsActive              bool
}

// ModuleEnabled reports whether the plan lists name with enabled=true.
func (p *Plan) ModuleEnabled(name string) bool {
	if p == nil {
		return false
	}
	name = strings.TrimSpace(name)
	for _, m := range p.Modules {
		if strings.EqualFold(strings.TrimSpace(m.Name), name) {
			return m.Enabled
		}
	}
	return false
}

type Catalog interface {
	GetByID(ctx context.Context, id snowflake.ID) (*Plan, error)
}
