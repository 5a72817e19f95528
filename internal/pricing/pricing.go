// Package pricing turns a plan and a requested bed/branch total into a price.
// All functions are pure; amounts are in the smallest currency unit.
package pricing

import (
	"math"
	"time"

	"github.com/smallbiznis/pgstay/internal/errs"
	plandomain "github.com/smallbiznis/pgstay/internal/plan/domain"
	subscriptiondomain "github.com/smallbiznis/pgstay/internal/subscription/domain"
)

var (
	ErrInvalidQuantity            = subscriptiondomain.ErrInvalidQuantity
	ErrMultipleBranchesNotAllowed = errs.New(errs.Validation, "multiple_branches_not_allowed")
)

// Quote is the price of one resource dimension at a requested total.
type Quote struct {
	TotalUnits        int
	TopUpUnits        int
	TopUpCost         int64
	TotalMonthlyPrice int64
	TotalAnnualPrice  int64
}

// ComputeBedTopUp prices currentTotalBeds against the plan's included beds.
func ComputeBedTopUp(plan *plandomain.Plan, currentTotalBeds int) (Quote, error) {
	if plan == nil {
		return Quote{}, plandomain.ErrInvalidPlan
	}
	if currentTotalBeds < 0 {
		return Quote{}, ErrInvalidQuantity
	}
	topUp := max(0, currentTotalBeds-plan.BaseBedCount)
	cost := int64(topUp) * plan.TopUpPricePerBed
	monthly := plan.BasePrice + cost
	return Quote{
		TotalUnits:        currentTotalBeds,
		TopUpUnits:        topUp,
		TopUpCost:         cost,
		TotalMonthlyPrice: monthly,
		TotalAnnualPrice:  AnnualPrice(plan, monthly),
	}, nil
}

// ComputeBranchTopUp prices currentTotalBranches against the single included branch.
func ComputeBranchTopUp(plan *plandomain.Plan, currentTotalBranches int) (Quote, error) {
	if plan == nil {
		return Quote{}, plandomain.ErrInvalidPlan
	}
	if currentTotalBranches < 0 {
		return Quote{}, ErrInvalidQuantity
	}
	if !plan.AllowMultipleBranches && currentTotalBranches > plandomain.BaseBranchCount {
		return Quote{}, ErrMultipleBranchesNotAllowed
	}
	topUp := max(0, currentTotalBranches-plandomain.BaseBranchCount)
	cost := int64(topUp) * plan.TopUpPricePerBranch
	monthly := plan.BasePrice + cost
	return Quote{
		TotalUnits:        currentTotalBranches,
		TopUpUnits:        topUp,
		TopUpCost:         cost,
		TotalMonthlyPrice: monthly,
		TotalAnnualPrice:  AnnualPrice(plan, monthly),
	}, nil
}

// AnnualPrice is twelve months of monthly, discounted only for annual plans with a discount set.
func AnnualPrice(plan *plandomain.Plan, monthly int64) int64 {
	annual := monthly * 12
	if plan == nil || plan.BillingCycle != plandomain.BillingCycleAnnual || plan.AnnualDiscount <= 0 {
		return annual
	}
	return int64(math.Round(float64(annual) * (1 - plan.AnnualDiscount/100)))
}

// ValidateAdditional rejects zero or negative top-up requests.
func ValidateAdditional(additional int) error {
	if additional <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// BuildCustomPricing combines bed and branch quotes into a subscription pricing snapshot.
// Totals below the plan base are raised to the base.
func BuildCustomPricing(plan *plandomain.Plan, totalBeds, totalBranches int, now time.Time) (*subscriptiondomain.CustomPricing, error) {
	beds, err := ComputeBedTopUp(plan, totalBeds)
	if err != nil {
		return nil, err
	}
	branches, err := ComputeBranchTopUp(plan, totalBranches)
	if err != nil {
		return nil, err
	}

	monthly := plan.BasePrice + beds.TopUpCost + branches.TopUpCost
	return &subscriptiondomain.CustomPricing{
		MaxBedsAllowed:     max(totalBeds, plan.BaseBedCount),
		TopUpBeds:          beds.TopUpUnits,
		TopUpCost:          beds.TopUpCost,
		MaxBranchesAllowed: max(totalBranches, plandomain.BaseBranchCount),
		ExtraBranches:      branches.TopUpUnits,
		ExtraBranchCost:    branches.TopUpCost,
		TotalMonthlyPrice:  monthly,
		TotalAnnualPrice:   AnnualPrice(plan, monthly),
		UpdatedAt:          now,
	}, nil
}
