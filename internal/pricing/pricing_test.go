package pricing_test

import (
	"testing"
	"time"

	"github.com/smallbiznis/pgstay/internal/errs"
	plandomain "github.com/smallbiznis/pgstay/internal/plan/domain"
	"github.com/smallbiznis/pgstay/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func starterPlan() *plandomain.Plan {
	return &plandomain.Plan{
		Name:                  "Starter",
		BasePrice:             1000,
		BaseBedCount:          10,
		TopUpPricePerBed:      50,
		TopUpPricePerBranch:   300,
		AllowMultipleBranches: true,
		BillingCycle:          plandomain.BillingCycleMonthly,
	}
}

func TestComputeBedTopUpAboveBase(t *testing.T) {
	q, err := pricing.ComputeBedTopUp(starterPlan(), 15)
	require.NoError(t, err)

	assert.Equal(t, 15, q.TotalUnits)
	assert.Equal(t, 5, q.TopUpUnits)
	assert.Equal(t, int64(250), q.TopUpCost)
	assert.Equal(t, int64(1250), q.TotalMonthlyPrice)
	assert.Equal(t, int64(15000), q.TotalAnnualPrice)
}

func TestComputeBedTopUpCostIsLinearAboveBase(t *testing.T) {
	plan := starterPlan()
	for total := plan.BaseBedCount; total <= plan.BaseBedCount+40; total++ {
		q, err := pricing.ComputeBedTopUp(plan, total)
		require.NoError(t, err)
		assert.Equal(t, int64(total-plan.BaseBedCount)*plan.TopUpPricePerBed, q.TopUpCost, "total=%d", total)
	}
	for total := 0; total < plan.BaseBedCount; total++ {
		q, err := pricing.ComputeBedTopUp(plan, total)
		require.NoError(t, err)
		assert.Zero(t, q.TopUpUnits, "total=%d", total)
		assert.Zero(t, q.TopUpCost, "total=%d", total)
	}
}

func TestComputeBedTopUpRejectsInvalidInput(t *testing.T) {
	_, err := pricing.ComputeBedTopUp(nil, 5)
	assert.ErrorIs(t, err, plandomain.ErrInvalidPlan)

	_, err = pricing.ComputeBedTopUp(starterPlan(), -1)
	assert.ErrorIs(t, err, pricing.ErrInvalidQuantity)
	assert.ErrorIs(t, err, errs.Validation)
}

func TestMissingPlanNumbersPriceAsZero(t *testing.T) {
	q, err := pricing.ComputeBedTopUp(&plandomain.Plan{Name: "misconfigured"}, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, q.TopUpUnits)
	assert.Zero(t, q.TopUpCost)
	assert.Zero(t, q.TotalMonthlyPrice)
}

func TestAnnualDiscountAppliesOnlyToAnnualPlans(t *testing.T) {
	plan := starterPlan()
	plan.AnnualDiscount = 15

	assert.Equal(t, int64(12000), pricing.AnnualPrice(plan, 1000))

	plan.BillingCycle = plandomain.BillingCycleAnnual
	assert.Equal(t, int64(10200), pricing.AnnualPrice(plan, 1000))

	plan.AnnualDiscount = 0
	assert.Equal(t, int64(12000), pricing.AnnualPrice(plan, 1000))
}

func TestAnnualPriceRoundsToNearestUnit(t *testing.T) {
	plan := starterPlan()
	plan.BillingCycle = plandomain.BillingCycleAnnual
	plan.AnnualDiscount = 12.5

	// 999 * 12 = 11988; 11988 * 0.875 = 10489.5
	assert.Equal(t, int64(10490), pricing.AnnualPrice(plan, 999))
}

func TestComputeBranchTopUp(t *testing.T) {
	q, err := pricing.ComputeBranchTopUp(starterPlan(), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, q.TopUpUnits)
	assert.Equal(t, int64(600), q.TopUpCost)

	single := starterPlan()
	single.AllowMultipleBranches = false
	_, err = pricing.ComputeBranchTopUp(single, 2)
	assert.ErrorIs(t, err, pricing.ErrMultipleBranchesNotAllowed)

	q, err = pricing.ComputeBranchTopUp(single, 1)
	require.NoError(t, err)
	assert.Zero(t, q.TopUpUnits)
}

func TestValidateAdditional(t *testing.T) {
	assert.NoError(t, pricing.ValidateAdditional(1))
	assert.ErrorIs(t, pricing.ValidateAdditional(0), pricing.ErrInvalidQuantity)
	assert.ErrorIs(t, pricing.ValidateAdditional(-3), pricing.ErrInvalidQuantity)
}

func TestBuildCustomPricingCombinesDimensions(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	custom, err := pricing.BuildCustomPricing(starterPlan(), 14, 2, now)
	require.NoError(t, err)

	assert.Equal(t, 14, custom.MaxBedsAllowed)
	assert.Equal(t, 4, custom.TopUpBeds)
	assert.Equal(t, int64(200), custom.TopUpCost)
	assert.Equal(t, 2, custom.MaxBranchesAllowed)
	assert.Equal(t, 1, custom.ExtraBranches)
	assert.Equal(t, int64(300), custom.ExtraBranchCost)
	assert.Equal(t, int64(1500), custom.TotalMonthlyPrice)
	assert.Equal(t, int64(18000), custom.TotalAnnualPrice)
	assert.Equal(t, now, custom.UpdatedAt)
}

func TestBuildCustomPricingRaisesTotalsToBase(t *testing.T) {
	custom, err := pricing.BuildCustomPricing(starterPlan(), 4, 0, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 10, custom.MaxBedsAllowed)
	assert.Equal(t, 1, custom.MaxBranchesAllowed)
	assert.Zero(t, custom.TopUpCost)
}
