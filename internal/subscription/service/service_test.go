package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/smallbiznis/pgstay/internal/account/domain"
	accountrepo "github.com/smallbiznis/pgstay/internal/account/repository"
	"github.com/smallbiznis/pgstay/internal/accountlock"
	"github.com/smallbiznis/pgstay/internal/clock"
	"github.com/smallbiznis/pgstay/internal/config"
	"github.com/smallbiznis/pgstay/internal/errs"
	"github.com/smallbiznis/pgstay/internal/observability/metrics"
	plandomain "github.com/smallbiznis/pgstay/internal/plan/domain"
	"github.com/smallbiznis/pgstay/internal/subscription/domain"
	"github.com/smallbiznis/pgstay/internal/subscription/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	basicPlanID   = snowflake.ID(7001)
	cappedPlanID  = snowflake.ID(7002)
	bundledPlanID = snowflake.ID(7003)
)

type staticCatalog map[snowflake.ID]*plandomain.Plan

func (c staticCatalog) GetByID(_ context.Context, id snowflake.ID) (*plandomain.Plan, error) {
	plan, ok := c[id]
	if !ok {
		return nil, plandomain.ErrPlanNotFound
	}
	cp := *plan
	return &cp, nil
}

type fixture struct {
	svc   domain.Service
	repo  accountdomain.Repository
	clock *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, accountrepo.AutoMigrate(db))

	capped := 12
	bundledBeds, bundledBranches := 14, 3
	catalog := staticCatalog{
		basicPlanID: {
			ID:                    basicPlanID,
			Name:                  "Basic",
			BasePrice:             1000,
			BaseBedCount:          10,
			TopUpPricePerBed:      50,
			TopUpPricePerBranch:   300,
			AllowMultipleBranches: true,
			BillingCycle:          plandomain.BillingCycleMonthly,
			Modules:               []plandomain.ModuleFlag{{Name: "food", Enabled: true}, {Name: "laundry", Enabled: false}},
			IsActive:              true,
		},
		cappedPlanID: {
			ID:             cappedPlanID,
			Name:           "Capped",
			BasePrice:      1500,
			BaseBedCount:   10,
			MaxBedsAllowed: &capped,
			BillingCycle:   plandomain.BillingCycleAnnual,
			IsActive:       true,
		},
		bundledPlanID: {
			ID:                    bundledPlanID,
			Name:                  "Bundled",
			BasePrice:             1000,
			BaseBedCount:          10,
			MaxBedsAllowed:        &bundledBeds,
			MaxBranchesAllowed:    &bundledBranches,
			TopUpPricePerBed:      50,
			TopUpPricePerBranch:   300,
			AllowMultipleBranches: true,
			BillingCycle:          plandomain.BillingCycleMonthly,
			IsActive:              true,
		},
	}

	clk := clock.NewFakeClock(time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC))
	policy := config.DefaultSubscriptionPolicy()
	policy.TrialModules = []string{"food"}
	repo := accountrepo.NewSQLRepository(db, clk)

	svc := service.NewService(service.Params{
		Repo:    repo,
		Catalog: catalog,
		Locker:  accountlock.NewLocalLocker(),
		Clock:   clk,
		Policy:  config.StaticPolicy(policy),
		Metrics: metrics.NewNoop(),
		Log:     zap.NewNop(),
	})
	return &fixture{svc: svc, repo: repo, clock: clk}
}

func (f *fixture) newAccount(t *testing.T, id int64) string {
	t.Helper()
	account := accountdomain.New(snowflake.ID(id), fmt.Sprintf("owner%d@example.com", id), "Owner", f.clock.Now())
	require.NoError(t, f.repo.Create(context.Background(), account))
	return account.ID.String()
}

func (f *fixture) subscribe(t *testing.T, accountID string, planID snowflake.ID, beds int) domain.Snapshot {
	t.Helper()
	snap, err := f.svc.Subscribe(context.Background(), domain.SubscribeRequest{
		AccountID:     accountID,
		PlanID:        planID.String(),
		BillingCycle:  "monthly",
		TotalBeds:     beds,
		TotalBranches: 1,
		PaymentStatus: domain.PaymentStatusCompleted,
	})
	require.NoError(t, err)
	return snap
}

func TestSubscribeFromFree(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 1)

	snap := f.subscribe(t, accountID, basicPlanID, 20)

	assert.Equal(t, domain.StatusActive, snap.Status)
	require.NotNil(t, snap.PlanID)
	assert.Equal(t, basicPlanID.String(), *snap.PlanID)
	assert.Equal(t, 0, snap.Usage.BedsUsed)
	assert.Equal(t, plandomain.BillingCycleMonthly, snap.BillingCycle)
	require.NotNil(t, snap.EndDate)
	assert.Equal(t, f.clock.Now().AddDate(0, 1, 0), *snap.EndDate)
	require.NotNil(t, snap.CustomPricing)
	assert.Equal(t, 20, snap.CustomPricing.MaxBedsAllowed)
	assert.Equal(t, int64(500), snap.CustomPricing.TopUpCost)
	assert.Equal(t, 20, snap.BedLimit)
}

func TestSubscribeAtBaseKeepsPlanDefaults(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 2)

	snap := f.subscribe(t, accountID, basicPlanID, 10)
	assert.Nil(t, snap.CustomPricing)
	assert.Equal(t, 10, snap.BedLimit)
	assert.Equal(t, 1, snap.BranchLimit)
}

func TestSubscribeValidation(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 3)
	ctx := context.Background()

	_, err := f.svc.Subscribe(ctx, domain.SubscribeRequest{AccountID: accountID, PlanID: "999", BillingCycle: "monthly", PaymentStatus: domain.PaymentStatusCompleted})
	assert.ErrorIs(t, err, plandomain.ErrPlanNotFound)
	assert.ErrorIs(t, err, errs.NotFound)

	_, err = f.svc.Subscribe(ctx, domain.SubscribeRequest{AccountID: accountID, PlanID: basicPlanID.String(), BillingCycle: "weekly", PaymentStatus: domain.PaymentStatusCompleted})
	assert.ErrorIs(t, err, domain.ErrInvalidBillingCycle)

	_, err = f.svc.Subscribe(ctx, domain.SubscribeRequest{AccountID: accountID, PlanID: basicPlanID.String(), BillingCycle: "monthly", PaymentStatus: "failed"})
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentStatus)

	_, err = f.svc.Subscribe(ctx, domain.SubscribeRequest{AccountID: "not-an-id", PlanID: basicPlanID.String(), BillingCycle: "monthly", PaymentStatus: domain.PaymentStatusCompleted})
	assert.ErrorIs(t, err, errs.Validation)

	_, err = f.svc.Subscribe(ctx, domain.SubscribeRequest{AccountID: "424242", PlanID: basicPlanID.String(), BillingCycle: "monthly", PaymentStatus: domain.PaymentStatusCompleted})
	assert.ErrorIs(t, err, accountdomain.ErrAccountNotFound)
}

func TestSubscribeBlocksActiveUnlessUpgrade(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 4)
	ctx := context.Background()
	f.subscribe(t, accountID, basicPlanID, 10)

	req := domain.SubscribeRequest{
		AccountID:     accountID,
		PlanID:        cappedPlanID.String(),
		BillingCycle:  "annual",
		PaymentStatus: domain.PaymentStatusCompleted,
	}
	_, err := f.svc.Subscribe(ctx, req)
	assert.ErrorIs(t, err, domain.ErrActiveSubscriptionExists)
	assert.ErrorIs(t, err, errs.Conflict)

	req.AllowUpgrade = true
	snap, err := f.svc.Subscribe(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, cappedPlanID.String(), *snap.PlanID)
	assert.Equal(t, f.clock.Now().AddDate(1, 0, 0), *snap.EndDate)
}

func TestSubscribeKeepsUsageCounters(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 5)
	ctx := context.Background()

	_, err := f.svc.ActivateFreeTrial(ctx, accountID)
	require.NoError(t, err)
	_, err = f.svc.RecordUsage(ctx, domain.UsageRequest{AccountID: accountID, Resource: domain.ResourceBeds, Delta: 6})
	require.NoError(t, err)

	snap := f.subscribe(t, accountID, basicPlanID, 10)
	assert.Equal(t, 6, snap.Usage.BedsUsed)
	assert.False(t, snap.IsTrialActive)
}

func TestAddBedsPricesTopUp(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 6)
	ctx := context.Background()
	f.subscribe(t, accountID, basicPlanID, 10)

	custom, err := f.svc.AddBeds(ctx, domain.TopUpRequest{AccountID: accountID, AdditionalUnits: 5})
	require.NoError(t, err)
	assert.Equal(t, 15, custom.MaxBedsAllowed)
	assert.Equal(t, 5, custom.TopUpBeds)
	assert.Equal(t, int64(250), custom.TopUpCost)
	assert.Equal(t, int64(1250), custom.TotalMonthlyPrice)

	newCeiling := 20
	custom, err = f.svc.AddBeds(ctx, domain.TopUpRequest{AccountID: accountID, AdditionalUnits: 5, NewCeiling: &newCeiling})
	require.NoError(t, err)
	assert.Equal(t, 20, custom.MaxBedsAllowed)
	assert.Equal(t, int64(500), custom.TopUpCost)

	snap, err := f.svc.Get(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, snap.Status)
	assert.Equal(t, 20, snap.BedLimit)
}

func TestAddBedsRejects(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 7)
	ctx := context.Background()

	_, err := f.svc.AddBeds(ctx, domain.TopUpRequest{AccountID: accountID, AdditionalUnits: 2})
	assert.ErrorIs(t, err, domain.ErrNoActiveSubscription)

	f.subscribe(t, accountID, basicPlanID, 10)

	_, err = f.svc.AddBeds(ctx, domain.TopUpRequest{AccountID: accountID, AdditionalUnits: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	wrong := 99
	_, err = f.svc.AddBeds(ctx, domain.TopUpRequest{AccountID: accountID, AdditionalUnits: 2, NewCeiling: &wrong})
	assert.ErrorIs(t, err, domain.ErrCeilingMismatch)

	snap, err := f.svc.Get(ctx, accountID)
	require.NoError(t, err)
	assert.Nil(t, snap.CustomPricing)
}

func TestAddBranches(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 8)
	ctx := context.Background()
	f.subscribe(t, accountID, basicPlanID, 12)

	custom, err := f.svc.AddBranches(ctx, domain.TopUpRequest{AccountID: accountID, AdditionalUnits: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, custom.MaxBranchesAllowed)
	assert.Equal(t, 2, custom.ExtraBranches)
	assert.Equal(t, int64(600), custom.ExtraBranchCost)
	assert.Equal(t, 12, custom.MaxBedsAllowed)
	assert.Equal(t, int64(1000+100+600), custom.TotalMonthlyPrice)
}

func TestTopUpOnlyBillsTheRequestedResource(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 30)
	ctx := context.Background()
	f.subscribe(t, accountID, bundledPlanID, 10)

	custom, err := f.svc.AddBeds(ctx, domain.TopUpRequest{AccountID: accountID, AdditionalUnits: 5})
	require.NoError(t, err)
	assert.Equal(t, 19, custom.MaxBedsAllowed)
	assert.Equal(t, 5, custom.TopUpBeds)
	assert.Equal(t, int64(250), custom.TopUpCost)
	assert.Equal(t, 3, custom.MaxBranchesAllowed, "plan branches stay included")
	assert.Equal(t, 0, custom.ExtraBranches)
	assert.Equal(t, int64(0), custom.ExtraBranchCost)
	assert.Equal(t, int64(1250), custom.TotalMonthlyPrice)

	custom, err = f.svc.AddBranches(ctx, domain.TopUpRequest{AccountID: accountID, AdditionalUnits: 1})
	require.NoError(t, err)
	assert.Equal(t, 4, custom.MaxBranchesAllowed)
	assert.Equal(t, 1, custom.ExtraBranches)
	assert.Equal(t, int64(300), custom.ExtraBranchCost)
	assert.Equal(t, 19, custom.MaxBedsAllowed)
	assert.Equal(t, 5, custom.TopUpBeds)
	assert.Equal(t, int64(1550), custom.TotalMonthlyPrice)

	res, err := f.svc.CheckCapacity(ctx, domain.CapacityRequest{AccountID: accountID, Resource: domain.ResourceBranches, RequestedCount: 4})
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Limit)
}

func TestAddBranchesKeepsPlanBedAllowanceUnbilled(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 31)
	ctx := context.Background()
	f.subscribe(t, accountID, bundledPlanID, 10)

	custom, err := f.svc.AddBranches(ctx, domain.TopUpRequest{AccountID: accountID, AdditionalUnits: 1})
	require.NoError(t, err)
	assert.Equal(t, 14, custom.MaxBedsAllowed, "plan maximum still applies")
	assert.Equal(t, 0, custom.TopUpBeds)
	assert.Equal(t, int64(0), custom.TopUpCost)
	assert.Equal(t, int64(1300), custom.TotalMonthlyPrice)
}

func TestCheckCapacityBedsAtLimit(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 9)
	ctx := context.Background()
	f.subscribe(t, accountID, basicPlanID, 10)

	_, err := f.svc.RecordUsage(ctx, domain.UsageRequest{AccountID: accountID, Resource: domain.ResourceBeds, Delta: 8})
	require.NoError(t, err)

	res, err := f.svc.CheckCapacity(ctx, domain.CapacityRequest{AccountID: accountID, Resource: domain.ResourceBeds, RequestedCount: 3})
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 8, res.CurrentUsage)
	assert.Equal(t, 10, res.Limit)
	assert.Equal(t, 2, res.Remaining)
	assert.NotEmpty(t, res.Reason)

	res, err = f.svc.CheckCapacity(ctx, domain.CapacityRequest{AccountID: accountID, Resource: domain.ResourceBeds, RequestedCount: 2})
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestCheckCapacityCeilingPrecedence(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 10)
	ctx := context.Background()
	f.subscribe(t, accountID, cappedPlanID, 10)

	res, err := f.svc.CheckCapacity(ctx, domain.CapacityRequest{AccountID: accountID, Resource: domain.ResourceBeds, RequestedCount: 1})
	require.NoError(t, err)
	assert.Equal(t, 12, res.Limit, "plan maximum wins over the base")

	_, err = f.svc.AddBeds(ctx, domain.TopUpRequest{AccountID: accountID, AdditionalUnits: 3})
	require.NoError(t, err)

	res, err = f.svc.CheckCapacity(ctx, domain.CapacityRequest{AccountID: accountID, Resource: domain.ResourceBeds, RequestedCount: 1})
	require.NoError(t, err)
	assert.Equal(t, 15, res.Limit, "custom pricing wins over the plan maximum")

	res, err = f.svc.CheckCapacity(ctx, domain.CapacityRequest{AccountID: accountID, Resource: domain.ResourceBranches, RequestedCount: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Limit)
	assert.True(t, res.Allowed)
}

func TestCheckCapacityWithoutSubscription(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 11)
	ctx := context.Background()

	for _, resource := range []domain.Resource{domain.ResourceBeds, domain.ResourceBranches} {
		res, err := f.svc.CheckCapacity(ctx, domain.CapacityRequest{AccountID: accountID, Resource: resource, RequestedCount: 0})
		require.NoError(t, err)
		assert.False(t, res.Allowed, string(resource))
	}
	res, err := f.svc.CheckCapacity(ctx, domain.CapacityRequest{AccountID: accountID, Resource: domain.ResourceModule, Module: "food"})
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	_, err = f.svc.CheckCapacity(ctx, domain.CapacityRequest{AccountID: accountID, Resource: "rooms"})
	assert.ErrorIs(t, err, domain.ErrInvalidResource)
}

func TestCheckCapacityModules(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 12)
	ctx := context.Background()
	f.subscribe(t, accountID, basicPlanID, 10)

	res, err := f.svc.CheckCapacity(ctx, domain.CapacityRequest{AccountID: accountID, Resource: domain.ResourceModule, Module: "food"})
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = f.svc.CheckCapacity(ctx, domain.CapacityRequest{AccountID: accountID, Resource: domain.ResourceModule, Module: "laundry"})
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = f.svc.CheckCapacity(ctx, domain.CapacityRequest{AccountID: accountID, Resource: domain.ResourceModule, Module: "gym"})
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestActivateFreeTrialGrantedOnce(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 13)
	ctx := context.Background()

	first, err := f.svc.ActivateFreeTrial(ctx, accountID)
	require.NoError(t, err)
	assert.True(t, first.Activated)
	assert.Equal(t, domain.StatusTrial, first.Snapshot.Status)
	assert.True(t, first.Snapshot.IsTrialActive)
	assert.Equal(t, 14, first.Snapshot.TrialDaysRemaining)
	assert.False(t, first.Snapshot.IsExpiringSoon)
	assert.Equal(t, 10, first.Snapshot.BedLimit)
	assert.Nil(t, first.Snapshot.PlanID)

	f.clock.Advance(time.Hour)
	second, err := f.svc.ActivateFreeTrial(ctx, accountID)
	require.NoError(t, err)
	assert.False(t, second.Activated)
	assert.Equal(t, *first.Snapshot.TrialEndDate, *second.Snapshot.TrialEndDate)

	f.clock.Advance(15 * 24 * time.Hour)
	third, err := f.svc.ActivateFreeTrial(ctx, accountID)
	require.NoError(t, err)
	assert.False(t, third.Activated)
	assert.Equal(t, domain.StatusExpired, third.Snapshot.Status)
	assert.Equal(t, *first.Snapshot.TrialEndDate, *third.Snapshot.TrialEndDate)
}

func TestTrialDerivedFields(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 14)
	ctx := context.Background()

	_, err := f.svc.ActivateFreeTrial(ctx, accountID)
	require.NoError(t, err)

	f.clock.Advance(12*24*time.Hour + time.Hour)
	snap, err := f.svc.Get(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.TrialDaysRemaining)
	assert.True(t, snap.IsExpiringSoon)

	res, err := f.svc.CheckCapacity(ctx, domain.CapacityRequest{AccountID: accountID, Resource: domain.ResourceModule, Module: "food"})
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	f.clock.Advance(2 * 24 * time.Hour)
	snap, err = f.svc.Get(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, snap.Status)
	assert.Equal(t, domain.StatusTrial, snap.StoredStatus)
	assert.Zero(t, snap.TrialDaysRemaining)
	assert.False(t, snap.IsTrialActive)
}

func TestExpiryIsReadTimeThenIdempotentWrite(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 15)
	ctx := context.Background()
	f.subscribe(t, accountID, basicPlanID, 10)

	expired, err := f.svc.ExpireIfDue(ctx, accountID)
	require.NoError(t, err)
	assert.False(t, expired)

	f.clock.Advance(32 * 24 * time.Hour)

	res, err := f.svc.CheckCapacity(ctx, domain.CapacityRequest{AccountID: accountID, Resource: domain.ResourceBeds, RequestedCount: 1})
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	snap, err := f.svc.Get(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, snap.Status)
	assert.Equal(t, domain.StatusActive, snap.StoredStatus)

	expired, err = f.svc.ExpireIfDue(ctx, accountID)
	require.NoError(t, err)
	assert.True(t, expired)

	expired, err = f.svc.ExpireIfDue(ctx, accountID)
	require.NoError(t, err)
	assert.False(t, expired)

	snap, err = f.svc.Get(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, snap.StoredStatus)

	renewed := f.subscribe(t, accountID, basicPlanID, 10)
	assert.Equal(t, domain.StatusActive, renewed.Status)
}

func TestExpireDueSkipsRenewed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lapsed := f.newAccount(t, 16)
	renewed := f.newAccount(t, 17)
	fresh := f.newAccount(t, 18)

	f.subscribe(t, lapsed, basicPlanID, 10)
	f.subscribe(t, renewed, basicPlanID, 10)
	_, err := f.svc.ActivateFreeTrial(ctx, fresh)
	require.NoError(t, err)

	f.clock.Advance(40 * 24 * time.Hour)
	_, err = f.svc.Subscribe(ctx, domain.SubscribeRequest{
		AccountID:     renewed,
		PlanID:        basicPlanID.String(),
		BillingCycle:  "monthly",
		PaymentStatus: domain.PaymentStatusCompleted,
	})
	require.NoError(t, err)

	count, err := f.svc.ExpireDue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	snap, err := f.svc.Get(ctx, renewed)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, snap.StoredStatus)

	count, err = f.svc.ExpireDue(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 19)
	ctx := context.Background()

	_, err := f.svc.Cancel(ctx, accountID, "changed mind")
	assert.ErrorIs(t, err, domain.ErrNothingToCancel)

	f.subscribe(t, accountID, basicPlanID, 10)
	snap, err := f.svc.Cancel(ctx, accountID, "closing property")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, snap.Status)
	require.NotNil(t, snap.CancelledAt)
	cancelledAt := *snap.CancelledAt

	f.clock.Advance(time.Minute)
	snap, err = f.svc.Cancel(ctx, accountID, "again")
	require.NoError(t, err)
	assert.Equal(t, cancelledAt, *snap.CancelledAt)

	res, err := f.svc.CheckCapacity(ctx, domain.CapacityRequest{AccountID: accountID, Resource: domain.ResourceBeds, RequestedCount: 1})
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	snap = f.subscribe(t, accountID, basicPlanID, 10)
	assert.Equal(t, domain.StatusActive, snap.Status)
	assert.Nil(t, snap.CancelledAt)
}

func TestCancelFreeAccountIsConflict(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 32)
	ctx := context.Background()

	_, err := f.svc.Cancel(ctx, accountID, "never subscribed")
	assert.ErrorIs(t, err, domain.ErrNothingToCancel)
	assert.ErrorIs(t, err, errs.Conflict)

	snap, err := f.svc.Get(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFree, snap.Status)
	assert.Nil(t, snap.CancelledAt)
}

func TestRecordUsageValidation(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 20)
	ctx := context.Background()

	_, err := f.svc.RecordUsage(ctx, domain.UsageRequest{AccountID: accountID, Resource: domain.ResourceBeds, Delta: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = f.svc.RecordUsage(ctx, domain.UsageRequest{AccountID: accountID, Resource: domain.ResourceModule, Delta: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidResource)

	snap, err := f.svc.RecordUsage(ctx, domain.UsageRequest{AccountID: accountID, Resource: domain.ResourceBranches, Delta: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Usage.BranchesUsed)
}

func capturedPayment(accountID, paymentID string) domain.CapturedPayment {
	return domain.CapturedPayment{
		AccountID:     accountID,
		PlanID:        basicPlanID.String(),
		BillingCycle:  "monthly",
		TotalBeds:     15,
		TotalBranches: 1,
		Record: domain.PaymentRecord{
			GatewayPaymentID: paymentID,
			GatewayOrderID:   "order_1",
			Amount:           125000,
			Currency:         "INR",
			Status:           "captured",
			Method:           "upi",
		},
	}
}

func TestApplyCapturedPaymentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 21)
	ctx := context.Background()

	first, err := f.svc.ApplyCapturedPayment(ctx, capturedPayment(accountID, "pay_123"))
	require.NoError(t, err)
	assert.True(t, first.Applied)
	assert.Equal(t, domain.StatusActive, first.Snapshot.Status)
	require.Len(t, first.Snapshot.PaymentHistory, 1)
	rec := first.Snapshot.PaymentHistory[0]
	assert.Equal(t, "Basic", rec.Plan.PlanName)
	assert.Equal(t, 15, rec.Plan.BedCount)
	assert.Equal(t, f.clock.Now(), rec.PaidAt)

	f.clock.Advance(time.Hour)
	second, err := f.svc.ApplyCapturedPayment(ctx, capturedPayment(accountID, "pay_123"))
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Len(t, second.Snapshot.PaymentHistory, 1)
	assert.Equal(t, *first.Snapshot.EndDate, *second.Snapshot.EndDate)

	third, err := f.svc.ApplyCapturedPayment(ctx, capturedPayment(accountID, "pay_456"))
	require.NoError(t, err)
	assert.True(t, third.Applied)
	assert.Len(t, third.Snapshot.PaymentHistory, 2)
}

func TestApplyCapturedPaymentConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 22)
	ctx := context.Background()

	const deliveries = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		applied  int
		errsSeen []error
	)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.ApplyCapturedPayment(ctx, capturedPayment(accountID, "pay_concurrent"))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errsSeen = append(errsSeen, err)
				return
			}
			if res.Applied {
				applied++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errsSeen)
	assert.Equal(t, 1, applied)

	snap, err := f.svc.Get(ctx, accountID)
	require.NoError(t, err)
	assert.Len(t, snap.PaymentHistory, 1)
}

func TestApplyCapturedPaymentRejectsInvalidRecord(t *testing.T) {
	f := newFixture(t)
	accountID := f.newAccount(t, 23)

	payment := capturedPayment(accountID, "  ")
	_, err := f.svc.ApplyCapturedPayment(context.Background(), payment)
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentRecord)

	snap, err := f.svc.Get(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFree, snap.Status)
	assert.Empty(t, snap.PaymentHistory)
}
