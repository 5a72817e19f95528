package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/pgstay/internal/account/domain"
	"github.com/smallbiznis/pgstay/internal/accountlock"
	"github.com/smallbiznis/pgstay/internal/clock"
	"github.com/smallbiznis/pgstay/internal/config"
	"github.com/smallbiznis/pgstay/internal/errs"
	"github.com/smallbiznis/pgstay/internal/observability/metrics"
	plandomain "github.com/smallbiznis/pgstay/internal/plan/domain"
	"github.com/smallbiznis/pgstay/internal/pricing"
	"github.com/smallbiznis/pgstay/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// errUnchanged aborts an account update that has nothing to write.
var errUnchanged = errors.New("subscription unchanged")

type Params struct {
	fx.In

	Repo    accountdomain.Repository
	Catalog plandomain.Catalog
	Locker  accountlock.Locker
	Clock   clock.Clock
	Policy  config.PolicyProvider
	Metrics *metrics.Metrics `optional:"true"`
	Log     *zap.Logger
}

type Service struct {
	repo    accountdomain.Repository
	catalog plandomain.Catalog
	locker  accountlock.Locker
	clock   clock.Clock
	policy  config.PolicyProvider
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewService(p Params) domain.Service {
	return &Service{
		repo:    p.Repo,
		catalog: p.Catalog,
		locker:  p.Locker,
		clock:   p.Clock,
		policy:  p.Policy,
		metrics: p.Metrics,
		log:     p.Log.Named("subscription.service"),
	}
}

func (s *Service) ActivateFreeTrial(ctx context.Context, accountID string) (domain.ActivationResult, error) {
	id, err := parseAccountID(accountID)
	if err != nil {
		return domain.ActivationResult{}, err
	}

	policy := s.policy.Get()
	var from domain.Status
	account, changed, err := s.mutate(ctx, id, func(a *accountdomain.Account) error {
		now := s.clock.Now()
		sub := &a.Subscription
		from = sub.EffectiveStatus(now)

		if sub.IsLive(now) || sub.HasUsedTrial() || !domain.CanTransition(sub.Status, domain.StatusTrial) {
			return errUnchanged
		}

		trialEnd := now.AddDate(0, 0, policy.TrialDays)
		sub.Status = domain.StatusTrial
		sub.PlanID = nil
		sub.BillingCycle = ""
		sub.StartDate = &now
		sub.TrialEndDate = &trialEnd
		sub.EndDate = &trialEnd
		sub.CancelledAt = nil
		sub.Usage = domain.Usage{}
		sub.CustomPricing = nil
		sub.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.ActivationResult{}, err
	}

	if changed {
		s.metrics.RecordSubscriptionTransition(ctx, string(from), string(domain.StatusTrial))
		s.log.Info("free trial activated",
			zap.String("account_id", id.String()),
			zap.Int("trial_days", policy.TrialDays),
		)
	}

	snap, err := s.snapshot(ctx, account, nil)
	if err != nil {
		return domain.ActivationResult{}, err
	}
	return domain.ActivationResult{Activated: changed, Snapshot: snap}, nil
}

func (s *Service) Subscribe(ctx context.Context, req domain.SubscribeRequest) (domain.Snapshot, error) {
	id, err := parseAccountID(req.AccountID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	planID, err := parsePlanID(req.PlanID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	cycle, ok := plandomain.ParseBillingCycle(req.BillingCycle)
	if !ok {
		return domain.Snapshot{}, domain.ErrInvalidBillingCycle
	}
	switch req.PaymentStatus {
	case domain.PaymentStatusCompleted, domain.PaymentStatusPending:
	default:
		return domain.Snapshot{}, domain.ErrInvalidPaymentStatus
	}
	if req.TotalBeds < 0 || req.TotalBranches < 0 {
		return domain.Snapshot{}, domain.ErrInvalidQuantity
	}

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	defer unlock()

	plan, err := s.catalog.GetByID(ctx, planID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	custom, err := s.requestedPricing(plan, req.TotalBeds, req.TotalBranches)
	if err != nil {
		return domain.Snapshot{}, err
	}

	var from domain.Status
	account, err := s.repo.Update(ctx, id, func(a *accountdomain.Account) error {
		now := s.clock.Now()
		from = a.Subscription.EffectiveStatus(now)
		return s.applySubscribe(&a.Subscription, plan, cycle, custom, req.AllowUpgrade, now)
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	s.metrics.RecordSubscriptionTransition(ctx, string(from), string(domain.StatusActive))
	s.log.Info("subscription activated",
		zap.String("account_id", id.String()),
		zap.String("plan_id", planID.String()),
		zap.String("billing_cycle", string(cycle)),
		zap.String("payment_status", string(req.PaymentStatus)),
		zap.String("from", string(from)),
	)

	return s.snapshot(ctx, account, plan)
}

func (s *Service) ApplyCapturedPayment(ctx context.Context, payment domain.CapturedPayment) (domain.ApplyResult, error) {
	id, err := parseAccountID(payment.AccountID)
	if err != nil {
		return domain.ApplyResult{}, err
	}
	planID, err := parsePlanID(payment.PlanID)
	if err != nil {
		return domain.ApplyResult{}, err
	}
	cycle, ok := plandomain.ParseBillingCycle(payment.BillingCycle)
	if !ok {
		return domain.ApplyResult{}, domain.ErrInvalidBillingCycle
	}
	if payment.TotalBeds < 0 || payment.TotalBranches < 0 {
		return domain.ApplyResult{}, domain.ErrInvalidQuantity
	}
	record := payment.Record
	record.GatewayPaymentID = strings.TrimSpace(record.GatewayPaymentID)
	if record.GatewayPaymentID == "" || record.Amount < 0 {
		return domain.ApplyResult{}, domain.ErrInvalidPaymentRecord
	}

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return domain.ApplyResult{}, err
	}
	defer unlock()

	plan, err := s.catalog.GetByID(ctx, planID)
	if err != nil {
		return domain.ApplyResult{}, err
	}
	custom, err := s.requestedPricing(plan, payment.TotalBeds, payment.TotalBranches)
	if err != nil {
		return domain.ApplyResult{}, err
	}
	if record.Plan.PlanName == "" {
		record.Plan.PlanName = plan.Name
	}
	if record.Plan.BedCount == 0 {
		record.Plan.BedCount = payment.TotalBeds
	}
	if record.Plan.BranchCount == 0 {
		record.Plan.BranchCount = payment.TotalBranches
	}

	var from domain.Status
	account, applied, err := s.update(ctx, id, func(a *accountdomain.Account) error {
		now := s.clock.Now()
		sub := &a.Subscription
		if sub.PaymentHistory.Has(record.GatewayPaymentID) {
			return errUnchanged
		}
		from = sub.EffectiveStatus(now)
		if err := s.applySubscribe(sub, plan, cycle, custom, true, now); err != nil {
			return err
		}
		if record.PaidAt.IsZero() {
			record.PaidAt = now
		}
		return sub.PaymentHistory.Append(record)
	})
	if errors.Is(err, domain.ErrDuplicatePayment) {
		// Another writer stored the same gateway payment id first.
		account, applied, err = s.reload(ctx, id)
	}
	if err != nil {
		return domain.ApplyResult{}, err
	}

	if applied {
		s.metrics.RecordSubscriptionTransition(ctx, string(from), string(domain.StatusActive))
		s.log.Info("captured payment applied",
			zap.String("account_id", id.String()),
			zap.String("gateway_payment_id", record.GatewayPaymentID),
			zap.Int64("amount", record.Amount),
			zap.String("currency", record.Currency),
		)
	} else {
		s.log.Info("captured payment already recorded",
			zap.String("account_id", id.String()),
			zap.String("gateway_payment_id", record.GatewayPaymentID),
		)
	}

	snap, err := s.snapshot(ctx, account, plan)
	if err != nil {
		return domain.ApplyResult{}, err
	}
	return domain.ApplyResult{Applied: applied, Snapshot: snap}, nil
}

func (s *Service) AddBeds(ctx context.Context, req domain.TopUpRequest) (domain.CustomPricing, error) {
	return s.topUp(ctx, req, domain.ResourceBeds)
}

func (s *Service) AddBranches(ctx context.Context, req domain.TopUpRequest) (domain.CustomPricing, error) {
	return s.topUp(ctx, req, domain.ResourceBranches)
}

func (s *Service) topUp(ctx context.Context, req domain.TopUpRequest, resource domain.Resource) (domain.CustomPricing, error) {
	id, err := parseAccountID(req.AccountID)
	if err != nil {
		return domain.CustomPricing{}, err
	}
	if err := pricing.ValidateAdditional(req.AdditionalUnits); err != nil {
		return domain.CustomPricing{}, err
	}

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return domain.CustomPricing{}, err
	}
	defer unlock()

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.CustomPricing{}, err
	}
	plan, err := s.activePlan(ctx, current.Subscription)
	if err != nil {
		return domain.CustomPricing{}, err
	}

	var result domain.CustomPricing
	_, err = s.repo.Update(ctx, id, func(a *accountdomain.Account) error {
		now := s.clock.Now()
		sub := &a.Subscription
		if sub.EffectiveStatus(now) != domain.StatusActive || sub.PlanID == nil || *sub.PlanID != plan.ID {
			return domain.ErrNoActiveSubscription
		}

		// Ceilings keep what the plan or earlier top-ups grant; only the
		// requested dimension gains billed units.
		bedCeiling, branchCeiling := sub.EffectiveBedCeiling(plan), sub.EffectiveBranchCeiling(plan)
		billedBeds, billedBranches := sub.BilledBeds(plan), sub.BilledBranches(plan)
		var total int
		if resource == domain.ResourceBeds {
			bedCeiling += req.AdditionalUnits
			billedBeds += req.AdditionalUnits
			total = bedCeiling
		} else {
			branchCeiling += req.AdditionalUnits
			billedBranches += req.AdditionalUnits
			total = branchCeiling
		}
		if req.NewCeiling != nil && *req.NewCeiling != total {
			return domain.ErrCeilingMismatch
		}

		custom, err := pricing.BuildCustomPricing(plan, billedBeds, billedBranches, now)
		if err != nil {
			return err
		}
		custom.MaxBedsAllowed = max(custom.MaxBedsAllowed, bedCeiling)
		custom.MaxBranchesAllowed = max(custom.MaxBranchesAllowed, branchCeiling)
		sub.CustomPricing = custom
		sub.UpdatedAt = now
		result = *custom
		return nil
	})
	if err != nil {
		return domain.CustomPricing{}, err
	}

	s.log.Info("capacity topped up",
		zap.String("account_id", id.String()),
		zap.String("resource", string(resource)),
		zap.Int("additional", req.AdditionalUnits),
		zap.Int("max_beds", result.MaxBedsAllowed),
		zap.Int("max_branches", result.MaxBranchesAllowed),
		zap.Int64("total_monthly_price", result.TotalMonthlyPrice),
	)
	return result, nil
}

func (s *Service) CheckCapacity(ctx context.Context, req domain.CapacityRequest) (domain.CapacityResult, error) {
	id, err := parseAccountID(req.AccountID)
	if err != nil {
		return domain.CapacityResult{}, err
	}
	resource, ok := domain.ParseResource(string(req.Resource))
	if !ok {
		return domain.CapacityResult{}, domain.ErrInvalidResource
	}
	if resource == domain.ResourceModule && strings.TrimSpace(req.Module) == "" {
		return domain.CapacityResult{}, domain.ErrInvalidResource
	}
	if req.RequestedCount < 0 {
		return domain.CapacityResult{}, domain.ErrInvalidQuantity
	}

	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.CapacityResult{}, err
	}
	sub := account.Subscription
	now := s.clock.Now()

	var result domain.CapacityResult
	switch resource {
	case domain.ResourceBeds:
		result.CurrentUsage = sub.Usage.BedsUsed
	case domain.ResourceBranches:
		result.CurrentUsage = sub.Usage.BranchesUsed
	}

	if !sub.IsLive(now) {
		result.Reason = fmt.Sprintf("no active subscription (status %s)", sub.EffectiveStatus(now))
		s.metrics.RecordCapacityCheck(ctx, string(resource), false)
		return result, nil
	}

	plan, err := s.resolvePlan(ctx, sub)
	if err != nil {
		return domain.CapacityResult{}, err
	}
	policy := s.policy.Get()

	switch resource {
	case domain.ResourceModule:
		if plan != nil {
			result.Allowed = plan.ModuleEnabled(req.Module)
		} else {
			result.Allowed = policy.TrialModuleEnabled(req.Module)
		}
		if !result.Allowed {
			result.Reason = fmt.Sprintf("module %q is not enabled for this subscription", strings.TrimSpace(req.Module))
		}
	default:
		limits := limitsFor(sub, plan, policy)
		limit := limits.Beds
		if resource == domain.ResourceBranches {
			limit = limits.Branches
		}
		result.Limit = limit
		result.Remaining = max(0, limit-result.CurrentUsage)
		result.Allowed = result.CurrentUsage+req.RequestedCount <= limit
		if !result.Allowed {
			result.Reason = fmt.Sprintf("%s limit reached: %d of %d in use, %d requested",
				resource, result.CurrentUsage, limit, req.RequestedCount)
		}
	}

	s.metrics.RecordCapacityCheck(ctx, string(resource), result.Allowed)
	return result, nil
}

func (s *Service) RecordUsage(ctx context.Context, req domain.UsageRequest) (domain.Snapshot, error) {
	id, err := parseAccountID(req.AccountID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	resource, ok := domain.ParseResource(string(req.Resource))
	if !ok || resource == domain.ResourceModule {
		return domain.Snapshot{}, domain.ErrInvalidResource
	}
	if req.Delta <= 0 {
		return domain.Snapshot{}, domain.ErrInvalidQuantity
	}

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	defer unlock()

	account, err := s.repo.Update(ctx, id, func(a *accountdomain.Account) error {
		if resource == domain.ResourceBeds {
			a.Subscription.Usage.BedsUsed += req.Delta
		} else {
			a.Subscription.Usage.BranchesUsed += req.Delta
		}
		a.Subscription.UpdatedAt = s.clock.Now()
		return nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return s.snapshot(ctx, account, nil)
}

func (s *Service) Cancel(ctx context.Context, accountID string, reason string) (domain.Snapshot, error) {
	id, err := parseAccountID(accountID)
	if err != nil {
		return domain.Snapshot{}, err
	}

	var from domain.Status
	account, changed, err := s.mutate(ctx, id, func(a *accountdomain.Account) error {
		now := s.clock.Now()
		sub := &a.Subscription
		from = sub.EffectiveStatus(now)
		switch sub.Status {
		case "", domain.StatusFree:
			return domain.ErrNothingToCancel
		case domain.StatusCancelled:
			return errUnchanged
		}
		if !domain.CanTransition(sub.Status, domain.StatusCancelled) {
			return domain.ErrInvalidTransition
		}
		sub.Status = domain.StatusCancelled
		sub.CancelledAt = &now
		sub.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	if changed {
		s.metrics.RecordSubscriptionTransition(ctx, string(from), string(domain.StatusCancelled))
		s.log.Info("subscription cancelled",
			zap.String("account_id", id.String()),
			zap.String("reason", strings.TrimSpace(reason)),
		)
	}
	return s.snapshot(ctx, account, nil)
}

func (s *Service) ExpireIfDue(ctx context.Context, accountID string) (bool, error) {
	id, err := parseAccountID(accountID)
	if err != nil {
		return false, err
	}

	var from domain.Status
	_, expired, err := s.mutate(ctx, id, func(a *accountdomain.Account) error {
		now := s.clock.Now()
		sub := &a.Subscription
		if sub.Status != domain.StatusTrial && sub.Status != domain.StatusActive {
			return errUnchanged
		}
		// Re-checked under the lock: a renewal may have extended the period since listing.
		end := sub.PeriodEnd()
		if end == nil || end.After(now) {
			return errUnchanged
		}
		from = sub.Status
		sub.Status = domain.StatusExpired
		sub.UpdatedAt = now
		return nil
	})
	if err != nil {
		return false, err
	}

	if expired {
		s.metrics.RecordSubscriptionTransition(ctx, string(from), string(domain.StatusExpired))
		s.log.Info("subscription expired", zap.String("account_id", id.String()), zap.String("from", string(from)))
	}
	return expired, nil
}

func (s *Service) ExpireDue(ctx context.Context, limit int) (int, error) {
	ids, err := s.repo.ListExpirable(ctx, s.clock.Now(), limit)
	if err != nil {
		return 0, err
	}

	var (
		expired int
		failed  []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			failed = append(failed, errs.Wrap(errs.Transient, err))
			break
		}
		ok, err := s.ExpireIfDue(ctx, id.String())
		if err != nil {
			s.log.Warn("expire subscription failed", zap.String("account_id", id.String()), zap.Error(err))
			failed = append(failed, err)
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, errors.Join(failed...)
}

func (s *Service) Get(ctx context.Context, accountID string) (domain.Snapshot, error) {
	id, err := parseAccountID(accountID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return s.snapshot(ctx, account, nil)
}

// applySubscribe moves sub to active on plan. Usage counters are left untouched.
func (s *Service) applySubscribe(sub *domain.Subscription, plan *plandomain.Plan, cycle plandomain.BillingCycle, custom *domain.CustomPricing, allowUpgrade bool, now time.Time) error {
	from := sub.EffectiveStatus(now)
	if from == domain.StatusActive && !allowUpgrade {
		return domain.ErrActiveSubscriptionExists
	}
	if !domain.CanTransition(from, domain.StatusActive) {
		return domain.ErrInvalidTransition
	}

	end := periodEnd(now, cycle)
	planID := plan.ID
	sub.Status = domain.StatusActive
	sub.PlanID = &planID
	sub.BillingCycle = cycle
	sub.StartDate = &now
	sub.EndDate = &end
	sub.CancelledAt = nil
	sub.CustomPricing = custom
	sub.UpdatedAt = now
	return nil
}

// requestedPricing prices totals above the plan base; nil means the plan defaults apply.
func (s *Service) requestedPricing(plan *plandomain.Plan, beds, branches int) (*domain.CustomPricing, error) {
	if beds <= plan.BaseBedCount && branches <= plandomain.BaseBranchCount {
		return nil, nil
	}
	return pricing.BuildCustomPricing(plan, beds, branches, s.clock.Now())
}

func (s *Service) activePlan(ctx context.Context, sub domain.Subscription) (*plandomain.Plan, error) {
	if sub.EffectiveStatus(s.clock.Now()) != domain.StatusActive || sub.PlanID == nil {
		return nil, domain.ErrNoActiveSubscription
	}
	plan, err := s.catalog.GetByID(ctx, *sub.PlanID)
	if errors.Is(err, plandomain.ErrPlanNotFound) {
		return nil, domain.ErrNoActiveSubscription
	}
	return plan, err
}

func (s *Service) resolvePlan(ctx context.Context, sub domain.Subscription) (*plandomain.Plan, error) {
	if sub.PlanID == nil {
		return nil, nil
	}
	return s.catalog.GetByID(ctx, *sub.PlanID)
}

// mutate runs fn under the account lock.
func (s *Service) mutate(ctx context.Context, id snowflake.ID, fn accountdomain.UpdateFunc) (*accountdomain.Account, bool, error) {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, false, err
	}
	defer unlock()
	return s.update(ctx, id, fn)
}

// update applies fn; the caller holds the account lock. changed is false when fn
// returned errUnchanged, in which case the stored account is returned as loaded.
func (s *Service) update(ctx context.Context, id snowflake.ID, fn accountdomain.UpdateFunc) (*accountdomain.Account, bool, error) {
	var loaded accountdomain.Account
	account, err := s.repo.Update(ctx, id, func(a *accountdomain.Account) error {
		loaded = *a
		return fn(a)
	})
	if errors.Is(err, errUnchanged) {
		return &loaded, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return account, true, nil
}

func (s *Service) reload(ctx context.Context, id snowflake.ID) (*accountdomain.Account, bool, error) {
	account, err := s.repo.FindByID(ctx, id)
	return account, false, err
}

func (s *Service) lock(ctx context.Context, id snowflake.ID) (func(), error) {
	unlock, err := s.locker.Lock(ctx, accountlock.AccountKey(id.String()))
	if err != nil {
		return nil, errs.Wrap(errs.Transient, err)
	}
	return unlock, nil
}

func (s *Service) snapshot(ctx context.Context, account *accountdomain.Account, plan *plandomain.Plan) (domain.Snapshot, error) {
	sub := account.Subscription
	if plan == nil || sub.PlanID == nil || *sub.PlanID != plan.ID {
		resolved, err := s.resolvePlan(ctx, sub)
		if err != nil && !errors.Is(err, plandomain.ErrPlanNotFound) {
			return domain.Snapshot{}, err
		}
		plan = resolved
	}
	policy := s.policy.Get()
	return domain.NewSnapshot(account.ID.String(), sub, limitsFor(sub, plan, policy), s.clock.Now(), policy.ExpiringSoonDays), nil
}

// limitsFor resolves ceilings; a plan-less trial uses the policy trial limits.
func limitsFor(sub domain.Subscription, plan *plandomain.Plan, policy config.SubscriptionPolicy) domain.Limits {
	if plan == nil && sub.CustomPricing == nil {
		if sub.Status == domain.StatusTrial {
			return domain.Limits{Beds: policy.TrialBedLimit, Branches: policy.TrialBranchLimit}
		}
		return domain.Limits{}
	}
	return domain.Limits{
		Beds:     sub.EffectiveBedCeiling(plan),
		Branches: sub.EffectiveBranchCeiling(plan),
	}
}

func periodEnd(start time.Time, cycle plandomain.BillingCycle) time.Time {
	if cycle == plandomain.BillingCycleAnnual {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

func parseAccountID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidAccountID
	}
	return id, nil
}

func parsePlanID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidPlanID
	}
	return id, nil
}
