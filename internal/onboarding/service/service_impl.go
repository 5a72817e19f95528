package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/pgstay/internal/account/domain"
	"github.com/smallbiznis/pgstay/internal/accountlock"
	"github.com/smallbiznis/pgstay/internal/clock"
	"github.com/smallbiznis/pgstay/internal/errs"
	"github.com/smallbiznis/pgstay/internal/onboarding/domain"
	propertydomain "github.com/smallbiznis/pgstay/internal/property/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Repo     accountdomain.Repository
	Locker   accountlock.Locker
	PGs      domain.PGService
	Branches domain.BranchService
	Clock    clock.Clock
	Log      *zap.Logger
}

type Service struct {
	repo     accountdomain.Repository
	locker   accountlock.Locker
	pgs      domain.PGService
	branches domain.BranchService
	clock    clock.Clock
	log      *zap.Logger
}

func NewService(p Params) domain.Service {
	return &Service{
		repo:     p.Repo,
		locker:   p.Locker,
		pgs:      p.PGs,
		branches: p.Branches,
		clock:    p.Clock,
		log:      p.Log.Named("onboarding.service"),
	}
}

// ProgressPGCreation creates the PG, or updates it when the step was already completed.
func (s *Service) ProgressPGCreation(ctx context.Context, accountID string, in propertydomain.PGInput) (domain.Snapshot, error) {
	id, err := parseAccountID(accountID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	defer unlock()

	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Snapshot{}, err
	}

	var pgID snowflake.ID
	if account.PGID != nil && account.Onboarding.PGCreation.Completed() {
		pgID = *account.PGID
		if err := s.pgs.UpdatePG(ctx, pgID, in); err != nil {
			return domain.Snapshot{}, err
		}
	} else {
		pgID, err = s.pgs.CreatePG(ctx, id, in)
		if err != nil {
			return domain.Snapshot{}, err
		}
	}

	updated, err := s.complete(ctx, id, domain.StepPGCreation, pgID, func(a *accountdomain.Account) {
		a.PGID = &pgID
	})
	if err != nil {
		s.log.Error("pg saved but onboarding not advanced",
			zap.String("account_id", id.String()),
			zap.String("pg_id", pgID.String()),
			zap.Error(err),
		)
		return domain.Snapshot{}, err
	}
	return domain.NewSnapshot(updated.ID, updated.PGID, updated.Onboarding), nil
}

// ProgressBranchSetup creates the default branch, or updates it on re-entry.
func (s *Service) ProgressBranchSetup(ctx context.Context, accountID string, in propertydomain.BranchInput) (domain.Snapshot, error) {
	id, err := parseAccountID(accountID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	defer unlock()

	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if account.PGID == nil || !account.Onboarding.PGCreation.Completed() {
		return domain.Snapshot{}, domain.ErrNoPGAssociated
	}

	var branchID snowflake.ID
	rec := account.Onboarding.BranchSetup
	if rec.Completed() && rec.LinkedEntityID != nil {
		branchID = *rec.LinkedEntityID
		if err := s.branches.UpdateBranch(ctx, branchID, in, true); err != nil {
			return domain.Snapshot{}, err
		}
	} else {
		branchID, err = s.branches.CreateBranch(ctx, *account.PGID, in, true)
		if err != nil {
			return domain.Snapshot{}, err
		}
	}

	updated, err := s.complete(ctx, id, domain.StepBranchSetup, branchID, nil)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return domain.NewSnapshot(updated.ID, updated.PGID, updated.Onboarding), nil
}

// ProgressPGConfiguration only requires a PG; the branch step is not checked.
func (s *Service) ProgressPGConfiguration(ctx context.Context, accountID string, types []propertydomain.SharingType) (domain.Snapshot, error) {
	id, err := parseAccountID(accountID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	defer unlock()

	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if account.PGID == nil {
		return domain.Snapshot{}, domain.ErrNoPGAssociated
	}
	pgID := *account.PGID

	if err := s.pgs.ConfigureSharingTypes(ctx, pgID, types); err != nil {
		return domain.Snapshot{}, err
	}

	updated, err := s.complete(ctx, id, domain.StepPGConfiguration, pgID, nil)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if updated.Onboarding.CurrentStep() == domain.StepDone {
		s.log.Info("onboarding completed", zap.String("account_id", id.String()))
	}
	return domain.NewSnapshot(updated.ID, updated.PGID, updated.Onboarding), nil
}

func (s *Service) GetStatus(ctx context.Context, accountID string) (domain.Snapshot, error) {
	id, err := parseAccountID(accountID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return domain.NewSnapshot(account.ID, account.PGID, account.Onboarding), nil
}

func (s *Service) complete(ctx context.Context, id snowflake.ID, step domain.Step, linked snowflake.ID, extra func(*accountdomain.Account)) (*accountdomain.Account, error) {
	return s.repo.Update(ctx, id, func(a *accountdomain.Account) error {
		onboarding, err := a.Onboarding.Complete(step, linked, s.clock.Now())
		if err != nil {
			return err
		}
		a.Onboarding = onboarding
		if extra != nil {
			extra(a)
		}
		return nil
	})
}

func (s *Service) lock(ctx context.Context, id snowflake.ID) (func(), error) {
	unlock, err := s.locker.Lock(ctx, accountlock.AccountKey(id.String()))
	if err != nil {
		return nil, errs.Wrap(errs.Transient, err)
	}
	return unlock, nil
}

func parseAccountID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidAccountID
	}
	return id, nil
}
