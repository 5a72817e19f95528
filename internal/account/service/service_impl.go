package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pgstay/internal/account/domain"
	"github.com/smallbiznis/pgstay/internal/accountlock"
	"github.com/smallbiznis/pgstay/internal/clock"
	"github.com/smallbiznis/pgstay/internal/errs"
	subscriptiondomain "github.com/smallbiznis/pgstay/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Repo          domain.Repository
	Subscriptions subscriptiondomain.Service
	Locker        accountlock.Locker
	GenID         *snowflake.Node
	Clock         clock.Clock
	Log           *zap.Logger
}

type Service struct {
	repo          domain.Repository
	subscriptions subscriptiondomain.Service
	locker        accountlock.Locker
	genID         *snowflake.Node
	clock         clock.Clock
	log           *zap.Logger
}

func NewService(p Params) domain.Service {
	return &Service{
		repo:          p.Repo,
		subscriptions: p.Subscriptions,
		locker:        p.Locker,
		genID:         p.GenID,
		clock:         p.Clock,
		log:           p.Log.Named("account.service"),
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return domain.Profile{}, domain.ErrInvalidEmail
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Profile{}, domain.ErrInvalidName
	}

	account := domain.New(s.genID.Generate(), email, name, s.clock.Now())
	if err := s.repo.Create(ctx, account); err != nil {
		return domain.Profile{}, err
	}

	s.log.Info("account registered", zap.String("account_id", account.ID.String()))
	return domain.NewProfile(account), nil
}

func (s *Service) Get(ctx context.Context, accountID string) (domain.Profile, error) {
	id, err := parseID(accountID)
	if err != nil {
		return domain.Profile{}, err
	}
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Profile{}, err
	}
	return domain.NewProfile(account), nil
}

func (s *Service) RecordLogin(ctx context.Context, accountID string) (domain.LoginResult, error) {
	id, err := parseID(accountID)
	if err != nil {
		return domain.LoginResult{}, err
	}

	account, err := s.update(ctx, id, func(a *domain.Account) error {
		if a.IsLocked(s.clock.Now()) {
			return domain.ErrAccountLocked
		}
		a.FailedLoginAttempts = 0
		a.LockedUntil = nil
		return nil
	})
	if err != nil {
		return domain.LoginResult{}, err
	}

	trial, err := s.subscriptions.ActivateFreeTrial(ctx, account.ID.String())
	if err != nil {
		return domain.LoginResult{}, err
	}

	return domain.LoginResult{
		Profile:        domain.NewProfile(account),
		TrialActivated: trial.Activated,
		Subscription:   trial.Snapshot,
	}, nil
}

func (s *Service) RecordFailedLogin(ctx context.Context, accountID string) (domain.Profile, error) {
	id, err := parseID(accountID)
	if err != nil {
		return domain.Profile{}, err
	}

	account, err := s.update(ctx, id, func(a *domain.Account) error {
		a.FailedLoginAttempts++
		if a.FailedLoginAttempts >= domain.MaxFailedLoginAttempts {
			until := s.clock.Now().Add(domain.LoginLockDuration)
			a.LockedUntil = &until
			a.FailedLoginAttempts = 0
		}
		return nil
	})
	if err != nil {
		return domain.Profile{}, err
	}

	if account.LockedUntil != nil && account.IsLocked(s.clock.Now()) {
		s.log.Warn("account locked after failed logins", zap.String("account_id", id.String()))
	}
	return domain.NewProfile(account), nil
}

// update serializes with every other writer of the account. The lock is
// released before callers reach the subscription service, which takes it too.
func (s *Service) update(ctx context.Context, id snowflake.ID, fn domain.UpdateFunc) (*domain.Account, error) {
	unlock, err := s.locker.Lock(ctx, accountlock.AccountKey(id.String()))
	if err != nil {
		return nil, errs.Wrap(errs.Transient, err)
	}
	defer unlock()
	return s.repo.Update(ctx, id, fn)
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidAccountID
	}
	return id, nil
}
