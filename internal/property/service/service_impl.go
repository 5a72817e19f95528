package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/pgstay/internal/clock"
	"github.com/smallbiznis/pgstay/internal/errs"
	"github.com/smallbiznis/pgstay/internal/property/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxSlugAttempts = 20

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

// Service owns PG and branch records.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("property.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) CreatePG(ctx context.Context, ownerID snowflake.ID, in domain.PGInput) (snowflake.ID, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return 0, domain.ErrInvalidName
	}

	now := s.clock.Now()
	pg := domain.PG{
		ID:           s.genID.Generate(),
		OwnerID:      ownerID,
		Name:         name,
		Address:      strings.TrimSpace(in.Address),
		City:         strings.TrimSpace(in.City),
		ContactPhone: strings.TrimSpace(in.ContactPhone),
		SharingTypes: datatypes.JSON("[]"),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unique, err := s.uniqueSlug(ctx, tx, name)
		if err != nil {
			return err
		}
		pg.Slug = unique
		return s.repo.InsertPG(ctx, tx, &pg)
	})
	if err != nil {
		return 0, errs.Wrap(errs.Transient, err)
	}

	s.log.Info("pg created", zap.String("pg_id", pg.ID.String()), zap.String("slug", pg.Slug))
	return pg.ID, nil
}

func (s *Service) UpdatePG(ctx context.Context, pgID snowflake.ID, in domain.PGInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.ErrInvalidName
	}
	pg, err := s.findPG(ctx, pgID)
	if err != nil {
		return err
	}

	pg.Name = name
	pg.Address = strings.TrimSpace(in.Address)
	pg.City = strings.TrimSpace(in.City)
	pg.ContactPhone = strings.TrimSpace(in.ContactPhone)
	pg.UpdatedAt = s.clock.Now()
	return errs.Wrap(errs.Transient, s.repo.UpdatePG(ctx, s.db, pg))
}

func (s *Service) ConfigureSharingTypes(ctx context.Context, pgID snowflake.ID, types []domain.SharingType) error {
	normalized, err := ValidateSharingTypes(types)
	if err != nil {
		return err
	}
	pg, err := s.findPG(ctx, pgID)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(normalized)
	if err != nil {
		return err
	}
	pg.SharingTypes = datatypes.JSON(raw)
	pg.IsConfigured = true
	pg.UpdatedAt = s.clock.Now()
	return errs.Wrap(errs.Transient, s.repo.UpdatePG(ctx, s.db, pg))
}

func (s *Service) CreateBranch(ctx context.Context, pgID snowflake.ID, in domain.BranchInput, isDefault bool) (snowflake.ID, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return 0, domain.ErrInvalidName
	}
	if _, err := s.findPG(ctx, pgID); err != nil {
		return 0, err
	}

	now := s.clock.Now()
	branch := domain.Branch{
		ID:        s.genID.Generate(),
		PGID:      pgID,
		Name:      name,
		Address:   strings.TrimSpace(in.Address),
		City:      strings.TrimSpace(in.City),
		IsDefault: isDefault,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertBranch(ctx, tx, &branch); err != nil {
			return err
		}
		if isDefault {
			return s.repo.ClearDefaultBranch(ctx, tx, pgID, branch.ID)
		}
		return nil
	})
	if err != nil {
		return 0, errs.Wrap(errs.Transient, err)
	}
	return branch.ID, nil
}

func (s *Service) UpdateBranch(ctx context.Context, branchID snowflake.ID, in domain.BranchInput, isDefault bool) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.ErrInvalidName
	}
	branch, err := s.repo.FindBranchByID(ctx, s.db, branchID)
	if err != nil {
		return errs.Wrap(errs.Transient, err)
	}
	if branch == nil {
		return domain.ErrBranchNotFound
	}

	branch.Name = name
	branch.Address = strings.TrimSpace(in.Address)
	branch.City = strings.TrimSpace(in.City)
	branch.IsDefault = isDefault
	branch.UpdatedAt = s.clock.Now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateBranch(ctx, tx, branch); err != nil {
			return err
		}
		if isDefault {
			return s.repo.ClearDefaultBranch(ctx, tx, branch.PGID, branch.ID)
		}
		return nil
	})
	return errs.Wrap(errs.Transient, err)
}

func (s *Service) findPG(ctx context.Context, pgID snowflake.ID) (*domain.PG, error) {
	pg, err := s.repo.FindPGByID(ctx, s.db, pgID)
	if err != nil {
		return nil, errs.Wrap(errs.Transient, err)
	}
	if pg == nil {
		return nil, domain.ErrPGNotFound
	}
	return pg, nil
}

func (s *Service) uniqueSlug(ctx context.Context, tx *gorm.DB, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "pg"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		exists, err := s.repo.SlugExists(ctx, tx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return fmt.Sprintf("%s-%s", base, s.genID.Generate().Base36()), nil
}

// ValidateSharingTypes requires at least one type, unique non-empty names and positive beds and rent.
func ValidateSharingTypes(types []domain.SharingType) ([]domain.SharingType, error) {
	if len(types) == 0 {
		return nil, domain.ErrInvalidSharingTypes
	}
	seen := make(map[string]struct{}, len(types))
	out := make([]domain.SharingType, 0, len(types))
	for _, t := range types {
		name := strings.ToLower(strings.TrimSpace(t.Type))
		if name == "" || t.BedsPerRoom <= 0 || t.MonthlyRent <= 0 {
			return nil, domain.ErrInvalidSharingTypes
		}
		if _, dup := seen[name]; dup {
			return nil, domain.ErrInvalidSharingTypes
		}
		seen[name] = struct{}{}
		out = append(out, domain.SharingType{Type: name, BedsPerRoom: t.BedsPerRoom, MonthlyRent: t.MonthlyRent})
	}
	return out, nil
}
