package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pgstay/internal/property/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertPG(ctx context.Context, db *gorm.DB, pg *domain.PG) error {
	return db.WithContext(ctx).Create(pg).Error
}

func (r *repo) UpdatePG(ctx context.Context, db *gorm.DB, pg *domain.PG) error {
	return db.WithContext(ctx).Save(pg).Error
}

func (r *repo) FindPGByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PG, error) {
	var pg domain.PG
	err := db.WithContext(ctx).Where("id = ?", id).Take(&pg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pg, nil
}

func (r *repo) SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.PG{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *repo) InsertBranch(ctx context.Context, db *gorm.DB, branch *domain.Branch) error {
	return db.WithContext(ctx).Create(branch).Error
}

func (r *repo) UpdateBranch(ctx context.Context, db *gorm.DB, branch *domain.Branch) error {
	return db.WithContext(ctx).Save(branch).Error
}

func (r *repo) FindBranchByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Branch, error) {
	var branch domain.Branch
	err := db.WithContext(ctx).Where("id = ?", id).Take(&branch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *repo) ClearDefaultBranch(ctx context.Context, db *gorm.DB, pgID snowflake.ID, except snowflake.ID) error {
	return db.WithContext(ctx).Model(&domain.Branch{}).
		Where("pg_id = ? AND id <> ? AND is_default = ?", pgID, except, true).
		Update("is_default", false).Error
}

// AutoMigrate creates the property tables on dialects without SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.PG{}, &domain.Branch{})
}
