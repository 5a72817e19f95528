package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertPG(ctx context.Context, db *gorm.DB, pg *PG) error
	UpdatePG(ctx context.Context, db *gorm.DB, pg *PG) error
	FindPGByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PG, error)
	SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error)

	InsertBranch(ctx context.Context, db *gorm.DB, branch *Branch) error
	UpdateBranch(ctx context.Context, db *gorm.DB, branch *Branch) error
	FindBranchByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Branch, error)
	ClearDefaultBranch(ctx context.Context, db *gorm.DB, pgID snowflake.ID, except snowflake.ID) error
}
