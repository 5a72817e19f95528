package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	propertydomain "github.com/smallbiznis/pgstay/internal/property/domain"
)

//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks

// PGService creates and maintains the tenant's PG.
type PGService interface {
	CreatePG(ctx context.Context, ownerID snowflake.ID, in propertydomain.PGInput) (snowflake.ID, error)
	UpdatePG(ctx context.Context, pgID snowflake.ID, in propertydomain.PGInput) error
	ConfigureSharingTypes(ctx context.Context, pgID snowflake.ID, types []propertydomain.SharingType) error
}

// BranchService creates and maintains branches of a PG.
type BranchService interface {
	CreateBranch(ctx context.Context, pgID snowflake.ID, in propertydomain.BranchInput, isDefault bool) (snowflake.ID, error)
	UpdateBranch(ctx context.Context, branchID snowflake.ID, in propertydomain.BranchInput, isDefault bool) error
}

type Service interface {
	ProgressPGCreation(ctx context.Context, accountID string, in propertydomain.PGInput) (Snapshot, error)
	ProgressBranchSetup(ctx context.Context, accountID string, in propertydomain.BranchInput) (Snapshot, error)
	ProgressPGConfiguration(ctx context.Context, accountID string, types []propertydomain.SharingType) (Snapshot, error)
	GetStatus(ctx context.Context, accountID string) (Snapshot, error)
}
