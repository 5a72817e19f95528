package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pgstay/internal/errs"
	plandomain "github.com/smallbiznis/pgstay/internal/plan/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// planRow mirrors the plans table. Numeric columns are nullable.
type planRow struct {
	ID                    int64 `gorm:"primaryKey"`
	Name                  string
	BasePrice             sql.NullInt64
	BaseBedCount          sql.NullInt64
	MaxBedsAllowed        sql.NullInt64
	MaxBranchesAllowed    sql.NullInt64
	TopUpPricePerBed      sql.NullInt64
	TopUpPricePerBranch   sql.NullInt64
	AllowMultipleBranches bool
	AnnualDiscount        sql.NullFloat64
	BillingCycle          string
	Modules               datatypes.JSON
	IsActive              bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (planRow) TableName() string { return "plans" }

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id snowflake.ID) (*plandomain.Plan, error) {
	var row planRow
	err := r.db.WithContext(ctx).Where("id = ?", id.Int64()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, plandomain.ErrPlanNotFound
	}
	if err != nil {
		return nil, errs.Wrap(errs.Transient, err)
	}
	return toDomain(row)
}

// Insert stores a plan. The catalog is otherwise read-only; this is used by seeding.
func (r *Repository) Insert(ctx context.Context, plan *plandomain.Plan) error {
	row, err := fromDomain(plan)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func toDomain(row planRow) (*plandomain.Plan, error) {
	var modules []plandomain.ModuleFlag
	if len(row.Modules) > 0 {
		if err := json.Unmarshal(row.Modules, &modules); err != nil {
			return nil, err
		}
	}
	cycle, ok := plandomain.ParseBillingCycle(row.BillingCycle)
	if !ok {
		cycle = plandomain.BillingCycleMonthly
	}
	return &plandomain.Plan{
		ID:                    snowflake.ID(row.ID),
		Name:                  row.Name,
		BasePrice:             row.BasePrice.Int64,
		BaseBedCount:          int(row.BaseBedCount.Int64),
		MaxBedsAllowed:        optionalInt(row.MaxBedsAllowed),
		MaxBranchesAllowed:    optionalInt(row.MaxBranchesAllowed),
		TopUpPricePerBed:      row.TopUpPricePerBed.Int64,
		TopUpPricePerBranch:   row.TopUpPricePerBranch.Int64,
		AllowMultipleBranches: row.AllowMultipleBranches,
		AnnualDiscount:        row.AnnualDiscount.Float64,
		BillingCycle:          cycle,
		Modules:               modules,
		IsActive:              row.IsActive,
	}, nil
}

func fromDomain(plan *plandomain.Plan) (planRow, error) {
	if plan == nil {
		return planRow{}, plandomain.ErrInvalidPlan
	}
	modules, err := json.Marshal(plan.Modules)
	if err != nil {
		return planRow{}, err
	}
	return planRow{
		ID:                    plan.ID.Int64(),
		Name:                  plan.Name,
		BasePrice:             sql.NullInt64{Int64: plan.BasePrice, Valid: true},
		BaseBedCount:          sql.NullInt64{Int64: int64(plan.BaseBedCount), Valid: true},
		MaxBedsAllowed:        nullableInt(plan.MaxBedsAllowed),
		MaxBranchesAllowed:    nullableInt(plan.MaxBranchesAllowed),
		TopUpPricePerBed:      sql.NullInt64{Int64: plan.TopUpPricePerBed, Valid: true},
		TopUpPricePerBranch:   sql.NullInt64{Int64: plan.TopUpPricePerBranch, Valid: true},
		AllowMultipleBranches: plan.AllowMultipleBranches,
		AnnualDiscount:        sql.NullFloat64{Float64: plan.AnnualDiscount, Valid: true},
		BillingCycle:          string(plan.BillingCycle),
		Modules:               datatypes.JSON(modules),
		IsActive:              plan.IsActive,
	}, nil
}

func optionalInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// AutoMigrate creates the plans table on dialects without SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&planRow{})
}
