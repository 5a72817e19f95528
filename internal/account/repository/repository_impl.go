package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/pgstay/internal/account/domain"
	"github.com/smallbiznis/pgstay/internal/clock"
	"github.com/smallbiznis/pgstay/internal/errs"
	subscriptiondomain "github.com/smallbiznis/pgstay/internal/subscription/domain"
	"github.com/smallbiznis/pgstay/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLRepository stores accounts in tenant_accounts and their payment history in payment_records.
type SQLRepository struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewSQLRepository(conn *gorm.DB, clk clock.Clock) *SQLRepository {
	return &SQLRepository{db: conn, clock: clk}
}

func (r *SQLRepository) Create(ctx context.Context, account *accountdomain.Account) error {
	row, err := toRow(account)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return accountdomain.ErrAccountExists
		}
		return errs.Wrap(errs.Transient, err)
	}
	return nil
}

func (r *SQLRepository) FindByID(ctx context.Context, id snowflake.ID) (*accountdomain.Account, error) {
	return r.load(ctx, r.db.WithContext(ctx), id, false)
}

func (r *SQLRepository) Update(ctx context.Context, id snowflake.ID, fn accountdomain.UpdateFunc) (*accountdomain.Account, error) {
	var updated *accountdomain.Account
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := r.load(ctx, tx, id, true)
		if err != nil {
			return err
		}
		version := account.Version
		recorded := account.Subscription.PaymentHistory.Len()

		if err := fn(account); err != nil {
			return err
		}

		now := r.clock.Now()
		account.ID = id
		account.Version = version + 1
		account.UpdatedAt = now

		row, err := toRow(account)
		if err != nil {
			return err
		}
		res := tx.Model(&accountRow{}).
			Where("id = ? AND version = ?", id.Int64(), version).
			Select("*").
			Updates(&row)
		if res.Error != nil {
			return errs.Wrap(errs.Transient, res.Error)
		}
		if res.RowsAffected == 0 {
			return accountdomain.ErrConcurrentUpdate
		}

		for i, rec := range account.Subscription.PaymentHistory.Since(recorded) {
			payment := toPaymentRow(id, recorded+i, rec, now)
			inserted, err := insertPaymentRecord(ctx, tx, &payment)
			if err != nil {
				return err
			}
			if !inserted {
				return subscriptiondomain.ErrDuplicatePayment
			}
		}

		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *SQLRepository) ListExpirable(ctx context.Context, at time.Time, limit int) ([]snowflake.ID, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []int64
	err := r.db.WithContext(ctx).Model(&accountRow{}).
		Where("(sub_status = ? AND sub_trial_end_date <= ?) OR (sub_status = ? AND sub_end_date <= ?)",
			string(subscriptiondomain.StatusTrial), at,
			string(subscriptiondomain.StatusActive), at,
		).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, errs.Wrap(errs.Transient, err)
	}
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		out = append(out, snowflake.ID(id))
	}
	return out, nil
}

func (r *SQLRepository) load(ctx context.Context, tx *gorm.DB, id snowflake.ID, forUpdate bool) (*accountdomain.Account, error) {
	query := tx.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var row accountRow
	err := query.Where("id = ?", id.Int64()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, accountdomain.ErrAccountNotFound
	}
	if err != nil {
		return nil, errs.Wrap(errs.Transient, err)
	}

	var payments []paymentRecordRow
	if err := tx.WithContext(ctx).
		Where("account_id = ?", id.Int64()).
		Order("seq ASC").
		Find(&payments).Error; err != nil {
		return nil, errs.Wrap(errs.Transient, err)
	}

	return fromRow(row, payments)
}

// insertPaymentRecord is insert-if-absent keyed by gateway_payment_id.
func insertPaymentRecord(ctx context.Context, tx *gorm.DB, payment *paymentRecordRow) (bool, error) {
	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "gateway_payment_id"}},
			DoNothing: true,
		}).
		Create(payment)
	if res.Error != nil {
		if db.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, errs.Wrap(errs.Transient, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AutoMigrate creates the account tables on dialects without SQL migrations.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(&accountRow{}, &paymentRecordRow{})
}
