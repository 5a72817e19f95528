package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/pgstay/internal/account/domain"
	"github.com/smallbiznis/pgstay/internal/clock"
	"github.com/smallbiznis/pgstay/internal/errs"
	onboardingdomain "github.com/smallbiznis/pgstay/internal/onboarding/domain"
	plandomain "github.com/smallbiznis/pgstay/internal/plan/domain"
	subscriptiondomain "github.com/smallbiznis/pgstay/internal/subscription/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	accountsCollection = "tenant_accounts"
	maxUpdateAttempts  = 5
)

type accountDoc struct {
	ID                  int64           `bson:"_id"`
	Email               string          `bson:"email"`
	Name                string          `bson:"name"`
	Role                string          `bson:"role"`
	PGID                *int64          `bson:"pg_id,omitempty"`
	Subscription        subscriptionDoc `bson:"subscription"`
	Onboarding          onboardingDoc   `bson:"onboarding"`
	FailedLoginAttempts int             `bson:"failed_login_attempts"`
	LockedUntil         *time.Time      `bson:"locked_until,omitempty"`
	Version             int64           `bson:"version"`
	CreatedAt           time.Time       `bson:"created_at"`
	UpdatedAt           time.Time       `bson:"updated_at"`
}

type subscriptionDoc struct {
	Status         string                            `bson:"status"`
	PlanID         *int64                            `bson:"plan_id,omitempty"`
	BillingCycle   string                            `bson:"billing_cycle,omitempty"`
	StartDate      *time.Time                        `bson:"start_date,omitempty"`
	EndDate        *time.Time                        `bson:"end_date,omitempty"`
	TrialEndDate   *time.Time                        `bson:"trial_end_date,omitempty"`
	CancelledAt    *time.Time                        `bson:"cancelled_at,omitempty"`
	PeriodEnd      *time.Time                        `bson:"period_end,omitempty"`
	Usage          subscriptiondomain.Usage          `bson:"usage"`
	CustomPricing  *subscriptiondomain.CustomPricing `bson:"custom_pricing,omitempty"`
	PaymentHistory []paymentDoc                      `bson:"payment_history"`
	UpdatedAt      time.Time                         `bson:"updated_at"`
}

type paymentDoc struct {
	GatewayPaymentID string    `bson:"gateway_payment_id"`
	GatewayOrderID   string    `bson:"gateway_order_id"`
	Amount           int64     `bson:"amount"`
	Currency         string    `bson:"currency"`
	Status           string    `bson:"status"`
	Method           string    `bson:"method"`
	PlanName         string    `bson:"plan_name"`
	BedCount         int       `bson:"bed_count"`
	BranchCount      int       `bson:"branch_count"`
	PaidAt           time.Time `bson:"paid_at"`
}

// MongoRepository stores each account as one document with the subscription,
// onboarding and payment history embedded. Writes are version-checked replaces.
type MongoRepository struct {
	coll  *mongo.Collection
	clock clock.Clock
}

func NewMongoRepository(db *mongo.Database, clk clock.Clock) *MongoRepository {
	return &MongoRepository{coll: db.Collection(accountsCollection), clock: clk}
}

// EnsureIndexes creates the unique email index and the cross-document unique payment id index.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "subscription.payment_history.gateway_payment_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "subscription.payment_history.gateway_payment_id", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
		{
			Keys: bson.D{{Key: "subscription.status", Value: 1}, {Key: "subscription.period_end", Value: 1}},
		},
	})
	return err
}

func (r *MongoRepository) Create(ctx context.Context, account *accountdomain.Account) error {
	_, err := r.coll.InsertOne(ctx, toDoc(account))
	if mongo.IsDuplicateKeyError(err) {
		return accountdomain.ErrAccountExists
	}
	if err != nil {
		return errs.Wrap(errs.Transient, err)
	}
	return nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id snowflake.ID) (*accountdomain.Account, error) {
	doc, err := r.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromDoc(doc), nil
}

func (r *MongoRepository) Update(ctx context.Context, id snowflake.ID, fn accountdomain.UpdateFunc) (*accountdomain.Account, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		doc, err := r.find(ctx, id)
		if err != nil {
			return nil, err
		}
		account := fromDoc(doc)
		version := account.Version
		recorded := account.Subscription.PaymentHistory.Len()

		if err := fn(account); err != nil {
			return nil, err
		}

		account.ID = id
		account.Version = version + 1
		account.UpdatedAt = r.clock.Now()

		filter := bson.D{{Key: "_id", Value: id.Int64()}, {Key: "version", Value: version}}
		if added := account.Subscription.PaymentHistory.Since(recorded); len(added) > 0 {
			ids := make([]string, 0, len(added))
			for _, rec := range added {
				ids = append(ids, rec.GatewayPaymentID)
			}
			filter = append(filter, bson.E{
				Key:   "subscription.payment_history.gateway_payment_id",
				Value: bson.D{{Key: "$nin", Value: ids}},
			})
		}

		res, err := r.coll.ReplaceOne(ctx, filter, toDoc(account))
		if mongo.IsDuplicateKeyError(err) {
			return nil, subscriptiondomain.ErrDuplicatePayment
		}
		if err != nil {
			return nil, errs.Wrap(errs.Transient, err)
		}
		if res.MatchedCount == 1 {
			return account, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(errs.Transient, err)
		}
	}
	return nil, accountdomain.ErrConcurrentUpdate
}

func (r *MongoRepository) ListExpirable(ctx context.Context, at time.Time, limit int) ([]snowflake.ID, error) {
	if limit <= 0 {
		limit = 100
	}
	filter := bson.D{
		{Key: "subscription.status", Value: bson.D{{Key: "$in", Value: bson.A{
			string(subscriptiondomain.StatusTrial),
			string(subscriptiondomain.StatusActive),
		}}}},
		{Key: "subscription.period_end", Value: bson.D{{Key: "$lte", Value: at}}},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.Wrap(errs.Transient, err)
	}
	defer cursor.Close(ctx)

	var ids []snowflake.ID
	for cursor.Next(ctx) {
		var row struct {
			ID int64 `bson:"_id"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, errs.Wrap(errs.Transient, err)
		}
		ids = append(ids, snowflake.ID(row.ID))
	}
	if err := cursor.Err(); err != nil {
		return nil, errs.Wrap(errs.Transient, err)
	}
	return ids, nil
}

func (r *MongoRepository) find(ctx context.Context, id snowflake.ID) (accountDoc, error) {
	var doc accountDoc
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id.Int64()}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return accountDoc{}, accountdomain.ErrAccountNotFound
	}
	if err != nil {
		return accountDoc{}, errs.Wrap(errs.Transient, err)
	}
	return doc, nil
}

func toDoc(a *accountdomain.Account) accountDoc {
	sub := a.Subscription
	status := sub.Status
	if status == "" {
		status = subscriptiondomain.StatusFree
	}
	records := sub.PaymentHistory.Records()
	payments := make([]paymentDoc, 0, len(records))
	for _, rec := range records {
		payments = append(payments, paymentDoc{
			GatewayPaymentID: rec.GatewayPaymentID,
			GatewayOrderID:   rec.GatewayOrderID,
			Amount:           rec.Amount,
			Currency:         rec.Currency,
			Status:           rec.Status,
			Method:           rec.Method,
			PlanName:         rec.Plan.PlanName,
			BedCount:         rec.Plan.BedCount,
			BranchCount:      rec.Plan.BranchCount,
			PaidAt:           rec.PaidAt,
		})
	}
	return accountDoc{
		ID:    a.ID.Int64(),
		Email: a.Email,
		Name:  a.Name,
		Role:  string(a.Role),
		PGID:  idPtr(a.PGID),
		Subscription: subscriptionDoc{
			Status:         string(status),
			PlanID:         idPtr(sub.PlanID),
			BillingCycle:   string(sub.BillingCycle),
			StartDate:      sub.StartDate,
			EndDate:        sub.EndDate,
			TrialEndDate:   sub.TrialEndDate,
			CancelledAt:    sub.CancelledAt,
			PeriodEnd:      sub.PeriodEnd(),
			Usage:          sub.Usage,
			CustomPricing:  sub.CustomPricing,
			PaymentHistory: payments,
			UpdatedAt:      sub.UpdatedAt,
		},
		Onboarding: onboardingDoc{
			PGCreation:      a.Onboarding.PGCreation,
			BranchSetup:     a.Onboarding.BranchSetup,
			PGConfiguration: a.Onboarding.PGConfiguration,
		},
		FailedLoginAttempts: a.FailedLoginAttempts,
		LockedUntil:         a.LockedUntil,
		Version:             a.Version,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

func fromDoc(doc accountDoc) *accountdomain.Account {
	records := make([]subscriptiondomain.PaymentRecord, 0, len(doc.Subscription.PaymentHistory))
	for _, p := range doc.Subscription.PaymentHistory {
		records = append(records, subscriptiondomain.PaymentRecord{
			GatewayPaymentID: p.GatewayPaymentID,
			GatewayOrderID:   p.GatewayOrderID,
			Amount:           p.Amount,
			Currency:         p.Currency,
			Status:           p.Status,
			Method:           p.Method,
			Plan: subscriptiondomain.PlanSnapshot{
				PlanName:    p.PlanName,
				BedCount:    p.BedCount,
				BranchCount: p.BranchCount,
			},
			PaidAt: p.PaidAt.UTC(),
		})
	}
	sub := doc.Subscription
	return &accountdomain.Account{
		ID:    snowflake.ID(doc.ID),
		Email: doc.Email,
		Name:  doc.Name,
		Role:  accountdomain.Role(doc.Role),
		PGID:  snowflakePtr(doc.PGID),
		Subscription: subscriptiondomain.Subscription{
			Status:         subscriptiondomain.Status(sub.Status),
			PlanID:         snowflakePtr(sub.PlanID),
			BillingCycle:   plandomain.BillingCycle(sub.BillingCycle),
			StartDate:      utcPtr(sub.StartDate),
			EndDate:        utcPtr(sub.EndDate),
			TrialEndDate:   utcPtr(sub.TrialEndDate),
			CancelledAt:    utcPtr(sub.CancelledAt),
			Usage:          sub.Usage,
			CustomPricing:  sub.CustomPricing,
			PaymentHistory: subscriptiondomain.NewPaymentHistory(records...),
			UpdatedAt:      sub.UpdatedAt.UTC(),
		},
		Onboarding: onboardingdomain.Onboarding{
			PGCreation:      normalizeStep(doc.Onboarding.PGCreation),
			BranchSetup:     normalizeStep(doc.Onboarding.BranchSetup),
			PGConfiguration: normalizeStep(doc.Onboarding.PGConfiguration),
		},
		FailedLoginAttempts: doc.FailedLoginAttempts,
		LockedUntil:         utcPtr(doc.LockedUntil),
		Version:             doc.Version,
		CreatedAt:           doc.CreatedAt.UTC(),
		UpdatedAt:           doc.UpdatedAt.UTC(),
	}
}
