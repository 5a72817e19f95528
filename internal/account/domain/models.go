// Package domain contains the tenant admin account aggregate.
package domain

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	onboardingdomain "github.com/smallbiznis/pgstay/internal/onboarding/domain"
	subscriptiondomain "github.com/smallbiznis/pgstay/internal/subscription/domain"
)

type Role string

const RolePGAdmin Role = "pg_admin"

// Account is one per PG admin. Subscription and Onboarding are embedded and
// mutated only through Repository.Update.
type Account struct {
	ID                  snowflake.ID
	Email               string
	Name                string
	Role                Role
	PGID                *snowflake.ID
	Subscription        subscriptiondomain.Subscription
	Onboarding          onboardingdomain.Onboarding
	FailedLoginAttempts int
	LockedUntil         *time.Time
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// New returns a registered account with a free subscription and fresh onboarding.
func New(id snowflake.ID, email, name string, now time.Time) *Account {
	return &Account{
		ID:           id,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         strings.TrimSpace(name),
		Role:         RolePGAdmin,
		Subscription: subscriptiondomain.NewSubscription(),
		Onboarding:   onboardingdomain.New(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsLocked reports whether login lockout is in effect.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// UpdateFunc mutates an account loaded under the account's write lock.
// Returning an error discards the mutation.
type UpdateFunc func(*Account) error

type Repository interface {
	Create(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, id snowflake.ID) (*Account, error)
	// Update loads the account, applies fn and persists the result atomically with
	// respect to other updates of the same account. Payment records appended by fn
	// are inserted only if their gateway payment id is new; otherwise the whole
	// update fails with subscriptiondomain.ErrDuplicatePayment.
	Update(ctx context.Context, id snowflake.ID, fn UpdateFunc) (*Account, error)
	// ListExpirable returns accounts whose stored trial or active period ended before at.
	ListExpirable(ctx context.Context, at time.Time, limit int) ([]snowflake.ID, error)
}
