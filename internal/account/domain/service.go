package domain

import (
	"context"
	"time"

	subscriptiondomain "github.com/smallbiznis/pgstay/internal/subscription/domain"
)

const (
	MaxFailedLoginAttempts = 5
	LoginLockDuration      = 2 * time.Hour
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (Profile, error)
	Get(ctx context.Context, accountID string) (Profile, error)
	// RecordLogin clears failed attempts and grants the free trial on first login.
	RecordLogin(ctx context.Context, accountID string) (LoginResult, error)
	RecordFailedLogin(ctx context.Context, accountID string) (Profile, error)
}

type RegisterRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Profile struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        Role       `json:"role"`
	PGID        *string    `json:"pg_id,omitempty"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type LoginResult struct {
	Profile        Profile                     `json:"account"`
	TrialActivated bool                        `json:"trial_activated"`
	Subscription   subscriptiondomain.Snapshot `json:"subscription"`
}

func NewProfile(a *Account) Profile {
	p := Profile{
		ID:          a.ID.String(),
		Email:       a.Email,
		Name:        a.Name,
		Role:        a.Role,
		LockedUntil: a.LockedUntil,
		CreatedAt:   a.CreatedAt,
	}
	if a.PGID != nil {
		pgID := a.PGID.String()
		p.PGID = &pgID
	}
	return p
}
