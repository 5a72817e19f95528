// Package accountlock serializes mutations of a single account.
package accountlock

import (
	"context"
	"errors"
)

var ErrEmptyKey = errors.New("lock key is empty")

// Locker grants exclusive access per key. Lock blocks until the lock is held or
// ctx is done; the returned func releases it and is safe to call once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// AccountKey is the lock key for one account.
func AccountKey(accountID string) string {
	return "pgstay:account:lock:" + accountID
}
