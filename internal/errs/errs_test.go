package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errSample = New(Conflict, "active_subscription_exists")

func TestSentinelMatchesIdentityAndKind(t *testing.T) {
	wrapped := fmt.Errorf("subscribe: %w", errSample)

	assert.True(t, errors.Is(wrapped, errSample))
	assert.True(t, errors.Is(wrapped, Conflict))
	assert.False(t, errors.Is(wrapped, Validation))
	assert.Equal(t, Conflict, KindOf(wrapped))
	assert.Equal(t, "active_subscription_exists", CodeOf(wrapped))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(Transient, cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, Transient))
	assert.Equal(t, "transient_error: connection reset", err.Error())
	assert.Nil(t, Wrap(Transient, nil))
}

func TestWrapDoesNotReclassifyCodedErrors(t *testing.T) {
	err := Wrap(Transient, fmt.Errorf("lookup: %w", errSample))
	assert.True(t, errors.Is(err, Conflict))
	assert.False(t, errors.Is(err, Transient))
}
