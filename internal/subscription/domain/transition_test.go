package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusFree, StatusTrial, true},
		{"", StatusTrial, true},
		{StatusTrial, StatusActive, true},
		{StatusActive, StatusActive, true},
		{StatusExpired, StatusActive, true},
		{StatusCancelled, StatusActive, true},
		{StatusFree, StatusCancelled, false},
		{StatusActive, StatusTrial, false},
		{StatusExpired, StatusTrial, false},
		{StatusCancelled, StatusExpired, false},
		{StatusCancelled, StatusTrial, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
