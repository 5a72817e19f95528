package domain

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentStepIsDerivedFromRecords(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	o := New()
	assert.Equal(t, StepPGCreation, o.CurrentStep())

	o, err := o.Complete(StepPGCreation, snowflake.ID(1), now)
	require.NoError(t, err)
	assert.Equal(t, StepBranchSetup, o.CurrentStep())

	o, err = o.Complete(StepBranchSetup, snowflake.ID(2), now)
	require.NoError(t, err)
	assert.Equal(t, StepPGConfiguration, o.CurrentStep())

	o, err = o.Complete(StepPGConfiguration, snowflake.ID(1), now)
	require.NoError(t, err)
	assert.Equal(t, StepDone, o.CurrentStep())
}

func TestCurrentStepReportsFirstIncompleteStep(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	o := New()
	o, err := o.Complete(StepPGConfiguration, snowflake.ID(1), now)
	require.NoError(t, err)

	assert.Equal(t, StepPGCreation, o.CurrentStep())
}

func TestCompleteRejectsUnknownStep(t *testing.T) {
	o := New()
	_, err := o.Complete(StepDone, snowflake.ID(1), time.Now())
	require.ErrorIs(t, err, ErrUnknownStep)
}
