// Package domain models the onboarding progression of a tenant admin account.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type StepStatus string

const (
	StepNotStarted StepStatus = "not_started"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
)

type Step string

const (
	StepPGCreation      Step = "pg_creation"
	StepBranchSetup     Step = "branch_setup"
	StepPGConfiguration Step = "pg_configuration"
	StepDone            Step = "completed"
)

type StepRecord struct {
	Status         StepStatus    `json:"status"`
	LinkedEntityID *snowflake.ID `json:"linked_entity_id,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
}

func (r StepRecord) Completed() bool {
	return r.Status == StepCompleted
}

// Onboarding holds the three step records. The current step is always derived from them.
type Onboarding struct {
	PGCreation      StepRecord
	BranchSetup     StepRecord
	PGConfiguration StepRecord
}

// New returns an onboarding with every step not started.
func New() Onboarding {
	return Onboarding{
		PGCreation:      StepRecord{Status: StepNotStarted},
		BranchSetup:     StepRecord{Status: StepNotStarted},
		PGConfiguration: StepRecord{Status: StepNotStarted},
	}
}

// CurrentStep is the first step, in order, that is not completed.
func (o Onboarding) CurrentStep() Step {
	switch {
	case !o.PGCreation.Completed():
		return StepPGCreation
	case !o.BranchSetup.Completed():
		return StepBranchSetup
	case !o.PGConfiguration.Completed():
		return StepPGConfiguration
	default:
		return StepDone
	}
}

// Record returns the record for step.
func (o Onboarding) Record(step Step) (StepRecord, bool) {
	switch step {
	case StepPGCreation:
		return o.PGCreation, true
	case StepBranchSetup:
		return o.BranchSetup, true
	case StepPGConfiguration:
		return o.PGConfiguration, true
	default:
		return StepRecord{}, false
	}
}

// Complete marks step completed with the linked entity and returns the updated onboarding.
func (o Onboarding) Complete(step Step, linked snowflake.ID, at time.Time) (Onboarding, error) {
	rec := StepRecord{Status: StepCompleted, LinkedEntityID: &linked, CompletedAt: &at}
	switch step {
	case StepPGCreation:
		o.PGCreation = rec
	case StepBranchSetup:
		o.BranchSetup = rec
	case StepPGConfiguration:
		o.PGConfiguration = rec
	default:
		return o, ErrUnknownStep
	}
	return o, nil
}

// Snapshot is the caller-facing view of onboarding progress.
type Snapshot struct {
	AccountID       string     `json:"account_id"`
	PGID            *string    `json:"pg_id,omitempty"`
	CurrentStep     Step       `json:"current_step"`
	PGCreation      StepRecord `json:"pg_creation"`
	BranchSetup     StepRecord `json:"branch_setup"`
	PGConfiguration StepRecord `json:"pg_configuration"`
}

func NewSnapshot(accountID snowflake.ID, pgID *snowflake.ID, o Onboarding) Snapshot {
	snap := Snapshot{
		AccountID:       accountID.String(),
		CurrentStep:     o.CurrentStep(),
		PGCreation:      o.PGCreation,
		BranchSetup:     o.BranchSetup,
		PGConfiguration: o.PGConfiguration,
	}
	if pgID != nil {
		id := pgID.String()
		snap.PGID = &id
	}
	return snap
}
