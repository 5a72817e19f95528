package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/golang/mock/gomock"
	accountdomain "github.com/smallbiznis/pgstay/internal/account/domain"
	accountrepo "github.com/smallbiznis/pgstay/internal/account/repository"
	"github.com/smallbiznis/pgstay/internal/accountlock"
	"github.com/smallbiznis/pgstay/internal/clock"
	"github.com/smallbiznis/pgstay/internal/errs"
	"github.com/smallbiznis/pgstay/internal/onboarding/domain"
	"github.com/smallbiznis/pgstay/internal/onboarding/domain/mocks"
	"github.com/smallbiznis/pgstay/internal/onboarding/service"
	propertydomain "github.com/smallbiznis/pgstay/internal/property/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc      domain.Service
	repo     accountdomain.Repository
	pgs      *mocks.MockPGService
	branches *mocks.MockBranchService
	clock    *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, accountrepo.AutoMigrate(db))

	clk := clock.NewFakeClock(time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC))
	repo := accountrepo.NewSQLRepository(db, clk)
	pgs := mocks.NewMockPGService(ctrl)
	branches := mocks.NewMockBranchService(ctrl)

	svc := service.NewService(service.Params{
		Repo:     repo,
		Locker:   accountlock.NewLocalLocker(),
		PGs:      pgs,
		Branches: branches,
		Clock:    clk,
		Log:      zap.NewNop(),
	})
	return &fixture{svc: svc, repo: repo, pgs: pgs, branches: branches, clock: clk}
}

func (f *fixture) newAccount(t *testing.T, id int64) string {
	t.Helper()
	account := accountdomain.New(snowflake.ID(id), fmt.Sprintf("admin%d@example.com", id), "Admin", f.clock.Now())
	require.NoError(t, f.repo.Create(context.Background(), account))
	return account.ID.String()
}

var (
	pgInput     = propertydomain.PGInput{Name: "Sunrise PG", City: "Pune"}
	branchInput = propertydomain.BranchInput{Name: "Main", City: "Pune"}
	sharing     = []propertydomain.SharingType{{Type: "double", BedsPerRoom: 2, MonthlyRent: 800000}}
)

func TestFullProgression(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	accountID := f.newAccount(t, 1)
	pgID := snowflake.ID(500)
	branchID := snowflake.ID(600)

	snap, err := f.svc.GetStatus(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepPGCreation, snap.CurrentStep)
	assert.Nil(t, snap.PGID)

	f.pgs.EXPECT().CreatePG(gomock.Any(), snowflake.ID(1), pgInput).Return(pgID, nil)
	snap, err = f.svc.ProgressPGCreation(ctx, accountID, pgInput)
	require.NoError(t, err)
	assert.Equal(t, domain.StepBranchSetup, snap.CurrentStep)
	require.NotNil(t, snap.PGID)
	assert.Equal(t, pgID.String(), *snap.PGID)
	assert.Equal(t, domain.StepCompleted, snap.PGCreation.Status)
	assert.Equal(t, pgID, *snap.PGCreation.LinkedEntityID)

	f.branches.EXPECT().CreateBranch(gomock.Any(), pgID, branchInput, true).Return(branchID, nil)
	snap, err = f.svc.ProgressBranchSetup(ctx, accountID, branchInput)
	require.NoError(t, err)
	assert.Equal(t, domain.StepPGConfiguration, snap.CurrentStep)
	assert.Equal(t, branchID, *snap.BranchSetup.LinkedEntityID)

	f.pgs.EXPECT().ConfigureSharingTypes(gomock.Any(), pgID, sharing).Return(nil)
	snap, err = f.svc.ProgressPGConfiguration(ctx, accountID, sharing)
	require.NoError(t, err)
	assert.Equal(t, domain.StepDone, snap.CurrentStep)
	require.NotNil(t, snap.PGConfiguration.CompletedAt)
	assert.Equal(t, f.clock.Now(), *snap.PGConfiguration.CompletedAt)

	stored, err := f.svc.GetStatus(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepDone, stored.CurrentStep)
	assert.Equal(t, pgID.String(), *stored.PGID)
}

func TestBranchSetupRequiresPG(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	accountID := f.newAccount(t, 2)

	_, err := f.svc.ProgressBranchSetup(ctx, accountID, branchInput)
	assert.ErrorIs(t, err, domain.ErrNoPGAssociated)
	assert.ErrorIs(t, err, errs.Conflict)

	snap, err := f.svc.GetStatus(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepPGCreation, snap.CurrentStep)
	assert.Equal(t, domain.StepNotStarted, snap.BranchSetup.Status)
}

func TestPGConfigurationRequiresOnlyPG(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	accountID := f.newAccount(t, 3)
	pgID := snowflake.ID(501)

	_, err := f.svc.ProgressPGConfiguration(ctx, accountID, sharing)
	assert.ErrorIs(t, err, domain.ErrNoPGAssociated)

	f.pgs.EXPECT().CreatePG(gomock.Any(), gomock.Any(), pgInput).Return(pgID, nil)
	_, err = f.svc.ProgressPGCreation(ctx, accountID, pgInput)
	require.NoError(t, err)

	// The branch step is skipped; configuration still succeeds once a PG exists.
	f.pgs.EXPECT().ConfigureSharingTypes(gomock.Any(), pgID, sharing).Return(nil)
	snap, err := f.svc.ProgressPGConfiguration(ctx, accountID, sharing)
	require.NoError(t, err)
	assert.Equal(t, domain.StepCompleted, snap.PGConfiguration.Status)
	assert.Equal(t, domain.StepNotStarted, snap.BranchSetup.Status)
	assert.Equal(t, domain.StepBranchSetup, snap.CurrentStep)
}

func TestCollaboratorFailureLeavesOnboardingUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	accountID := f.newAccount(t, 4)
	boom := errors.New("pg store unavailable")

	f.pgs.EXPECT().CreatePG(gomock.Any(), gomock.Any(), pgInput).Return(snowflake.ID(0), boom)
	_, err := f.svc.ProgressPGCreation(ctx, accountID, pgInput)
	assert.ErrorIs(t, err, boom)

	snap, err := f.svc.GetStatus(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepPGCreation, snap.CurrentStep)
	assert.Equal(t, domain.StepNotStarted, snap.PGCreation.Status)
	assert.Nil(t, snap.PGID)

	f.pgs.EXPECT().CreatePG(gomock.Any(), gomock.Any(), pgInput).Return(snowflake.ID(502), nil)
	_, err = f.svc.ProgressPGCreation(ctx, accountID, pgInput)
	require.NoError(t, err)

	f.pgs.EXPECT().ConfigureSharingTypes(gomock.Any(), snowflake.ID(502), gomock.Nil()).Return(propertydomain.ErrInvalidSharingTypes)
	_, err = f.svc.ProgressPGConfiguration(ctx, accountID, nil)
	assert.ErrorIs(t, err, errs.Validation)

	snap, err = f.svc.GetStatus(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepNotStarted, snap.PGConfiguration.Status)
}

func TestReenteringCompletedStepsReRunsAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	accountID := f.newAccount(t, 5)
	pgID := snowflake.ID(503)
	branchID := snowflake.ID(603)

	f.pgs.EXPECT().CreatePG(gomock.Any(), gomock.Any(), pgInput).Return(pgID, nil)
	_, err := f.svc.ProgressPGCreation(ctx, accountID, pgInput)
	require.NoError(t, err)
	f.branches.EXPECT().CreateBranch(gomock.Any(), pgID, branchInput, true).Return(branchID, nil)
	_, err = f.svc.ProgressBranchSetup(ctx, accountID, branchInput)
	require.NoError(t, err)

	renamed := pgInput
	renamed.Name = "Sunrise Residency"
	f.pgs.EXPECT().UpdatePG(gomock.Any(), pgID, renamed).Return(nil)
	snap, err := f.svc.ProgressPGCreation(ctx, accountID, renamed)
	require.NoError(t, err)
	assert.Equal(t, pgID.String(), *snap.PGID)
	assert.Equal(t, domain.StepPGConfiguration, snap.CurrentStep)

	moved := branchInput
	moved.Address = "2nd Cross"
	f.branches.EXPECT().UpdateBranch(gomock.Any(), branchID, moved, true).Return(nil)
	snap, err = f.svc.ProgressBranchSetup(ctx, accountID, moved)
	require.NoError(t, err)
	assert.Equal(t, branchID, *snap.BranchSetup.LinkedEntityID)
}

func TestInvalidAccountID(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetStatus(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidAccountID)

	_, err = f.svc.GetStatus(context.Background(), "999")
	assert.ErrorIs(t, err, accountdomain.ErrAccountNotFound)
}
