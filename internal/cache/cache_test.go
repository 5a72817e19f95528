package cache

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/smallbiznis/pgstay/internal/plan/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCacheWithClock[string, int](func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	c.Set("ignored", 2, 0)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("ignored")
	assert.False(t, ok)

	now = now.Add(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

type countingCatalog struct {
	calls int
	plans map[snowflake.ID]plandomain.Plan
}

func (c *countingCatalog) GetByID(_ context.Context, id snowflake.ID) (*plandomain.Plan, error) {
	c.calls++
	plan, ok := c.plans[id]
	if !ok {
		return nil, plandomain.ErrPlanNotFound
	}
	return &plan, nil
}

func TestPlanCatalogCachesHits(t *testing.T) {
	backing := &countingCatalog{plans: map[snowflake.ID]plandomain.Plan{
		1: {ID: 1, Name: "Starter", BaseBedCount: 10},
	}}
	catalog := NewPlanCatalog(backing, time.Minute)
	ctx := context.Background()

	first, err := catalog.GetByID(ctx, 1)
	require.NoError(t, err)
	first.Name = "mutated"

	second, err := catalog.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Starter", second.Name)
	assert.Equal(t, 1, backing.calls)

	_, err = catalog.GetByID(ctx, 2)
	require.ErrorIs(t, err, plandomain.ErrPlanNotFound)
	_, err = catalog.GetByID(ctx, 2)
	require.ErrorIs(t, err, plandomain.ErrPlanNotFound)
	assert.Equal(t, 3, backing.calls)

	catalog.Invalidate(1)
	_, err = catalog.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, backing.calls)
}
