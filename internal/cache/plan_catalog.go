package cache

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/smallbiznis/pgstay/internal/plan/domain"
)

const defaultPlanTTL = time.Minute

// PlanCatalog caches plan lookups in front of the catalog store.
// Not-found results are not cached.
type PlanCatalog struct {
	next  plandomain.Catalog
	plans Cache[snowflake.ID, plandomain.Plan]
	ttl   time.Duration
}

func NewPlanCatalog(next plandomain.Catalog, ttl time.Duration) *PlanCatalog {
	if ttl <= 0 {
		ttl = defaultPlanTTL
	}
	return &PlanCatalog{
		next:  next,
		plans: NewTTLCache[snowflake.ID, plandomain.Plan](),
		ttl:   ttl,
	}
}

func (c *PlanCatalog) GetByID(ctx context.Context, id snowflake.ID) (*plandomain.Plan, error) {
	if plan, ok := c.plans.Get(id); ok {
		return &plan, nil
	}
	plan, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.plans.Set(id, *plan, c.ttl)
	copied := *plan
	return &copied, nil
}

// Invalidate drops a cached plan.
func (c *PlanCatalog) Invalidate(id snowflake.ID) {
	c.plans.Delete(id)
}
