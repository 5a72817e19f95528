package plan

import (
	"github.com/smallbiznis/pgstay/internal/cache"
	"github.com/smallbiznis/pgstay/internal/config"
	plandomain "github.com/smallbiznis/pgstay/internal/plan/domain"
	"github.com/smallbiznis/pgstay/internal/plan/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.catalog",
	fx.Provide(repository.NewRepository),
	fx.Provide(func(cfg config.Config, repo *repository.Repository) plandomain.Catalog {
		return cache.NewPlanCatalog(repo, cfg.PlanCacheTTL)
	}),
)
