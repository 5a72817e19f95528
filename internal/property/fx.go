package property

import (
	onboardingdomain "github.com/smallbiznis/pgstay/internal/onboarding/domain"
	"github.com/smallbiznis/pgstay/internal/property/repository"
	"github.com/smallbiznis/pgstay/internal/property/service"
	"go.uber.org/fx"
)

var Module = fx.Module("property.service",
	fx.Provide(repository.Provide),
	fx.Provide(
		fx.Annotate(
			service.NewService,
			fx.As(new(onboardingdomain.PGService)),
			fx.As(new(onboardingdomain.BranchService)),
		),
	),
)
