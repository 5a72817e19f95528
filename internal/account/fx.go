package account

import (
	"context"
	"time"

	"github.com/smallbiznis/pgstay/internal/account/domain"
	"github.com/smallbiznis/pgstay/internal/account/repository"
	"github.com/smallbiznis/pgstay/internal/account/service"
	"github.com/smallbiznis/pgstay/internal/clock"
	"github.com/smallbiznis/pgstay/internal/config"
	pkgmongo "github.com/smallbiznis/pgstay/pkg/mongo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("account",
	fx.Provide(NewRepository),
	fx.Provide(service.NewService),
)

type RepositoryParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	DB        *gorm.DB
	Clock     clock.Clock
	Log       *zap.Logger
}

// NewRepository selects the account store from ACCOUNT_STORE.
func NewRepository(p RepositoryParams) (domain.Repository, error) {
	log := p.Log.Named("account.repository")
	if p.Config.AccountStore != config.AccountStoreMongo {
		log.Info("using sql account store")
		return repository.NewSQLRepository(p.DB, p.Clock), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := pkgmongo.New(ctx, pkgmongo.DefaultConfig(p.Config.Mongo.URL))
	if err != nil {
		return nil, err
	}
	repo := repository.NewMongoRepository(client.Database(p.Config.Mongo.Database), p.Clock)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return repo.EnsureIndexes(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})
	log.Info("using mongo account store", zap.String("database", p.Config.Mongo.Database))
	return repo, nil
}
