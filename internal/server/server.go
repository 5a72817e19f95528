package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/pgstay/internal/account"
	accountdomain "github.com/smallbiznis/pgstay/internal/account/domain"
	"github.com/smallbiznis/pgstay/internal/accountlock"
	"github.com/smallbiznis/pgstay/internal/config"
	"github.com/smallbiznis/pgstay/internal/notification"
	"github.com/smallbiznis/pgstay/internal/observability"
	obsmiddleware "github.com/smallbiznis/pgstay/internal/observability/logger"
	"github.com/smallbiznis/pgstay/internal/onboarding"
	onboardingdomain "github.com/smallbiznis/pgstay/internal/onboarding/domain"
	"github.com/smallbiznis/pgstay/internal/payment"
	paymentdomain "github.com/smallbiznis/pgstay/internal/payment/domain"
	"github.com/smallbiznis/pgstay/internal/plan"
	"github.com/smallbiznis/pgstay/internal/property"
	"github.com/smallbiznis/pgstay/internal/subscription"
	subscriptiondomain "github.com/smallbiznis/pgstay/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	plan.Module,
	accountlock.Module,
	account.Module,
	subscription.Module,
	property.Module,
	onboarding.Module,
	notification.Module,
	payment.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	db              *gorm.DB
	redis           *redis.Client
	accountSvc      accountdomain.Service
	subscriptionSvc subscriptiondomain.Service
	onboardingSvc   onboardingdomain.Service
	paymentSvc      paymentdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	DB              *gorm.DB      `optional:"true"`
	Redis           *redis.Client `optional:"true"`
	AccountSvc      accountdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	OnboardingSvc   onboardingdomain.Service
	PaymentSvc      paymentdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		db:              p.DB,
		redis:           p.Redis,
		accountSvc:      p.AccountSvc,
		subscriptionSvc: p.SubscriptionSvc,
		onboardingSvc:   p.OnboardingSvc,
		paymentSvc:      p.PaymentSvc,
	}

	svc.engine.GET("/healthz", svc.Healthz)
	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/payments/:provider", s.HandlePaymentWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.POST("/accounts", s.RegisterAccount)

	accounts := api.Group("/accounts/:id", AccountParam())
	accounts.GET("", s.GetAccount)
	accounts.POST("/logins", s.RecordLogin)
	accounts.POST("/logins/failed", s.RecordFailedLogin)

	// -------- Subscription --------
	accounts.GET("/subscription", s.GetSubscription)
	accounts.POST("/subscription", s.Subscribe)
	accounts.POST("/subscription/trial", s.ActivateFreeTrial)
	accounts.POST("/subscription/beds", s.AddBeds)
	accounts.POST("/subscription/branches", s.AddBranches)
	accounts.POST("/subscription/cancel", s.CancelSubscription)
	accounts.POST("/usage", s.RecordUsage)
	accounts.GET("/capacity", s.CheckCapacity)

	// -------- Onboarding --------
	accounts.GET("/onboarding", s.GetOnboarding)
	accounts.POST("/onboarding/pg", s.OnboardPG)
	accounts.POST("/onboarding/branch", s.OnboardBranch)
	accounts.POST("/onboarding/configuration", s.OnboardConfiguration)
}

// Healthz pings the stores the process depends on.
func (s *Server) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true
	if s.db != nil {
		if err := pingDB(ctx, s.db); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
