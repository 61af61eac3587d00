package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	accountdomain "github.com/angedjimenou/investapp/internal/account/domain"
	"github.com/angedjimenou/investapp/internal/config"
	"github.com/angedjimenou/investapp/internal/identity"
	"github.com/angedjimenou/investapp/internal/observability/logger"
	"github.com/angedjimenou/investapp/internal/observability/metrics"
	"github.com/angedjimenou/investapp/internal/onboarding"
	paymentdomain "github.com/angedjimenou/investapp/internal/payment/domain"
	"github.com/angedjimenou/investapp/internal/purchase"
	"github.com/angedjimenou/investapp/internal/referral"
	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg         config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	GenID       *snowflake.Node
	Accounts    accountdomain.Repository
	Identity    *identity.Service
	Onboarding  *onboarding.Service
	Purchase    *purchase.Service
	Payments    paymentdomain.Service
	Referrals   *referral.Service
	HTTPMetrics *metrics.HTTPMetrics `optional:"true"`
}

// Server holds the HTTP handler dependencies.
type Server struct {
	cfg        config.Config
	log        *zap.Logger
	db         *gorm.DB
	genID      *snowflake.Node
	accounts   accountdomain.Repository
	identity   *identity.Service
	onboarding *onboarding.Service
	purchase   *purchase.Service
	payments   paymentdomain.Service
	referrals  *referral.Service

	authLimiter    *rateLimiter
	webhookLimiter *rateLimiter
}

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine(cfg config.Config, log *zap.Logger, m *metrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		Log:       log,
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	engine.Use(metrics.GinMiddleware(m))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin", "Content-Type", "Content-Length", "Accept-Encoding",
		"Authorization", "Accept", "Cache-Control", "X-Requested-With",
	}
	engine.Use(cors.New(corsConfig))

	engine.HandleMethodNotAllowed = true
	engine.NoMethod(func(c *gin.Context) { AbortWithError(c, ErrMethodNotAllowed) })
	engine.NoRoute(func(c *gin.Context) { AbortWithError(c, ErrNotFound) })

	return engine
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:            p.Cfg,
		log:            p.Log.Named("server"),
		db:             p.DB,
		genID:          p.GenID,
		accounts:       p.Accounts,
		identity:       p.Identity,
		onboarding:     p.Onboarding,
		purchase:       p.Purchase,
		payments:       p.Payments,
		referrals:      p.Referrals,
		authLimiter:    newRateLimiter(10, time.Minute),
		webhookLimiter: newRateLimiter(120, time.Minute),
	}
}

// RegisterRoutes wires the public API, the authenticated API and the
// webhook ingress onto the engine.
func (s *Server) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", s.Healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	{
		api.POST("/register", s.RateLimited(s.authLimiter), s.Register)
		api.POST("/auth/login", s.RateLimited(s.authLimiter), s.Login)

		authed := api.Group("", s.RequireAuth())
		{
			authed.GET("/me", s.GetProfile)
			authed.POST("/invest/purchase", s.PurchaseInvestment)
			authed.GET("/invest", s.ListInvestments)
			authed.POST("/deposits", s.CreateDeposit)
			authed.POST("/withdrawals", s.CreateWithdrawal)
			authed.POST("/payment-methods", s.AddPaymentMethod)
			authed.GET("/payment-methods", s.ListPaymentMethods)
			authed.GET("/referral/qr", s.ReferralQR)
			authed.GET("/referral/downline", s.ListDownline)
			authed.GET("/transactions", s.ListTransactions)
		}
	}

	engine.POST("/webhooks/:provider", s.RateLimited(s.webhookLimiter), s.ProviderWebhook)
}

// RunHTTP starts the HTTP listener on the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewEngine, NewServer),
	fx.Invoke(func(s *Server, engine *gin.Engine) {
		s.RegisterRoutes(engine)
	}),
	fx.Invoke(RunHTTP),
)
