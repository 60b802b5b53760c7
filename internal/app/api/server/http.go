package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ptamhub/billing/docs"
	"github.com/ptamhub/billing/internal/app/api/handlers"
	mw "github.com/ptamhub/billing/internal/app/api/middleware"
	"github.com/ptamhub/billing/internal/app/service/admin"
	"github.com/ptamhub/billing/internal/app/service/gateways"
	"github.com/ptamhub/billing/internal/app/service/notification"
	notificationlog "github.com/ptamhub/billing/internal/app/service/notification_log"
	"github.com/ptamhub/billing/internal/app/service/plan"
	"github.com/ptamhub/billing/internal/app/service/purchase"
	"github.com/ptamhub/billing/internal/app/service/reconcile"
	"github.com/ptamhub/billing/internal/app/service/statistics"
	"github.com/ptamhub/billing/internal/app/service/subscription"
	cfgpkg "github.com/ptamhub/billing/pkg/config"
	metrics "github.com/ptamhub/billing/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeDeps struct {
	fx.In

	Engine        *gin.Engine
	Log           *zap.SugaredLogger
	Cfg           *cfgpkg.Config
	DB            *gorm.DB
	Auth          *mw.Authenticator
	Purchases     *purchase.Service
	Subscriptions *subscription.Service
	Admin         *admin.Service
	Reconcile     *reconcile.Service
	Plans         *plan.Service
	Notifications *notification.Service
	Statistics    *statistics.Service
	Gateways      *gateways.Service
	PaymentLogs   *notificationlog.Service
	Webhooks      handlers.WebhookHandler
}

func registerRoutes(d routeDeps) {
	r, log, cfg := d.Engine, d.Log, d.Cfg
	// Prometheus metrics
	if cfg != nil && cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			Subsystem: "billing",
			Logger:    log,
		})
		p.SetListenAddress(cfg.MetricsAddr)
		p.Use(r)

		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}
	logged := []gin.HandlerFunc{mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log)}

	// Public group: request logger + access log
	pub := r.Group("/", logged...)
	handlers.RegisterHealthRoutes(pub, d.DB)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	handlers.RegisterFunctionRoutes(r.Group("/functions/v1", logged...), handlers.FunctionDeps{
		Auth:      d.Auth,
		Purchases: d.Purchases,
		Admin:     d.Admin,
		Reconcile: d.Reconcile,
		Webhooks:  d.Webhooks,
		Log:       log,
	})
	handlers.RegisterWebhookRoutes(r.Group("/webhooks", logged...), d.Webhooks, log)

	apiV1 := r.Group("/api/v1", logged...)
	handlers.RegisterUserRoutes(apiV1, handlers.UserDeps{
		Auth:          d.Auth,
		Subscriptions: d.Subscriptions,
		Purchases:     d.Purchases,
		Notifications: d.Notifications,
		Plans:         d.Plans,
		Log:           log,
	})
	handlers.RegisterAdminRoutes(apiV1, handlers.AdminDeps{
		Auth:          d.Auth,
		Admin:         d.Admin,
		Plans:         d.Plans,
		Subscriptions: d.Subscriptions,
		Notifications: d.Notifications,
		Statistics:    d.Statistics,
		Gateways:      d.Gateways,
		PaymentLogs:   d.PaymentLogs,
		Log:           log,
	})
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Provide(mw.NewAuthenticator),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
