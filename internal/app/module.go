package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/ptamhub/billing/internal/app/api/handlers"
	"github.com/ptamhub/billing/internal/app/api/server"
	"github.com/ptamhub/billing/internal/app/service/admin"
	"github.com/ptamhub/billing/internal/app/service/gateways"
	"github.com/ptamhub/billing/internal/app/service/notification"
	notificationhandler "github.com/ptamhub/billing/internal/app/service/notification_handler"
	notificationlog "github.com/ptamhub/billing/internal/app/service/notification_log"
	"github.com/ptamhub/billing/internal/app/service/plan"
	"github.com/ptamhub/billing/internal/app/service/purchase"
	"github.com/ptamhub/billing/internal/app/service/reconcile"
	"github.com/ptamhub/billing/internal/app/service/statistics"
	"github.com/ptamhub/billing/internal/app/service/subscription"
	"github.com/ptamhub/billing/internal/platform/db"
	"github.com/ptamhub/billing/internal/platform/mail"
	"github.com/ptamhub/billing/internal/platform/redis"
	"github.com/ptamhub/billing/pkg/config"
	"github.com/ptamhub/billing/pkg/logger"
	"github.com/ptamhub/billing/pkg/metrics"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

// Core is everything the sweeps need: config, storage, gateways and the billing services.
var Core = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	metrics.Module,
	redis.Module,
	mail.Module,
	fx.Provide(newRegistry),
	fx.Provide(notificationlog.New),
	gateways.Module,
	subscription.Module,
	plan.Module,
	notification.Module,
	purchase.Module,
	reconcile.Module,
	statistics.Module,
	admin.Module,
)

// Module is the HTTP API.
var Module = fx.Options(
	Core,
	notificationhandler.Module,
	fx.Provide(func(h *notificationhandler.NotificationHandler) handlers.WebhookHandler { return h }),
	server.Module,
)
