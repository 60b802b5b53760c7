package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	mw "github.com/ptamhub/billing/internal/app/api/middleware"
	"github.com/ptamhub/billing/internal/app/service/admin"
	"github.com/ptamhub/billing/internal/app/service/gateways"
	"github.com/ptamhub/billing/internal/app/service/notification"
	nh "github.com/ptamhub/billing/internal/app/service/notification_handler"
	notificationlog "github.com/ptamhub/billing/internal/app/service/notification_log"
	"github.com/ptamhub/billing/internal/app/service/plan"
	"github.com/ptamhub/billing/internal/app/service/purchase"
	"github.com/ptamhub/billing/internal/app/service/reconcile"
	"github.com/ptamhub/billing/internal/app/service/statistics"
	"github.com/ptamhub/billing/internal/app/service/subscription"
	"github.com/ptamhub/billing/internal/platform/db/dbtest"
	"github.com/ptamhub/billing/internal/platform/gateway"
	"github.com/ptamhub/billing/internal/platform/gateway/gatewaytest"
	"github.com/ptamhub/billing/pkg/config"
	"github.com/ptamhub/billing/pkg/response"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

type env struct {
	r    *gin.Engine
	db   *gorm.DB
	fake *gatewaytest.Fake
}

// newEnv wires every route group against in-memory services and an asaas fake.
func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb := dbtest.New(t)
	log := zap.NewNop().Sugar()
	cfg := config.Defaults()
	cfg.Auth.JWTSecret = testSecret
	cfg.Auth.CronSecret = "cron-123"

	fake := gatewaytest.New(gateway.ProviderAsaas)
	gws := gateways.NewService(gdb, gateway.NewRegistry(fake), log)
	subs := subscription.NewService(cfg, gdb, log)
	notes := notification.NewService(gdb, log, nil)
	audit := notificationlog.New(gdb, log)
	purchases := purchase.NewService(cfg, gdb, log, subs, notes, gws, audit, nil)
	adm := admin.NewService(gdb, log, subs)
	auth := mw.NewAuthenticator(cfg, gdb, log)
	dbtest.ActivateGateway(t, gdb, "asaas")

	r := gin.New()
	r.Use(mw.TraceMiddleware(), mw.RequestLoggerMiddleware(log))
	RegisterHealthRoutes(r, gdb)
	RegisterFunctionRoutes(r.Group("/functions/v1"), FunctionDeps{
		Auth:      auth,
		Purchases: purchases,
		Admin:     adm,
		Reconcile: reconcile.NewService(cfg, gdb, log, subs, notes, purchases, gws, nil, nil),
		Webhooks:  nh.NewNotificationHandler(cfg, audit, purchases, gws, nil, log),
		Log:       log,
	})
	api := r.Group("/api/v1")
	RegisterUserRoutes(api, UserDeps{
		Auth:          auth,
		Subscriptions: subs,
		Purchases:     purchases,
		Notifications: notes,
		Plans:         plan.NewService(gdb, log),
		Log:           log,
	})
	RegisterAdminRoutes(api, AdminDeps{
		Auth:          auth,
		Admin:         adm,
		Plans:         plan.NewService(gdb, log),
		Subscriptions: subs,
		Notifications: notes,
		Statistics:    statistics.NewService(gdb, log),
		Gateways:      gws,
		PaymentLogs:   audit,
		Log:           log,
	})
	return &env{r: r, db: gdb, fake: fake}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := mw.SignToken(testSecret, userID, time.Hour)
	require.NoError(t, err)
	return tok
}

// do sends body as JSON and decodes the envelope, keeping data raw.
func (e *env) do(t *testing.T, method, path, tok string, body any, header ...string) (int, *response.APIResponse[json.RawMessage]) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	var out response.APIResponse[json.RawMessage]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, &out
}

func decode[T any](t *testing.T, res *response.APIResponse[json.RawMessage]) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(res.Data, &v))
	return v
}
