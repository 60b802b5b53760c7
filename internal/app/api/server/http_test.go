package server

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mw "github.com/ptamhub/billing/internal/app/api/middleware"
	"github.com/ptamhub/billing/internal/app/service/reconcile"
	cfgpkg "github.com/ptamhub/billing/pkg/config"
)

func TestRegisterRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newEngine()
	cfg := cfgpkg.Defaults()
	cfg.MetricsAddr = ""
	registerRoutes(routeDeps{
		Engine: r,
		Log:    zap.NewNop().Sugar(),
		Cfg:    cfg,
		Auth:   mw.NewAuthenticator(cfg, nil, zap.NewNop().Sugar()),
	})

	routes := r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	require.True(t, contains("GET /healthz"))
	require.True(t, contains("GET /swagger/*any"))
	require.True(t, contains("POST /functions/v1/create-payment"))
	require.True(t, contains("POST /functions/v1/create-additional-reports-payment"))
	require.True(t, contains("POST /functions/v1/check-payment"))
	require.True(t, contains("POST /functions/v1/process-subscription-payment"))
	require.True(t, contains("POST /functions/v1/delete-user"))
	require.True(t, contains("POST /functions/v1/mp-webhook"))
	for _, job := range reconcile.Jobs {
		require.True(t, contains("POST /functions/v1/"+job), job)
	}
	require.True(t, contains("POST /webhooks/:provider"))
	require.True(t, contains("GET /api/v1/me/balance"))
	require.True(t, contains("GET /api/v1/plans"))
	require.True(t, contains("POST /api/v1/admin/statistics"))
	require.True(t, contains("POST /api/v1/admin/gateways/:name/activate"))
}
