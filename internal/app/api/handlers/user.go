package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/ptamhub/billing/internal/app/api/middleware"
	"github.com/ptamhub/billing/internal/app/service/notification"
	"github.com/ptamhub/billing/internal/app/service/plan"
	"github.com/ptamhub/billing/internal/app/service/purchase"
	"github.com/ptamhub/billing/internal/app/service/subscription"
	"github.com/ptamhub/billing/pkg/response"
)

// @Summary      Current balance
// @Description  Latest subscription of the caller with available and carried credits.
// @Tags         User
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespBalance
// @Router       /api/v1/me/balance [get]
func ApiBalance(svc *subscription.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := svc.Balance(c.Request.Context(), mw.CurrentProfile(c).ID)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(b))
	}
}

// @Summary      Subscription history
// @Tags         User
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespSubscriptions
// @Router       /api/v1/me/subscriptions [get]
func ApiMySubscriptions(svc *subscription.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		subs, err := svc.ListByUser(c.Request.Context(), mw.CurrentProfile(c).ID)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(subs))
	}
}

// @Summary      Consume one report
// @Description  Spends the plan quota first and the carried balance second.
// @Tags         User
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/me/consume-report [post]
func ApiConsumeReport(svc *subscription.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := svc.ConsumeReport(c.Request.Context(), mw.CurrentProfile(c).ID)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

type AutoRenewRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// @Summary      Toggle auto-renew
// @Tags         User
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body AutoRenewRequest true "Auto-renew flag"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/me/auto-renew [post]
func ApiSetAutoRenew(svc *subscription.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AutoRenewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badInput(c, err.Error())
			return
		}
		sub, err := svc.SetAutoRenew(c.Request.Context(), mw.CurrentProfile(c).ID, *req.Enabled)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      Credit purchases of the caller
// @Tags         User
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespPurchases
// @Router       /api/v1/me/purchases [get]
func ApiMyPurchases(svc *purchase.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := svc.ListByUser(c.Request.Context(), mw.CurrentProfile(c).ID)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Plan purchases of the caller
// @Tags         User
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespPlanPurchases
// @Router       /api/v1/me/plan-purchases [get]
func ApiMyPlanPurchases(svc *purchase.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := svc.ListPlanPurchases(c.Request.Context(), mw.CurrentProfile(c).ID)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Notification feed
// @Tags         User
// @Produce      json
// @Security     BearerAuth
// @Param        unread query bool false "Only unread"
// @Param        limit  query int  false "Page size, default 50"
// @Success      200  {object}  handlers.RespNotifications
// @Router       /api/v1/me/notifications [get]
func ApiMyNotifications(svc *notification.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		unread, _ := strconv.ParseBool(c.Query("unread"))
		limit, _ := strconv.Atoi(c.Query("limit"))
		res, err := svc.ListForUser(c.Request.Context(), mw.CurrentProfile(c).ID, unread, limit)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

type MarkReadRequest struct {
	// ID marks a single notification; empty marks all.
	ID string `json:"id"`
}

// @Summary      Mark notifications read
// @Tags         User
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body MarkReadRequest false "Notification id, empty for all"
// @Success      200  {object}  handlers.RespCount
// @Router       /api/v1/me/notifications/read [post]
func ApiMarkRead(svc *notification.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MarkReadRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badInput(c, err.Error())
				return
			}
		}
		n, err := svc.MarkRead(c.Request.Context(), mw.CurrentProfile(c).ID, req.ID)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(CountResult{Count: n}))
	}
}

// @Summary      Delete a notification
// @Description  Only notifications sent individually by an admin can be deleted by their recipient.
// @Tags         User
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Notification id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/me/notifications/{id} [delete]
func ApiDeleteNotification(svc *notification.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.DeleteByRecipient(c.Request.Context(), mw.CurrentProfile(c).ID, c.Param("id")); err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Plan catalog
// @Description  Active plans, cheapest first.
// @Tags         Plans
// @Produce      json
// @Success      200  {object}  handlers.RespPlans
// @Router       /api/v1/plans [get]
func ApiListPlans(svc *plan.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		plans, err := svc.List(c.Request.Context(), true)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(plans))
	}
}

type CountResult struct {
	Count int64 `json:"count"`
}

// UserDeps are the services behind /api/v1 for signed-in users.
type UserDeps struct {
	Auth          *mw.Authenticator
	Subscriptions *subscription.Service
	Purchases     *purchase.Service
	Notifications *notification.Service
	Plans         *plan.Service
	Log           *zap.SugaredLogger
}

func RegisterUserRoutes(r gin.IRouter, d UserDeps) {
	r.GET("/plans", ApiListPlans(d.Plans, d.Log))

	me := r.Group("/me", d.Auth.RequireUser())
	me.GET("/balance", ApiBalance(d.Subscriptions, d.Log))
	me.GET("/subscriptions", ApiMySubscriptions(d.Subscriptions, d.Log))
	me.POST("/consume-report", ApiConsumeReport(d.Subscriptions, d.Log))
	me.POST("/auto-renew", ApiSetAutoRenew(d.Subscriptions, d.Log))
	me.GET("/purchases", ApiMyPurchases(d.Purchases, d.Log))
	me.GET("/plan-purchases", ApiMyPlanPurchases(d.Purchases, d.Log))
	me.GET("/notifications", ApiMyNotifications(d.Notifications, d.Log))
	me.POST("/notifications/read", ApiMarkRead(d.Notifications, d.Log))
	me.DELETE("/notifications/:id", ApiDeleteNotification(d.Notifications, d.Log))
}
