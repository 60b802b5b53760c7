package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/ptamhub/billing/internal/app/api/middleware"
	"github.com/ptamhub/billing/internal/app/service/admin"
	"github.com/ptamhub/billing/internal/app/service/gateways"
	"github.com/ptamhub/billing/internal/app/service/notification"
	notificationlog "github.com/ptamhub/billing/internal/app/service/notification_log"
	"github.com/ptamhub/billing/internal/app/service/plan"
	"github.com/ptamhub/billing/internal/app/service/statistics"
	"github.com/ptamhub/billing/internal/app/service/subscription"
	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/pkg/response"
	types "github.com/ptamhub/billing/pkg/types"
)

// @Summary      List plans (Admin)
// @Description  Every plan, inactive ones included.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespPlans
// @Router       /api/v1/admin/plans [get]
func ApiAdminListPlans(svc *plan.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		plans, err := svc.List(c.Request.Context(), false)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(plans))
	}
}

// @Summary      Create plan (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body plan.PlanRequest true "Plan"
// @Success      200  {object}  handlers.RespPlan
// @Router       /api/v1/admin/plans [post]
func ApiCreatePlan(svc *plan.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req plan.PlanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badInput(c, err.Error())
			return
		}
		p, err := svc.Create(c.Request.Context(), &req)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(p))
	}
}

// @Summary      Update plan (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string           true "Plan id"
// @Param        request body plan.PlanRequest true "Plan"
// @Success      200  {object}  handlers.RespPlan
// @Router       /api/v1/admin/plans/{id} [put]
func ApiUpdatePlan(svc *plan.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req plan.PlanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badInput(c, err.Error())
			return
		}
		p, err := svc.Update(c.Request.Context(), c.Param("id"), &req)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(p))
	}
}

// @Summary      Delete plan (Admin)
// @Description  Refused while subscriptions reference the plan; deactivate it instead.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Plan id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/plans/{id} [delete]
func ApiDeletePlan(svc *plan.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Grant subscription (Admin)
// @Description  Creates a subscription seeded from the plan quota without a payment.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body subscription.CreateRequest true "Subscription"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/admin/subscriptions [post]
func ApiAdminCreateSubscription(svc *admin.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subscription.CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badInput(c, err.Error())
			return
		}
		sub, err := svc.CreateSubscription(c.Request.Context(), mw.CurrentProfile(c).ID, &req)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      User subscriptions (Admin)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User id"
// @Success      200  {object}  handlers.RespSubscriptions
// @Router       /api/v1/admin/users/{id}/subscriptions [get]
func ApiAdminUserSubscriptions(svc *subscription.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		subs, err := svc.ListByUser(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(subs))
	}
}

type AdjustReportsRequest struct {
	ReportsAvailable *int `json:"reports_available" binding:"required"`
	ReportsUsed      *int `json:"reports_used" binding:"required"`
}

// @Summary      Adjust report counters (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string               true "Subscription id"
// @Param        request body AdjustReportsRequest true "New counters"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/admin/subscriptions/{id}/adjust [post]
func ApiAdjustReports(svc *admin.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AdjustReportsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badInput(c, err.Error())
			return
		}
		sub, err := svc.AdjustReports(c.Request.Context(), mw.CurrentProfile(c).ID, c.Param("id"), *req.ReportsAvailable, *req.ReportsUsed)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

type AddReportsRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// @Summary      Add reports (Admin)
// @Description  Adds delta to reports_available. Negative values remove reports.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string            true "Subscription id"
// @Param        request body AddReportsRequest true "Delta"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/admin/subscriptions/{id}/add-reports [post]
func ApiAddReports(svc *admin.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddReportsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badInput(c, err.Error())
			return
		}
		sub, err := svc.AddReports(c.Request.Context(), mw.CurrentProfile(c).ID, c.Param("id"), req.Delta)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

type ChangePlanRequest struct {
	UserID string `json:"user_id" binding:"required"`
	PlanID string `json:"plan_id" binding:"required"`
}

// @Summary      Change plan (Admin)
// @Description  Moves the user to another plan without a payment. Unused quota is carried over.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ChangePlanRequest true "User and plan"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/admin/subscriptions/change-plan [post]
func ApiChangePlan(svc *admin.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ChangePlanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badInput(c, err.Error())
			return
		}
		sub, err := svc.ChangePlan(c.Request.Context(), mw.CurrentProfile(c).ID, req.UserID, req.PlanID)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

type BroadcastRequest struct {
	Title   string `json:"title" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// @Summary      Broadcast notification (Admin)
// @Description  Sends one notification to every profile.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body BroadcastRequest true "Content"
// @Success      200  {object}  handlers.RespCount
// @Router       /api/v1/admin/notifications/broadcast [post]
func ApiBroadcast(svc *notification.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BroadcastRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badInput(c, err.Error())
			return
		}
		n, err := svc.Broadcast(c.Request.Context(), mw.CurrentProfile(c).ID, req.Title, req.Message)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(CountResult{Count: int64(n)}))
	}
}

type SendNotificationRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Title   string `json:"title" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// @Summary      Send notification (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SendNotificationRequest true "Recipient and content"
// @Success      200  {object}  handlers.RespNotification
// @Router       /api/v1/admin/notifications/send [post]
func ApiSendNotification(svc *notification.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SendNotificationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badInput(c, err.Error())
			return
		}
		n, err := svc.Send(c.Request.Context(), mw.CurrentProfile(c).ID, req.UserID, req.Title, req.Message)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(n))
	}
}

// @Summary      Clear notifications (Admin)
// @Description  Deletes notifications of one user, mass ones only, or all of them.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body notification.ClearFilter false "Filter"
// @Success      200  {object}  handlers.RespCount
// @Router       /api/v1/admin/notifications/clear [post]
func ApiClearNotifications(svc *notification.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f notification.ClearFilter
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&f); err != nil {
				badInput(c, err.Error())
				return
			}
		}
		n, err := svc.Clear(c.Request.Context(), f)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(CountResult{Count: n}))
	}
}

// listHandler binds a ListRequest and serves one admin listing.
func listHandler[T any](list func(*gin.Context, *types.ListRequest) (*admin.Page[T], error), log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.ListRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badInput(c, err.Error())
			return
		}
		page, err := list(c, &req)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(page))
	}
}

// @Summary      List credit purchases (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body types.ListRequest true "Filters, paging and sort"
// @Success      200  {object}  handlers.RespPurchasePage
// @Router       /api/v1/admin/purchases/list [post]
func ApiListPurchases(svc *admin.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return listHandler(func(c *gin.Context, req *types.ListRequest) (*admin.Page[models.AdditionalReportsPurchase], error) {
		return svc.ListPurchases(c.Request.Context(), req)
	}, log)
}

// @Summary      List plan purchases (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body types.ListRequest true "Filters, paging and sort"
// @Success      200  {object}  handlers.RespPlanPurchasePage
// @Router       /api/v1/admin/plan-purchases/list [post]
func ApiListPlanPurchases(svc *admin.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return listHandler(func(c *gin.Context, req *types.ListRequest) (*admin.Page[models.PlanPurchase], error) {
		return svc.ListPlanPurchases(c.Request.Context(), req)
	}, log)
}

// @Summary      List users (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body types.ListRequest true "Filters, paging and sort"
// @Success      200  {object}  handlers.RespProfilePage
// @Router       /api/v1/admin/users/list [post]
func ApiListUsers(svc *admin.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return listHandler(func(c *gin.Context, req *types.ListRequest) (*admin.Page[models.Profile], error) {
		return svc.ListProfiles(c.Request.Context(), req)
	}, log)
}

// @Summary      List admin actions (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body types.ListRequest true "Filters, paging and sort"
// @Success      200  {object}  handlers.RespAdminLogPage
// @Router       /api/v1/admin/admin-logs/list [post]
func ApiListAdminLogs(svc *admin.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return listHandler(func(c *gin.Context, req *types.ListRequest) (*admin.Page[models.AdminLog], error) {
		return svc.ListAdminLogs(c.Request.Context(), req)
	}, log)
}

type BlockUserRequest struct {
	Until time.Time `json:"until" binding:"required"`
}

// @Summary      Block user (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string           true "User id"
// @Param        request body BlockUserRequest true "Block end (RFC3339)"
// @Success      200  {object}  handlers.RespProfile
// @Router       /api/v1/admin/users/{id}/block [post]
func ApiBlockUser(svc *admin.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BlockUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badInput(c, err.Error())
			return
		}
		p, err := svc.BlockUser(c.Request.Context(), mw.CurrentProfile(c).ID, c.Param("id"), req.Until)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(p))
	}
}

// @Summary      Unblock user (Admin)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User id"
// @Success      200  {object}  handlers.RespProfile
// @Router       /api/v1/admin/users/{id}/unblock [post]
func ApiUnblockUser(svc *admin.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.UnblockUser(c.Request.Context(), mw.CurrentProfile(c).ID, c.Param("id"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(p))
	}
}

// @Summary      Delete user (Admin)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User id"
// @Success      200  {object}  handlers.RespDeleteUser
// @Router       /api/v1/admin/users/{id} [delete]
func ApiAdminDeleteUser(svc *admin.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.DeleteUser(c.Request.Context(), mw.CurrentProfile(c).ID, c.Param("id"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Billing statistics (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body statistics.Request true "Statistic ids and filters"
// @Success      200  {object}  handlers.RespStatistics
// @Router       /api/v1/admin/statistics [post]
func ApiStatistics(svc *statistics.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			badInput(c, err.Error())
			return
		}
		res, err := svc.GetStatistics(c.Request.Context(), &req)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List gateways (Admin)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespGateways
// @Router       /api/v1/admin/gateways [get]
func ApiListGateways(svc *gateways.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := svc.List(c.Request.Context())
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Activate gateway (Admin)
// @Description  Makes the named gateway the only active one.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        name path string true "mercadopago, abacatepay or asaas"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/gateways/{name}/activate [post]
func ApiActivateGateway(svc *gateways.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Activate(c.Request.Context(), c.Param("name")); err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Webhook audit trail (Admin)
// @Description  Every callback received for one provider payment id.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        payment_id path string true "Provider payment id"
// @Success      200  {object}  handlers.RespPaymentLogs
// @Router       /api/v1/admin/payment-logs/{payment_id} [get]
func ApiPaymentLogs(svc *notificationlog.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := svc.ListByPayment(c.Request.Context(), c.Param("payment_id"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// AdminDeps are the services behind /api/v1/admin.
type AdminDeps struct {
	Auth          *mw.Authenticator
	Admin         *admin.Service
	Plans         *plan.Service
	Subscriptions *subscription.Service
	Notifications *notification.Service
	Statistics    *statistics.Service
	Gateways      *gateways.Service
	PaymentLogs   *notificationlog.Service
	Log           *zap.SugaredLogger
}

func RegisterAdminRoutes(r gin.IRouter, d AdminDeps) {
	g := r.Group("/admin", d.Auth.RequireUser(), mw.RequireAdmin())

	g.GET("/plans", ApiAdminListPlans(d.Plans, d.Log))
	g.POST("/plans", ApiCreatePlan(d.Plans, d.Log))
	g.PUT("/plans/:id", ApiUpdatePlan(d.Plans, d.Log))
	g.DELETE("/plans/:id", ApiDeletePlan(d.Plans, d.Log))

	g.POST("/subscriptions", ApiAdminCreateSubscription(d.Admin, d.Log))
	g.POST("/subscriptions/change-plan", ApiChangePlan(d.Admin, d.Log))
	g.POST("/subscriptions/:id/adjust", ApiAdjustReports(d.Admin, d.Log))
	g.POST("/subscriptions/:id/add-reports", ApiAddReports(d.Admin, d.Log))

	g.POST("/notifications/broadcast", ApiBroadcast(d.Notifications, d.Log))
	g.POST("/notifications/send", ApiSendNotification(d.Notifications, d.Log))
	g.POST("/notifications/clear", ApiClearNotifications(d.Notifications, d.Log))

	g.POST("/purchases/list", ApiListPurchases(d.Admin, d.Log))
	g.POST("/plan-purchases/list", ApiListPlanPurchases(d.Admin, d.Log))
	g.POST("/admin-logs/list", ApiListAdminLogs(d.Admin, d.Log))
	g.POST("/statistics", ApiStatistics(d.Statistics, d.Log))

	g.POST("/users/list", ApiListUsers(d.Admin, d.Log))
	g.GET("/users/:id/subscriptions", ApiAdminUserSubscriptions(d.Subscriptions, d.Log))
	g.POST("/users/:id/block", ApiBlockUser(d.Admin, d.Log))
	g.POST("/users/:id/unblock", ApiUnblockUser(d.Admin, d.Log))
	g.DELETE("/users/:id", ApiAdminDeleteUser(d.Admin, d.Log))

	g.GET("/gateways", ApiListGateways(d.Gateways, d.Log))
	g.POST("/gateways/:name/activate", ApiActivateGateway(d.Gateways, d.Log))
	g.GET("/payment-logs/:payment_id", ApiPaymentLogs(d.PaymentLogs, d.Log))
}
