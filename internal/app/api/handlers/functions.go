package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/ptamhub/billing/internal/app/api/middleware"
	"github.com/ptamhub/billing/internal/app/service/admin"
	"github.com/ptamhub/billing/internal/app/service/purchase"
	"github.com/ptamhub/billing/internal/app/service/reconcile"
	"github.com/ptamhub/billing/internal/platform/gateway"
	"github.com/ptamhub/billing/pkg/response"
)

type CreatePaymentRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

// @Summary      Create plan payment
// @Description  Charges the selected plan with the active gateway. The plan is activated, or swapped in, once the payment is approved.
// @Tags         Functions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreatePaymentRequest true "Plan to buy"
// @Success      200  {object}  handlers.RespCreatePayment
// @Router       /functions/v1/create-payment [post]
func ApiCreatePayment(svc *purchase.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badInput(c, err.Error())
			return
		}
		res, err := svc.CreatePlanPayment(c.Request.Context(), mw.CurrentProfile(c).ID, req.PlanID)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// ActionCheckStatus turns create-additional-reports-payment into a status poll.
const ActionCheckStatus = "check_status"

type AdditionalReportsRequest struct {
	Quantity   int    `json:"quantity"`
	Action     string `json:"action"`
	PurchaseID string `json:"purchase_id"`
}

// @Summary      Buy additional reports
// @Description  Creates a credit purchase of quantity reports. With action=check_status it polls an existing purchase instead.
// @Tags         Functions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body AdditionalReportsRequest true "Quantity, or action=check_status with purchase_id"
// @Success      200  {object}  handlers.RespCreatePayment
// @Router       /functions/v1/create-additional-reports-payment [post]
func ApiCreateAdditionalReportsPayment(svc *purchase.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AdditionalReportsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badInput(c, err.Error())
			return
		}
		userID := mw.CurrentProfile(c).ID
		if req.Action == ActionCheckStatus {
			if req.PurchaseID == "" {
				badInput(c, "purchase_id is required")
				return
			}
			out, err := svc.CheckStatus(c.Request.Context(), userID, req.PurchaseID)
			if err != nil {
				fail(c, log, err)
				return
			}
			c.JSON(http.StatusOK, response.OKT(out))
			return
		}
		if req.Action != "" {
			badInput(c, "unknown action")
			return
		}
		res, err := svc.CreatePurchase(c.Request.Context(), userID, req.Quantity)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

type CheckPaymentRequest struct {
	PurchaseID string `json:"purchase_id" binding:"required"`
	// Kind is credits or plan; empty searches both ledgers.
	Kind string `json:"kind"`
}

// @Summary      Check payment
// @Description  Asks the gateway about a pending purchase and approves it when paid.
// @Tags         Functions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CheckPaymentRequest true "Purchase to poll"
// @Success      200  {object}  handlers.RespOutcome
// @Router       /functions/v1/check-payment [post]
func ApiCheckPayment(svc *purchase.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CheckPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badInput(c, err.Error())
			return
		}
		kind := purchase.Kind(req.Kind)
		if kind != "" && !kind.Valid() {
			badInput(c, "kind must be credits or plan")
			return
		}
		out, err := svc.CheckPayment(c.Request.Context(), mw.CurrentProfile(c).ID, kind, req.PurchaseID)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(out))
	}
}

type ProcessSubscriptionPaymentRequest struct {
	PurchaseID string `json:"purchase_id" binding:"required"`
}

// @Summary      Process subscription payment
// @Description  Confirms a plan purchase and activates or changes the plan.
// @Tags         Functions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ProcessSubscriptionPaymentRequest true "Plan purchase"
// @Success      200  {object}  handlers.RespOutcome
// @Router       /functions/v1/process-subscription-payment [post]
func ApiProcessSubscriptionPayment(svc *purchase.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProcessSubscriptionPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badInput(c, err.Error())
			return
		}
		out, err := svc.ProcessSubscriptionPayment(c.Request.Context(), mw.CurrentProfile(c).ID, req.PurchaseID)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(out))
	}
}

type DeleteUserRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// @Summary      Delete user (Admin)
// @Description  Removes a profile with its subscriptions, purchases and notifications.
// @Tags         Functions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body DeleteUserRequest true "User to delete"
// @Success      200  {object}  handlers.RespDeleteUser
// @Router       /functions/v1/delete-user [post]
func ApiDeleteUser(svc *admin.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DeleteUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badInput(c, err.Error())
			return
		}
		res, err := svc.DeleteUser(c.Request.Context(), mw.CurrentProfile(c).ID, req.UserID)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Run scheduled sweep
// @Description  Runs one reconciliation job. Accepts the X-Cron-Secret header or an admin token.
// @Tags         Functions
// @Produce      json
// @Param        X-Cron-Secret header string false "Cron secret"
// @Success      200  {object}  handlers.RespSweepReport
// @Router       /functions/v1/expire-pending-payments [post]
// @Router       /functions/v1/expire-credits [post]
// @Router       /functions/v1/check-subscription-expiry [post]
// @Router       /functions/v1/renew-expired-subscriptions [post]
func ApiRunJob(svc *reconcile.Service, job string, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := svc.Run(c.Request.Context(), job)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(report))
	}
}

// FunctionDeps are the services behind /functions/v1.
type FunctionDeps struct {
	Auth      *mw.Authenticator
	Purchases *purchase.Service
	Admin     *admin.Service
	Reconcile *reconcile.Service
	Webhooks  WebhookHandler
	Log       *zap.SugaredLogger
}

func RegisterFunctionRoutes(r gin.IRouter, d FunctionDeps) {
	user := r.Group("", d.Auth.RequireUser())
	user.POST("/create-payment", ApiCreatePayment(d.Purchases, d.Log))
	user.POST("/create-additional-reports-payment", ApiCreateAdditionalReportsPayment(d.Purchases, d.Log))
	user.POST("/check-payment", ApiCheckPayment(d.Purchases, d.Log))
	user.POST("/process-subscription-payment", ApiProcessSubscriptionPayment(d.Purchases, d.Log))
	user.POST("/delete-user", mw.RequireAdmin(), ApiDeleteUser(d.Admin, d.Log))

	jobs := r.Group("", d.Auth.RequireCronOrAdmin())
	for _, job := range reconcile.Jobs {
		jobs.POST("/"+job, ApiRunJob(d.Reconcile, job, d.Log))
	}

	r.POST("/mp-webhook", ApiWebhook(d.Webhooks, gateway.ProviderMercadoPago, d.Log))
}
