package handlers

import (
	"github.com/ptamhub/billing/internal/app/service/admin"
	"github.com/ptamhub/billing/internal/app/service/gateways"
	"github.com/ptamhub/billing/internal/app/service/notification"
	nh "github.com/ptamhub/billing/internal/app/service/notification_handler"
	"github.com/ptamhub/billing/internal/app/service/purchase"
	"github.com/ptamhub/billing/internal/app/service/reconcile"
	"github.com/ptamhub/billing/internal/app/service/statistics"
	"github.com/ptamhub/billing/internal/app/service/subscription"
	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/pkg/response"
)

// Envelope types for swag. Handlers build the real envelope with response.OKT.

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Success bool                     `json:"success"`
	Error   string                   `json:"error,omitempty"`
	Data    interface{}              `json:"data"`
}

type RespHealth struct {
	RespOK
	Data map[string]string `json:"data"`
}

type RespCreatePayment struct {
	RespOK
	Data purchase.CreateResult `json:"data"`
}

type RespOutcome struct {
	RespOK
	Data purchase.Outcome `json:"data"`
}

type RespDeleteUser struct {
	RespOK
	Data admin.DeleteResult `json:"data"`
}

type RespSweepReport struct {
	RespOK
	Data reconcile.Report `json:"data"`
}

type RespWebhook struct {
	RespOK
	Data nh.Result `json:"data"`
}

type RespBalance struct {
	RespOK
	Data subscription.Balance `json:"data"`
}

type RespSubscription struct {
	RespOK
	Data models.Subscription `json:"data"`
}

type RespSubscriptions struct {
	RespOK
	Data []models.Subscription `json:"data"`
}

type RespPurchases struct {
	RespOK
	Data []models.AdditionalReportsPurchase `json:"data"`
}

type RespPlanPurchases struct {
	RespOK
	Data []models.PlanPurchase `json:"data"`
}

type RespNotifications struct {
	RespOK
	Data notification.ListResult `json:"data"`
}

type RespNotification struct {
	RespOK
	Data models.Notification `json:"data"`
}

type RespCount struct {
	RespOK
	Data CountResult `json:"data"`
}

type RespPlan struct {
	RespOK
	Data models.Plan `json:"data"`
}

type RespPlans struct {
	RespOK
	Data []models.Plan `json:"data"`
}

type RespProfile struct {
	RespOK
	Data models.Profile `json:"data"`
}

type RespPurchasePage struct {
	RespOK
	Data admin.Page[models.AdditionalReportsPurchase] `json:"data"`
}

type RespPlanPurchasePage struct {
	RespOK
	Data admin.Page[models.PlanPurchase] `json:"data"`
}

type RespProfilePage struct {
	RespOK
	Data admin.Page[models.Profile] `json:"data"`
}

type RespAdminLogPage struct {
	RespOK
	Data admin.Page[models.AdminLog] `json:"data"`
}

type RespStatistics struct {
	RespOK
	Data statistics.Response `json:"data"`
}

type RespGateways struct {
	RespOK
	Data []gateways.GatewayView `json:"data"`
}

type RespPaymentLogs struct {
	RespOK
	Data []models.PaymentNotificationLog `json:"data"`
}
