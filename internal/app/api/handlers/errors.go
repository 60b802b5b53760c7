package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ptamhub/billing/internal/app/service/admin"
	"github.com/ptamhub/billing/internal/app/service/notification"
	"github.com/ptamhub/billing/internal/app/service/plan"
	"github.com/ptamhub/billing/internal/app/service/purchase"
	"github.com/ptamhub/billing/internal/app/service/reconcile"
	"github.com/ptamhub/billing/internal/app/service/statistics"
	"github.com/ptamhub/billing/internal/app/service/subscription"
	"github.com/ptamhub/billing/internal/platform/gateway"
	"github.com/ptamhub/billing/pkg/logctx"
	"github.com/ptamhub/billing/pkg/response"
)

var badRequest = []error{
	purchase.ErrInvalidQuantity,
	purchase.ErrInvalidAmount,
	purchase.ErrPurchaseExpired,
	subscription.ErrActiveSubscriptionExists,
	subscription.ErrNoActiveSubscription,
	subscription.ErrPlanInactive,
	subscription.ErrInvalidStatus,
	subscription.ErrNegativeReports,
	subscription.ErrNoCreditsLeft,
	plan.ErrInvalidPlan,
	plan.ErrPlanInUse,
	notification.ErrEmptyContent,
	notification.ErrNotDeletable,
	admin.ErrSelfDelete,
	admin.ErrInvalidBlockEnd,
	admin.ErrFilterNotAllowed,
	statistics.ErrInvalidFilter,
	reconcile.ErrUnknownJob,
	gateway.ErrInvalidTaxID,
	gateway.ErrBelowMinimum,
}

var notFound = []error{
	purchase.ErrPurchaseNotFound,
	purchase.ErrProfileNotFound,
	subscription.ErrSubscriptionNotFound,
	subscription.ErrPlanNotFound,
	plan.ErrPlanNotFound,
	notification.ErrNotFound,
	notification.ErrUnknownTarget,
	admin.ErrProfileNotFound,
}

var providerErrors = []error{
	gateway.ErrNoActiveGateway,
	gateway.ErrNotConfigured,
	gateway.ErrUnknownProvider,
	gateway.ErrPaymentNotFound,
	gateway.ErrSavedMethodUnset,
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// codeFor maps a service error to the envelope code and the text shown to the caller.
func codeFor(err error) (response.APIResponseCode, string) {
	var pe *gateway.ProviderError
	switch {
	case errors.Is(err, subscription.ErrUserBlocked):
		return response.APIResponseCodeForbidden, subscription.ErrUserBlocked.Error()
	case errors.As(err, &pe), isAny(err, providerErrors):
		return response.APIResponseCodeProvider, gateway.UserMessage(err)
	case isAny(err, []error{gateway.ErrInvalidTaxID, gateway.ErrBelowMinimum}):
		return response.APIResponseCodeBadRequest, gateway.UserMessage(err)
	case isAny(err, badRequest):
		return response.APIResponseCodeBadRequest, err.Error()
	case isAny(err, notFound):
		return response.APIResponseCodeNotFound, err.Error()
	default:
		return response.APIResponseCodeError, "unexpected error"
	}
}

// fail writes the error envelope. Unexpected and provider errors are logged with their details.
func fail(c *gin.Context, log *zap.SugaredLogger, err error) {
	code, msg := codeFor(err)
	_ = c.Error(err)
	if code == response.APIResponseCodeError || code == response.APIResponseCodeProvider {
		logctx.FromGin(c, log).Errorw("request failed", "path", c.FullPath(), "code", code, "error", err)
	}
	c.JSON(http.StatusOK, response.ErrorT[any](code, msg))
}

func badInput(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, msg))
}
