package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	nh "github.com/ptamhub/billing/internal/app/service/notification_handler"
	"github.com/ptamhub/billing/internal/platform/gateway"
	"github.com/ptamhub/billing/pkg/logctx"
	"github.com/ptamhub/billing/pkg/response"
)

// maxWebhookBody bounds what is read from a provider callback.
const maxWebhookBody = 1 << 20

type WebhookHandler interface {
	HandleNotification(ctx context.Context, provider gateway.Provider, req *nh.Request) (*nh.Result, error)
}

// @Summary      Payment webhook
// @Description  Provider callback. The payment is re-read from the provider before any purchase is approved.
// @Tags         Webhooks
// @Accept       json
// @Produce      json
// @Param        provider path string true "asaas or abacatepay"
// @Success      200  {object}  handlers.RespWebhook
// @Failure      401  {object}  handlers.RespOK
// @Router       /webhooks/{provider} [post]
// @Router       /functions/v1/mp-webhook [post]
func ApiWebhook(h WebhookHandler, provider gateway.Provider, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := provider
		if p == "" {
			p = gateway.Provider(c.Param("provider"))
		}
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			badInput(c, "could not read body")
			return
		}
		res, err := h.HandleNotification(c.Request.Context(), p, &nh.Request{
			Body:   body,
			Header: c.Request.Header,
			Query:  c.Request.URL.Query(),
		})
		switch {
		case err == nil:
			c.JSON(http.StatusOK, response.OKT(res))
		case errors.Is(err, nh.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, err.Error()))
		case errors.Is(err, nh.ErrMalformed), errors.Is(err, gateway.ErrUnknownProvider):
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
		default:
			// non-2xx makes the provider retry later
			logctx.FromGin(c, log).Errorw("webhook failed", "provider", p, "error", err)
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, "unexpected error"))
		}
	}
}

func RegisterWebhookRoutes(r gin.IRouter, h WebhookHandler, log *zap.SugaredLogger) {
	r.POST("/:provider", ApiWebhook(h, "", log))
}
