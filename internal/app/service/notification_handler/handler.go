// Package notification_handler verifies gateway webhooks and settles the purchases they confirm.
package notification_handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ptamhub/billing/internal/app/service/gateways"
	notificationlog "github.com/ptamhub/billing/internal/app/service/notification_log"
	"github.com/ptamhub/billing/internal/app/service/purchase"
	"github.com/ptamhub/billing/internal/platform/gateway"
	"github.com/ptamhub/billing/pkg/config"
	"github.com/ptamhub/billing/pkg/logctx"
	"github.com/ptamhub/billing/pkg/metrics"
)

type NotificationHandler struct {
	parsers   map[gateway.Provider]NotificationParser
	audit     *notificationlog.Service
	purchases *purchase.Service
	gateways  *gateways.Service
	metrics   *metrics.Recorder
	Logger    *zap.SugaredLogger
}

func NewNotificationHandler(
	cfg *config.Config,
	audit *notificationlog.Service,
	purchases *purchase.Service,
	gws *gateways.Service,
	rec *metrics.Recorder,
	log *zap.SugaredLogger,
) *NotificationHandler {
	h := &NotificationHandler{
		parsers:   map[gateway.Provider]NotificationParser{},
		audit:     audit,
		purchases: purchases,
		gateways:  gws,
		metrics:   rec,
		Logger:    log,
	}
	for _, p := range []NotificationParser{
		NewMercadoPagoParser(cfg.MercadoPago.WebhookSecret),
		NewAsaasParser(cfg.Asaas.WebhookToken),
		NewAbacatePayParser(cfg.AbacatePay.WebhookSecret),
	} {
		h.parsers[p.Provider()] = p
	}
	return h
}

// Result is what a webhook did.
type Result struct {
	Event          string            `json:"event"`
	PaymentID      string            `json:"payment_id,omitempty"`
	Ignored        bool              `json:"ignored"`
	Reason         string            `json:"reason,omitempty"`
	ProviderStatus string            `json:"provider_status,omitempty"`
	Outcome        *purchase.Outcome `json:"outcome,omitempty"`
}

// HandleNotification authenticates a webhook, re-reads the payment from the provider and
// approves the matching purchase. The payload itself is never trusted for the status.
// Unknown payments and payments that arrive after expiry are acknowledged so the provider
// stops retrying; they are left in the audit log for follow-up.
func (h *NotificationHandler) HandleNotification(ctx context.Context, provider gateway.Provider, req *Request) (res *Result, resErr error) {
	parser, ok := h.parsers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", gateway.ErrUnknownProvider, provider)
	}
	ev, err := parser.Parse(ctx, req)
	if err != nil {
		return nil, err
	}
	log := logctx.FromCtx(ctx, h.Logger)

	entry := notificationlog.Entry{
		Provider:  string(provider),
		Source:    notificationlog.SourceWebhook,
		Event:     ev.Type,
		PaymentID: ev.PaymentID,
		Data:      ev.Data,
	}
	h.audit.Received(ctx, entry)
	defer func() {
		if res != nil && res.Outcome != nil {
			entry.UserID = res.Outcome.UserID
		}
		h.audit.Finished(ctx, entry, res, resErr)
	}()

	res = &Result{Event: ev.Type, PaymentID: ev.PaymentID}
	if ev.Ignored {
		res.Ignored = true
		res.Reason = "event not handled"
		return res, nil
	}

	g, err := h.gateways.ByName(string(provider))
	if err != nil {
		return res, err
	}
	start := time.Now()
	detail, err := g.CheckStatus(ctx, ev.PaymentID)
	h.metrics.GatewayCall(string(provider), "check_status", start, err)
	if err != nil {
		return res, fmt.Errorf("failed to verify payment %s: %w", ev.PaymentID, err)
	}
	res.ProviderStatus = detail.ProviderStatus
	if detail.Status != gateway.StatusApproved {
		res.Ignored = true
		res.Reason = "payment not approved"
		return res, nil
	}

	var out *purchase.Outcome
	if detail.ExternalReference != "" {
		out, err = h.purchases.ApproveByReference(ctx, detail.ExternalReference, detail)
	}
	if detail.ExternalReference == "" || errors.Is(err, purchase.ErrPurchaseNotFound) {
		out, err = h.purchases.ApproveByPaymentID(ctx, ev.PaymentID, detail)
	}
	switch {
	case errors.Is(err, purchase.ErrPurchaseNotFound):
		log.Warnw("webhook for unknown payment", "provider", provider, "payment_id", ev.PaymentID, "reference", detail.ExternalReference)
		res.Ignored = true
		res.Reason = "unknown payment"
		return res, nil
	case errors.Is(err, purchase.ErrPurchaseExpired):
		log.Errorw("payment approved after purchase expired", "provider", provider, "payment_id", ev.PaymentID, "reference", detail.ExternalReference)
		res.Ignored = true
		res.Reason = "purchase expired"
		return res, nil
	case err != nil:
		return res, err
	}
	res.Outcome = out
	return res, nil
}
