// Package mercadopago charges through Mercado Pago checkout preferences.
package mercadopago

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"

	"github.com/ptamhub/billing/internal/platform/gateway"
	"github.com/ptamhub/billing/pkg/config"
	"github.com/ptamhub/billing/pkg/tool"
)

type preferenceCreator interface {
	Create(ctx context.Context, request preference.Request) (*preference.Response, error)
}

type paymentReader interface {
	Get(ctx context.Context, id int) (*payment.Response, error)
	Search(ctx context.Context, request payment.SearchRequest) (*payment.SearchResponse, error)
}

type Client struct {
	preferences preferenceCreator
	payments    paymentReader
}

// New returns nil when no access token is configured, so the registry skips it.
func New(cfg *config.Config) (*Client, error) {
	if cfg.MercadoPago.AccessToken == "" {
		return nil, nil
	}
	mpc, err := mpconfig.New(cfg.MercadoPago.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: failed to build config: %w", err)
	}
	return &Client{
		preferences: preference.NewClient(mpc),
		payments:    payment.NewClient(mpc),
	}, nil
}

func (c *Client) Provider() gateway.Provider { return gateway.ProviderMercadoPago }

// CreateCharge creates a checkout preference; the preference id is the stored payment id.
func (c *Client) CreateCharge(ctx context.Context, req *gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	qty := req.Quantity
	if qty <= 0 {
		qty = 1
	}
	unit := tool.FromCents(req.Amount) / float64(qty)
	pr := preference.Request{
		Items: []preference.ItemRequest{{
			ID:          req.Reference,
			Title:       req.Title,
			Description: req.Description,
			Quantity:    qty,
			UnitPrice:   unit,
			CurrencyID:  "BRL",
		}},
		ExternalReference: req.Reference,
		NotificationURL:   req.NotificationURL,
	}
	if req.Customer.Email != "" {
		pr.Payer = &preference.PayerRequest{Name: req.Customer.Name, Email: req.Customer.Email}
	}
	if req.SuccessURL != "" {
		pr.BackURLs = &preference.BackURLsRequest{
			Success: req.SuccessURL,
			Pending: req.SuccessURL,
			Failure: req.SuccessURL,
		}
		pr.AutoReturn = "approved"
	}

	res, err := c.preferences.Create(ctx, pr)
	if err != nil {
		return nil, &gateway.ProviderError{Provider: gateway.ProviderMercadoPago, Body: err.Error()}
	}
	if res.InitPoint == "" {
		return nil, &gateway.ProviderError{Provider: gateway.ProviderMercadoPago, Body: "missing init_point"}
	}
	return &gateway.ChargeResult{PaymentID: res.ID, RedirectURL: res.InitPoint}, nil
}

// CheckStatus reads a Mercado Pago payment by its numeric id, as delivered by webhooks.
func (c *Client) CheckStatus(ctx context.Context, paymentID string) (*gateway.PaymentDetail, error) {
	id, err := strconv.Atoi(strings.TrimSpace(paymentID))
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a payment id", gateway.ErrPaymentNotFound, paymentID)
	}
	p, err := c.payments.Get(ctx, id)
	if err != nil {
		return nil, &gateway.ProviderError{Provider: gateway.ProviderMercadoPago, Body: err.Error()}
	}
	return detail(p), nil
}

// StatusByReference finds the most relevant payment made against a preference's external reference.
// An approved payment wins over pending ones; no payment yet means pending.
func (c *Client) StatusByReference(ctx context.Context, reference string) (*gateway.PaymentDetail, error) {
	res, err := c.payments.Search(ctx, payment.SearchRequest{
		Limit:   30,
		Filters: map[string]string{"external_reference": reference},
	})
	if err != nil {
		return nil, &gateway.ProviderError{Provider: gateway.ProviderMercadoPago, Body: err.Error()}
	}
	if res == nil || len(res.Results) == 0 {
		return &gateway.PaymentDetail{Status: gateway.StatusPending, ExternalReference: reference}, nil
	}
	best := detail(&res.Results[0])
	for i := range res.Results {
		d := detail(&res.Results[i])
		if d.Status == gateway.StatusApproved {
			return d, nil
		}
		if d.Status == gateway.StatusPending {
			best = d
		}
	}
	return best, nil
}

// MapStatus normalizes a Mercado Pago payment status.
func MapStatus(s string) gateway.Status {
	switch s {
	case "approved":
		return gateway.StatusApproved
	case "pending", "in_process", "authorized":
		return gateway.StatusPending
	default:
		return gateway.StatusOther
	}
}

func detail(p *payment.Response) *gateway.PaymentDetail {
	return &gateway.PaymentDetail{
		PaymentID:         strconv.Itoa(p.ID),
		Status:            MapStatus(p.Status),
		ProviderStatus:    p.Status,
		ExternalReference: p.ExternalReference,
	}
}
