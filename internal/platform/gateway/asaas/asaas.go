// Package asaas charges through Asaas hosted invoices and saved cards.
package asaas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ptamhub/billing/internal/platform/gateway"
	"github.com/ptamhub/billing/pkg/config"
	"github.com/ptamhub/billing/pkg/tool"
)

const dueDays = 3

type Client struct {
	apiKey    string
	baseURL   string
	minCharge int64
	http      *http.Client
	now       func() time.Time
}

// New returns nil when no API key is configured, so the registry skips it.
func New(cfg *config.Config) *Client {
	if cfg.Asaas.APIKey == "" {
		return nil
	}
	return NewWithHTTP(cfg.Asaas.APIKey, cfg.Asaas.BaseURL, tool.ToCents(cfg.Asaas.MinCharge), gateway.NewHTTPClient())
}

func NewWithHTTP(apiKey, baseURL string, minCharge int64, hc *http.Client) *Client {
	return &Client{
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		minCharge: minCharge,
		http:      hc,
		now:       time.Now,
	}
}

func (c *Client) Provider() gateway.Provider { return gateway.ProviderAsaas }

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type errorBody struct {
	Errors []apiError `json:"errors"`
}

type customerBody struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	CpfCnpj     string `json:"cpfCnpj"`
	Email       string `json:"email,omitempty"`
	MobilePhone string `json:"mobilePhone,omitempty"`
}

type callback struct {
	SuccessURL   string `json:"successUrl"`
	AutoRedirect bool   `json:"autoRedirect"`
}

type paymentRequest struct {
	Customer          string    `json:"customer"`
	BillingType       string    `json:"billingType"`
	Value             float64   `json:"value"`
	DueDate           string    `json:"dueDate"`
	Description       string    `json:"description,omitempty"`
	ExternalReference string    `json:"externalReference,omitempty"`
	Callback          *callback `json:"callback,omitempty"`
	CreditCardToken   string    `json:"creditCardToken,omitempty"`
}

type paymentBody struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	InvoiceURL        string `json:"invoiceUrl"`
	ExternalReference string `json:"externalReference"`
	CreditCard        *struct {
		CreditCardToken string `json:"creditCardToken"`
	} `json:"creditCard"`
}

func (p *paymentBody) detail() *gateway.PaymentDetail {
	d := &gateway.PaymentDetail{
		PaymentID:         p.ID,
		Status:            MapStatus(p.Status),
		ProviderStatus:    p.Status,
		ExternalReference: p.ExternalReference,
		CustomerID:        p.Customer,
	}
	if p.CreditCard != nil {
		d.SavedMethod = p.CreditCard.CreditCardToken
	}
	return d
}

func (c *Client) headers() map[string]string {
	return map[string]string{"access_token": c.apiKey}
}

func (c *Client) CreateCharge(ctx context.Context, req *gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	if req.Amount < c.minCharge {
		return nil, fmt.Errorf("%w: %s", gateway.ErrBelowMinimum, tool.FormatBRL(c.minCharge))
	}
	customerID, err := c.ensureCustomer(ctx, req.Customer)
	if err != nil {
		return nil, err
	}
	body := paymentRequest{
		Customer:          customerID,
		BillingType:       "UNDEFINED",
		Value:             tool.FromCents(req.Amount),
		DueDate:           c.now().AddDate(0, 0, dueDays).Format(time.DateOnly),
		Description:       req.Description,
		ExternalReference: req.Reference,
	}
	if req.SuccessURL != "" {
		body.Callback = &callback{SuccessURL: req.SuccessURL, AutoRedirect: true}
	}
	var p paymentBody
	if err := c.call(ctx, http.MethodPost, c.baseURL+"/payments", body, &p); err != nil {
		return nil, err
	}
	return &gateway.ChargeResult{PaymentID: p.ID, RedirectURL: p.InvoiceURL}, nil
}

// ensureCustomer reuses the Asaas customer registered under the CPF or creates one.
func (c *Client) ensureCustomer(ctx context.Context, cust gateway.Customer) (string, error) {
	if cust.ID != "" {
		return cust.ID, nil
	}
	taxID := tool.OnlyDigits(cust.TaxID)
	if taxID == "" {
		return "", gateway.ErrInvalidTaxID
	}
	var list struct {
		Data []customerBody `json:"data"`
	}
	if err := c.call(ctx, http.MethodGet, c.baseURL+"/customers?cpfCnpj="+url.QueryEscape(taxID), nil, &list); err != nil {
		return "", err
	}
	if len(list.Data) > 0 {
		return list.Data[0].ID, nil
	}
	var created customerBody
	in := customerBody{Name: cust.Name, CpfCnpj: taxID, Email: cust.Email, MobilePhone: tool.OnlyDigits(cust.Phone)}
	if err := c.call(ctx, http.MethodPost, c.baseURL+"/customers", in, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

func (c *Client) CheckStatus(ctx context.Context, paymentID string) (*gateway.PaymentDetail, error) {
	var p paymentBody
	if err := c.call(ctx, http.MethodGet, c.baseURL+"/payments/"+url.PathEscape(paymentID), nil, &p); err != nil {
		return nil, err
	}
	return p.detail(), nil
}

// ChargeSaved charges a tokenized credit card immediately.
func (c *Client) ChargeSaved(ctx context.Context, req *gateway.SavedChargeRequest) (*gateway.PaymentDetail, error) {
	if req.CustomerID == "" || req.PaymentMethod == "" {
		return nil, gateway.ErrSavedMethodUnset
	}
	body := paymentRequest{
		Customer:          req.CustomerID,
		BillingType:       "CREDIT_CARD",
		Value:             tool.FromCents(req.Amount),
		DueDate:           c.now().Format(time.DateOnly),
		Description:       req.Description,
		ExternalReference: req.Reference,
		CreditCardToken:   req.PaymentMethod,
	}
	var p paymentBody
	if err := c.call(ctx, http.MethodPost, c.baseURL+"/payments", body, &p); err != nil {
		return nil, err
	}
	return p.detail(), nil
}

// MapStatus normalizes an Asaas payment status.
func MapStatus(s string) gateway.Status {
	switch strings.ToUpper(s) {
	case "RECEIVED", "CONFIRMED", "RECEIVED_IN_CASH":
		return gateway.StatusApproved
	case "PENDING", "AWAITING_RISK_ANALYSIS":
		return gateway.StatusPending
	default:
		return gateway.StatusOther
	}
}

func (c *Client) call(ctx context.Context, method, u string, in any, out any) error {
	status, raw, err := gateway.DoJSON(ctx, c.http, method, u, c.headers(), in)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return gateway.ErrPaymentNotFound
	}
	if !gateway.IsSuccess(status) {
		return translate(status, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("asaas: failed to decode response: %w", err)
	}
	return nil
}

// translate turns an Asaas error body into a ProviderError with a user message for known cases.
func translate(status int, raw []byte) error {
	pe := &gateway.ProviderError{Provider: gateway.ProviderAsaas, StatusCode: status, Body: string(raw)}
	var eb errorBody
	if json.Unmarshal(raw, &eb) != nil || len(eb.Errors) == 0 {
		return pe
	}
	first := eb.Errors[0]
	pe.Code = first.Code
	text := strings.ToLower(first.Code + " " + first.Description)
	switch {
	case strings.Contains(text, "cpfcnpj") || strings.Contains(text, "cpf/cnpj"):
		pe.UserMessage = "invalid CPF/CNPJ, please review your profile"
	case strings.Contains(text, "callback") || strings.Contains(text, "domínio") || strings.Contains(text, "dominio"):
		pe.UserMessage = "payment return address is not configured with the provider, please contact support"
	case strings.Contains(text, "valor mínimo") || strings.Contains(text, "minimum"):
		pe.UserMessage = gateway.ErrBelowMinimum.Error()
	}
	return pe
}
