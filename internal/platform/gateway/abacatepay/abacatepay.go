// Package abacatepay charges through AbacatePay PIX QR codes.
package abacatepay

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

// pixExpiry is how long a generated PIX code stays payable.
const pixExpiry = 24 * time.Hour

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New returns nil when no API key is configured, so the registry skips it.
func New(cfg *config.Config) *Client {
	if cfg.AbacatePay.APIKey == "" {
		return nil
	}
	return NewWithHTTP(cfg.AbacatePay.APIKey, cfg.AbacatePay.BaseURL, gateway.NewHTTPClient())
}

func NewWithHTTP(apiKey, baseURL string, hc *http.Client) *Client {
	return &Client{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) Provider() gateway.Provider { return gateway.ProviderAbacatePay }

type customer struct {
	Name      string `json:"name"`
	Cellphone string `json:"cellphone"`
	Email     string `json:"email"`
	TaxID     string `json:"taxId"`
}

type createPixRequest struct {
	Amount      int64             `json:"amount"`
	ExpiresIn   int64             `json:"expiresIn"`
	Description string            `json:"description"`
	Customer    customer          `json:"customer"`
	Metadata    map[string]string `json:"metadata"`
}

type pixData struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	BrCode       string `json:"brCode"`
	BrCodeBase64 string `json:"brCodeBase64"`
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

func (c *Client) CreateCharge(ctx context.Context, req *gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	if !tool.ValidCPF(req.Customer.TaxID) {
		return nil, gateway.ErrInvalidTaxID
	}
	body := createPixRequest{
		Amount:      req.Amount,
		ExpiresIn:   int64(pixExpiry / time.Second),
		Description: truncate(req.Description, 140),
		Customer: customer{
			Name:      req.Customer.Name,
			Cellphone: req.Customer.Phone,
			Email:     req.Customer.Email,
			TaxID:     tool.OnlyDigits(req.Customer.TaxID),
		},
		Metadata: map[string]string{"externalId": req.Reference},
	}

	var data pixData
	if err := c.call(ctx, http.MethodPost, c.baseURL+"/pixQrCode/create", body, &data); err != nil {
		return nil, err
	}
	if data.ID == "" || data.BrCode == "" {
		return nil, &gateway.ProviderError{Provider: gateway.ProviderAbacatePay, StatusCode: http.StatusOK, Body: "missing id or brCode"}
	}
	return &gateway.ChargeResult{
		PaymentID:      data.ID,
		PixCode:        data.BrCode,
		PixImageBase64: data.BrCodeBase64,
	}, nil
}

func (c *Client) CheckStatus(ctx context.Context, paymentID string) (*gateway.PaymentDetail, error) {
	var data pixData
	u := c.baseURL + "/pixQrCode/check?id=" + url.QueryEscape(paymentID)
	if err := c.call(ctx, http.MethodGet, u, nil, &data); err != nil {
		return nil, err
	}
	return &gateway.PaymentDetail{
		PaymentID:      paymentID,
		Status:         MapStatus(data.Status),
		ProviderStatus: data.Status,
	}, nil
}

// MapStatus normalizes an AbacatePay PIX status.
func MapStatus(s string) gateway.Status {
	switch strings.ToUpper(s) {
	case "PAID":
		return gateway.StatusApproved
	case "PENDING":
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
	var env envelope
	if jerr := json.Unmarshal(raw, &env); jerr != nil || !gateway.IsSuccess(status) || env.Error != nil {
		return &gateway.ProviderError{
			Provider:   gateway.ProviderAbacatePay,
			StatusCode: status,
			Code:       errorCode(env.Error),
			Body:       string(raw),
		}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("abacatepay: failed to decode data: %w", err)
	}
	return nil
}

func errorCode(v any) string {
	switch e := v.(type) {
	case nil:
		return ""
	case string:
		return e
	default:
		b, _ := json.Marshal(e)
		return string(b)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
