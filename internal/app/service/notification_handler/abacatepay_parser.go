package notification_handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"

	"github.com/ptamhub/billing/internal/platform/gateway"
)

// AbacatePayParser authenticates with the webhookSecret query parameter.
type AbacatePayParser struct {
	secret string
}

func NewAbacatePayParser(secret string) *AbacatePayParser { return &AbacatePayParser{secret: secret} }

func (p *AbacatePayParser) Provider() gateway.Provider { return gateway.ProviderAbacatePay }

type abacateNotification struct {
	ID    string `json:"id"`
	Event string `json:"event"`
	Data  struct {
		PixQrCode *struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"pixQrCode"`
		Billing *struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"billing"`
	} `json:"data"`
}

func (p *AbacatePayParser) Parse(_ context.Context, req *Request) (*Event, error) {
	if p.secret != "" && subtle.ConstantTimeCompare([]byte(req.Query.Get("webhookSecret")), []byte(p.secret)) != 1 {
		return nil, ErrUnauthorized
	}
	var n abacateNotification
	if err := json.Unmarshal(req.Body, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	ev := &Event{Type: n.Event, Data: n}
	switch {
	case n.Data.PixQrCode != nil:
		ev.PaymentID = n.Data.PixQrCode.ID
	case n.Data.Billing != nil:
		ev.PaymentID = n.Data.Billing.ID
	}
	if n.Event != "billing.paid" || ev.PaymentID == "" {
		ev.Ignored = true
		ev.PaymentID = ""
	}
	return ev, nil
}
