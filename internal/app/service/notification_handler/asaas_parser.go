package notification_handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/ptamhub/billing/internal/platform/gateway"
)

// asaasPaidEvents settle a charge; every other event is acknowledged and ignored.
var asaasPaidEvents = []string{"PAYMENT_RECEIVED", "PAYMENT_CONFIRMED", "PAYMENT_RECEIVED_IN_CASH"}

// AsaasParser authenticates with the asaas-access-token header.
type AsaasParser struct {
	token string
}

func NewAsaasParser(token string) *AsaasParser { return &AsaasParser{token: token} }

func (p *AsaasParser) Provider() gateway.Provider { return gateway.ProviderAsaas }

type asaasNotification struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Payment struct {
		ID                string `json:"id"`
		Status            string `json:"status"`
		Customer          string `json:"customer"`
		ExternalReference string `json:"externalReference"`
		BillingType       string `json:"billingType"`
	} `json:"payment"`
}

func (p *AsaasParser) Parse(_ context.Context, req *Request) (*Event, error) {
	if p.token != "" && subtle.ConstantTimeCompare([]byte(req.Header.Get("asaas-access-token")), []byte(p.token)) != 1 {
		return nil, ErrUnauthorized
	}
	var n asaasNotification
	if err := json.Unmarshal(req.Body, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	ev := &Event{Type: n.Event, PaymentID: n.Payment.ID, Data: n}
	if !lo.Contains(asaasPaidEvents, n.Event) || n.Payment.ID == "" {
		ev.Ignored = true
		ev.PaymentID = ""
	}
	return ev, nil
}
