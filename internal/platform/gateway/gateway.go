// Package gateway defines the uniform contract every payment provider adapter implements.
package gateway

import (
	"context"
	"errors"
	"fmt"
)

type Provider string

const (
	ProviderMercadoPago Provider = "mercadopago"
	ProviderAbacatePay  Provider = "abacatepay"
	ProviderAsaas       Provider = "asaas"
)

// Status is the normalized payment status.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusOther    Status = "other"
)

var (
	ErrInvalidTaxID     = errors.New("a valid CPF is required to pay with this method")
	ErrBelowMinimum     = errors.New("amount is below the provider minimum charge")
	ErrUnknownProvider  = errors.New("unknown payment provider")
	ErrNoActiveGateway  = errors.New("no active payment gateway")
	ErrNotConfigured    = errors.New("payment provider is not configured")
	ErrPaymentNotFound  = errors.New("payment not found at provider")
	ErrSavedMethodUnset = errors.New("no saved payment method")
)

type Customer struct {
	ID    string
	Name  string
	Email string
	TaxID string
	Phone string
}

// ChargeRequest describes a one-off charge. Amount is in cents.
type ChargeRequest struct {
	// Reference is our ledger row reference, echoed back as external reference.
	Reference   string
	Title       string
	Description string
	Quantity    int
	Amount      int64
	Customer    Customer
	// SuccessURL is where the payer returns after paying.
	SuccessURL string
	// NotificationURL receives provider webhooks.
	NotificationURL string
}

// ChargeResult is either a redirect or a PIX payload.
type ChargeResult struct {
	PaymentID      string `json:"payment_id"`
	RedirectURL    string `json:"redirect_url,omitempty"`
	PixCode        string `json:"pix_code,omitempty"`
	PixImageBase64 string `json:"pix_image_base64,omitempty"`
}

func (r *ChargeResult) IsPix() bool {
	return r != nil && r.PixCode != ""
}

type PaymentDetail struct {
	PaymentID         string `json:"payment_id"`
	Status            Status `json:"status"`
	ProviderStatus    string `json:"provider_status"`
	ExternalReference string `json:"external_reference,omitempty"`
	// CustomerID and SavedMethod identify a reusable card when the payer chose one.
	CustomerID  string `json:"customer_id,omitempty"`
	SavedMethod string `json:"-"`
}

// Gateway is implemented by every provider adapter.
type Gateway interface {
	Provider() Provider
	CreateCharge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
	CheckStatus(ctx context.Context, paymentID string) (*PaymentDetail, error)
}

// ReferenceLookup is implemented by gateways whose stored payment id cannot be polled
// directly and must be found through the external reference instead.
type ReferenceLookup interface {
	StatusByReference(ctx context.Context, reference string) (*PaymentDetail, error)
}

// SavedChargeRequest charges a stored payment method, used by automatic renewals.
type SavedChargeRequest struct {
	Reference     string
	Description   string
	Amount        int64
	CustomerID    string
	PaymentMethod string
}

// SavedMethodCharger is implemented by gateways able to charge a saved card.
type SavedMethodCharger interface {
	ChargeSaved(ctx context.Context, req *SavedChargeRequest) (*PaymentDetail, error)
}

// ProviderError is a rejected provider call. Body is kept for logs only.
type ProviderError struct {
	Provider    Provider
	StatusCode  int
	Code        string
	Body        string
	UserMessage string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: status=%d code=%s body=%s", e.Provider, e.StatusCode, e.Code, e.Body)
}

// GenericUserMessage is shown when a provider failure has no specific translation.
const GenericUserMessage = "could not create the payment right now, please try again later"

// UserMessage returns the end-user text for err. Provider internals never leak.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.UserMessage != "" {
			return pe.UserMessage
		}
		return GenericUserMessage
	}
	for _, known := range []error{ErrInvalidTaxID, ErrBelowMinimum, ErrNoActiveGateway, ErrSavedMethodUnset} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return GenericUserMessage
}
