package notification_handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/ptamhub/billing/internal/platform/gateway"
)

var (
	ErrUnauthorized = errors.New("webhook authentication failed")
	ErrMalformed    = errors.New("malformed webhook payload")
)

// Request is the raw webhook as received over HTTP.
type Request struct {
	Body   []byte
	Header http.Header
	Query  url.Values
}

// Event is a provider notification reduced to the payment it is about.
type Event struct {
	Type string
	// PaymentID is the provider payment to verify; empty when the event is ignored.
	PaymentID string
	// Ignored events are acknowledged without touching the ledgers.
	Ignored bool
	Data    any
}

// NotificationParser authenticates and decodes one provider's webhooks.
type NotificationParser interface {
	Provider() gateway.Provider
	Parse(ctx context.Context, req *Request) (*Event, error)
}
