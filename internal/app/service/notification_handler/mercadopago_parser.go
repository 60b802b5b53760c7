package notification_handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ptamhub/billing/internal/platform/gateway"
)

// MercadoPagoParser handles {"type":"payment","data":{"id":"…"}} notifications and the
// legacy ?topic=payment&id=… form.
type MercadoPagoParser struct {
	secret string
}

func NewMercadoPagoParser(secret string) *MercadoPagoParser {
	return &MercadoPagoParser{secret: secret}
}

func (p *MercadoPagoParser) Provider() gateway.Provider { return gateway.ProviderMercadoPago }

type mpNotification struct {
	ID     json.Number `json:"id"`
	Type   string      `json:"type"`
	Action string      `json:"action"`
	Data   struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

func (p *MercadoPagoParser) Parse(_ context.Context, req *Request) (*Event, error) {
	var n mpNotification
	if len(req.Body) > 0 {
		dec := json.NewDecoder(bytes.NewReader(req.Body))
		dec.UseNumber()
		if err := dec.Decode(&n); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	typ := firstNonEmpty(n.Type, req.Query.Get("type"), req.Query.Get("topic"))
	id := firstNonEmpty(req.Query.Get("data.id"), n.Data.ID.String(), req.Query.Get("id"))

	if err := p.verify(req, id); err != nil {
		return nil, err
	}
	ev := &Event{Type: firstNonEmpty(n.Action, typ), PaymentID: id, Data: n}
	if typ != "payment" || id == "" {
		ev.Ignored = true
		ev.PaymentID = ""
	}
	return ev, nil
}

// verify checks the x-signature header: ts=<unix>,v1=<hex hmac-sha256> over the manifest
// "id:<data.id>;request-id:<x-request-id>;ts:<ts>;". An empty secret disables the check.
func (p *MercadoPagoParser) verify(req *Request, id string) error {
	if p.secret == "" {
		return nil
	}
	var ts, v1 string
	for _, part := range strings.Split(req.Header.Get("x-signature"), ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "ts":
			ts = v
		case "v1":
			v1 = v
		}
	}
	if ts == "" || v1 == "" {
		return ErrUnauthorized
	}
	var manifest strings.Builder
	if id != "" {
		manifest.WriteString("id:" + strings.ToLower(id) + ";")
	}
	if rid := req.Header.Get("x-request-id"); rid != "" {
		manifest.WriteString("request-id:" + rid + ";")
	}
	manifest.WriteString("ts:" + ts + ";")

	if !hmac.Equal([]byte(Sign(p.secret, manifest.String())), []byte(strings.ToLower(v1))) {
		return ErrUnauthorized
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of manifest.
func Sign(secret, manifest string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
