// Package gatewaytest provides an in-memory gateway for service tests.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ptamhub/billing/internal/platform/gateway"
)

// Fake records calls and answers with the configured results.
// It implements gateway.Gateway and gateway.SavedMethodCharger.
type Fake struct {
	mu sync.Mutex

	Name      gateway.Provider
	Charge    gateway.ChargeResult
	ChargeErr error
	// Detail is returned by CheckStatus with the polled id filled in.
	Detail    gateway.PaymentDetail
	StatusErr error
	SavedErr  error
	// SavedDetail overrides the approved answer of ChargeSaved.
	SavedDetail *gateway.PaymentDetail

	Requests      []*gateway.ChargeRequest
	Checked       []string
	SavedRequests []*gateway.SavedChargeRequest
}

func New(name gateway.Provider) *Fake {
	return &Fake{Name: name, Detail: gateway.PaymentDetail{Status: gateway.StatusPending, ProviderStatus: "pending"}}
}

func (f *Fake) Provider() gateway.Provider { return f.Name }

func (f *Fake) CreateCharge(_ context.Context, req *gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	if f.ChargeErr != nil {
		return nil, f.ChargeErr
	}
	res := f.Charge
	if res.PaymentID == "" {
		res.PaymentID = "pay-" + req.Reference
	}
	return &res, nil
}

func (f *Fake) CheckStatus(_ context.Context, paymentID string) (*gateway.PaymentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Checked = append(f.Checked, paymentID)
	if f.StatusErr != nil {
		return nil, f.StatusErr
	}
	d := f.Detail
	d.PaymentID = paymentID
	return &d, nil
}

func (f *Fake) ChargeSaved(_ context.Context, req *gateway.SavedChargeRequest) (*gateway.PaymentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SavedRequests = append(f.SavedRequests, req)
	if f.SavedErr != nil {
		return nil, f.SavedErr
	}
	if f.SavedDetail != nil {
		d := *f.SavedDetail
		d.ExternalReference = req.Reference
		return &d, nil
	}
	return &gateway.PaymentDetail{
		PaymentID:         fmt.Sprintf("renew-%d", len(f.SavedRequests)),
		Status:            gateway.StatusApproved,
		ProviderStatus:    "CONFIRMED",
		ExternalReference: req.Reference,
	}, nil
}

// LastRequest returns the latest charge request, or nil.
func (f *Fake) LastRequest() *gateway.ChargeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Requests) == 0 {
		return nil
	}
	return f.Requests[len(f.Requests)-1]
}

// ReferenceFake is a Fake that is polled by external reference.
type ReferenceFake struct {
	*Fake
	References []string
}

func (f *ReferenceFake) StatusByReference(_ context.Context, reference string) (*gateway.PaymentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.References = append(f.References, reference)
	if f.StatusErr != nil {
		return nil, f.StatusErr
	}
	d := f.Detail
	d.ExternalReference = reference
	if d.PaymentID == "" {
		d.PaymentID = "mp-" + reference
	}
	return &d, nil
}
