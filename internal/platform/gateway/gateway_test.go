package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubGateway struct{ p Provider }

func (s stubGateway) Provider() Provider { return s.p }
func (s stubGateway) CreateCharge(context.Context, *ChargeRequest) (*ChargeResult, error) {
	return &ChargeResult{PaymentID: "x"}, nil
}
func (s stubGateway) CheckStatus(context.Context, string) (*PaymentDetail, error) {
	return &PaymentDetail{Status: StatusPending}, nil
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(stubGateway{ProviderAsaas}, nil, stubGateway{ProviderAbacatePay})

	g, err := r.Get("asaas")
	require.NoError(t, err)
	require.Equal(t, ProviderAsaas, g.Provider())

	_, err = r.Get("stripe")
	require.ErrorIs(t, err, ErrUnknownProvider)
	require.Equal(t, []Provider{ProviderAbacatePay, ProviderAsaas}, r.Providers())
}

func TestUserMessage(t *testing.T) {
	require.Equal(t, "", UserMessage(nil))
	require.Equal(t, ErrInvalidTaxID.Error(), UserMessage(fmt.Errorf("create: %w", ErrInvalidTaxID)))
	require.Equal(t, GenericUserMessage, UserMessage(errors.New("dial tcp: timeout")))

	pe := &ProviderError{Provider: ProviderAsaas, StatusCode: 400, Body: `{"errors":[{"code":"x"}]}`}
	require.Equal(t, GenericUserMessage, UserMessage(fmt.Errorf("wrap: %w", pe)))
	pe.UserMessage = "invalid CPF/CNPJ"
	require.Equal(t, "invalid CPF/CNPJ", UserMessage(pe))
	require.Contains(t, pe.Error(), "status=400")
}
