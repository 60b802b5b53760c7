package gateways

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ptamhub/billing/internal/platform/db/dbtest"
	"github.com/ptamhub/billing/internal/platform/gateway"
)

type stubGateway struct{ p gateway.Provider }

func (s stubGateway) Provider() gateway.Provider { return s.p }
func (s stubGateway) CreateCharge(context.Context, *gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	return &gateway.ChargeResult{}, nil
}
func (s stubGateway) CheckStatus(context.Context, string) (*gateway.PaymentDetail, error) {
	return &gateway.PaymentDetail{}, nil
}

func TestActiveAndActivate(t *testing.T) {
	gdb := dbtest.New(t)
	s := NewService(gdb, gateway.NewRegistry(stubGateway{gateway.ProviderAsaas}, stubGateway{gateway.ProviderAbacatePay}), zap.NewNop().Sugar())
	ctx := context.Background()

	_, err := s.Active(ctx)
	require.ErrorIs(t, err, gateway.ErrNoActiveGateway)

	dbtest.ActivateGateway(t, gdb, "mercadopago")
	_, err = s.Active(ctx)
	require.ErrorIs(t, err, gateway.ErrNotConfigured)

	require.ErrorIs(t, s.Activate(ctx, "mercadopago"), gateway.ErrNotConfigured)
	require.NoError(t, s.Activate(ctx, "asaas"))
	g, err := s.Active(ctx)
	require.NoError(t, err)
	require.Equal(t, gateway.ProviderAsaas, g.Provider())

	views, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, views, 3)
	active := 0
	for _, v := range views {
		if v.IsActive {
			active++
			require.Equal(t, "asaas", v.Name)
		}
		if v.Name == "mercadopago" {
			require.False(t, v.Configured)
		}
	}
	require.Equal(t, 1, active)
}
