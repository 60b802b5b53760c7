package app

import (
	"go.uber.org/zap"

	"github.com/ptamhub/billing/internal/platform/gateway"
	"github.com/ptamhub/billing/internal/platform/gateway/abacatepay"
	"github.com/ptamhub/billing/internal/platform/gateway/asaas"
	"github.com/ptamhub/billing/internal/platform/gateway/mercadopago"
	"github.com/ptamhub/billing/pkg/config"
)

// newRegistry registers the adapters that have credentials. Unconfigured constructors
// return typed nil pointers, which must not reach the registry as non-nil interfaces.
func newRegistry(cfg *config.Config, log *zap.SugaredLogger) (*gateway.Registry, error) {
	var gws []gateway.Gateway
	if c := abacatepay.New(cfg); c != nil {
		gws = append(gws, c)
	}
	if c := asaas.New(cfg); c != nil {
		gws = append(gws, c)
	}
	mp, err := mercadopago.New(cfg)
	if err != nil {
		return nil, err
	}
	if mp != nil {
		gws = append(gws, mp)
	}
	r := gateway.NewRegistry(gws...)
	log.Infow("payment gateways configured", "providers", r.Providers())
	return r, nil
}
