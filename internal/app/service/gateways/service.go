// Package gateways resolves the admin-selected payment gateway to a configured adapter.
package gateways

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/internal/platform/gateway"
	"github.com/ptamhub/billing/pkg/logctx"
)

type Service struct {
	db       *gorm.DB
	registry *gateway.Registry
	log      *zap.SugaredLogger
}

func NewService(db *gorm.DB, registry *gateway.Registry, log *zap.SugaredLogger) *Service {
	return &Service{db: db, registry: registry, log: log}
}

// Active returns the adapter of the single active payment_gateways row.
func (s *Service) Active(ctx context.Context) (gateway.Gateway, error) {
	var rows []*models.PaymentGateway
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("updated_at desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load active gateway: %w", err)
	}
	if len(rows) == 0 {
		return nil, gateway.ErrNoActiveGateway
	}
	if len(rows) > 1 {
		logctx.FromCtx(ctx, s.log).Warnw("more than one active gateway, using the latest", "gateway", rows[0].Name)
	}
	g, err := s.registry.Get(rows[0].Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", gateway.ErrNotConfigured, rows[0].Name)
	}
	return g, nil
}

// ByName returns the adapter that created a charge, regardless of the current switch.
func (s *Service) ByName(name string) (gateway.Gateway, error) {
	return s.registry.Get(name)
}

type GatewayView struct {
	models.PaymentGateway
	// Configured reports whether credentials for the adapter are present.
	Configured bool `json:"configured"`
}

func (s *Service) List(ctx context.Context) ([]*GatewayView, error) {
	var rows []*models.PaymentGateway
	if err := s.db.WithContext(ctx).Order("name asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*GatewayView, 0, len(rows))
	for _, r := range rows {
		_, err := s.registry.Get(r.Name)
		out = append(out, &GatewayView{PaymentGateway: *r, Configured: err == nil})
	}
	return out, nil
}

// Activate makes name the only active gateway.
func (s *Service) Activate(ctx context.Context, name string) error {
	if _, err := s.registry.Get(name); err != nil {
		return fmt.Errorf("%w: %s", gateway.ErrNotConfigured, name)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.PaymentGateway
		if err := tx.Where("name = ?", name).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", gateway.ErrUnknownProvider, name)
			}
			return err
		}
		if err := tx.Model(&models.PaymentGateway{}).Where("name <> ?", name).Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&row).Update("is_active", true).Error
	})
}
