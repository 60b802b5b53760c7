package purchase

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/ptamhub/billing/internal/app/service/subscription"
	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/internal/platform/gateway"
	"github.com/ptamhub/billing/pkg/logctx"
	"github.com/ptamhub/billing/pkg/tool"
	types "github.com/ptamhub/billing/pkg/types"
)

// CreatePlanPayment opens a pending plan checkout. Approval activates the plan, or
// changes to it when the user already has a subscription.
func (s *Service) CreatePlanPayment(ctx context.Context, userID, planID string) (*CreateResult, error) {
	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	var plan models.Plan
	if err := s.db.WithContext(ctx).Where("id = ?", planID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscription.ErrPlanNotFound
		}
		return nil, err
	}
	if !plan.Active {
		return nil, subscription.ErrPlanInactive
	}
	if plan.Price <= 0 {
		return nil, ErrInvalidAmount
	}
	g, err := s.gateways.Active(ctx)
	if err != nil {
		return nil, err
	}

	row := &models.PlanPurchase{
		ID:            tool.GenerateUUIDV7(),
		UserID:        userID,
		PlanID:        plan.ID,
		Amount:        plan.Price,
		Gateway:       string(g.Provider()),
		PaymentStatus: types.PaymentStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create plan purchase: %w", err)
	}

	log := logctx.FromCtx(ctx, s.log)
	res, err := s.charge(ctx, g, &gateway.ChargeRequest{
		Reference:       row.ID,
		Title:           "Plano " + plan.Name,
		Description:     fmt.Sprintf("Assinatura PTAM - plano %s (%d relatórios)", plan.Name, plan.IncludedReports),
		Quantity:        1,
		Amount:          plan.Price,
		Customer:        s.customer(ctx, profile),
		SuccessURL:      s.successURL(KindPlan, row.ID),
		NotificationURL: s.notificationURL(g),
	})
	if err != nil {
		log.Warnw("gateway charge failed", "purchase_id", row.ID, "gateway", row.Gateway, "error", err)
		s.abandon(ctx, KindPlan, row.ID)
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(row).Update("payment_id", lo.EmptyableToPtr(res.PaymentID)).Error; err != nil {
		return nil, fmt.Errorf("failed to store payment id: %w", err)
	}
	log.Infow("plan purchase created", "purchase_id", row.ID, "plan_id", plan.ID, "payment_id", res.PaymentID, "gateway", row.Gateway)

	return &CreateResult{
		Kind:       KindPlan,
		PurchaseID: row.ID,
		Gateway:    row.Gateway,
		TotalPrice: tool.FromCents(plan.Price),
		Payment:    res,
	}, nil
}

// ProcessSubscriptionPayment confirms a plan checkout of userID with the gateway and
// activates the plan once paid.
func (s *Service) ProcessSubscriptionPayment(ctx context.Context, userID, purchaseID string) (*Outcome, error) {
	return s.CheckPayment(ctx, userID, KindPlan, purchaseID)
}

// ListPlanPurchases returns the plan checkouts of a user, newest first.
func (s *Service) ListPlanPurchases(ctx context.Context, userID string) ([]*models.PlanPurchase, error) {
	var rows []*models.PlanPurchase
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&rows).Error
	return rows, err
}
