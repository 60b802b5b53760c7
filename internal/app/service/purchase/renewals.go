package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/ptamhub/billing/internal/app/service/subscription"
	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/internal/platform/gateway"
	"github.com/ptamhub/billing/pkg/logctx"
	"github.com/ptamhub/billing/pkg/tool"
	types "github.com/ptamhub/billing/pkg/types"
)

const titleRenewed = "Assinatura renovada"

// OpenRenewal books a pending renewal charge for sub before the card is charged, so a
// confirmation arriving later through webhook or poll always finds a row. The row id is
// the reference sent to the gateway.
func (s *Service) OpenRenewal(ctx context.Context, sub *models.Subscription, plan *models.Plan, now time.Time) (*models.PlanPurchase, error) {
	row := &models.PlanPurchase{
		ID:             tool.GenerateUUIDV7(),
		UserID:         sub.UserID,
		PlanID:         plan.ID,
		Amount:         plan.Price,
		Gateway:        sub.PaymentGateway,
		PaymentStatus:  types.PaymentStatusPending,
		Renewal:        true,
		SubscriptionID: lo.ToPtr(sub.ID),
		CreatedAt:      now,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to open renewal: %w", err)
	}
	return row, nil
}

// RecordRenewalCharge stores the gateway payment id on a pending renewal.
func (s *Service) RecordRenewalCharge(ctx context.Context, id, paymentID string) error {
	if paymentID == "" {
		return nil
	}
	err := s.db.WithContext(context.WithoutCancel(ctx)).Model(&models.PlanPurchase{}).
		Where("id = ? AND payment_status = ?", id, types.PaymentStatusPending).
		Update("payment_id", paymentID).Error
	if err != nil {
		return fmt.Errorf("failed to store renewal payment id: %w", err)
	}
	return nil
}

// SettleRenewal applies a synchronous renewal answer. An approved charge goes through the
// same compare-and-swap as webhooks; a pending one is left for the webhook or poll.
func (s *Service) SettleRenewal(ctx context.Context, row *models.PlanPurchase, detail *gateway.PaymentDetail) (*Outcome, error) {
	if detail.Status == gateway.StatusPending {
		return &Outcome{Kind: KindPlan, PurchaseID: row.ID, UserID: row.UserID, Status: types.PaymentStatusPending, ProviderStatus: detail.ProviderStatus, Renewal: true, SubscriptionID: row.SubscriptionID}, nil
	}
	if detail.Status != gateway.StatusApproved {
		s.abandon(ctx, KindPlan, row.ID)
		return &Outcome{Kind: KindPlan, PurchaseID: row.ID, UserID: row.UserID, Status: types.PaymentStatusExpired, ProviderStatus: detail.ProviderStatus, Renewal: true, SubscriptionID: row.SubscriptionID}, nil
	}
	return s.approve(ctx, &ledgerRow{kind: KindPlan, plan: row}, detail)
}

// AbandonRenewal expires a renewal whose charge never reached the gateway.
func (s *Service) AbandonRenewal(ctx context.Context, id string) {
	s.abandon(ctx, KindPlan, id)
}

// LatestRenewal returns the newest renewal of subscriptionID opened at or after since, or nil.
func (s *Service) LatestRenewal(ctx context.Context, subscriptionID string, since time.Time) (*models.PlanPurchase, error) {
	var row models.PlanPurchase
	err := s.db.WithContext(ctx).
		Where("subscription_id = ? AND renewal = ? AND created_at >= ?", subscriptionID, true, since).
		Order("created_at desc").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load renewal: %w", err)
	}
	return &row, nil
}

// approveRenewalTx rolls the renewed subscription forward. When it is no longer active the
// paid plan is activated again instead, so the payment is never lost.
func (s *Service) approveRenewalTx(ctx context.Context, tx *gorm.DB, p *models.PlanPurchase, now time.Time) (*models.Subscription, *models.Notification, error) {
	sub, err := s.subs.RenewByIDTx(ctx, tx, lo.FromPtr(p.SubscriptionID), lo.FromPtr(p.PaymentID))
	if errors.Is(err, subscription.ErrNoActiveSubscription) {
		logctx.FromCtx(ctx, s.log).Warnw("renewal paid for inactive subscription, reactivating plan", "purchase_id", p.ID, "subscription_id", lo.FromPtr(p.SubscriptionID))
		sub, err = s.subs.ChangePlanTx(ctx, tx, p.UserID, p.PlanID, now)
		if err != nil {
			return nil, nil, err
		}
		note, err := s.notes.SystemTx(ctx, tx, p.UserID, titlePlanActivated,
			fmt.Sprintf("Seu pagamento foi aprovado e seu plano está ativo com %d relatórios disponíveis.", sub.ReportsAvailable))
		return sub, note, err
	}
	if err != nil {
		return nil, nil, err
	}
	note, err := s.notes.SystemTx(ctx, tx, p.UserID, titleRenewed,
		fmt.Sprintf("Sua assinatura foi renovada até %s com %d relatórios disponíveis.", sub.PeriodEnd.Format("02/01/2006"), sub.ReportsAvailable))
	return sub, note, err
}
