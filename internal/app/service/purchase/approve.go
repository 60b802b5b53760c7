package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/internal/platform/gateway"
	"github.com/ptamhub/billing/pkg/logctx"
	types "github.com/ptamhub/billing/pkg/types"
)

const (
	titlePaymentApproved = "Pagamento aprovado"
	titlePlanActivated   = "Assinatura ativada"
)

// ApproveByPaymentID approves the purchase charged under the gateway payment id.
func (s *Service) ApproveByPaymentID(ctx context.Context, paymentID string, detail *gateway.PaymentDetail) (*Outcome, error) {
	row, err := s.findByPaymentID(ctx, s.db, paymentID)
	if err != nil {
		return nil, err
	}
	return s.approve(ctx, row, detail)
}

// ApproveByReference approves the purchase whose id was sent to the gateway as external reference.
func (s *Service) ApproveByReference(ctx context.Context, purchaseID string, detail *gateway.PaymentDetail) (*Outcome, error) {
	row, err := s.findByID(ctx, s.db, "", purchaseID)
	if err != nil {
		return nil, err
	}
	return s.approve(ctx, row, detail)
}

// approve moves a pending row to approved and applies its effect exactly once.
// A row already approved is a successful no-op.
func (s *Service) approve(ctx context.Context, row *ledgerRow, detail *gateway.PaymentDetail) (*Outcome, error) {
	if detail != nil && detail.Status != gateway.StatusApproved {
		out := row.outcome()
		out.ProviderStatus = detail.ProviderStatus
		return out, nil
	}
	now := s.now()
	var (
		out  *Outcome
		note *models.Notification
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if row.kind == KindCredits {
			out, note, err = s.approveCreditTx(ctx, tx, row.id(), now)
		} else {
			out, note, err = s.approvePlanTx(ctx, tx, row.id(), detail, now)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if detail != nil {
		out.ProviderStatus = detail.ProviderStatus
	}
	log := logctx.FromCtx(ctx, s.log)
	if out.AlreadyApproved {
		log.Infow("purchase already approved", "kind", out.Kind, "purchase_id", out.PurchaseID)
		return out, nil
	}
	s.notes.Deliver(ctx, note)
	kind := string(out.Kind)
	if out.Renewal {
		kind = "renewal"
	}
	s.metrics.PaymentApproved(kind, row.gatewayName())
	log.Infow("purchase approved", "kind", out.Kind, "purchase_id", out.PurchaseID, "user_id", out.UserID, "subscription_id", lo.FromPtr(out.SubscriptionID))
	return out, nil
}

// settled reports the outcome for a row the CAS did not match.
func settled(kind Kind, id, userID string, status types.PaymentStatus) (*Outcome, error) {
	if status == types.PaymentStatusApproved {
		return &Outcome{Kind: kind, PurchaseID: id, UserID: userID, Status: status, AlreadyApproved: true}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPurchaseExpired, id)
}

func (s *Service) approveCreditTx(ctx context.Context, tx *gorm.DB, id string, now time.Time) (*Outcome, *models.Notification, error) {
	res := tx.WithContext(ctx).Model(&models.AdditionalReportsPurchase{}).
		Where("id = ? AND payment_status = ?", id, types.PaymentStatusPending).
		Updates(map[string]any{
			"payment_status": types.PaymentStatusApproved,
			"status":         types.PaymentStatusApproved,
			"approved_at":    now,
			"expires_at":     now.Add(s.cfg.Billing.CreditValidity),
		})
	if res.Error != nil {
		return nil, nil, fmt.Errorf("failed to approve purchase: %w", res.Error)
	}
	var p models.AdditionalReportsPurchase
	if err := tx.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, nil, err
	}
	if res.RowsAffected == 0 {
		out, err := settled(KindCredits, p.ID, p.UserID, p.PaymentStatus)
		if out != nil {
			out.Quantity = p.Quantity
			out.SubscriptionID = p.CreditedSubscriptionID
		}
		return out, nil, err
	}

	sub, err := s.subs.CreditTx(ctx, tx, p.UserID, p.Quantity, datatypes.JSONMap{"purchase_id": p.ID, "payment_id": lo.FromPtr(p.PaymentID)})
	if err != nil {
		return nil, nil, err
	}
	msg := fmt.Sprintf("Seu pagamento de %d relatório(s) adicional(is) foi aprovado e os créditos já estão disponíveis.", p.Quantity)
	if sub != nil {
		if err := tx.WithContext(ctx).Model(&p).Update("credited_subscription_id", sub.ID).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to mark purchase credited: %w", err)
		}
		p.CreditedSubscriptionID = lo.ToPtr(sub.ID)
	} else {
		msg = fmt.Sprintf("Seu pagamento de %d relatório(s) adicional(is) foi aprovado. Os créditos serão adicionados quando você ativar um plano.", p.Quantity)
	}
	note, err := s.notes.SystemTx(ctx, tx, p.UserID, titlePaymentApproved, msg)
	if err != nil {
		return nil, nil, err
	}
	return &Outcome{
		Kind:           KindCredits,
		PurchaseID:     p.ID,
		UserID:         p.UserID,
		Status:         types.PaymentStatusApproved,
		Quantity:       p.Quantity,
		SubscriptionID: p.CreditedSubscriptionID,
	}, note, nil
}

func (s *Service) approvePlanTx(ctx context.Context, tx *gorm.DB, id string, detail *gateway.PaymentDetail, now time.Time) (*Outcome, *models.Notification, error) {
	res := tx.WithContext(ctx).Model(&models.PlanPurchase{}).
		Where("id = ? AND payment_status = ?", id, types.PaymentStatusPending).
		Updates(map[string]any{"payment_status": types.PaymentStatusApproved, "approved_at": now})
	if res.Error != nil {
		return nil, nil, fmt.Errorf("failed to approve plan purchase: %w", res.Error)
	}
	var p models.PlanPurchase
	if err := tx.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, nil, err
	}
	if res.RowsAffected == 0 {
		out, err := settled(KindPlan, p.ID, p.UserID, p.PaymentStatus)
		if out != nil {
			out.SubscriptionID = p.SubscriptionID
			out.Renewal = p.Renewal
		}
		return out, nil, err
	}

	if p.Renewal {
		sub, note, err := s.approveRenewalTx(ctx, tx, &p, now)
		if err != nil {
			return nil, nil, err
		}
		if err := tx.WithContext(ctx).Model(&p).Update("subscription_id", sub.ID).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to link subscription: %w", err)
		}
		return &Outcome{
			Kind:           KindPlan,
			PurchaseID:     p.ID,
			UserID:         p.UserID,
			Status:         types.PaymentStatusApproved,
			Renewal:        true,
			SubscriptionID: lo.ToPtr(sub.ID),
		}, note, nil
	}

	sub, err := s.subs.ChangePlanTx(ctx, tx, p.UserID, p.PlanID, now)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.WithContext(ctx).Model(&p).Update("subscription_id", sub.ID).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to link subscription: %w", err)
	}
	if detail != nil {
		if err := s.subs.SavePaymentMethodTx(ctx, tx, sub, p.Gateway, detail.CustomerID, detail.SavedMethod); err != nil {
			return nil, nil, err
		}
	}
	note, err := s.notes.SystemTx(ctx, tx, p.UserID, titlePlanActivated,
		fmt.Sprintf("Seu pagamento foi aprovado e seu plano está ativo com %d relatórios disponíveis.", sub.ReportsAvailable))
	if err != nil {
		return nil, nil, err
	}
	return &Outcome{
		Kind:           KindPlan,
		PurchaseID:     p.ID,
		UserID:         p.UserID,
		Status:         types.PaymentStatusApproved,
		SubscriptionID: lo.ToPtr(sub.ID),
	}, note, nil
}
