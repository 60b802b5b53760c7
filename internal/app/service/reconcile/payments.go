package reconcile

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/pkg/logctx"
	"github.com/ptamhub/billing/pkg/tool"
	types "github.com/ptamhub/billing/pkg/types"
)

const (
	titlePaymentExpired = "Pagamento expirado"
	titleCreditsExpired = "Créditos expirados"
)

func (s *Service) pendingTTL() time.Duration {
	if s.cfg.Billing.PendingPaymentTTL > 0 {
		return s.cfg.Billing.PendingPaymentTTL
	}
	return 72 * time.Hour
}

// ExpirePendingPayments expires credit and plan purchases left pending longer than the
// pending TTL, with one notification per expired row.
func (s *Service) ExpirePendingPayments(ctx context.Context) (*Report, error) {
	return s.locked(ctx, JobExpirePendingPayments, func(ctx context.Context, r *Report) error {
		cutoff := s.now().Add(-s.pendingTTL())

		var credits []*models.AdditionalReportsPurchase
		if err := s.db.WithContext(ctx).
			Where("payment_status = ? AND created_at < ?", types.PaymentStatusPending, cutoff).
			Order("created_at asc").Find(&credits).Error; err != nil {
			return fmt.Errorf("failed to list pending purchases: %w", err)
		}
		for _, p := range credits {
			msg := fmt.Sprintf("Seu pedido de %d relatório(s) adicional(is) no valor de %s expirou sem confirmação de pagamento.",
				p.Quantity, tool.FormatBRL(p.TotalPrice))
			s.expireRow(ctx, r, p.UserID, p.ID, titlePaymentExpired, msg, func(tx *gorm.DB) *gorm.DB {
				return tx.Model(&models.AdditionalReportsPurchase{}).
					Where("id = ? AND payment_status = ?", p.ID, types.PaymentStatusPending).
					Updates(map[string]any{"payment_status": types.PaymentStatusExpired, "status": types.PaymentStatusExpired})
			})
		}

		var plans []*models.PlanPurchase
		if err := s.db.WithContext(ctx).
			Where("payment_status = ? AND created_at < ?", types.PaymentStatusPending, cutoff).
			Order("created_at asc").Find(&plans).Error; err != nil {
			return fmt.Errorf("failed to list pending plan purchases: %w", err)
		}
		for _, p := range plans {
			msg := fmt.Sprintf("Seu pagamento de assinatura no valor de %s expirou sem confirmação.", tool.FormatBRL(p.Amount))
			s.expireRow(ctx, r, p.UserID, p.ID, titlePaymentExpired, msg, func(tx *gorm.DB) *gorm.DB {
				return tx.Model(&models.PlanPurchase{}).
					Where("id = ? AND payment_status = ?", p.ID, types.PaymentStatusPending).
					Update("payment_status", types.PaymentStatusExpired)
			})
		}
		return nil
	})
}

// ExpireCredits closes approved credit purchases past expires_at. Reports already credited
// stay on the subscription until the next renewal resets its quota.
func (s *Service) ExpireCredits(ctx context.Context) (*Report, error) {
	return s.locked(ctx, JobExpireCredits, func(ctx context.Context, r *Report) error {
		now := s.now()
		var rows []*models.AdditionalReportsPurchase
		if err := s.db.WithContext(ctx).
			Where("payment_status = ? AND expires_at IS NOT NULL AND expires_at < ?", types.PaymentStatusApproved, now).
			Order("expires_at asc").Find(&rows).Error; err != nil {
			return fmt.Errorf("failed to list expiring credits: %w", err)
		}
		for _, p := range rows {
			msg := fmt.Sprintf("A validade da compra de %d relatório(s) adicional(is) feita em %s terminou. Os créditos já adicionados à sua assinatura continuam disponíveis até a próxima renovação do plano.", p.Quantity, p.CreatedAt.Format("02/01/2006"))
			s.expireRow(ctx, r, p.UserID, p.ID, titleCreditsExpired, msg, func(tx *gorm.DB) *gorm.DB {
				return tx.Model(&models.AdditionalReportsPurchase{}).
					Where("id = ? AND payment_status = ?", p.ID, types.PaymentStatusApproved).
					Updates(map[string]any{"payment_status": types.PaymentStatusExpired, "status": types.PaymentStatusExpired})
			})
		}
		return nil
	})
}

// expireRow applies cas and, when it wins, notifies the owner in the same transaction.
func (s *Service) expireRow(ctx context.Context, r *Report, userID, id, title, msg string, cas func(tx *gorm.DB) *gorm.DB) {
	var note *models.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := cas(tx)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		var err error
		note, err = s.notes.SystemTx(ctx, tx, userID, title, msg)
		return err
	})
	if err != nil {
		r.Failed++
		logctx.FromCtx(ctx, s.log).Errorw("failed to expire row", "id", id, "error", err)
		return
	}
	if note != nil {
		r.add(id)
		s.notes.Deliver(ctx, note)
	}
}
