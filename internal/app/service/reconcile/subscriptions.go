package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/internal/platform/gateway"
	"github.com/ptamhub/billing/pkg/logctx"
	types "github.com/ptamhub/billing/pkg/types"
)

const titleExpired = "Assinatura expirada"

// warningDedupeWindow suppresses a second identical warning.
const warningDedupeWindow = 24 * time.Hour

func warningTitle(days int) string {
	return fmt.Sprintf("Sua assinatura expira em %d dias", days)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CheckSubscriptionExpiry warns users whose period ends exactly N calendar days from today,
// for each N in billing.expiry_warning_days.
func (s *Service) CheckSubscriptionExpiry(ctx context.Context) (*Report, error) {
	return s.locked(ctx, JobCheckSubscriptionExpiry, func(ctx context.Context, r *Report) error {
		now := s.now()
		today := startOfDay(now)
		for _, days := range s.cfg.Billing.ExpiryWarningDays {
			from := today.AddDate(0, 0, days)
			var subs []*models.Subscription
			if err := s.db.WithContext(ctx).
				Where("status = ? AND period_end >= ? AND period_end < ?", types.SubscriptionStatusActive, from, from.AddDate(0, 0, 1)).
				Find(&subs).Error; err != nil {
				return fmt.Errorf("failed to list expiring subscriptions: %w", err)
			}
			title := warningTitle(days)
			msg := fmt.Sprintf("Sua assinatura termina em %s. Mantenha a renovação automática ativa ou renove para continuar emitindo relatórios.", from.Format("02/01/2006"))
			for _, sub := range subs {
				var note *models.Notification
				err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
					sent, err := s.notes.SentSinceTx(ctx, tx, sub.UserID, title, now.Add(-warningDedupeWindow))
					if err != nil || sent {
						return err
					}
					note, err = s.notes.SystemTx(ctx, tx, sub.UserID, title, msg)
					return err
				})
				if err != nil {
					r.Failed++
					logctx.FromCtx(ctx, s.log).Errorw("failed to warn subscription expiry", "subscription_id", sub.ID, "error", err)
					continue
				}
				if note != nil {
					r.add(sub.ID)
					s.notes.Deliver(ctx, note)
				}
			}
		}
		return nil
	})
}

// RenewExpiredSubscriptions handles active subscriptions past period_end. Avulso plans are
// left alone. Subscriptions with auto_renew and a saved card are charged and rolled one
// month forward; the rest expire.
func (s *Service) RenewExpiredSubscriptions(ctx context.Context) (*Report, error) {
	return s.locked(ctx, JobRenewExpiredSubscriptions, func(ctx context.Context, r *Report) error {
		now := s.now()
		var subs []*models.Subscription
		if err := s.db.WithContext(ctx).
			Where("status = ? AND period_end IS NOT NULL AND period_end <= ?", types.SubscriptionStatusActive, now).
			Order("period_end asc").Find(&subs).Error; err != nil {
			return fmt.Errorf("failed to list expired subscriptions: %w", err)
		}
		planIDs := lo.Uniq(lo.Map(subs, func(s *models.Subscription, _ int) string { return s.PlanID }))
		var plans []*models.Plan
		if len(planIDs) > 0 {
			if err := s.db.WithContext(ctx).Where("id IN ?", planIDs).Find(&plans).Error; err != nil {
				return fmt.Errorf("failed to load plans: %w", err)
			}
		}
		byID := lo.KeyBy(plans, func(p *models.Plan) string { return p.ID })

		for _, sub := range subs {
			plan, ok := byID[sub.PlanID]
			if !ok {
				r.Failed++
				logctx.FromCtx(ctx, s.log).Errorw("subscription plan missing", "subscription_id", sub.ID, "plan_id", sub.PlanID)
				continue
			}
			if !plan.Type.Expires() {
				continue
			}
			renewed, err := s.renewOrExpire(ctx, sub, plan)
			if err != nil {
				r.Failed++
				logctx.FromCtx(ctx, s.log).Errorw("failed to process expired subscription", "subscription_id", sub.ID, "error", err)
				continue
			}
			switch renewed {
			case outcomeRenewed:
				r.Renewed++
				r.add(sub.ID)
			case outcomeExpired:
				r.Expired++
				r.add(sub.ID)
			case outcomeAwaiting:
				r.Awaiting++
			}
		}
		return nil
	})
}

type renewOutcome int

const (
	outcomeNone renewOutcome = iota
	outcomeRenewed
	outcomeExpired
	outcomeAwaiting
)

func (s *Service) renewOrExpire(ctx context.Context, sub *models.Subscription, plan *models.Plan) (renewOutcome, error) {
	log := logctx.FromCtx(ctx, s.log).With("subscription_id", sub.ID, "user_id", sub.UserID)
	if !sub.AutoRenew {
		return s.expire(ctx, sub, "auto_renew_disabled",
			"Sua assinatura expirou. Escolha um plano para continuar emitindo relatórios.")
	}

	// a renewal already charged for this period is settled by webhook or poll, never charged twice
	prev, err := s.purchases.LatestRenewal(ctx, sub.ID, lo.FromPtr(sub.PeriodEnd))
	if err != nil {
		return outcomeNone, err
	}
	if prev != nil {
		switch prev.PaymentStatus {
		case types.PaymentStatusPending:
			log.Infow("renewal awaiting confirmation", "purchase_id", prev.ID, "payment_id", lo.FromPtr(prev.PaymentID))
			return outcomeAwaiting, nil
		case types.PaymentStatusExpired:
			return s.expire(ctx, sub, "renewal_unpaid", msgRenewalFailed)
		default:
			return outcomeNone, nil
		}
	}
	if sub.PaymentMethod == "" || sub.PaymentGateway == "" {
		log.Warnw("automatic renewal failed", "error", gateway.ErrSavedMethodUnset)
		return s.expire(ctx, sub, "renewal_failed", msgRenewalFailed)
	}

	row, err := s.purchases.OpenRenewal(ctx, sub, plan, s.now())
	if err != nil {
		return outcomeNone, err
	}
	detail, err := s.chargeSaved(ctx, sub, plan, row.ID)
	if err != nil {
		log.Warnw("automatic renewal failed", "purchase_id", row.ID, "error", err)
		s.purchases.AbandonRenewal(ctx, row.ID)
		return s.expire(ctx, sub, "renewal_failed", msgRenewalFailed)
	}
	log = log.With("purchase_id", row.ID, "payment_id", detail.PaymentID)
	if err := s.purchases.RecordRenewalCharge(ctx, row.ID, detail.PaymentID); err != nil {
		// the row still carries the reference sent to the gateway
		log.Errorw("renewal payment id not stored", "error", err)
	}

	out, err := s.purchases.SettleRenewal(ctx, row, detail)
	if err != nil {
		// the row stays pending, so later sweeps wait for the webhook instead of charging again
		log.Errorw("renewal charged but not recorded", "error", err)
		return outcomeNone, err
	}
	switch out.Status {
	case types.PaymentStatusApproved:
		log.Infow("subscription renewed")
		return outcomeRenewed, nil
	case types.PaymentStatusPending:
		log.Infow("renewal charge pending at gateway", "provider_status", detail.ProviderStatus)
		return outcomeAwaiting, nil
	}
	log.Warnw("automatic renewal declined", "provider_status", detail.ProviderStatus)
	return s.expire(ctx, sub, "renewal_failed", msgRenewalFailed)
}

const msgRenewalFailed = "Não foi possível renovar sua assinatura automaticamente. Atualize sua forma de pagamento e escolha um plano para continuar."

func (s *Service) chargeSaved(ctx context.Context, sub *models.Subscription, plan *models.Plan, reference string) (*gateway.PaymentDetail, error) {
	g, err := s.gateways.ByName(sub.PaymentGateway)
	if err != nil {
		return nil, err
	}
	charger, ok := g.(gateway.SavedMethodCharger)
	if !ok {
		return nil, fmt.Errorf("%w: %s cannot charge saved cards", gateway.ErrSavedMethodUnset, sub.PaymentGateway)
	}
	start := time.Now()
	detail, err := charger.ChargeSaved(ctx, &gateway.SavedChargeRequest{
		Reference:     reference,
		Description:   fmt.Sprintf("Renovação PTAM - plano %s", plan.Name),
		Amount:        plan.Price,
		CustomerID:    sub.GatewayCustomerID,
		PaymentMethod: sub.PaymentMethod,
	})
	s.metrics.GatewayCall(sub.PaymentGateway, "charge_saved", start, err)
	return detail, err
}

func (s *Service) expire(ctx context.Context, sub *models.Subscription, cause, msg string) (renewOutcome, error) {
	var note *models.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.subs.ExpireTx(ctx, tx, sub, cause)
		if err != nil || !ok {
			return err
		}
		note, err = s.notes.SystemTx(ctx, tx, sub.UserID, titleExpired, msg)
		return err
	})
	if err != nil {
		return outcomeNone, err
	}
	if note == nil {
		return outcomeNone, nil
	}
	s.notes.Deliver(ctx, note)
	return outcomeExpired, nil
}
