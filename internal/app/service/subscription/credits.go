package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/pkg/logctx"
	types "github.com/ptamhub/billing/pkg/types"
)

// AvailableCredits is the displayed credit count: unused plan quota plus the unexpired
// carried balance, each clamped at zero. Only a live active subscription shows credits,
// matching what ConsumeReport accepts.
func AvailableCredits(sub *models.Subscription, now time.Time) int {
	if !usable(sub, now) {
		return 0
	}
	return max(0, sub.ReportsAvailable-sub.ReportsUsed) + sub.CarriedAt(now)
}

func usable(sub *models.Subscription, now time.Time) bool {
	return sub != nil && sub.Status == types.SubscriptionStatusActive && !sub.ExpiredAt(now)
}

type Balance struct {
	Subscription *models.Subscription `json:"subscription"`
	Available    int                  `json:"available"`
	Carried      int                  `json:"carried"`
}

// Balance returns the user's current subscription with its displayed credits.
func (s *Service) Balance(ctx context.Context, userID string) (*Balance, error) {
	sub, err := s.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	b := &Balance{Subscription: sub, Available: AvailableCredits(sub, now)}
	if usable(sub, now) {
		b.Carried = sub.CarriedAt(now)
	}
	return b, nil
}

// ConsumeReport spends one report, plan quota first and carried balance second.
func (s *Service) ConsumeReport(ctx context.Context, userID string) (*models.Subscription, error) {
	now := s.now()
	var after models.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile models.Profile
		if err := tx.Where("id = ?", userID).First(&profile).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load profile: %w", err)
		}
		if profile.BlockedAt(now) {
			return ErrUserBlocked
		}

		sub, err := s.FindActiveTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if sub == nil || sub.ExpiredAt(now) {
			return ErrNoActiveSubscription
		}
		before := *sub

		res := tx.Model(&models.Subscription{}).
			Where("id = ? AND reports_used < reports_available", sub.ID).
			Update("reports_used", gorm.Expr("reports_used + 1"))
		if res.Error != nil {
			return fmt.Errorf("failed to consume plan quota: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			res = tx.Model(&models.Subscription{}).
				Where("id = ? AND carried_balance > 0 AND (carried_balance_expires_at IS NULL OR carried_balance_expires_at > ?)", sub.ID, now).
				Update("carried_balance", gorm.Expr("carried_balance - 1"))
			if res.Error != nil {
				return fmt.Errorf("failed to consume carried balance: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrNoCreditsLeft
			}
		}
		if err := tx.Where("id = ?", sub.ID).First(&after).Error; err != nil {
			return err
		}
		return writeLog(ctx, tx, &before, &after, types.SubscriptionChangeReasonConsume, nil)
	})
	if err != nil {
		return nil, err
	}
	return &after, nil
}

// CreditTx adds quantity reports to the user's active subscription and returns it.
// A nil subscription means the user has none active; the caller keeps the credit pending.
func (s *Service) CreditTx(ctx context.Context, tx *gorm.DB, userID string, quantity int, extra datatypes.JSONMap) (*models.Subscription, error) {
	if quantity <= 0 {
		return nil, ErrNegativeReports
	}
	sub, err := s.FindActiveTx(ctx, tx, userID)
	if err != nil || sub == nil {
		return nil, err
	}
	before := *sub
	if err := tx.WithContext(ctx).Model(&models.Subscription{}).Where("id = ?", sub.ID).
		Update("reports_available", gorm.Expr("reports_available + ?", quantity)).Error; err != nil {
		return nil, fmt.Errorf("failed to credit subscription: %w", err)
	}
	sub.ReportsAvailable += quantity
	if err := writeLog(ctx, tx, &before, sub, types.SubscriptionChangeReasonCredit, extra); err != nil {
		return nil, err
	}
	return sub, nil
}

// applyStrandedCreditsTx credits approved, unexpired purchases that were paid while the
// user had no active subscription.
func (s *Service) applyStrandedCreditsTx(ctx context.Context, tx *gorm.DB, sub *models.Subscription, now time.Time) error {
	var stranded []*models.AdditionalReportsPurchase
	if err := tx.WithContext(ctx).
		Where("user_id = ? AND payment_status = ? AND credited_subscription_id IS NULL AND (expires_at IS NULL OR expires_at > ?)",
			sub.UserID, types.PaymentStatusApproved, now).
		Find(&stranded).Error; err != nil {
		return fmt.Errorf("failed to load uncredited purchases: %w", err)
	}
	if len(stranded) == 0 {
		return nil
	}
	total := lo.SumBy(stranded, func(p *models.AdditionalReportsPurchase) int { return p.Quantity })
	ids := lo.Map(stranded, func(p *models.AdditionalReportsPurchase, _ int) string { return p.ID })

	res := tx.WithContext(ctx).Model(&models.AdditionalReportsPurchase{}).
		Where("id IN ? AND credited_subscription_id IS NULL", ids).
		Update("credited_subscription_id", sub.ID)
	if res.Error != nil {
		return fmt.Errorf("failed to mark purchases credited: %w", res.Error)
	}
	if int(res.RowsAffected) != len(ids) {
		return fmt.Errorf("uncredited purchases changed concurrently for user %s", sub.UserID)
	}
	before := *sub
	if err := tx.WithContext(ctx).Model(&models.Subscription{}).Where("id = ?", sub.ID).
		Update("reports_available", gorm.Expr("reports_available + ?", total)).Error; err != nil {
		return fmt.Errorf("failed to credit subscription: %w", err)
	}
	sub.ReportsAvailable += total
	logctx.FromCtx(ctx, s.log).Infow("applied uncredited purchases", "user_id", sub.UserID, "subscription_id", sub.ID, "reports", total)
	return writeLog(ctx, tx, &before, sub, types.SubscriptionChangeReasonCredit, datatypes.JSONMap{"purchase_ids": ids})
}

// RenewTx resets the quota from plan and rolls the period forward one month from its end.
func (s *Service) RenewTx(ctx context.Context, tx *gorm.DB, sub *models.Subscription, plan *models.Plan, paymentID string) (*models.Subscription, error) {
	before := *sub
	start := lo.FromPtrOr(sub.PeriodEnd, sub.PeriodStart)
	end := start.AddDate(0, 1, 0)
	res := tx.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND status = ?", sub.ID, types.SubscriptionStatusActive).
		Updates(map[string]any{
			"reports_used":      0,
			"reports_available": plan.IncludedReports,
			"period_start":      start,
			"period_end":        end,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to renew subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNoActiveSubscription
	}
	after := before
	after.ReportsUsed = 0
	after.ReportsAvailable = plan.IncludedReports
	after.PeriodStart = start
	after.PeriodEnd = &end
	if err := writeLog(ctx, tx, &before, &after, types.SubscriptionChangeReasonRenew, datatypes.JSONMap{"payment_id": paymentID}); err != nil {
		return nil, err
	}
	return &after, nil
}

// RenewByIDTx renews subscriptionID for one more period of its plan. A subscription that is
// no longer active yields ErrNoActiveSubscription.
func (s *Service) RenewByIDTx(ctx context.Context, tx *gorm.DB, subscriptionID, paymentID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := tx.WithContext(ctx).Where("id = ?", subscriptionID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if sub.Status != types.SubscriptionStatusActive {
		return nil, ErrNoActiveSubscription
	}
	plan, err := loadPlan(ctx, tx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	return s.RenewTx(ctx, tx, &sub, plan, paymentID)
}

// ExpireTx moves an active subscription to expired. It reports false when another run got there first.
func (s *Service) ExpireTx(ctx context.Context, tx *gorm.DB, sub *models.Subscription, cause string) (bool, error) {
	res := tx.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND status = ?", sub.ID, types.SubscriptionStatusActive).
		Update("status", types.SubscriptionStatusExpired)
	if res.Error != nil {
		return false, fmt.Errorf("failed to expire subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	after := *sub
	after.Status = types.SubscriptionStatusExpired
	return true, writeLog(ctx, tx, sub, &after, types.SubscriptionChangeReasonExpire, datatypes.JSONMap{"cause": cause})
}
