package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/pkg/logctx"
	"github.com/ptamhub/billing/pkg/tool"
	types "github.com/ptamhub/billing/pkg/types"
)

type CreateRequest struct {
	UserID      string                   `json:"user_id" binding:"required"`
	PlanID      string                   `json:"plan_id" binding:"required"`
	Status      types.SubscriptionStatus `json:"status"`
	PeriodStart *time.Time               `json:"period_start"`
	// PeriodEnd defaults to one month after PeriodStart, or nil for avulso plans.
	PeriodEnd *time.Time `json:"period_end"`
}

// CreateSubscription inserts a subscription seeded from the plan quota.
func (s *Service) CreateSubscription(ctx context.Context, req *CreateRequest) (*models.Subscription, error) {
	var sub *models.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = s.CreateSubscriptionTx(ctx, tx, req, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("subscription created", "user_id", sub.UserID, "subscription_id", sub.ID, "plan_id", sub.PlanID, "status", sub.Status)
	return sub, nil
}

func (s *Service) CreateSubscriptionTx(ctx context.Context, tx *gorm.DB, req *CreateRequest, now time.Time) (*models.Subscription, error) {
	if req == nil || req.UserID == "" || req.PlanID == "" {
		return nil, fmt.Errorf("invalid params: user_id and plan_id required")
	}
	status := req.Status
	if status == "" {
		status = types.SubscriptionStatusActive
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	active, err := s.FindActiveTx(ctx, tx, req.UserID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrActiveSubscriptionExists
	}

	plan, err := loadPlan(ctx, tx, req.PlanID)
	if err != nil {
		return nil, err
	}

	start := lo.FromPtrOr(req.PeriodStart, now)
	sub := &models.Subscription{
		ID:               tool.GenerateUUIDV7(),
		UserID:           req.UserID,
		PlanID:           plan.ID,
		Status:           status,
		ReportsUsed:      0,
		ReportsAvailable: plan.IncludedReports,
		PeriodStart:      start,
		PeriodEnd:        req.PeriodEnd,
		AutoRenew:        true,
	}
	if sub.PeriodEnd == nil && plan.Type.Expires() {
		sub.PeriodEnd = lo.ToPtr(start.Add(periodMonth))
	}
	if err := insertSubscription(ctx, tx, sub); err != nil {
		return nil, err
	}
	if err := writeLog(ctx, tx, nil, sub, types.SubscriptionChangeReasonCreate, nil); err != nil {
		return nil, err
	}
	if status == types.SubscriptionStatusActive {
		if err := s.applyStrandedCreditsTx(ctx, tx, sub, now); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// ChangePlan moves the user to newPlanID. Unused quota of the current plan becomes the
// carried balance of the new subscription row.
func (s *Service) ChangePlan(ctx context.Context, userID, newPlanID string) (*models.Subscription, error) {
	plan, err := loadPlan(ctx, s.db, newPlanID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, ErrPlanInactive
	}
	var sub *models.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = s.ChangePlanTx(ctx, tx, userID, newPlanID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("plan changed", "user_id", userID, "subscription_id", sub.ID, "plan_id", newPlanID, "carried_balance", sub.CarriedBalance)
	return sub, nil
}

// ChangePlanTx does not check plan.Active; a paid checkout must still be honoured.
func (s *Service) ChangePlanTx(ctx context.Context, tx *gorm.DB, userID, newPlanID string, now time.Time) (*models.Subscription, error) {
	plan, err := loadPlan(ctx, tx, newPlanID)
	if err != nil {
		return nil, err
	}
	current, err := s.FindActiveTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return s.CreateSubscriptionTx(ctx, tx, &CreateRequest{UserID: userID, PlanID: plan.ID, Status: types.SubscriptionStatusActive}, now)
	}

	before := *current
	res := tx.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND status = ?", current.ID, types.SubscriptionStatusActive).
		Update("status", types.SubscriptionStatusCancelled)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to close current subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: subscription %s changed concurrently", ErrNoActiveSubscription, current.ID)
	}
	current.Status = types.SubscriptionStatusCancelled
	if err := writeLog(ctx, tx, &before, current, types.SubscriptionChangeReasonChangePlan, datatypes.JSONMap{"new_plan_id": plan.ID}); err != nil {
		return nil, err
	}

	next := &models.Subscription{
		ID:                      tool.GenerateUUIDV7(),
		UserID:                  userID,
		PlanID:                  plan.ID,
		Status:                  types.SubscriptionStatusActive,
		ReportsUsed:             0,
		ReportsAvailable:        plan.IncludedReports,
		PeriodStart:             now,
		CarriedBalance:          max(0, before.ReportsAvailable-before.ReportsUsed),
		CarriedBalanceExpiresAt: lo.ToPtr(now.Add(s.carriedValidity())),
		PreviousPlanID:          lo.ToPtr(before.PlanID),
		AutoRenew:               true,
		PaymentMethod:           before.PaymentMethod,
		GatewayCustomerID:       before.GatewayCustomerID,
		PaymentGateway:          before.PaymentGateway,
	}
	if plan.Type.Expires() {
		next.PeriodEnd = lo.ToPtr(now.Add(periodMonth))
	}
	if err := insertSubscription(ctx, tx, next); err != nil {
		return nil, err
	}
	if err := writeLog(ctx, tx, nil, next, types.SubscriptionChangeReasonChangePlan, datatypes.JSONMap{"previous_subscription_id": before.ID}); err != nil {
		return nil, err
	}
	return next, nil
}

// AdjustReports overwrites both quota counters.
func (s *Service) AdjustReports(ctx context.Context, operatorID, subscriptionID string, newAvailable, newUsed int) (*models.Subscription, error) {
	if newAvailable < 0 || newUsed < 0 {
		return nil, ErrNegativeReports
	}
	return s.mutate(ctx, subscriptionID, types.SubscriptionChangeReasonAdjust, operatorID, func(sub *models.Subscription) map[string]any {
		sub.ReportsAvailable = newAvailable
		sub.ReportsUsed = newUsed
		return map[string]any{"reports_available": newAvailable, "reports_used": newUsed}
	})
}

// AddReports grants delta extra reports on top of the current quota.
func (s *Service) AddReports(ctx context.Context, operatorID, subscriptionID string, delta int) (*models.Subscription, error) {
	if delta < 0 {
		return nil, ErrNegativeReports
	}
	return s.mutate(ctx, subscriptionID, types.SubscriptionChangeReasonCredit, operatorID, func(sub *models.Subscription) map[string]any {
		sub.ReportsAvailable += delta
		return map[string]any{"reports_available": gorm.Expr("reports_available + ?", delta)}
	})
}

// SetAutoRenew toggles automatic renewal of the user's active subscription.
func (s *Service) SetAutoRenew(ctx context.Context, userID string, enabled bool) (*models.Subscription, error) {
	sub, err := s.FindActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoActiveSubscription
	}
	return s.mutate(ctx, sub.ID, types.SubscriptionChangeReasonAdjust, userID, func(sub *models.Subscription) map[string]any {
		sub.AutoRenew = enabled
		return map[string]any{"auto_renew": enabled}
	})
}

func (s *Service) mutate(ctx context.Context, subscriptionID string, reason types.SubscriptionChangeReason, operatorID string, apply func(*models.Subscription) map[string]any) (*models.Subscription, error) {
	var after models.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", subscriptionID).First(&after).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubscriptionNotFound
			}
			return fmt.Errorf("failed to load subscription: %w", err)
		}
		before := after
		updates := apply(&after)
		if err := tx.Model(&models.Subscription{}).Where("id = ?", subscriptionID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
		return writeLog(ctx, tx, &before, &after, reason, datatypes.JSONMap{"operator_id": operatorID})
	})
	if err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("subscription updated", "subscription_id", subscriptionID, "reason", reason, "operator_id", operatorID)
	return &after, nil
}

// Get loads a subscription by id.
func (s *Service) Get(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).Where("id = ?", subscriptionID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// FindActive returns the active subscription of the user, or nil when none exists.
func (s *Service) FindActive(ctx context.Context, userID string) (*models.Subscription, error) {
	return s.FindActiveTx(ctx, s.db, userID)
}

func (s *Service) FindActiveTx(ctx context.Context, tx *gorm.DB, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := tx.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, types.SubscriptionStatusActive).
		Order("created_at desc").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}
	return &sub, nil
}

// Latest returns the active subscription, falling back to the most recent one.
func (s *Service) Latest(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := s.FindActive(ctx, userID)
	if err != nil || sub != nil {
		return sub, err
	}
	var last models.Subscription
	err = s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &last, nil
}

// ListByUser returns the subscription history of a user, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func loadPlan(ctx context.Context, tx *gorm.DB, planID string) (*models.Plan, error) {
	var plan models.Plan
	if err := tx.WithContext(ctx).Where("id = ?", planID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
		}
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	return &plan, nil
}

// insertSubscription maps a violation of the one-active-per-user index to ErrActiveSubscriptionExists.
func insertSubscription(ctx context.Context, tx *gorm.DB, sub *models.Subscription) error {
	if err := tx.WithContext(ctx).Create(sub).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrActiveSubscriptionExists
		}
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func writeLog(ctx context.Context, tx *gorm.DB, before, after *models.Subscription, reason types.SubscriptionChangeReason, extra datatypes.JSONMap) error {
	ref := lo.Ternary(after != nil, after, before)
	if extra == nil {
		extra = datatypes.JSONMap{}
	}
	entry := &models.SubscriptionLog{
		ID:             tool.GenerateUUIDV7(),
		UserID:         ref.UserID,
		SubscriptionID: ref.ID,
		Reason:         reason,
		Before:         datatypes.NewJSONType(before),
		After:          datatypes.NewJSONType(after),
		Extra:          extra,
	}
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to save subscription log: %w", err)
	}
	return nil
}

// SavePaymentMethodTx stores the reusable card used by automatic renewals.
func (s *Service) SavePaymentMethodTx(ctx context.Context, tx *gorm.DB, sub *models.Subscription, gatewayName, customerID, method string) error {
	if method == "" {
		return nil
	}
	if err := tx.WithContext(ctx).Model(&models.Subscription{}).Where("id = ?", sub.ID).
		Updates(map[string]any{"payment_method": method, "gateway_customer_id": customerID, "payment_gateway": gatewayName}).Error; err != nil {
		return fmt.Errorf("failed to save payment method: %w", err)
	}
	sub.PaymentMethod = method
	sub.GatewayCustomerID = customerID
	sub.PaymentGateway = gatewayName
	return nil
}
