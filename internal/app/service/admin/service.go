package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ptamhub/billing/internal/app/service/subscription"
	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/pkg/logctx"
	"github.com/ptamhub/billing/pkg/tool"
)

var (
	ErrSelfDelete       = errors.New("admins cannot delete their own account")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrInvalidBlockEnd  = errors.New("block end must be in the future")
	ErrFilterNotAllowed = errors.New("filter field not allowed")
)

// Actions recorded in admin_logs.
const (
	ActionDeleteUser    = "delete_user"
	ActionBlockUser     = "block_user"
	ActionUnblockUser   = "unblock_user"
	ActionAdjustReports = "adjust_reports"
	ActionAddReports    = "add_reports"
	ActionChangePlan    = "change_plan"
	ActionGrantPlan     = "grant_plan"
)

type Service struct {
	db   *gorm.DB
	log  *zap.SugaredLogger
	subs *subscription.Service
	now  func() time.Time
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, subs *subscription.Service) *Service {
	return &Service{db: db, log: log, subs: subs, now: time.Now}
}

// Record appends an entry to admin_logs. A nil tx uses the service connection.
func (s *Service) Record(ctx context.Context, tx *gorm.DB, adminID, action string, targetUserID *string, details datatypes.JSONMap) error {
	if tx == nil {
		tx = s.db.WithContext(ctx)
	}
	if details == nil {
		details = datatypes.JSONMap{}
	}
	entry := &models.AdminLog{
		ID:           tool.GenerateUUIDV7(),
		AdminID:      adminID,
		Action:       action,
		TargetUserID: targetUserID,
		Details:      details,
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to write admin log: %w", err)
	}
	return nil
}

// recordAfter logs an action whose effect is already committed; failures are only logged.
func (s *Service) recordAfter(ctx context.Context, adminID, action string, targetUserID string, details datatypes.JSONMap) {
	if err := s.Record(ctx, nil, adminID, action, &targetUserID, details); err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("admin log lost", "admin_id", adminID, "action", action, "target_user_id", targetUserID, "error", err)
	}
}

// DeleteResult counts the rows removed per table.
type DeleteResult struct {
	UserID  string           `json:"user_id"`
	Removed map[string]int64 `json:"removed"`
}

// cascade lists the user-owned tables in deletion order. The webhook audit trail is kept.
var cascade = []struct {
	table string
	model any
}{
	{"subscription_log", &models.SubscriptionLog{}},
	{"notifications", &models.Notification{}},
	{"additional_reports_purchases", &models.AdditionalReportsPurchase{}},
	{"subscription_payments", &models.PlanPurchase{}},
	{"subscriptions", &models.Subscription{}},
}

// DeleteUser removes a profile and everything it owns in one transaction.
func (s *Service) DeleteUser(ctx context.Context, adminID, userID string) (*DeleteResult, error) {
	if userID == "" {
		return nil, ErrProfileNotFound
	}
	if adminID == userID {
		return nil, ErrSelfDelete
	}
	res := &DeleteResult{UserID: userID, Removed: make(map[string]int64, len(cascade)+1)}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile models.Profile
		if err := tx.Where("id = ?", userID).First(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProfileNotFound
			}
			return fmt.Errorf("failed to load profile: %w", err)
		}
		for _, c := range cascade {
			r := tx.Where("user_id = ?", userID).Delete(c.model)
			if r.Error != nil {
				return fmt.Errorf("failed to delete %s: %w", c.table, r.Error)
			}
			res.Removed[c.table] = r.RowsAffected
		}
		r := tx.Where("id = ?", userID).Delete(&models.Profile{})
		if r.Error != nil {
			return fmt.Errorf("failed to delete profile: %w", r.Error)
		}
		res.Removed["profiles"] = r.RowsAffected

		details := datatypes.JSONMap{"email": profile.Email, "name": profile.Name}
		for table, n := range res.Removed {
			details[table] = n
		}
		return s.Record(ctx, tx, adminID, ActionDeleteUser, &userID, details)
	})
	if err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("user deleted", "admin_id", adminID, "user_id", userID, "removed", res.Removed)
	return res, nil
}

// BlockUser refuses purchases and report consumption for userID until the given time.
func (s *Service) BlockUser(ctx context.Context, adminID, userID string, until time.Time) (*models.Profile, error) {
	if !until.After(s.now()) {
		return nil, ErrInvalidBlockEnd
	}
	until = until.UTC()
	return s.setBlocked(ctx, adminID, userID, &until, ActionBlockUser)
}

func (s *Service) UnblockUser(ctx context.Context, adminID, userID string) (*models.Profile, error) {
	return s.setBlocked(ctx, adminID, userID, nil, ActionUnblockUser)
}

func (s *Service) setBlocked(ctx context.Context, adminID, userID string, until *time.Time, action string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", userID).First(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProfileNotFound
			}
			return fmt.Errorf("failed to load profile: %w", err)
		}
		if err := tx.Model(&models.Profile{}).Where("id = ?", userID).Update("blocked_until", until).Error; err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		profile.BlockedUntil = until
		details := datatypes.JSONMap{}
		if until != nil {
			details["blocked_until"] = until.Format(time.RFC3339)
		}
		return s.Record(ctx, tx, adminID, action, &userID, details)
	})
	if err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("user block updated", "admin_id", adminID, "user_id", userID, "action", action)
	return &profile, nil
}

// AdjustReports overwrites the counters of a subscription on behalf of an admin.
func (s *Service) AdjustReports(ctx context.Context, adminID, subscriptionID string, available, used int) (*models.Subscription, error) {
	sub, err := s.subs.AdjustReports(ctx, adminID, subscriptionID, available, used)
	if err != nil {
		return nil, err
	}
	s.recordAfter(ctx, adminID, ActionAdjustReports, sub.UserID, datatypes.JSONMap{
		"subscription_id":   sub.ID,
		"reports_available": available,
		"reports_used":      used,
	})
	return sub, nil
}

func (s *Service) AddReports(ctx context.Context, adminID, subscriptionID string, delta int) (*models.Subscription, error) {
	sub, err := s.subs.AddReports(ctx, adminID, subscriptionID, delta)
	if err != nil {
		return nil, err
	}
	s.recordAfter(ctx, adminID, ActionAddReports, sub.UserID, datatypes.JSONMap{
		"subscription_id": sub.ID,
		"delta":           delta,
	})
	return sub, nil
}

// ChangePlan moves a user to planID without a payment.
func (s *Service) ChangePlan(ctx context.Context, adminID, userID, planID string) (*models.Subscription, error) {
	sub, err := s.subs.ChangePlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	s.recordAfter(ctx, adminID, ActionChangePlan, userID, datatypes.JSONMap{
		"subscription_id": sub.ID,
		"plan_id":         planID,
	})
	return sub, nil
}

// CreateSubscription grants a subscription without a payment.
func (s *Service) CreateSubscription(ctx context.Context, adminID string, req *subscription.CreateRequest) (*models.Subscription, error) {
	sub, err := s.subs.CreateSubscription(ctx, req)
	if err != nil {
		return nil, err
	}
	s.recordAfter(ctx, adminID, ActionGrantPlan, sub.UserID, datatypes.JSONMap{
		"subscription_id": sub.ID,
		"plan_id":         sub.PlanID,
		"status":          string(sub.Status),
	})
	return sub, nil
}
