package subscription

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ptamhub/billing/pkg/config"
)

var (
	ErrActiveSubscriptionExists = errors.New("user already has an active subscription")
	ErrSubscriptionNotFound     = errors.New("subscription not found")
	ErrNoActiveSubscription     = errors.New("user has no active subscription")
	ErrPlanNotFound             = errors.New("plan not found")
	ErrPlanInactive             = errors.New("plan is not available")
	ErrInvalidStatus            = errors.New("invalid subscription status")
	ErrNegativeReports          = errors.New("report counters cannot be negative")
	ErrNoCreditsLeft            = errors.New("no reports available")
	ErrUserBlocked              = errors.New("user is blocked")
)

// Service owns the subscriptions ledger. Methods ending in Tx run inside a caller transaction.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
	log *zap.SugaredLogger
	now func() time.Time
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, db: db, log: log, now: time.Now}
}

// periodMonth is the length of a monthly billing period.
const periodMonth = 30 * 24 * time.Hour

func (s *Service) carriedValidity() time.Duration {
	if s.cfg != nil && s.cfg.Billing.CarriedBalanceValidity > 0 {
		return s.cfg.Billing.CarriedBalanceValidity
	}
	return 30 * 24 * time.Hour
}
