package models

import (
	"time"

	"github.com/ptamhub/billing/pkg/types"
)

// Subscription is the report quota ledger of a user.
// At most one row per user may be active; the partial unique index enforces it.
type Subscription struct {
	ID     string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string                   `gorm:"column:user_id;type:uuid;not null;index;uniqueIndex:idx_subscriptions_one_active,where:status = 'active'" json:"user_id"`
	PlanID string                   `gorm:"column:plan_id;type:uuid;not null;index" json:"plan_id"`
	Status types.SubscriptionStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`

	ReportsUsed      int `gorm:"column:reports_used;not null;default:0" json:"reports_used"`
	ReportsAvailable int `gorm:"column:reports_available;not null;default:0" json:"reports_available"`

	PeriodStart time.Time `gorm:"column:period_start;not null" json:"period_start"`
	// PeriodEnd is nil for avulso plans, which never expire.
	PeriodEnd *time.Time `gorm:"column:period_end;default:null;index" json:"period_end"`

	// CarriedBalance is unused quota from the previous plan, valid until CarriedBalanceExpiresAt.
	CarriedBalance          int        `gorm:"column:carried_balance;not null;default:0" json:"carried_balance"`
	CarriedBalanceExpiresAt *time.Time `gorm:"column:carried_balance_expires_at;default:null" json:"carried_balance_expires_at"`
	PreviousPlanID          *string    `gorm:"column:previous_plan_id;type:uuid;default:null" json:"previous_plan_id"`

	AutoRenew bool `gorm:"column:auto_renew;not null" json:"auto_renew"`
	// PaymentMethod is the gateway token of a saved card, empty when none.
	PaymentMethod     string `gorm:"column:payment_method;type:varchar(255)" json:"payment_method"`
	GatewayCustomerID string `gorm:"column:gateway_customer_id;type:varchar(128)" json:"gateway_customer_id"`
	// PaymentGateway is the gateway holding PaymentMethod.
	PaymentGateway string `gorm:"column:payment_gateway;type:varchar(32)" json:"payment_gateway"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// ExpiredAt reports whether the period has ended. Subscriptions without a period end never expire.
func (s *Subscription) ExpiredAt(now time.Time) bool {
	if s == nil {
		return true
	}
	if s.Status == types.SubscriptionStatusExpired || s.Status == types.SubscriptionStatusCancelled {
		return true
	}
	return s.PeriodEnd != nil && !s.PeriodEnd.After(now)
}

// CarriedAt returns the carried balance still usable at now.
func (s *Subscription) CarriedAt(now time.Time) int {
	if s == nil || s.CarriedBalance <= 0 {
		return 0
	}
	if s.CarriedBalanceExpiresAt != nil && !s.CarriedBalanceExpiresAt.After(now) {
		return 0
	}
	return s.CarriedBalance
}
