package models

import (
	"time"

	"github.com/ptamhub/billing/pkg/types"
)

// PlanPurchase is a pending plan checkout. Once approved the plan is
// activated, or swapped in through a plan change when the user already has one.
// Renewal rows are saved-card charges of an existing subscription; approving one
// rolls that subscription forward instead.
type PlanPurchase struct {
	ID            string              `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID        string              `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	PlanID        string              `gorm:"column:plan_id;type:uuid;not null" json:"plan_id"`
	Amount        int64               `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Gateway       string              `gorm:"column:gateway;type:varchar(32)" json:"gateway"`
	PaymentID     *string             `gorm:"column:payment_id;type:varchar(128);uniqueIndex" json:"payment_id"`
	PaymentStatus types.PaymentStatus `gorm:"column:payment_status;type:varchar(16);not null;index" json:"payment_status"`
	ApprovedAt    *time.Time          `gorm:"column:approved_at;default:null" json:"approved_at"`
	Renewal       bool                `gorm:"column:renewal;not null;default:false" json:"renewal"`
	// SubscriptionID is the subscription activated or changed by this purchase.
	SubscriptionID *string   `gorm:"column:subscription_id;type:uuid;default:null" json:"subscription_id"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (PlanPurchase) TableName() string {
	return "subscription_payments"
}
