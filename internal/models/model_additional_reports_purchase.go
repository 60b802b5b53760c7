package models

import (
	"time"

	"github.com/ptamhub/billing/pkg/types"
)

// AdditionalReportsPurchase is a standalone credit purchase.
// Prices are stored in cents.
type AdditionalReportsPurchase struct {
	ID         string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID     string `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Quantity   int    `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice  int64  `gorm:"column:unit_price;type:bigint;not null" json:"unit_price"`
	TotalPrice int64  `gorm:"column:total_price;type:bigint;not null" json:"total_price"`
	Gateway    string `gorm:"column:gateway;type:varchar(32)" json:"gateway"`
	// PaymentID is the gateway charge reference, unique for webhook idempotency.
	PaymentID     *string             `gorm:"column:payment_id;type:varchar(128);uniqueIndex" json:"payment_id"`
	PaymentStatus types.PaymentStatus `gorm:"column:payment_status;type:varchar(16);not null;index" json:"payment_status"`
	// Status mirrors PaymentStatus for older clients.
	Status     types.PaymentStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	ApprovedAt *time.Time          `gorm:"column:approved_at;default:null" json:"approved_at"`
	ExpiresAt  *time.Time          `gorm:"column:expires_at;default:null;index" json:"expires_at"`
	// CreditedSubscriptionID is set once the quantity has been added to a subscription.
	CreditedSubscriptionID *string   `gorm:"column:credited_subscription_id;type:uuid;default:null" json:"credited_subscription_id"`
	CreatedAt              time.Time `gorm:"index" json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (AdditionalReportsPurchase) TableName() string {
	return "additional_reports_purchases"
}
