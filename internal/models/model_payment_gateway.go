package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentGateway is the admin-managed gateway switch. One row is expected active.
// Secrets never live here; Config only carries non-secret provider options.
type PaymentGateway struct {
	Name        string            `gorm:"column:name;type:varchar(32);primary_key" json:"name"`
	DisplayName string            `gorm:"column:display_name;type:varchar(64)" json:"display_name"`
	IsActive    bool              `gorm:"column:is_active;not null;default:false" json:"is_active"`
	Config      datatypes.JSONMap `gorm:"column:config;type:jsonb;default:'{}'" json:"config"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (PaymentGateway) TableName() string { return "payment_gateways" }
