package models

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentNotificationLogStatus string

const (
	PaymentNotificationLogStatusReceived     PaymentNotificationLogStatus = "received"
	PaymentNotificationLogStatusHandled      PaymentNotificationLogStatus = "handled"
	PaymentNotificationLogStatusHandleFailed PaymentNotificationLogStatus = "handle_failed"
)

// PaymentNotificationLog keeps every gateway callback and status poll, including the
// ones that matched no purchase. Rows survive user deletion.
type PaymentNotificationLog struct {
	ID        string                       `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Provider  string                       `gorm:"column:provider;type:varchar(32);not null;index:idx_pnl_provider_event" json:"provider"`
	Source    string                       `gorm:"column:source;type:varchar(16);not null" json:"source"` // webhook or poll
	Event     string                       `gorm:"column:event;type:varchar(64);index:idx_pnl_provider_event" json:"event,omitempty"`
	UserID    *string                      `gorm:"column:user_id;type:uuid" json:"user_id,omitempty"`
	TraceID   string                       `gorm:"column:trace_id;type:varchar(64)" json:"trace_id"`
	PaymentID string                       `gorm:"column:payment_id;type:varchar(128);index" json:"payment_id"`
	Payload   datatypes.JSON               `gorm:"column:payload;type:jsonb" json:"payload"`
	Result    *datatypes.JSON              `gorm:"column:result;type:jsonb" json:"result,omitempty"`
	Status    PaymentNotificationLogStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt time.Time                    `json:"created_at"`
}

func (PaymentNotificationLog) TableName() string { return "payment_notification_log" }
