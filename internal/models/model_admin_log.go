package models

import (
	"time"

	"gorm.io/datatypes"
)

type AdminLog struct {
	ID           string            `gorm:"column:id;type:uuid;primary_key" json:"id"`
	AdminID      string            `gorm:"column:admin_id;type:uuid;not null;index" json:"admin_id"`
	Action       string            `gorm:"column:action;type:varchar(64);not null" json:"action"`
	TargetUserID *string           `gorm:"column:target_user_id;type:uuid;default:null" json:"target_user_id"`
	Details      datatypes.JSONMap `gorm:"column:details;type:jsonb;default:'{}'" json:"details"`
	CreatedAt    time.Time         `json:"created_at"`
}

func (AdminLog) TableName() string { return "admin_logs" }
