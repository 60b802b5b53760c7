package models

import (
	"time"

	"github.com/ptamhub/billing/pkg/types"
)

type Notification struct {
	ID        string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID    string                   `gorm:"column:user_id;type:uuid;not null;index:idx_notifications_user,priority:1" json:"user_id"`
	Title     string                   `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Message   string                   `gorm:"column:message;type:text;not null" json:"message"`
	Read      bool                     `gorm:"column:read;not null;default:false" json:"read"`
	IsMass    bool                     `gorm:"column:is_mass;not null;default:false" json:"is_mass"`
	Origin    types.NotificationOrigin `gorm:"column:origin;type:varchar(16);not null;default:'system'" json:"origin"`
	CreatedBy *string                  `gorm:"column:created_by;type:uuid;default:null" json:"created_by"`
	CreatedAt time.Time                `gorm:"index:idx_notifications_user,priority:2" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

// DeletableByRecipient reports whether the recipient may remove it.
// Only individually sent admin notifications qualify.
func (n *Notification) DeletableByRecipient() bool {
	return n != nil && n.Origin == types.NotificationOriginAdmin && !n.IsMass
}
