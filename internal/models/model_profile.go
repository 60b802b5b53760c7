package models

import (
	"time"

	"github.com/ptamhub/billing/pkg/types"
)

// Profile mirrors the auth user. Rows are created at signup by the web client.
type Profile struct {
	ID           string     `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Name         string     `gorm:"column:name;type:varchar(255)" json:"name"`
	Email        string     `gorm:"column:email;type:varchar(255);index" json:"email"`
	CPF          string     `gorm:"column:cpf;type:varchar(14)" json:"cpf"`
	Phone        string     `gorm:"column:phone;type:varchar(20)" json:"phone"`
	Role         types.Role `gorm:"column:role;type:varchar(16);not null;default:'user'" json:"role"`
	BlockedUntil *time.Time `gorm:"column:blocked_until;default:null" json:"blocked_until"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == types.RoleAdmin
}

func (p *Profile) BlockedAt(now time.Time) bool {
	return p != nil && p.BlockedUntil != nil && p.BlockedUntil.After(now)
}
