package models

import (
	"time"

	"github.com/ptamhub/billing/pkg/types"
)

type Plan struct {
	ID              string         `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Name            string         `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Type            types.PlanType `gorm:"column:type;type:varchar(32);not null" json:"type"`
	Price           int64          `gorm:"column:price;type:bigint;not null" json:"price"`
	IncludedReports int            `gorm:"column:included_reports;not null" json:"included_reports"`
	Active          bool           `gorm:"column:active;not null" json:"active"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (Plan) TableName() string { return "plans" }
