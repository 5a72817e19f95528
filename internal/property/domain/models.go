// Package domain contains the PG (property) and branch records owned by a tenant admin.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// SharingType prices one bed-occupancy option, e.g. a three-sharing room.
type SharingType struct {
	Type        string `json:"type"`
	BedsPerRoom int    `json:"beds_per_room"`
	MonthlyRent int64  `json:"monthly_rent"`
}

type PG struct {
	ID           snowflake.ID   `gorm:"primaryKey"`
	OwnerID      snowflake.ID   `gorm:"not null;index"`
	Name         string         `gorm:"type:text;not null"`
	Slug         string         `gorm:"type:text;not null;uniqueIndex"`
	Address      string         `gorm:"type:text"`
	City         string         `gorm:"type:text"`
	ContactPhone string         `gorm:"type:text"`
	SharingTypes datatypes.JSON `gorm:"type:json"`
	IsConfigured bool           `gorm:"not null;default:false"`
	CreatedAt    time.Time      `gorm:"not null"`
	UpdatedAt    time.Time      `gorm:"not null"`
}

func (PG) TableName() string { return "pgs" }

type Branch struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	PGID      snowflake.ID `gorm:"column:pg_id;not null;index"`
	Name      string       `gorm:"type:text;not null"`
	Address   string       `gorm:"type:text"`
	City      string       `gorm:"type:text"`
	IsDefault bool         `gorm:"not null;default:false"`
	CreatedAt time.Time    `gorm:"not null"`
	UpdatedAt time.Time    `gorm:"not null"`
}

func (Branch) TableName() string { return "branches" }

type PGInput struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	City         string `json:"city"`
	ContactPhone string `json:"contact_phone"`
}

type BranchInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
}
