// Package domain carries the auxiliary reporting records produced and
// consumed at the engine's boundary. The aggregation that populates KPI
// snapshots lives in an external reporting job; the models are kept here so
// the schema stays authoritative in one place.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Reward struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	UserID    int64        `gorm:"not null;index"`
	Points    int          `gorm:"not null;default:0"`
	Badge     string       `gorm:"type:text;not null"`
	GrantedAt time.Time    `gorm:"not null"`
	Comment   string       `gorm:"type:text"`
}

// TableName sets the database table name.
func (Reward) TableName() string { return "rewards" }

type KPISnapshot struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	PeriodStart time.Time    `gorm:"not null;uniqueIndex:uq_kpi_period,priority:1"`
	PeriodEnd   time.Time    `gorm:"not null;uniqueIndex:uq_kpi_period,priority:2"`
	DirectionID *int64       `gorm:"uniqueIndex:uq_kpi_period,priority:3"`
	PointID     *int64       `gorm:"uniqueIndex:uq_kpi_period,priority:4"`
	UserID      *int64       `gorm:"uniqueIndex:uq_kpi_period,priority:5"`
	Data        datatypes.JSONMap
}

// TableName sets the database table name.
func (KPISnapshot) TableName() string { return "kpi_snapshots" }
