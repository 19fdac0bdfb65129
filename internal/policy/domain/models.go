// Package domain contains the penalty policy model and its compiled form.
//
// Policies are admin-edited documents with JSON config columns. The loosely
// typed documents are converted once, at load time, into typed rules so the
// evaluator never parses strings per event.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Strictness string

const (
	StrictnessLenient  Strictness = "lenient"
	StrictnessStandard Strictness = "standard"
	StrictnessStrict   Strictness = "strict"
	StrictnessCustom   Strictness = "custom"
)

// Policy is the stored policy row. The engine only reads it; CRUD lives in
// administration tooling.
type Policy struct {
	ID          snowflake.ID   `gorm:"primaryKey"`
	Name        string         `gorm:"type:text;not null"`
	IsActive    bool           `gorm:"not null;default:true"`
	Scope       datatypes.JSON `gorm:"type:jsonb"`
	Strictness  Strictness     `gorm:"type:text;not null;default:standard"`
	Rules       datatypes.JSON `gorm:"type:jsonb"`
	Caps        datatypes.JSON `gorm:"type:jsonb"`
	Grace       datatypes.JSON `gorm:"type:jsonb"`
	Forgiveness datatypes.JSON `gorm:"type:jsonb"`
	Escalation  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Policy) TableName() string { return "penalty_policies" }
