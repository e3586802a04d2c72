package settings

import (
	"time"

	"gorm.io/datatypes"
)

// KeyGeneration is the admin_settings row holding the generation config.
const KeyGeneration = "ai_generation"

// AdminSetting is a keyed JSON document edited from the admin UI.
type AdminSetting struct {
	Key       string         `gorm:"column:key;primaryKey" json:"key"`
	Value     datatypes.JSON `gorm:"column:value;type:jsonb" json:"value"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (AdminSetting) TableName() string { return "admin_settings" }
