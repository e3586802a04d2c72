package db

import (
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/settings"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&lessons.Lesson{},
		&settings.AdminSetting{},
	)
}
