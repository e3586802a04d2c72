package app

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	lessonrepo "github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/data/repos/lessons"
	settingsrepo "github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/data/repos/settings"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/logger"
)

type Repos struct {
	Lesson   lessonrepo.LessonRepo
	Settings settingsrepo.SettingsRepo
	Config   *settingsrepo.Provider
}

func wireRepos(db *gorm.DB, log *logger.Logger, cfg Config, clients Clients) (Repos, error) {
	log.Info("Wiring repos...")

	defaults := lessons.DefaultGenerationConfig()
	if path := strings.TrimSpace(cfg.DefaultsFile); path != "" {
		d, err := settingsrepo.LoadDefaults(path)
		if err != nil {
			return Repos{}, fmt.Errorf("load generation defaults: %w", err)
		}
		defaults = d
	}
	var cache settingsrepo.Cache
	if clients.Redis != nil {
		cache = settingsrepo.NewRedisCache(clients.Redis, "")
	}

	settings := settingsrepo.NewSettingsRepo(db, log)
	return Repos{
		Lesson:   lessonrepo.NewLessonRepo(db, log),
		Settings: settings,
		Config:   settingsrepo.NewProvider(log, settings, cache, cfg.SettingsCacheTTL, defaults),
	}, nil
}
