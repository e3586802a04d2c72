package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
	types "github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/settings"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/dbctx"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/logger"
)

var ErrNotFound = errors.New("setting not found")

type SettingsRepo interface {
	// GetGenerationConfig returns the stored config as written; zero fields are unset.
	GetGenerationConfig(dbc dbctx.Context) (lessons.GenerationConfig, error)
	PutGenerationConfig(dbc dbctx.Context, cfg lessons.GenerationConfig) error
}

type settingsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSettingsRepo(db *gorm.DB, baseLog *logger.Logger) SettingsRepo {
	return &settingsRepo{
		db:  db,
		log: baseLog.With("repo", "SettingsRepo"),
	}
}

func (r *settingsRepo) GetGenerationConfig(dbc dbctx.Context) (lessons.GenerationConfig, error) {
	var row types.AdminSetting
	err := dbc.DB(r.db).
		Where(&types.AdminSetting{Key: types.KeyGeneration}).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return lessons.GenerationConfig{}, err
	}
	if row.Key == "" {
		return lessons.GenerationConfig{}, ErrNotFound
	}
	return DecodeGenerationConfig(row.Value)
}

func (r *settingsRepo) PutGenerationConfig(dbc dbctx.Context, cfg lessons.GenerationConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	row := types.AdminSetting{Key: types.KeyGeneration, Value: datatypes.JSON(raw)}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
}

// DecodeGenerationConfig reads the admin document. Counts may be stored as
// numbers or numeric strings.
func DecodeGenerationConfig(raw []byte) (lessons.GenerationConfig, error) {
	var out lessons.GenerationConfig
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return out, fmt.Errorf("decode %s: %w", types.KeyGeneration, err)
	}
	out.PresentationSlideCount = count(doc["presentationSlideCount"])
	out.ExamQuestionCount = count(doc["examQuestionCount"])
	out.QuizQuestionCount = count(doc["quizQuestionCount"])
	out.FlashcardCount = count(doc["flashcardCount"])
	if s, ok := doc["textInstructions"].(string); ok {
		out.TextInstructions = s
	}
	return out, nil
}

func count(v any) int {
	switch t := v.(type) {
	case float64:
		if t > 0 {
			return int(t)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
