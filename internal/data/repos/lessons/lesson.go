package lessons

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/dbctx"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/logger"
)

var (
	ErrNotFound      = errors.New("lesson not found")
	ErrUnknownColumn = errors.New("column is not writable")
)

// writable lists the columns UpdateFields accepts: one per content type plus
// visible_sections and updated_at.
var writable = func() map[string]bool {
	cols := map[string]bool{"visible_sections": true, "updated_at": true}
	for _, ct := range types.GenerationOrder {
		cols[ct.Column()] = true
	}
	return cols
}()

type LessonRepo interface {
	Create(dbc dbctx.Context, lesson *types.Lesson) (*types.Lesson, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Lesson, error)
	// UpdateFields writes only the named columns; updated_at is always set.
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{
		db:  db,
		log: baseLog.With("repo", "LessonRepo"),
	}
}

func (r *lessonRepo) Create(dbc dbctx.Context, lesson *types.Lesson) (*types.Lesson, error) {
	if lesson == nil {
		return nil, fmt.Errorf("create lesson: nil lesson")
	}
	if err := dbc.DB(r.db).Create(lesson).Error; err != nil {
		return nil, err
	}
	return lesson, nil
}

func (r *lessonRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Lesson, error) {
	if id == uuid.Nil {
		return nil, ErrNotFound
	}
	var out types.Lesson
	err := dbc.DB(r.db).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	return &out, nil
}

func (r *lessonRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return ErrNotFound
	}
	if len(updates) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		if !writable[k] {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, k)
		}
		fields[k] = v
	}
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now().UTC()
	}
	res := dbc.DB(r.db).
		Model(&types.Lesson{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
