package lessons

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

type Lesson struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;index" json:"owner_user_id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Subtitle    string    `gorm:"column:subtitle" json:"subtitle,omitempty"`
	Status      string    `gorm:"column:status;not null;default:'draft';index" json:"status"`
	Language    string    `gorm:"column:language" json:"language,omitempty"`

	TextContent   *string        `gorm:"column:text_content" json:"text_content"`
	Presentation  datatypes.JSON `gorm:"column:presentation;type:jsonb" json:"presentation"`
	Quiz          datatypes.JSON `gorm:"column:quiz;type:jsonb" json:"quiz"`
	Test          datatypes.JSON `gorm:"column:test;type:jsonb" json:"test"`
	PodcastScript datatypes.JSON `gorm:"column:podcast_script;type:jsonb" json:"podcast_script"`
	ComicScript   datatypes.JSON `gorm:"column:comic_script;type:jsonb" json:"comic_script"`
	Flashcards    datatypes.JSON `gorm:"column:flashcards;type:jsonb" json:"flashcards"`
	Mindmap       *string        `gorm:"column:mindmap" json:"mindmap"`

	// NULL means every populated content type is visible.
	VisibleSections datatypes.JSON `gorm:"column:visible_sections;type:jsonb" json:"visible_sections"`
	ContextFileRefs datatypes.JSON `gorm:"column:context_file_refs;type:jsonb" json:"context_file_refs"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lesson) TableName() string { return "lessons" }

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = StatusDraft
	}
	return nil
}

// HasContent reports whether the field for ct holds a value.
func (l *Lesson) HasContent(ct ContentType) bool {
	if l == nil {
		return false
	}
	switch ct {
	case ContentText:
		return l.TextContent != nil
	case ContentPresentation:
		return isSet(l.Presentation)
	case ContentQuiz:
		return isSet(l.Quiz)
	case ContentTest:
		return isSet(l.Test)
	case ContentPodcast:
		return isSet(l.PodcastScript)
	case ContentComic:
		return isSet(l.ComicScript)
	case ContentFlashcards:
		return isSet(l.Flashcards)
	case ContentMindmap:
		return l.Mindmap != nil
	}
	return false
}

// PopulatedTypes lists the content types with a value, in generation order.
func (l *Lesson) PopulatedTypes() []ContentType {
	var out []ContentType
	for _, ct := range GenerationOrder {
		if l.HasContent(ct) {
			out = append(out, ct)
		}
	}
	return out
}

// Visible decodes visible_sections. ok is false when the column is NULL.
func (l *Lesson) Visible() (sections []ContentType, ok bool, err error) {
	if l == nil || !isSet(l.VisibleSections) {
		return nil, false, nil
	}
	var raw []string
	if err := json.Unmarshal(l.VisibleSections, &raw); err != nil {
		return nil, true, err
	}
	sections = make([]ContentType, 0, len(raw))
	for _, s := range raw {
		sections = append(sections, ContentType(s))
	}
	return sections, true, nil
}

func (l *Lesson) FileRefs() []string {
	if l == nil || !isSet(l.ContextFileRefs) {
		return nil
	}
	var refs []string
	if err := json.Unmarshal(l.ContextFileRefs, &refs); err != nil {
		return nil
	}
	return refs
}

// SectionsJSON encodes a visible_sections value.
func SectionsJSON(sections []ContentType) datatypes.JSON {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		out = append(out, string(s))
	}
	raw, _ := json.Marshal(out)
	return datatypes.JSON(raw)
}

func StringsJSON(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	raw, _ := json.Marshal(values)
	return datatypes.JSON(raw)
}

func isSet(j datatypes.JSON) bool {
	return len(j) > 0 && string(j) != "null"
}
