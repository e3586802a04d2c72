package lessons

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"
)

// ContentType identifies one generatable lesson artifact.
type ContentType string

const (
	ContentText         ContentType = "text"
	ContentPresentation ContentType = "presentation"
	ContentQuiz         ContentType = "quiz"
	ContentTest         ContentType = "test"
	ContentPodcast      ContentType = "podcast"
	ContentComic        ContentType = "comic"
	ContentFlashcards   ContentType = "flashcards"
	ContentMindmap      ContentType = "mindmap"
)

// GenerationOrder is the fixed order a generation run walks through.
var GenerationOrder = []ContentType{
	ContentText,
	ContentPresentation,
	ContentQuiz,
	ContentTest,
	ContentPodcast,
	ContentComic,
	ContentFlashcards,
	ContentMindmap,
}

func ParseContentType(s string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return ContentText, nil
	case "presentation":
		return ContentPresentation, nil
	case "quiz":
		return ContentQuiz, nil
	case "test", "exam":
		return ContentTest, nil
	case "podcast", "post":
		return ContentPodcast, nil
	case "comic":
		return ContentComic, nil
	case "flashcards":
		return ContentFlashcards, nil
	case "mindmap":
		return ContentMindmap, nil
	}
	return "", fmt.Errorf("unknown content type %q", s)
}

func (c ContentType) Valid() bool {
	for _, ct := range GenerationOrder {
		if ct == c {
			return true
		}
	}
	return false
}

// Column is the lessons table column holding this content type.
func (c ContentType) Column() string {
	switch c {
	case ContentText:
		return "text_content"
	case ContentPresentation:
		return "presentation"
	case ContentQuiz:
		return "quiz"
	case ContentTest:
		return "test"
	case ContentPodcast:
		return "podcast_script"
	case ContentComic:
		return "comic_script"
	case ContentFlashcards:
		return "flashcards"
	case ContentMindmap:
		return "mindmap"
	}
	return ""
}

func (c ContentType) Label() string {
	switch c {
	case ContentText:
		return "Text"
	case ContentPresentation:
		return "Presentation"
	case ContentQuiz:
		return "Quiz"
	case ContentTest:
		return "Exam"
	case ContentPodcast:
		return "Podcast"
	case ContentComic:
		return "Comic"
	case ContentFlashcards:
		return "Flashcards"
	case ContentMindmap:
		return "Mind map"
	}
	return string(c)
}

// Content is the canonical, normalized value of one content type.
// The set of implementations is closed.
type Content interface {
	Type() ContentType
	isContent()
}

type TextBody string

type Presentation struct {
	Slides []Slide `json:"slides"`
}

type Slide struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
	Content string   `json:"content,omitempty"`
}

// QuestionSet backs both quiz and test; Kind says which.
type QuestionSet struct {
	Kind      ContentType `json:"-"`
	Questions []Question  `json:"questions"`
}

type Question struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
}

type Speaker string

const (
	SpeakerHost  Speaker = "Host"
	SpeakerGuest Speaker = "Guest"
)

type PodcastScript struct {
	Script []PodcastLine `json:"script"`
}

type PodcastLine struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

type ComicScript struct {
	Panels []Panel `json:"panels"`
}

type Panel struct {
	PanelNumber int    `json:"panelNumber"`
	Description string `json:"description"`
	Dialogue    string `json:"dialogue"`
}

type FlashcardDeck []Flashcard

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type MindmapSource string

func (TextBody) Type() ContentType      { return ContentText }
func (Presentation) Type() ContentType  { return ContentPresentation }
func (q QuestionSet) Type() ContentType { return q.Kind }
func (PodcastScript) Type() ContentType { return ContentPodcast }
func (ComicScript) Type() ContentType   { return ContentComic }
func (FlashcardDeck) Type() ContentType { return ContentFlashcards }
func (MindmapSource) Type() ContentType { return ContentMindmap }

func (TextBody) isContent()      {}
func (Presentation) isContent()  {}
func (QuestionSet) isContent()   {}
func (PodcastScript) isContent() {}
func (ComicScript) isContent()   {}
func (FlashcardDeck) isContent() {}
func (MindmapSource) isContent() {}

// FieldUpdate returns the single column/value pair that stores c on a lesson.
func FieldUpdate(c Content) (string, any, error) {
	if c == nil {
		return "", nil, fmt.Errorf("nil content")
	}
	col := c.Type().Column()
	if col == "" {
		return "", nil, fmt.Errorf("content has no column: %q", c.Type())
	}
	switch v := c.(type) {
	case TextBody:
		return col, string(v), nil
	case MindmapSource:
		return col, string(v), nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", nil, fmt.Errorf("marshal %s: %w", c.Type(), err)
		}
		return col, datatypes.JSON(raw), nil
	}
}
