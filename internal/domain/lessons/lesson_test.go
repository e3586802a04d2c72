package lessons

import (
	"encoding/json"
	"testing"

	"gorm.io/datatypes"
)

func TestParseContentTypeAliases(t *testing.T) {
	got, err := ParseContentType(" Exam ")
	if err != nil || got != ContentTest {
		t.Fatalf("exam alias: got=%q err=%v", got, err)
	}
	if _, err := ParseContentType("video"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	for _, ct := range GenerationOrder {
		if ct.Column() == "" {
			t.Fatalf("%s has no column", ct)
		}
		if !ct.Valid() {
			t.Fatalf("%s not valid", ct)
		}
	}
}

func TestFieldUpdateShapes(t *testing.T) {
	col, val, err := FieldUpdate(MindmapSource("graph TD;A-->B"))
	if err != nil || col != "mindmap" || val != "graph TD;A-->B" {
		t.Fatalf("mindmap: col=%s val=%v err=%v", col, val, err)
	}

	col, val, err = FieldUpdate(QuestionSet{Kind: ContentTest, Questions: []Question{{Question: "Q", Options: []string{"a", "b", "c", "d"}, CorrectAnswerIndex: 2}}})
	if err != nil || col != "test" {
		t.Fatalf("test: col=%s err=%v", col, err)
	}
	raw, ok := val.(datatypes.JSON)
	if !ok {
		t.Fatalf("test value type: %T", val)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	qs, _ := decoded["questions"].([]any)
	if len(qs) != 1 {
		t.Fatalf("questions: %v", decoded)
	}
	if _, hasKind := decoded["Kind"]; hasKind {
		t.Fatalf("kind must not be persisted: %v", decoded)
	}
}

func TestLessonPopulatedAndVisible(t *testing.T) {
	text := "hello"
	l := &Lesson{
		TextContent: &text,
		Flashcards:  datatypes.JSON(`[{"front":"a","back":"b"}]`),
		Quiz:        datatypes.JSON(`null`),
	}
	got := l.PopulatedTypes()
	if len(got) != 2 || got[0] != ContentText || got[1] != ContentFlashcards {
		t.Fatalf("populated: %v", got)
	}
	if _, ok, _ := l.Visible(); ok {
		t.Fatalf("visible should be undefined")
	}
	l.VisibleSections = SectionsJSON([]ContentType{ContentText})
	sections, ok, err := l.Visible()
	if err != nil || !ok || len(sections) != 1 || sections[0] != ContentText {
		t.Fatalf("visible: %v ok=%v err=%v", sections, ok, err)
	}
}

func TestGenerationConfigMerge(t *testing.T) {
	cfg := GenerationConfig{PresentationSlideCount: 3}.Merge(DefaultGenerationConfig())
	if cfg.PresentationSlideCount != 3 || cfg.ExamQuestionCount != 10 || cfg.FlashcardCount != 10 {
		t.Fatalf("merge: %+v", cfg)
	}
	if cfg.CountFor(ContentPodcast) != 0 {
		t.Fatalf("podcast has no count")
	}
}
