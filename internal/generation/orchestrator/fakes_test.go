package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/client"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/prompts"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/dbctx"
)

var errStoreDown = errors.New("store unavailable")

type memStore struct {
	mu        sync.Mutex
	lessons   map[uuid.UUID]*lessons.Lesson
	creates   int
	createErr error
	// updateErr is consulted before every update; nil means success.
	updateErr func(columns []string, attempt int) error
	attempts  map[string]int
	writes    []string
}

func newMemStore() *memStore {
	return &memStore{lessons: map[uuid.UUID]*lessons.Lesson{}, attempts: map[string]int{}}
}

func (s *memStore) Create(_ dbctx.Context, l *lessons.Lesson) (*lessons.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.createErr != nil {
		return nil, s.createErr
	}
	cp := *l
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	s.lessons[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) GetByID(_ dbctx.Context, id uuid.UUID) (*lessons.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lessons[id]
	if !ok {
		return nil, fmt.Errorf("lesson %s not found", id)
	}
	out := *l
	return &out, nil
}

func (s *memStore) UpdateFields(_ dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lessons[id]
	if !ok {
		return fmt.Errorf("lesson %s not found", id)
	}
	cols := make([]string, 0, len(updates))
	for k := range updates {
		cols = append(cols, k)
	}
	key := fmt.Sprint(cols)
	s.attempts[key]++
	if s.updateErr != nil {
		if err := s.updateErr(cols, s.attempts[key]); err != nil {
			return err
		}
	}
	for col, v := range updates {
		if err := applyColumn(l, col, v); err != nil {
			return err
		}
		s.writes = append(s.writes, col)
	}
	return nil
}

func (s *memStore) get(id uuid.UUID) *lessons.Lesson {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *s.lessons[id]
	return &out
}

func applyColumn(l *lessons.Lesson, col string, v interface{}) error {
	asJSON := func() (datatypes.JSON, error) {
		j, ok := v.(datatypes.JSON)
		if !ok {
			return nil, fmt.Errorf("column %s: unexpected %T", col, v)
		}
		return j, nil
	}
	var err error
	switch col {
	case "text_content":
		s := v.(string)
		l.TextContent = &s
	case "mindmap":
		s := v.(string)
		l.Mindmap = &s
	case "presentation":
		l.Presentation, err = asJSON()
	case "quiz":
		l.Quiz, err = asJSON()
	case "test":
		l.Test, err = asJSON()
	case "podcast_script":
		l.PodcastScript, err = asJSON()
	case "comic_script":
		l.ComicScript, err = asJSON()
	case "flashcards":
		l.Flashcards, err = asJSON()
	case "visible_sections":
		l.VisibleSections, err = asJSON()
	default:
		err = fmt.Errorf("unexpected column %s", col)
	}
	return err
}

type staticConfig struct {
	cfg lessons.GenerationConfig
	err error
}

func (c staticConfig) GenerationConfig(context.Context) (lessons.GenerationConfig, error) {
	return c.cfg, c.err
}

// recorder is a scripted GenerationClient that remembers every call.
type recorder struct {
	mu      sync.Mutex
	calls   []lessons.ContentType
	prompts map[lessons.ContentType]prompts.Prompt
	reply   func(ctx context.Context, ct lessons.ContentType) client.Result
}

func newRecorder(reply func(ctx context.Context, ct lessons.ContentType) client.Result) *recorder {
	return &recorder{prompts: map[lessons.ContentType]prompts.Prompt{}, reply: reply}
}

func (r *recorder) Generate(ctx context.Context, ct lessons.ContentType, p prompts.Prompt, _ []string) client.Result {
	r.mu.Lock()
	r.calls = append(r.calls, ct)
	r.prompts[ct] = p
	r.mu.Unlock()
	return r.reply(ctx, ct)
}

func (r *recorder) called() []lessons.ContentType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]lessons.ContentType(nil), r.calls...)
}

// validPayload returns a well-formed raw payload for ct.
func validPayload(ct lessons.ContentType) any {
	switch ct {
	case lessons.ContentText:
		return "Plants turn light, water and carbon dioxide into sugar."
	case lessons.ContentPresentation:
		return map[string]any{"slides": []any{map[string]any{"title": "Light", "bullets": []any{"Chlorophyll absorbs light"}}}}
	case lessons.ContentQuiz, lessons.ContentTest:
		return map[string]any{"questions": []any{map[string]any{
			"question":           "What gas do plants absorb?",
			"options":            []any{"Oxygen", "Carbon dioxide", "Nitrogen", "Helium"},
			"correctAnswerIndex": float64(1),
		}}}
	case lessons.ContentPodcast:
		return `{"script":[{"speaker":"Host","text":"Welcome"},{"speaker":"Guest","text":"Thanks"}]}`
	case lessons.ContentComic:
		return []any{map[string]any{"panelNumber": float64(1), "description": "A leaf in the sun", "dialogue": "Yum, photons!"}}
	case lessons.ContentFlashcards:
		return []any{map[string]any{"front": "Chlorophyll", "back": "Green pigment"}}
	case lessons.ContentMindmap:
		return map[string]any{"mermaid": "graph TD;Sun-->Leaf"}
	}
	return nil
}

func ctxDB() dbctx.Context { return dbctx.New(context.Background()) }
