package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/clients/storage"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/prompts"
)

// mockBackend answers without calling a model, for local runs.
// Responses deliberately use the different shapes real models produce.
type mockBackend struct{}

func NewMockBackend() Backend { return mockBackend{} }

func (mockBackend) Name() string { return "mock" }

func (mockBackend) Complete(ctx context.Context, p prompts.Prompt, _ []storage.Attachment) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := p.Count
	if n <= 0 {
		n = 3
	}
	switch p.ContentType {
	case lessons.ContentText:
		return "# Mock lesson\n\nThis text was produced by the mock generation backend.", nil
	case lessons.ContentPresentation:
		slides := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			slides = append(slides, map[string]any{"title": fmt.Sprintf("Slide %d", i), "bullets": []any{"Point A", "Point B"}, "content": ""})
		}
		return map[string]any{"slides": slides}, nil
	case lessons.ContentQuiz, lessons.ContentTest:
		qs := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			qs = append(qs, fmt.Sprintf(`{"question":"Question %d?","options":["A","B","C","D"],"correctAnswerIndex":%d}`, i, i%4))
		}
		body := `{"questions":[` + strings.Join(qs, ",") + `]}`
		if p.ContentType == lessons.ContentTest {
			return "```json\n" + body + "\n```", nil
		}
		return body, nil
	case lessons.ContentPodcast:
		return map[string]any{"script": []any{
			map[string]any{"speaker": "Host", "text": "Welcome to the mock podcast."},
			map[string]any{"speaker": "Guest", "text": "Happy to be here."},
		}}, nil
	case lessons.ContentComic:
		panels := make([]any, 0, 4)
		for i := 1; i <= 4; i++ {
			panels = append(panels, map[string]any{"panelNumber": i, "description": fmt.Sprintf("Scene %d", i), "dialogue": "..."})
		}
		return panels, nil
	case lessons.ContentFlashcards:
		cards := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			cards = append(cards, map[string]any{"front": fmt.Sprintf("Term %d", i), "back": fmt.Sprintf("Definition %d", i)})
		}
		return cards, nil
	case lessons.ContentMindmap:
		return "```mermaid\ngraph TD;Topic-->A;Topic-->B\n```", nil
	}
	return nil, fmt.Errorf("mock backend: unsupported content type %q", p.ContentType)
}
