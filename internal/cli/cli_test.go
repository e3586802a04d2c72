package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/orchestrator"
)

func TestRenderEvent(t *testing.T) {
	line := renderEvent(orchestrator.Event{ContentType: lessons.ContentQuiz, State: orchestrator.EventFailed, Message: "Quiz failed", Error: "quota exceeded"})
	if !strings.Contains(line, "Quiz failed") || !strings.Contains(line, "quota exceeded") {
		t.Fatalf("line: %q", line)
	}
	line = renderEvent(orchestrator.Event{ContentType: lessons.ContentText, State: orchestrator.EventDone, Message: "Text saved"})
	if !strings.Contains(line, "Text saved") {
		t.Fatalf("line: %q", line)
	}
}

func TestBuildDraft(t *testing.T) {
	t.Cleanup(func() { genLessonID, genTitle, genTypes = "", "", nil })

	genLessonID, genTitle = "", " "
	if _, err := buildDraft(); err == nil {
		t.Fatalf("expected error without lesson id or title")
	}

	genLessonID = "not-a-uuid"
	if _, err := buildDraft(); err == nil {
		t.Fatalf("expected invalid lesson id error")
	}

	id := uuid.New()
	genLessonID, genTypes = id.String(), []string{"exam", "mindmap"}
	d, err := buildDraft()
	if err != nil {
		t.Fatalf("buildDraft: %v", err)
	}
	if d.LessonID != id || len(d.Types) != 2 || d.Types[0] != lessons.ContentTest {
		t.Fatalf("draft: %+v", d)
	}
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestGenerateAndSettingsCommands(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("GENERATION_BACKEND", "mock")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("GCS_BUCKET", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")
	t.Cleanup(func() { genTitle, genBackend = "", "" })

	out := run(t, "generate", "--title", "Photosynthesis", "--backend", "mock")
	for _, want := range []string{"Text saved", "Mind map saved", "Lesson"} {
		if !strings.Contains(out, want) {
			t.Fatalf("generate output missing %q:\n%s", want, out)
		}
	}

	run(t, "settings", "set", "--slides", "12")
	out = run(t, "settings", "show")
	if !strings.Contains(out, "presentation_slide_count: 12") || !strings.Contains(out, "exam_question_count: 10") {
		t.Fatalf("settings show:\n%s", out)
	}
}
