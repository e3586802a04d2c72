package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/data/repos/testutil"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/dbctx"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/logger"
)

func TestSettingsRepoRoundTrip(t *testing.T) {
	db := testutil.DB(t)
	repo := NewSettingsRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	if _, err := repo.GetGenerationConfig(dbc); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty table: want ErrNotFound, got %v", err)
	}

	want := lessons.GenerationConfig{PresentationSlideCount: 12, ExamQuestionCount: 20, TextInstructions: "Use short paragraphs."}
	if err := repo.PutGenerationConfig(dbc, want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	want.PresentationSlideCount = 6
	if err := repo.PutGenerationConfig(dbc, want); err != nil {
		t.Fatalf("Put again: %v", err)
	}
	got, err := repo.GetGenerationConfig(dbc)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != want {
		t.Fatalf("Get: got %+v want %+v", got, want)
	}
}

func TestDecodeGenerationConfigAcceptsStrings(t *testing.T) {
	cfg, err := DecodeGenerationConfig([]byte(`{"presentationSlideCount":"5","examQuestionCount":15,"flashcardCount":"x","textInstructions":"Be brief"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.PresentationSlideCount != 5 || cfg.ExamQuestionCount != 15 || cfg.FlashcardCount != 0 || cfg.TextInstructions != "Be brief" {
		t.Fatalf("decode: %+v", cfg)
	}
	if _, err := DecodeGenerationConfig([]byte(`[1,2]`)); err == nil {
		t.Fatalf("expected error for non-object document")
	}
}

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defaults.yaml")
	body := "generation:\n  presentation_slide_count: 4\n  text_instructions: Write for teenagers.\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadDefaults(path)
	if err != nil {
		t.Fatalf("LoadDefaults: %v", err)
	}
	if cfg.PresentationSlideCount != 4 || cfg.ExamQuestionCount != 10 || cfg.TextInstructions != "Write for teenagers." {
		t.Fatalf("defaults: %+v", cfg)
	}

	if cfg, err := LoadDefaults(""); err != nil || cfg != lessons.DefaultGenerationConfig() {
		t.Fatalf("empty path: %+v %v", cfg, err)
	}
	if _, err := LoadDefaults(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

type fakeRepo struct {
	cfg   lessons.GenerationConfig
	err   error
	calls int
}

func (f *fakeRepo) GetGenerationConfig(dbctx.Context) (lessons.GenerationConfig, error) {
	f.calls++
	return f.cfg, f.err
}

func (f *fakeRepo) PutGenerationConfig(dbctx.Context, lessons.GenerationConfig) error { return nil }

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	return b, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string][]byte{}
	}
	c.data[key] = value
	return nil
}

func TestProviderFallsBackToDefaults(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection refused")}
	p := NewProvider(logger.Nop(), repo, nil, time.Minute, lessons.GenerationConfig{FlashcardCount: 7})

	cfg, err := p.GenerationConfig(context.Background())
	if err == nil {
		t.Fatalf("expected the read error to be reported")
	}
	want := lessons.DefaultGenerationConfig()
	want.FlashcardCount = 7
	if cfg != want {
		t.Fatalf("fallback: got %+v want %+v", cfg, want)
	}
}

func TestProviderCachesStoredConfig(t *testing.T) {
	repo := &fakeRepo{cfg: lessons.GenerationConfig{PresentationSlideCount: 3}}
	cache := &memCache{}
	p := NewProvider(logger.Nop(), repo, cache, time.Minute, lessons.GenerationConfig{})

	for i := 0; i < 3; i++ {
		cfg, err := p.GenerationConfig(context.Background())
		if err != nil {
			t.Fatalf("GenerationConfig: %v", err)
		}
		if cfg.PresentationSlideCount != 3 || cfg.ExamQuestionCount != 10 {
			t.Fatalf("merged config: %+v", cfg)
		}
	}
	if repo.calls != 1 {
		t.Fatalf("repo calls: got %d want 1", repo.calls)
	}
}
