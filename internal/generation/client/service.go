package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/clients/storage"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/prompts"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/logger"
)

// Service implements GenerationClient over a Backend, loading context files
// through a SourceFetcher first.
type Service struct {
	log     *logger.Logger
	backend Backend
	sources storage.SourceFetcher
}

func NewService(log *logger.Logger, backend Backend, sources storage.SourceFetcher) *Service {
	return &Service{
		log:     log.With("service", "GenerationClient", "backend", backend.Name()),
		backend: backend,
		sources: sources,
	}
}

func (s *Service) Generate(ctx context.Context, ct lessons.ContentType, p prompts.Prompt, refs []string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Generation backend panicked", "content_type", ct, "panic", r)
			res = Fail(fmt.Sprintf("generation backend panic: %v", r))
		}
	}()

	files, err := s.loadSources(ctx, refs)
	if err != nil {
		return Fail(err.Error())
	}

	start := time.Now()
	data, err := s.backend.Complete(ctx, p, files)
	if err != nil {
		s.log.Warn("Generation call failed", "content_type", ct, "duration", time.Since(start).String(), "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return Fail("generation timed out")
		}
		return Fail(err.Error())
	}
	if data == nil {
		return Fail("generation returned no data")
	}
	s.log.Debug("Generation call done", "content_type", ct, "duration", time.Since(start).String(), "files", len(files))
	return Result{Data: data}
}

func (s *Service) loadSources(ctx context.Context, refs []string) ([]storage.Attachment, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	if s.sources == nil {
		return nil, fmt.Errorf("context files supplied but no source fetcher configured")
	}
	out := make([]storage.Attachment, 0, len(refs))
	for _, ref := range refs {
		att, err := s.sources.Fetch(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("load context file %q: %w", ref, err)
		}
		out = append(out, att)
	}
	return out, nil
}
