package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/clients/gemini"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/clients/openai"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/clients/storage"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/client"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/logger"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/realtime/bus"
)

type Clients struct {
	Redis   *goredis.Client
	Sources storage.SourceFetcher
	Backend client.Backend
	closers []func() error
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	// Redis
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		rdb, err := bus.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return c, fmt.Errorf("init redis: %w", err)
		}
		c.Redis = rdb
		c.closers = append(c.closers, rdb.Close)
	}

	// Context files
	sources, err := storage.NewSourceFetcher(ctx, log, cfg.Storage)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init source fetcher: %w", err)
	}
	c.Sources = sources
	c.closers = append(c.closers, sources.Close)

	backend, closeBackend, err := newBackend(ctx, log, cfg)
	if err != nil {
		c.Close()
		return Clients{}, err
	}
	c.Backend = backend
	if closeBackend != nil {
		c.closers = append(c.closers, closeBackend)
	}
	log.Info("Generation backend selected", "backend", backend.Name())
	return c, nil
}

func newBackend(ctx context.Context, log *logger.Logger, cfg Config) (client.Backend, func() error, error) {
	switch cfg.Backend {
	case BackendMock:
		return client.NewMockBackend(), nil, nil
	case BackendGemini:
		gc, err := gemini.NewClient(ctx, log, cfg.Gemini)
		if err != nil {
			return nil, nil, fmt.Errorf("init gemini client: %w", err)
		}
		return client.NewGeminiBackend(gc), gc.Close, nil
	case BackendOpenAI:
		oc, err := openai.NewClientWithConfig(log, cfg.OpenAI)
		if err != nil {
			return nil, nil, fmt.Errorf("init openai client: %w", err)
		}
		return client.NewOpenAIBackend(oc), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown generation backend %q", cfg.Backend)
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
	c.closers = nil
}
