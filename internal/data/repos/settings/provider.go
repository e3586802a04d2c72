package settings

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
	types "github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/settings"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/dbctx"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/logger"
)

// Provider resolves the effective generation config: stored admin values
// over file defaults over built-in defaults. Cache may be nil.
type Provider struct {
	repo     SettingsRepo
	cache    Cache
	ttl      time.Duration
	defaults lessons.GenerationConfig
	log      *logger.Logger
}

func NewProvider(log *logger.Logger, repo SettingsRepo, cache Cache, ttl time.Duration, defaults lessons.GenerationConfig) *Provider {
	return &Provider{
		repo:     repo,
		cache:    cache,
		ttl:      ttl,
		defaults: defaults.Merge(lessons.DefaultGenerationConfig()),
		log:      log.With("service", "SettingsProvider"),
	}
}

// GenerationConfig always returns a usable config. The error reports why
// the stored values could not be read; callers treat it as best-effort.
func (p *Provider) GenerationConfig(ctx context.Context) (lessons.GenerationConfig, error) {
	if p.cache != nil {
		raw, ok, err := p.cache.Get(ctx, types.KeyGeneration)
		if err != nil {
			p.log.Debug("Settings cache read failed", "error", err)
		} else if ok {
			var cfg lessons.GenerationConfig
			if err := json.Unmarshal(raw, &cfg); err == nil {
				return cfg.Merge(p.defaults), nil
			}
		}
	}

	if p.repo == nil {
		return p.defaults, nil
	}
	stored, err := p.repo.GetGenerationConfig(dbctx.New(ctx))
	if err != nil {
		return p.defaults, err
	}
	if p.cache != nil && p.ttl > 0 {
		if raw, err := json.Marshal(stored); err == nil {
			if err := p.cache.Set(ctx, types.KeyGeneration, raw, p.ttl); err != nil {
				p.log.Debug("Settings cache write failed", "error", err)
			}
		}
	}
	return stored.Merge(p.defaults), nil
}
