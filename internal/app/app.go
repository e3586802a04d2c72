package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/data/db"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/client"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/orchestrator"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/runner"
	apphttp "github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/http"
	httpH "github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/http/handlers"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/observability"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/logger"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/realtime"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/realtime/bus"
)

type App struct {
	Log          *logger.Logger
	Cfg          Config
	DB           *db.Service
	Clients      Clients
	Repos        Repos
	SSEHub       *realtime.SSEHub
	Bus          bus.Bus
	Notifier     *realtime.Notifier
	Orchestrator *orchestrator.Orchestrator
	Runner       *runner.Runner

	otelShutdown func(context.Context) error
}

func New(ctx context.Context, cfg Config) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, cfg.Otel)

	dbs, err := db.Open(log, cfg.DB)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.DB = dbs
	if err := db.AutoMigrateAll(dbs.DB()); err != nil {
		a.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Clients = clients

	reposet, err := wireRepos(dbs.DB(), log, cfg, clients)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Repos = reposet

	a.SSEHub = realtime.NewSSEHub(log)
	var pub realtime.Publisher
	if clients.Redis != nil {
		b, err := bus.NewRedisBus(log, clients.Redis, cfg.RedisChannel)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init SSE bus: %w", err)
		}
		a.Bus = b
		pub = b
	}
	a.Notifier = realtime.NewNotifier(log, a.SSEHub, pub)

	gen := client.NewService(log, clients.Backend, clients.Sources)
	a.Orchestrator = orchestrator.New(log, reposet.Lesson, gen, reposet.Config, orchestrator.Options{
		CallTimeout: cfg.CallTimeout,
		Persist:     orchestrator.RetryPolicy{MaxAttempts: cfg.PersistMaxAttempts},
		Language:    cfg.Language,
	})
	a.Runner = runner.New(log, a.Orchestrator, a.Notifier, runner.Options{Retention: cfg.JobRetention})
	return a, nil
}

// Serve runs the HTTP API, and the SSE bus forwarder when redis is
// configured, until ctx ends or one of them fails.
func (a *App) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.Bus != nil {
		if err := a.Bus.StartForwarder(gctx, a.SSEHub.Broadcast); err != nil {
			return fmt.Errorf("start SSE forwarder: %w", err)
		}
	}

	server := apphttp.NewServer(a.routerConfig())
	g.Go(func() error {
		a.Log.Info("HTTP server listening", "port", a.Cfg.Port)
		return server.Run(gctx, ":"+a.Cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return a.Runner.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) routerConfig() apphttp.RouterConfig {
	return apphttp.RouterConfig{
		Log:               a.Log,
		ServiceName:       a.serviceName(),
		CORSOrigins:       a.Cfg.CORSOrigins,
		GenerationHandler: httpH.NewGenerationHandler(a.Log, a.Runner, a.SSEHub),
		HealthHandler:     httpH.NewHealthHandler(a.healthChecks()),
	}
}

func (a *App) serviceName() string {
	if !a.Cfg.Otel.Enabled {
		return ""
	}
	return a.Cfg.Otel.ServiceName
}

func (a *App) healthChecks() map[string]httpH.Pinger {
	checks := map[string]httpH.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if a.Clients.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Clients.Redis.Ping(ctx).Err() }
	}
	return checks
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Runner != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = a.Runner.Shutdown(ctx)
		cancel()
	}
	if a.Bus != nil {
		_ = a.Bus.Close()
	}
	a.Clients.Close()
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
