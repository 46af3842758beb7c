package server

import (
	"context"
	"fmt"
	"time"

	drepo "PortPulse/internal/domain/repository"
	"PortPulse/internal/usecase"
	"PortPulse/pkg/config"
	xhttp "PortPulse/pkg/http"
	"PortPulse/pkg/kafka"
	"PortPulse/pkg/logger"
)

// App owns the process lifecycle: schema init, stream collectors, the
// optional Kafka consumer, the portfolio cycle scheduler and the HTTP server.
type App struct {
	cfg        *config.Config
	l          *logger.Logger
	tickStore  drepo.TickStore
	snapStore  drepo.SnapshotStore
	collectors []*usecase.TickCollector
	consumer   *kafka.Consumer
	scheduler  *usecase.CycleScheduler
	httpServer *xhttp.Server

	cancel context.CancelFunc
}

func NewApp(
	cfg *config.Config,
	l *logger.Logger,
	tickStore drepo.TickStore,
	snapStore drepo.SnapshotStore,
	collectors []*usecase.TickCollector,
	consumer *kafka.Consumer,
	scheduler *usecase.CycleScheduler,
	httpServer *xhttp.Server,
) *App {
	return &App{
		cfg:        cfg,
		l:          l.With("app"),
		tickStore:  tickStore,
		snapStore:  snapStore,
		collectors: collectors,
		consumer:   consumer,
		scheduler:  scheduler,
		httpServer: httpServer,
	}
}

// Start initializes storage and brings every component up. Collector start
// failures are logged and skipped so one dead stream does not prevent the
// portfolio loop from running.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := a.tickStore.Init(initCtx); err != nil {
		return fmt.Errorf("tick store init: %w", err)
	}
	if err := a.snapStore.Init(initCtx); err != nil {
		return fmt.Errorf("snapshot store init: %w", err)
	}

	for _, c := range a.collectors {
		if err := c.Start(ctx); err != nil {
			a.l.Error("collector start failed", logger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer start: %w", err)
		}
	}

	go a.scheduler.Run(ctx)

	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("http server start: %w", err)
	}

	a.l.Info("started",
		logger.String("environment", a.cfg.Environment),
		logger.String("backend", a.cfg.Backend.Type),
		logger.Int("collectors", len(a.collectors)))
	return nil
}

// Stop shuts everything down in reverse order of startup.
func (a *App) Stop() error {
	a.l.Info("stopping")

	if a.cancel != nil {
		a.cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http server stop", logger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.l.Error("kafka consumer stop", logger.Error(err))
		}
	}

	for _, c := range a.collectors {
		if err := c.Shutdown(shutdownCtx); err != nil {
			a.l.Error("collector stop", logger.Error(err))
		}
	}

	a.l.Info("stopped")
	return nil
}
