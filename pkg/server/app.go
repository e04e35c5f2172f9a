package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"EdgeLab/internal/usecase"
	pkgch "EdgeLab/pkg/clickhouse"
	"EdgeLab/pkg/config"
	xhttp "EdgeLab/pkg/http"
	pkgkafka "EdgeLab/pkg/kafka"
	applogger "EdgeLab/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	chClient   *pkgch.Client
	online     *usecase.OnlineUseCase
	proc       *usecase.OutcomeProcessor
	handler    xhttp.Handler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	online *usecase.OnlineUseCase,
	proc *usecase.OutcomeProcessor,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:      cfg,
		l:        l,
		consumer: consumer,
		kh:       kh,
		chClient: chClient,
		online:   online,
		proc:     proc,
		handler:  handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rehydrate online models before serving or consuming.
	if err := a.online.Restore(ctx); err != nil {
		a.l.Warn("online state restore error", applogger.Error(err))
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Drain the online queue on a fixed cadence.
	go a.drainLoop(ctx)

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) drainLoop(ctx context.Context) {
	interval := a.cfg.Online.DrainInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	batch := a.cfg.Online.DrainBatch
	if batch <= 0 {
		batch = 256
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report := a.online.ProcessQueue(ctx, batch)
			if report.Errored > 0 {
				a.l.Warn("online drain errors",
					applogger.Int("processed", report.Processed),
					applogger.Int("errored", report.Errored),
				)
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	// Shutdown HTTP server first so no new work arrives.
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Final drain so queued samples are not lost.
	report := a.online.ProcessQueue(shutdownCtx, 0)
	if report.Processed > 0 || report.Errored > 0 {
		a.l.Info("final online drain",
			applogger.Int("processed", report.Processed),
			applogger.Int("errored", report.Errored),
		)
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	// Close outcome processor resources (publisher/storage)
	if a.proc != nil {
		a.proc.Close()
	}

	a.l.Info("shutdown complete")
	return nil
}
