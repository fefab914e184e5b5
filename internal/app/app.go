package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"lead-intake-go/internal/config"
	"lead-intake-go/internal/csvimport"
	"lead-intake-go/internal/db"
	"lead-intake-go/internal/handlers"
	"lead-intake-go/internal/health"
	"lead-intake-go/internal/intake"
	"lead-intake-go/internal/leads"
	"lead-intake-go/internal/mailbox"
	"lead-intake-go/internal/memory"
	"lead-intake-go/internal/metrics"
	"lead-intake-go/internal/repository"
	"lead-intake-go/internal/server"
)

const shutdownTimeout = 30 * time.Second

// InitLogger configures the global logrus logger
func InitLogger(cfg config.LogConfig) error {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	level := logrus.InfoLevel
	if cfg.Level != "" {
		l, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = l
	}
	logrus.SetLevel(level)
	return nil
}

// CSVOptions builds validation options from configuration
func CSVOptions(cfg config.CSVConfig) csvimport.Options {
	opts := csvimport.DefaultOptions()
	if cfg.MaxFileSize > 0 {
		opts.MaxFileSize = cfg.MaxFileSize
	}
	if cfg.MaxRows > 0 {
		opts.MaxRows = cfg.MaxRows
	}
	opts.Sanitize = cfg.Sanitize
	return opts
}

// NewSink returns the configured lead memory sink. The sink is best effort, so a
// broker that cannot be reached falls back to a no-op sink.
func NewSink(cfg config.MemoryConfig) memory.Sink {
	if !cfg.Enabled {
		return memory.Noop{}
	}
	sink, err := memory.NewAMQPSink(cfg.AMQPURL, cfg.Exchange, cfg.RoutingKey)
	if err != nil {
		logrus.WithError(err).Warn("Lead memory sink unavailable, continuing without it")
		return memory.Noop{}
	}
	logrus.WithField("exchange", cfg.Exchange).Info("Lead memory sink connected")
	return sink
}

// Run wires the service and blocks until ctx is cancelled
func Run(ctx context.Context, cfg *config.Config) error {
	logrus.Info("Starting Lead Intake Service")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dbConn, err := db.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if sqlDB, err := dbConn.DB(); err == nil {
		defer sqlDB.Close()
	}

	repo := repository.New(dbConn)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)
	h := health.New()

	guard, err := intake.NewLaneGuard(cfg.Lane)
	if err != nil {
		return fmt.Errorf("failed to build lane guard: %w", err)
	}

	sink := NewSink(cfg.Memory)
	defer func() {
		if err := sink.Close(); err != nil {
			logrus.Errorf("Failed to close lead memory sink: %v", err)
		}
	}()

	processor := intake.NewProcessor(repo, repo, sink, guard, h, m, intake.Options{
		ProcessedFolder:      cfg.Mail.ProcessedFolder,
		FailedFolder:         cfg.Mail.FailedFolder,
		AllowedSenderDomains: cfg.Intake.AllowedSenderDomains,
	})
	mgr := mailbox.NewManager(cfg.Mail, processor, h, m)
	importer := csvimport.NewImporter(leads.NewReconciler(repo), m)

	hdl := handlers.NewHandlers(repo, mgr, importer, h, CSVOptions(cfg.CSV), reg)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.SetupRouter(hdl),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// A mailbox that cannot be reached leaves the CSV lane and admin API running.
	if err := mgr.Start(ctx); err != nil {
		var cfgErr *mailbox.ConfigurationError
		if errors.As(err, &cfgErr) {
			logrus.WithField("reason", cfgErr.Reason).Warn("Mailbox intake disabled")
		} else {
			logrus.WithError(err).Error("Failed to start mailbox intake")
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("HTTP server error: %w", err)
	}

	logrus.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := mgr.Stop(); err != nil {
		logrus.Errorf("Failed to stop mailbox intake: %v", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return runErr
}
