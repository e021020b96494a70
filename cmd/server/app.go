package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"feedbacktriage/internal/analyzer"
	"feedbacktriage/internal/classifier"
	"feedbacktriage/internal/config"
	"feedbacktriage/internal/db"
	"feedbacktriage/internal/email"
	"feedbacktriage/internal/fanout"
	"feedbacktriage/internal/jobs"
	"feedbacktriage/internal/ledger"
	"feedbacktriage/internal/logging"
	"feedbacktriage/internal/memstore"
	"feedbacktriage/internal/metrics"
	"feedbacktriage/internal/notify"
	"feedbacktriage/internal/slack"
	"feedbacktriage/internal/triage"
)

// notifyTimeout bounds each outbound notification.
const notifyTimeout = 15 * time.Second

// recordStore is implemented by both the postgres and the in-memory store.
type recordStore interface {
	triage.Store
	ledger.Store
	metrics.Store
}

// app holds the constructed components shared by the commands.
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	store       recordStore
	prompts     *config.PromptStore
	registry    *prometheus.Registry
	instruments *metrics.Instruments
	engine      *metrics.Engine
	hub         *fanout.Hub
	dispatcher  *notify.Dispatcher
	reporter    *jobs.Reporter
	service     *triage.Service

	closers []func()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// buildApp wires every component. withClassifier is false for commands that
// never classify, so they run without provider credentials.
func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, withClassifier bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}

	store, err := a.openStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = store

	a.engine = metrics.NewEngine(store, logger)
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.instruments, err = metrics.Register(a.registry, a.engine, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	a.dispatcher = notify.NewDispatcher(logger, notifyTimeout, a.notifiers()...)
	a.closers = append(a.closers, a.dispatcher.Wait)

	a.reporter = jobs.NewReporter(a.engine, a.dispatcher, cfg.ReportsDir, cfg.ReportInterval, logger,
		jobs.WithReportObserver(a.instruments))

	if !withClassifier {
		return a, nil
	}

	a.prompts, err = config.NewPromptStore(cfg.PromptConfigFile, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to load prompt config: %w", err)
	}

	c, err := classifier.New(ctx, classifier.Config{
		Provider:      cfg.LLMProvider,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIModel:   cfg.OpenAIModel,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		BedrockRegion: cfg.BedrockRegion,
		BedrockModel:  cfg.BedrockModel,
	}, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	an := analyzer.New(c, a.prompts, logger,
		analyzer.WithObserver(a.instruments),
		analyzer.WithAttemptTimeout(cfg.ClassifierTimeout))

	a.hub = fanout.NewHub(logger, fanout.WithObserver(a.instruments))
	a.closers = append(a.closers, a.hub.CloseAll)

	a.service = triage.New(store, an, ledger.New(store, logger, a.instruments), a.engine, logger,
		triage.WithBroadcaster(a.hub),
		triage.WithAlerter(a.dispatcher))

	return a, nil
}

func (a *app) openStore(ctx context.Context) (recordStore, error) {
	switch a.cfg.StoreBackend {
	case "memory":
		a.logger.Warn("using in-memory record store; records are lost on exit")
		return memstore.New(), nil
	case "postgres", "":
		database, err := db.New(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, database.Close)

		if err := database.RunMigrations(a.cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		a.logger.Info("migrations completed successfully")
		return database, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s (supported: postgres, memory)", a.cfg.StoreBackend)
	}
}

// notifiers returns the configured notification channels.
func (a *app) notifiers() []notify.Notifier {
	var channels []notify.Notifier
	if sc := slack.NewClient(a.cfg.SlackWebhookURL); sc.IsConfigured() {
		channels = append(channels, sc)
	}
	if en := email.NewNotifier(a.cfg, a.logger); en.IsConfigured() {
		channels = append(channels, en)
	}
	return channels
}

// features reports the optional capabilities for the health endpoint.
func (a *app) features() map[string]bool {
	channels := a.dispatcher.Channels()
	return map[string]bool{
		"ai_analysis":     a.service != nil,
		"human_overrides": true,
		"metrics":         true,
		"slack_alerts":    slices.Contains(channels, "slack"),
		"email_alerts":    slices.Contains(channels, "email"),
		"weekly_jobs":     a.cfg.ReportInterval > 0,
		"reviewer_auth":   a.cfg.IsReviewerAuthEnabled(),
	}
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
