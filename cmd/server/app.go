package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/recall-api/internal/alarm"
	"github.com/phrazzld/recall-api/internal/api"
	"github.com/phrazzld/recall-api/internal/api/middleware"
	"github.com/phrazzld/recall-api/internal/config"
	"github.com/phrazzld/recall-api/internal/domain/srs"
	"github.com/phrazzld/recall-api/internal/events"
	"github.com/phrazzld/recall-api/internal/notify"
	"github.com/phrazzld/recall-api/internal/platform/cache"
	"github.com/phrazzld/recall-api/internal/platform/postgres"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/service/auth"
	"github.com/phrazzld/recall-api/internal/service/review"
	"github.com/phrazzld/recall-api/internal/store"
	"github.com/phrazzld/recall-api/internal/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// application holds the wired dependencies of a running server.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	items     store.ItemStore
	emitter   *events.InMemoryEventEmitter
	runner    *task.TaskRunner
	scheduler *alarm.Scheduler
	registry  *prometheus.Registry
	handler   http.Handler
}

// newApplication builds every store, service and handler on top of db.
// Nothing is started until Run.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config:   cfg,
		logger:   logger,
		db:       db,
		emitter:  events.NewInMemoryEventEmitter(logger),
		registry: prometheus.NewRegistry(),
	}
	loc := cfg.Server.Location()

	// Stores
	users := postgres.NewPostgresUserStore(db, logger)
	notebooks := postgres.NewPostgresNotebookStore(db, logger)
	curves, err := cache.NewCurveStore(postgres.NewPostgresCurveStore(db, logger), cfg.Cache.CurveCacheSize, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create curve cache: %w", err)
	}
	app.items = postgres.NewPostgresItemStore(db, logger)
	logs := postgres.NewPostgresReviewLogStore(db, logger)
	todos := postgres.NewPostgresTodoStore(db, logger)
	tasks := postgres.NewPostgresTaskStore(db, logger)

	// Reminder delivery: alarm -> review_reminder event -> task -> notifier
	reminders := task.NewReminderTaskFactory(newNotifier(cfg.Notify, logger), logger)
	registry := task.NewRegistry()
	registry.Register(task.TaskTypeReviewReminder, reminders.Decode)
	app.runner = task.NewTaskRunner(tasks, registry, taskRunnerConfig(cfg.Task), logger)
	app.emitter.RegisterHandler(task.NewTaskFactoryEventHandler(reminders, app.runner, logger))

	if cfg.Scheduler.Enabled {
		app.scheduler = alarm.NewScheduler(app.items, app.emitter, alarm.Config{
			MinDelay:      cfg.Scheduler.MinDelay,
			RemindOnStart: cfg.Scheduler.RemindOnStart,
			RetryDelay:    cfg.Scheduler.RetryDelay,
			MaxRetryDelay: cfg.Scheduler.MaxRetryDelay,
		}, logger)
		app.emitter.RegisterHandler(app.scheduler)
	}

	// Services
	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	presets, err := srs.LoadPresets(cfg.Curves.PresetsFile)
	if err != nil {
		return nil, err
	}
	params := srs.NewDefaultParams()

	userService := service.NewUserService(db,
		service.UserStores{Users: users, Notebooks: notebooks, Curves: curves},
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		srs.SeedPresets(params, presets),
		app.emitter,
		logger)
	reviewService := review.NewService(db,
		review.Stores{Items: app.items, Curves: curves, Notebooks: notebooks, Logs: logs},
		srs.NewServiceWithParams(params),
		app.emitter,
		logger)

	// Metrics
	httpMetrics := middleware.NewHTTPMetrics()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "recall"),
	)
	app.registry.MustRegister(httpMetrics.Collectors()...)
	app.registry.MustRegister(app.runner.Collectors()...)
	app.registry.MustRegister(curves.Collectors()...)
	if app.scheduler != nil {
		app.registry.MustRegister(app.scheduler.Collectors()...)
	}

	app.handler = api.NewRouter(api.Handlers{
		Auth:      api.NewAuthHandler(userService, jwtService, logger),
		Notebooks: api.NewNotebookHandler(service.NewNotebookService(db, notebooks, app.emitter, logger), logger),
		Curves:    api.NewCurveHandler(service.NewCurveService(db, curves, logger), logger),
		Items:     api.NewItemHandler(reviewService, service.NewItemQueryService(app.items, logs, logger), logger),
		Stats:     api.NewStatsHandler(service.NewStatsService(app.items, logs, loc, logger), logger),
		Todos:     api.NewTodoHandler(service.NewTodoService(db, todos, loc, logger), logger),
	}, api.RouterConfig{
		Logger:         logger,
		Auth:           middleware.NewAuthMiddleware(jwtService),
		Metrics:        httpMetrics,
		MetricsHandler: promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}),
		Ping:           db.PingContext,
	})

	logger.Info("application initialized",
		"scheduler_enabled", cfg.Scheduler.Enabled,
		"curve_presets", len(presets))
	return app, nil
}

func taskRunnerConfig(cfg config.TaskConfig) task.TaskRunnerConfig {
	rc := task.DefaultTaskRunnerConfig()
	rc.WorkerCount = cfg.WorkerCount
	rc.QueueSize = cfg.QueueSize
	rc.StuckTaskAge = cfg.StuckTaskAge
	rc.StuckTaskCheckInterval = cfg.MonitorInterval
	return rc
}

// newNotifier picks the reminder delivery configured in cfg.
func newNotifier(cfg config.NotifyConfig, logger *slog.Logger) notify.Notifier {
	if cfg.Kind == "webhook" {
		return notify.NewWebhookNotifier(cfg.WebhookURL, cfg.Timeout, logger)
	}
	return notify.NewLogNotifier(logger)
}

// Handler exposes the HTTP handler, mostly for tests.
func (app *application) Handler() http.Handler {
	return app.handler
}

// cleanup releases what Run does not own.
func (app *application) cleanup() {
	if app.runner != nil {
		app.runner.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
}
