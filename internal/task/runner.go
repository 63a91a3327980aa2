package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge is how long a task may stay in processing before it is
	// reset to pending and requeued
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	StuckTaskCheckInterval time.Duration

	// Retention is how long finished tasks are kept. Zero keeps them forever.
	Retention time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           10 * time.Minute,
		StuckTaskCheckInterval: time.Minute,
		Retention:              7 * 24 * time.Hour,
	}
}

// ErrRunnerStarted is returned by Start on a runner that already ran.
var ErrRunnerStarted = errors.New("task runner already started")

// TaskRunner manages background task processing
type TaskRunner struct {
	store    TaskStore
	registry *Registry
	queue    *TaskQueue
	config   TaskRunnerConfig
	logger   *slog.Logger

	mu         sync.Mutex
	started    bool
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	errHandler func(task Task, err error)

	processed *prometheus.CounterVec
}

// NewTaskRunner creates a runner. registry may be nil when no task type
// needs recovery.
func NewTaskRunner(store TaskStore, registry *Registry, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "task_runner")
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	if config.StuckTaskCheckInterval <= 0 {
		config.StuckTaskCheckInterval = time.Minute
	}
	if registry == nil {
		registry = NewRegistry()
	}

	r := &TaskRunner{
		store:    store,
		registry: registry,
		queue:    NewTaskQueue(config.QueueSize, logger),
		config:   config,
		logger:   logger,
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recall",
			Subsystem: "tasks",
			Name:      "processed_total",
			Help:      "Background tasks finished, by type and final status.",
		}, []string{"type", "status"}),
	}
	r.errHandler = func(task Task, err error) {
		logger.Error("task execution failed",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"error", err)
	}
	return r
}

// SetErrorHandler replaces the callback invoked when a task fails.
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// Collectors exposes the runner's metrics for registration.
func (r *TaskRunner) Collectors() []prometheus.Collector {
	depth := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "recall",
		Subsystem: "tasks",
		Name:      "queue_depth",
		Help:      "Tasks waiting in the in-memory queue.",
	}, func() float64 { return float64(r.queue.Len()) })
	return []prometheus.Collector{r.processed, depth}
}

// Submit persists task and queues it for execution.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if err := r.queue.Enqueue(task); err != nil {
		// The task stays pending in the store and is picked up on recovery.
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Start recovers unfinished tasks and launches the workers and the stuck
// task monitor. The workers run until Stop is called or ctx is cancelled.
func (r *TaskRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrRunnerStarted
	}
	r.started = true

	if err := r.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancelFunc = cancel

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(runCtx, i)
	}

	r.wg.Add(1)
	go r.stuckTaskMonitor(runCtx)

	go func() {
		select {
		case <-ctx.Done():
			r.Stop()
		case <-runCtx.Done():
		}
	}()

	r.logger.Info("task runner started", "worker_count", r.config.WorkerCount)
	return nil
}

// Stop cancels the workers, waits for in-flight tasks and closes the queue.
// It is safe to call more than once.
func (r *TaskRunner) Stop() {
	r.mu.Lock()
	cancel := r.cancelFunc
	r.cancelFunc = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()
	r.queue.Close()
	r.logger.Info("task runner stopped")
}

// Recover requeues pending tasks and resets tasks left in processing by a
// previous run.
func (r *TaskRunner) Recover(ctx context.Context) error {
	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range pending {
		r.requeue(ctx, rec)
	}

	for _, rec := range processing {
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending, "reset after recovery"); err != nil {
			r.logger.Error("failed to reset processing task status",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
			continue
		}
		r.requeue(ctx, rec)
	}

	return nil
}

func (r *TaskRunner) requeue(ctx context.Context, rec Record) {
	task, err := r.registry.Decode(rec)
	if err != nil {
		r.logger.Error("cannot rebuild stored task, marking failed",
			"task_id", rec.ID,
			"task_type", rec.Type,
			"error", err)
		if updErr := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusFailed, err.Error()); updErr != nil {
			r.logger.Error("failed to mark task failed", "task_id", rec.ID, "error", updErr)
		}
		return
	}

	if err := r.queue.Enqueue(task); err != nil {
		r.logger.Error("failed to requeue task",
			"task_id", rec.ID,
			"task_type", rec.Type,
			"error", err)
	}
}

func (r *TaskRunner) worker(ctx context.Context, id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	tasks := r.queue.GetChannel()
	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case task, ok := <-tasks:
			if !ok {
				return
			}
			r.processTask(ctx, task, id)
		}
	}
}

func (r *TaskRunner) processTask(ctx context.Context, task Task, workerID int) {
	log := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusProcessing, ""); err != nil {
		log.Error("failed to update task status to processing", "error", err)
		return
	}

	log.Debug("processing task")

	if err := task.Execute(ctx); err != nil {
		if updateErr := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			log.Error("failed to update task status to failed", "error", updateErr)
		}
		r.processed.WithLabelValues(task.Type(), string(TaskStatusFailed)).Inc()
		r.errHandler(task, err)
		return
	}

	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusCompleted, ""); err != nil {
		log.Error("failed to update task status to completed", "error", err)
	}
	r.processed.WithLabelValues(task.Type(), string(TaskStatusCompleted)).Inc()
	log.Debug("task completed")
}

// stuckTaskMonitor periodically resets tasks stuck in processing and prunes
// finished tasks past their retention.
func (r *TaskRunner) stuckTaskMonitor(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.resetStuckTasks(ctx)
			r.pruneFinished(ctx)
		}
	}
}

func (r *TaskRunner) resetStuckTasks(ctx context.Context) {
	stuck, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		r.logger.Error("failed to check for stuck tasks", "error", err)
		return
	}
	if len(stuck) == 0 {
		return
	}

	r.logger.Info("found stuck tasks", "count", len(stuck))
	for _, rec := range stuck {
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending,
			"reset after being stuck in processing state"); err != nil {
			r.logger.Error("failed to reset stuck task status",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
			continue
		}
		r.requeue(ctx, rec)
	}
}

func (r *TaskRunner) pruneFinished(ctx context.Context) {
	if r.config.Retention <= 0 {
		return
	}
	n, err := r.store.DeleteFinishedBefore(ctx, time.Now().UTC().Add(-r.config.Retention))
	if err != nil {
		r.logger.Error("failed to prune finished tasks", "error", err)
		return
	}
	if n > 0 {
		r.logger.Debug("pruned finished tasks", "count", n)
	}
}
