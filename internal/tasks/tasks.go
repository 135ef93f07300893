package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"omnichannel/inquiries/internal/config"
	"omnichannel/inquiries/internal/services"
)

// TaskType defines the type of a background task.
const (
	TypeQueueSweep     = "inquiry:queue:sweep"
	TypeDispatch       = "inquiry:dispatch"
	TypeUnlockAll      = "inquiry:unlock_all"
	TypeVisitorCleanup = "inquiry:visitor:cleanup"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

// Enqueuer is the part of *asynq.Client the processor and handlers need.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// DispatchPayload names the queue a dispatch task drains. Empty is the
// undepartmented queue.
type DispatchPayload struct {
	Department string `json:"department"`
}

// VisitorCleanupPayload identifies the visitor session whose inquiries are removed.
type VisitorCleanupPayload struct {
	Token string `json:"token"`
}

func NewQueueSweepTask() *asynq.Task {
	return asynq.NewTask(TypeQueueSweep, nil)
}

func NewDispatchTask(department string) (*asynq.Task, error) {
	payload, err := json.Marshal(DispatchPayload{Department: department})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDispatch, payload), nil
}

func NewUnlockAllTask() *asynq.Task {
	return asynq.NewTask(TypeUnlockAll, nil)
}

func NewVisitorCleanupTask(token string) (*asynq.Task, error) {
	payload, err := json.Marshal(VisitorCleanupPayload{Token: token})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeVisitorCleanup, payload), nil
}

// EnqueueVisitorCleanup schedules removal of every inquiry of a visitor session.
func EnqueueVisitorCleanup(ctx context.Context, enqueuer Enqueuer, token string) (*asynq.TaskInfo, error) {
	task, err := NewVisitorCleanupTask(token)
	if err != nil {
		return nil, err
	}
	return enqueuer.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(5))
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg        *config.Config
	inquiries  services.IInquiryService
	settings   services.ISettingsService
	dispatcher services.IDispatchService
	enqueuer   Enqueuer
	logger     *zap.Logger
}

func NewTaskProcessor(
	cfg *config.Config,
	inquiries services.IInquiryService,
	settings services.ISettingsService,
	dispatcher services.IDispatchService,
	enqueuer Enqueuer,
	logger *zap.Logger,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:        cfg,
		inquiries:  inquiries,
		settings:   settings,
		dispatcher: dispatcher,
		enqueuer:   enqueuer,
		logger:     logger,
	}
}

// SetupServer configures an Asynq server and its handler mux. The caller
// starts and shuts it down.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, logger *zap.Logger) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
			},
			Logger: logger.Sugar(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed",
					zap.String("type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err),
				)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeQueueSweep, processor.HandleQueueSweepTask)
	mux.HandleFunc(TypeDispatch, processor.HandleDispatchTask)
	mux.HandleFunc(TypeUnlockAll, processor.HandleUnlockAllTask)
	mux.HandleFunc(TypeVisitorCleanup, processor.HandleVisitorCleanupTask)
	logger.Info("registered inquiry task handlers")

	return srv, mux
}

// NewScheduler registers the periodic queue sweep on cfg.DispatchInterval.
func NewScheduler(rdb *redis.Client, cfg *config.Config, logger *zap.Logger) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt(rdb), &asynq.SchedulerOpts{
		Logger:   logger.Sugar(),
		Location: time.UTC,
	})
	entryID, err := scheduler.Register(cfg.DispatchInterval, NewQueueSweepTask(),
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register queue sweep (%q): %w", cfg.DispatchInterval, err)
	}
	logger.Info("queue sweep scheduled", zap.String("entry_id", entryID), zap.String("spec", cfg.DispatchInterval))
	return scheduler, nil
}

// --- Task Handlers ---

// sweepDepartments is the restricted department list when configured, else
// every department with queued inquiries plus the undepartmented queue.
func (p *TaskProcessor) sweepDepartments(ctx context.Context) ([]string, error) {
	if restricted := p.settings.DispatchDepartments(ctx); len(restricted) > 0 {
		return restricted, nil
	}
	departments, err := p.inquiries.GetDistinctQueuedDepartments(ctx)
	if err != nil {
		return nil, err
	}
	return append([]string{""}, departments...), nil
}

// HandleQueueSweepTask fans out one dispatch task per queue.
func (p *TaskProcessor) HandleQueueSweepTask(ctx context.Context, t *asynq.Task) error {
	departments, err := p.sweepDepartments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list departments for sweep: %w", err)
	}

	enqueued := 0
	for _, department := range departments {
		task, err := NewDispatchTask(department)
		if err != nil {
			return fmt.Errorf("failed to build dispatch task: %w", asynq.SkipRetry)
		}
		// one pending dispatch per queue is enough
		_, err = p.enqueuer.EnqueueContext(ctx, task,
			asynq.Queue(QueueCritical),
			asynq.MaxRetry(1),
			asynq.Unique(time.Minute),
		)
		if err != nil {
			if errors.Is(err, asynq.ErrDuplicateTask) {
				continue
			}
			p.logger.Error("failed to enqueue dispatch", zap.String("department", department), zap.Error(err))
			continue
		}
		enqueued++
	}

	p.logger.Debug("queue sweep finished", zap.Int("departments", len(departments)), zap.Int("enqueued", enqueued))
	return nil
}

// HandleDispatchTask claims and assigns up to DispatchBatchSize inquiries of
// one queue, stopping early when the queue is drained or agents run out.
func (p *TaskProcessor) HandleDispatchTask(ctx context.Context, t *asynq.Task) error {
	var payload DispatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal dispatch task payload: %v: %w", err, asynq.SkipRetry)
	}

	taken := 0
	for i := 0; i < p.cfg.DispatchBatchSize; i++ {
		result, err := p.dispatcher.DispatchNext(ctx, payload.Department)
		if err != nil {
			return fmt.Errorf("dispatch for department %q failed after %d assignments: %w", payload.Department, taken, err)
		}
		if result.Outcome != services.DispatchOutcomeTaken {
			break
		}
		taken++
	}

	if taken > 0 {
		p.logger.Info("dispatch batch finished", zap.String("department", payload.Department), zap.Int("taken", taken))
	}
	return nil
}

// HandleUnlockAllTask releases every claim lease.
func (p *TaskProcessor) HandleUnlockAllTask(ctx context.Context, t *asynq.Task) error {
	released, err := p.inquiries.UnlockAll(ctx)
	if err != nil {
		return err
	}
	p.logger.Info("unlock all task finished", zap.Int64("released", released))
	return nil
}

// HandleVisitorCleanupTask removes the inquiries of a closed visitor session.
func (p *TaskProcessor) HandleVisitorCleanupTask(ctx context.Context, t *asynq.Task) error {
	var payload VisitorCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal visitor cleanup payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Token == "" {
		return fmt.Errorf("visitor cleanup without token: %w", asynq.SkipRetry)
	}

	removed, err := p.inquiries.RemoveByVisitorToken(ctx, payload.Token)
	if err != nil {
		return err
	}
	p.logger.Info("visitor inquiries removed", zap.Int64("removed", removed))
	return nil
}
