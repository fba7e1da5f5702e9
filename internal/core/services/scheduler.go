package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driven"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driving"
	"github.com/custodia-labs/mailbrain/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyRetention is the number of results kept per task.
const historyRetention = 100

// defaultTick is how often the scheduler checks for due tasks.
const defaultTick = time.Minute

// Refresher rebuilds the semantic index from its source.
type Refresher interface {
	Refresh(ctx context.Context) (domain.IndexStats, error)
}

// Sweeper drops expired cache entries.
type Sweeper interface {
	Sweep() int
}

// job runs one task and reports how many items it handled.
type job func(ctx context.Context) (int, error)

// Scheduler runs the built-in maintenance tasks on their intervals and
// persists their state through a SchedulerStore.
type Scheduler struct {
	config domain.SchedulerConfig
	store  driven.SchedulerStore
	jobs   map[string]job
	tick   time.Duration
	now    func() time.Time

	index     Refresher
	execs     driven.ExecutionStore
	retention int
	cache     Sweeper

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// inflight guards against overlapping runs of the same task.
	inflight map[string]bool
}

// NewScheduler wires the built-in jobs. A nil index or execs turns the
// matching job into a no-op; cache-sweep stays a no-op until WithCache.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	index Refresher,
	execs driven.ExecutionStore,
	retention int,
) *Scheduler {
	s := &Scheduler{
		config:    config,
		store:     store,
		index:     index,
		execs:     execs,
		retention: retention,
		tick:      defaultTick,
		now:       time.Now,
		inflight:  make(map[string]bool),
	}
	s.jobs = map[string]job{
		domain.TaskIDIndexRefresh:   s.runIndexRefresh,
		domain.TaskIDExecutionPrune: s.runExecutionPrune,
		domain.TaskIDCacheSweep:     s.runCacheSweep,
	}
	return s
}

// WithCache sets the cache swept by the cache-sweep task.
func (s *Scheduler) WithCache(cache Sweeper) *Scheduler {
	s.cache = cache
	return s
}

// Start registers the active tasks and runs the tick loop until Stop is
// called or ctx ends. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	if s.config.Enabled {
		if err := s.initialiseTasks(ctx); err != nil {
			logger.Warn("scheduler: failed to initialise tasks: %v", err)
		}
	} else {
		logger.Info("Scheduler disabled")
	}

	return s.loop(ctx, stop)
}

// Stop ends the loop and waits for in-flight tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// initialiseTasks registers every active built-in task with the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	for _, def := range domain.BuiltinTasks() {
		if !s.config.Active(def.ID) {
			continue
		}
		if err := s.ensureTask(ctx, def.ID, def.Name, s.config.GetTaskConfig(def.ID)); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates the task or refreshes its stored configuration.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		task = &domain.ScheduledTask{ID: id, Name: name}
	}
	task.Configure(cfg, s.now())
	return s.store.SaveTask(ctx, task)
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		if s.config.Enabled {
			s.checkAndRunDueTasks(ctx)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
		}
	}
}

// checkAndRunDueTasks starts every task that is due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		if tasks[i].IsDue(now) {
			s.runTask(ctx, &tasks[i])
		}
	}
}

// runTask starts task in the background unless a run is already in flight.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	run, ok := s.jobs[task.ID]
	if !ok {
		logger.Warn("scheduler: unknown task ID: %s", task.ID)
		return
	}

	s.mu.Lock()
	if s.inflight[task.ID] {
		s.mu.Unlock()
		logger.Debug("scheduler: %s still running, skipping", task.ID)
		return
	}
	s.inflight[task.ID] = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.inflight, task.ID)
			s.mu.Unlock()
			s.wg.Done()
		}()

		result := &domain.TaskResult{TaskID: task.ID, StartedAt: s.now()}
		n, err := run(ctx)
		result.EndedAt = s.now()
		result.ItemsProcessed = n
		result.Success = err == nil
		if err != nil {
			result.Error = err.Error()
			logger.Warn("scheduler: task %s failed: %v", task.ID, err)
		} else {
			logger.Debug("scheduler: task %s processed %d items in %s", task.ID, n, result.Duration())
		}

		task.Apply(result)
		s.persistRun(ctx, task, result)
	}()
}

// persistRun saves task state and history. Store failures are logged only.
func (s *Scheduler) persistRun(ctx context.Context, task *domain.ScheduledTask, result *domain.TaskResult) {
	if err := s.store.SaveTask(ctx, task); err != nil {
		logger.Warn("scheduler: failed to save task %s: %v", task.ID, err)
	}
	if err := s.store.RecordResult(ctx, result); err != nil {
		logger.Warn("scheduler: failed to record result for %s: %v", task.ID, err)
	}
	if err := s.store.PruneHistory(ctx, historyRetention); err != nil {
		logger.Warn("scheduler: failed to prune history: %v", err)
	}
}

// runIndexRefresh reloads the message source and rebuilds the index.
func (s *Scheduler) runIndexRefresh(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	stats, err := s.index.Refresh(ctx)
	if err != nil {
		return 0, err
	}
	return stats.Messages, nil
}

// runExecutionPrune enforces execution retention.
func (s *Scheduler) runExecutionPrune(ctx context.Context) (int, error) {
	if s.execs == nil || s.retention <= 0 {
		return 0, nil
	}
	return s.execs.Prune(ctx, s.retention)
}

// runCacheSweep removes expired answer cache entries.
func (s *Scheduler) runCacheSweep(_ context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.Sweep(), nil
}
