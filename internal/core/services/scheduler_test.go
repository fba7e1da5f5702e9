package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailbrain/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driven"
)

// mockSchedulerStore implements driven.SchedulerStore for testing.
type mockSchedulerStore struct {
	mu       sync.RWMutex
	tasks    map[string]*domain.ScheduledTask
	results  map[string][]domain.TaskResult
	saveErr  error
	listErr  error
	getErr   error
	pruneErr error
}

func newMockSchedulerStore() *mockSchedulerStore {
	return &mockSchedulerStore{
		tasks:   make(map[string]*domain.ScheduledTask),
		results: make(map[string][]domain.TaskResult),
	}
}

func (m *mockSchedulerStore) GetTask(_ context.Context, taskID string) (*domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	task, exists := m.tasks[taskID]
	if !exists {
		return nil, nil
	}
	// Return a copy
	taskCopy := *task
	return &taskCopy, nil
}

func (m *mockSchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	tasks := make([]domain.ScheduledTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

func (m *mockSchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if task == nil {
		return domain.ErrInvalidInput
	}
	taskCopy := *task
	m.tasks[task.ID] = &taskCopy
	return nil
}

func (m *mockSchedulerStore) DeleteTask(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, taskID)
	return nil
}

func (m *mockSchedulerStore) RecordResult(_ context.Context, result *domain.TaskResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result == nil {
		return domain.ErrInvalidInput
	}
	m.results[result.TaskID] = append(m.results[result.TaskID], *result)
	return nil
}

func (m *mockSchedulerStore) GetTaskHistory(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := m.results[taskID]
	if len(results) > limit {
		results = results[len(results)-limit:]
	}
	return results, nil
}

func (m *mockSchedulerStore) PruneHistory(_ context.Context, _ int) error {
	return m.pruneErr
}

// mockRefresher counts index refreshes.
type mockRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockRefresher) Refresh(_ context.Context) (domain.IndexStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return domain.IndexStats{}, m.err
	}
	return domain.IndexStats{Messages: 7}, nil
}

func (m *mockRefresher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Ensure mocks implement interfaces
var _ driven.SchedulerStore = (*mockSchedulerStore)(nil)
var _ Refresher = (*mockRefresher)(nil)

func TestNewScheduler(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	scheduler := NewScheduler(config, newMockSchedulerStore(), &mockRefresher{}, nil, 10)

	require.NotNil(t, scheduler)
	assert.Equal(t, config.Enabled, scheduler.config.Enabled)
	assert.Equal(t, defaultTick, scheduler.tick)
	assert.Equal(t, 10, scheduler.retention)
	assert.Len(t, scheduler.jobs, len(domain.BuiltinTasks()))
	for _, def := range domain.BuiltinTasks() {
		assert.Contains(t, scheduler.jobs, def.ID)
	}
}

// startScheduler runs Start in the background and returns a channel
// carrying its result.
func startScheduler(ctx context.Context, s *Scheduler) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)
	return done
}

func TestScheduler_StopEndsLoop(t *testing.T) {
	refresher := &mockRefresher{}
	store := newMockSchedulerStore()
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, refresher, nil, 0)

	done := startScheduler(context.Background(), scheduler)
	require.NoError(t, scheduler.Stop())
	assert.NoError(t, <-done)

	// Registered tasks first run one interval after startup.
	tasks, err := store.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, tasks, 3)
	assert.Equal(t, 0, refresher.callCount())
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil, nil, 0)
	require.NoError(t, scheduler.Stop())
}

func TestScheduler_StartIsIdempotent(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), &mockRefresher{}, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := startScheduler(ctx, scheduler)
	assert.NoError(t, scheduler.Start(context.Background()))

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	require.NoError(t, scheduler.Stop())
}

func TestScheduler_Disabled(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	config.Enabled = false
	store := newMockSchedulerStore()
	refresher := &mockRefresher{}

	scheduler := NewScheduler(config, store, refresher, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- scheduler.Start(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	require.NoError(t, scheduler.Stop())

	tasks, err := store.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, 0, refresher.callCount())
}

func TestScheduler_InitialiseTasks(t *testing.T) {
	store := newMockSchedulerStore()
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, nil, nil, 0)

	ctx := context.Background()
	err := scheduler.initialiseTasks(ctx)
	require.NoError(t, err)

	refresh, err := store.GetTask(ctx, domain.TaskIDIndexRefresh)
	require.NoError(t, err)
	require.NotNil(t, refresh)
	assert.Equal(t, "Index Refresh", refresh.Name)
	assert.Equal(t, 30*time.Minute, refresh.Interval)
	assert.True(t, refresh.Enabled)

	prune, err := store.GetTask(ctx, domain.TaskIDExecutionPrune)
	require.NoError(t, err)
	require.NotNil(t, prune)
	assert.Equal(t, "Execution Prune", prune.Name)
	assert.Equal(t, time.Hour, prune.Interval)
}

func TestScheduler_InitialiseTasks_SkipsDisabledTasks(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	config.TaskConfigs[domain.TaskIDExecutionPrune] = domain.TaskConfig{Enabled: false, Interval: time.Hour}
	store := newMockSchedulerStore()
	scheduler := NewScheduler(config, store, nil, nil, 0)

	ctx := context.Background()
	require.NoError(t, scheduler.initialiseTasks(ctx))

	prune, err := store.GetTask(ctx, domain.TaskIDExecutionPrune)
	require.NoError(t, err)
	assert.Nil(t, prune)
}

func TestScheduler_InitialiseTasks_StoreError(t *testing.T) {
	store := newMockSchedulerStore()
	store.getErr = errors.New("disk full")
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, nil, nil, 0)

	err := scheduler.initialiseTasks(context.Background())
	assert.EqualError(t, err, "disk full")
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestScheduler_EnsureTask_Reschedules(t *testing.T) {
	store := newMockSchedulerStore()
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, nil, nil, 0)
	start := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	scheduler.now = fixedClock(start)
	ctx := context.Background()

	cfg := domain.TaskConfig{Enabled: true, Interval: time.Hour}
	require.NoError(t, scheduler.ensureTask(ctx, "test-task", "Test Task", cfg))

	task, err := store.GetTask(ctx, "test-task")
	require.NoError(t, err)
	assert.Equal(t, "Test Task", task.Name)
	assert.Equal(t, start.Add(time.Hour), task.NextRun)

	// Same interval keeps the schedule.
	scheduler.now = fixedClock(start.Add(10 * time.Minute))
	require.NoError(t, scheduler.ensureTask(ctx, "test-task", "Test Task", cfg))
	task, err = store.GetTask(ctx, "test-task")
	require.NoError(t, err)
	assert.Equal(t, start.Add(time.Hour), task.NextRun)

	cfg.Interval = 2 * time.Hour
	require.NoError(t, scheduler.ensureTask(ctx, "test-task", "Test Task", cfg))
	task, err = store.GetTask(ctx, "test-task")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, task.Interval)
	assert.Equal(t, start.Add(10*time.Minute+2*time.Hour), task.NextRun)
}

func TestScheduler_RunIndexRefresh(t *testing.T) {
	refresher := &mockRefresher{}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), refresher, nil, 0)

	n, err := scheduler.runIndexRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, 1, refresher.callCount())

	refresher.err = domain.ErrSourceUnavailable
	_, err = scheduler.runIndexRefresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestScheduler_RunIndexRefresh_NilIndex(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil, nil, 0)

	n, err := scheduler.runIndexRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestScheduler_RunExecutionPrune(t *testing.T) {
	execs := memory.NewExecutionStore(0)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		exec := domain.NewWorkflowExecution(string(rune('a'+i)), "q", 1, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, execs.Save(ctx, exec))
	}

	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil, execs, 2)

	n, err := scheduler.runExecutionPrune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, execs.Len())

	_, err = execs.Get(ctx, "e")
	assert.NoError(t, err)
	_, err = execs.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScheduler_RunExecutionPrune_NoRetention(t *testing.T) {
	execs := memory.NewExecutionStore(0)
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil, execs, 0)

	n, err := scheduler.runExecutionPrune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestScheduler_RunCacheSweep(t *testing.T) {
	cache := memory.NewCache()
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "stale", []byte("1"), time.Millisecond))
	require.NoError(t, cache.Set(ctx, "fresh", []byte("2"), time.Hour))
	time.Sleep(5 * time.Millisecond)

	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil, nil, 0).WithCache(cache)

	n, err := scheduler.runCacheSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, cache.Len())
}

func TestScheduler_RunCacheSweep_NoCache(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil, nil, 0)

	n, err := scheduler.runCacheSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestScheduler_CheckAndRunDueTasks(t *testing.T) {
	store := newMockSchedulerStore()
	refresher := &mockRefresher{}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, refresher, nil, 0)
	ctx := context.Background()

	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	scheduler.now = fixedClock(now)
	dueTask := &domain.ScheduledTask{
		ID:       domain.TaskIDIndexRefresh,
		Name:     "Index Refresh",
		Interval: 1 * time.Hour,
		NextRun:  now.Add(-1 * time.Minute), // Already past due
		Enabled:  true,
	}
	require.NoError(t, store.SaveTask(ctx, dueTask))

	notDue := &domain.ScheduledTask{
		ID:       domain.TaskIDExecutionPrune,
		Name:     "Execution Prune",
		Interval: 1 * time.Hour,
		NextRun:  now.Add(time.Hour),
		Enabled:  true,
	}
	require.NoError(t, store.SaveTask(ctx, notDue))

	scheduler.checkAndRunDueTasks(ctx)
	scheduler.wg.Wait()

	assert.Equal(t, 1, refresher.callCount())

	task, err := store.GetTask(ctx, domain.TaskIDIndexRefresh)
	require.NoError(t, err)
	assert.Equal(t, now, task.LastRun)
	assert.Equal(t, now.Add(time.Hour), task.NextRun)
	assert.Empty(t, task.LastError)
	assert.Equal(t, now, task.LastSuccess)

	history, err := store.GetTaskHistory(ctx, domain.TaskIDIndexRefresh, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Success)
	assert.Equal(t, 7, history[0].ItemsProcessed)

	pruneHistory, err := store.GetTaskHistory(ctx, domain.TaskIDExecutionPrune, 10)
	require.NoError(t, err)
	assert.Empty(t, pruneHistory)
}

func TestScheduler_RunTask_RecordsFailure(t *testing.T) {
	store := newMockSchedulerStore()
	refresher := &mockRefresher{err: errors.New("source missing")}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, refresher, nil, 0)
	ctx := context.Background()

	task := &domain.ScheduledTask{ID: domain.TaskIDIndexRefresh, Interval: time.Hour, Enabled: true}
	scheduler.runTask(ctx, task)
	scheduler.wg.Wait()

	saved, err := store.GetTask(ctx, domain.TaskIDIndexRefresh)
	require.NoError(t, err)
	assert.Equal(t, "source missing", saved.LastError)

	history, err := store.GetTaskHistory(ctx, domain.TaskIDIndexRefresh, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
	assert.Equal(t, "source missing", history[0].Error)
}

func TestScheduler_RunTask_UnknownTaskID(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil, nil, 0)

	task := &domain.ScheduledTask{
		ID:      "unknown-task",
		Name:    "Unknown",
		Enabled: true,
	}

	// This should just log and return, not panic
	scheduler.runTask(context.Background(), task)
	scheduler.wg.Wait()
}

func TestScheduler_CheckAndRunDueTasks_SkipsDisabled(t *testing.T) {
	store := newMockSchedulerStore()
	refresher := &mockRefresher{}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, refresher, nil, 0)
	ctx := context.Background()

	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
		ID:       domain.TaskIDIndexRefresh,
		Interval: time.Hour,
		Enabled:  false,
	}))

	scheduler.checkAndRunDueTasks(ctx)
	scheduler.wg.Wait()

	assert.Equal(t, 0, refresher.callCount())
}

func TestScheduler_CheckAndRunDueTasks_ListError(t *testing.T) {
	store := newMockSchedulerStore()
	store.listErr = errors.New("locked")
	refresher := &mockRefresher{}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, refresher, nil, 0)

	scheduler.checkAndRunDueTasks(context.Background())
	scheduler.wg.Wait()

	assert.Equal(t, 0, refresher.callCount())
}

func TestScheduler_RunTask_SkipsInflight(t *testing.T) {
	store := newMockSchedulerStore()
	refresher := &mockRefresher{}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, refresher, nil, 0)
	scheduler.inflight[domain.TaskIDIndexRefresh] = true

	task := &domain.ScheduledTask{ID: domain.TaskIDIndexRefresh, Interval: time.Hour, Enabled: true}
	scheduler.runTask(context.Background(), task)
	scheduler.wg.Wait()

	assert.Equal(t, 0, refresher.callCount())
	history, err := store.GetTaskHistory(context.Background(), domain.TaskIDIndexRefresh, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestScheduler_RunTask_ClearsInflight(t *testing.T) {
	refresher := &mockRefresher{}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), refresher, nil, 0)

	task := &domain.ScheduledTask{ID: domain.TaskIDIndexRefresh, Interval: time.Hour, Enabled: true}
	scheduler.runTask(context.Background(), task)
	scheduler.wg.Wait()
	scheduler.runTask(context.Background(), task)
	scheduler.wg.Wait()

	assert.Equal(t, 2, refresher.callCount())
	assert.Empty(t, scheduler.inflight)
}

func TestScheduler_RunTask_StoreFailuresAreLogged(t *testing.T) {
	store := newMockSchedulerStore()
	store.saveErr = errors.New("read-only")
	store.pruneErr = errors.New("read-only")
	refresher := &mockRefresher{}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, refresher, nil, 0)

	task := &domain.ScheduledTask{ID: domain.TaskIDIndexRefresh, Interval: time.Hour, Enabled: true}
	scheduler.runTask(context.Background(), task)
	scheduler.wg.Wait()

	assert.Equal(t, 1, refresher.callCount())
	history, err := store.GetTaskHistory(context.Background(), domain.TaskIDIndexRefresh, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
