package domain

import "time"

// Task IDs for built-in tasks.
const (
	TaskIDIndexRefresh   = "index-refresh"
	TaskIDExecutionPrune = "execution-prune"
	TaskIDCacheSweep     = "cache-sweep"
)

// TaskDefinition names a built-in background task.
type TaskDefinition struct {
	ID   string
	Name string
}

// BuiltinTasks lists the tasks the scheduler knows how to run, in the order
// they are registered.
func BuiltinTasks() []TaskDefinition {
	return []TaskDefinition{
		{ID: TaskIDIndexRefresh, Name: "Index Refresh"},
		{ID: TaskIDExecutionPrune, Name: "Execution Prune"},
		{ID: TaskIDCacheSweep, Name: "Cache Sweep"},
	}
}

// ScheduledTask is the persisted state of a recurring task.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	// LastRun is when the most recent run started.
	LastRun time.Time

	// NextRun is when the task is due. Zero means due now.
	NextRun time.Time

	// LastError is empty after a successful run.
	LastError string

	LastSuccess time.Time
}

// IsDue reports whether an enabled task should run at now.
func (t *ScheduledTask) IsDue(now time.Time) bool {
	return t.Enabled && (t.NextRun.IsZero() || !t.NextRun.After(now))
}

// Apply records the outcome of a run and schedules the next one an
// interval after it ended.
func (t *ScheduledTask) Apply(r *TaskResult) {
	t.LastRun = r.StartedAt
	t.NextRun = r.EndedAt.Add(t.Interval)
	if r.Success {
		t.LastError = ""
		t.LastSuccess = r.EndedAt
	} else {
		t.LastError = r.Error
	}
}

// Configure applies cfg, rescheduling from now when the interval changed.
func (t *ScheduledTask) Configure(cfg TaskConfig, now time.Time) {
	if t.Interval != cfg.Interval || t.NextRun.IsZero() {
		t.Interval = cfg.Interval
		t.NextRun = now.Add(cfg.Interval)
	}
	t.Enabled = cfg.Enabled
}

// TaskResult is one run of a task, kept as history.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// ItemsProcessed counts messages indexed, executions pruned or cache
	// entries swept.
	ItemsProcessed int
}

// Duration is how long the run took.
func (r *TaskResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch.
	Enabled bool

	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns the configuration for taskID, or the zero value.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// Active reports whether taskID should be scheduled at all.
func (c *SchedulerConfig) Active(taskID string) bool {
	tc := c.GetTaskConfig(taskID)
	return c.Enabled && tc.Enabled && tc.Interval > 0
}

// DefaultSchedulerConfig refreshes the index every half hour, prunes
// executions hourly and drops expired answer cache entries every ten
// minutes. The scheduler only runs under the long-lived serve
// commands.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDIndexRefresh:   {Enabled: true, Interval: 30 * time.Minute},
			TaskIDExecutionPrune: {Enabled: true, Interval: time.Hour},
			TaskIDCacheSweep:     {Enabled: true, Interval: 10 * time.Minute},
		},
	}
}
