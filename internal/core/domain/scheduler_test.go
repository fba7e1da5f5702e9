package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig()

	assert.True(t, config.Enabled)
	assert.Len(t, config.TaskConfigs, 3)
	assert.Equal(t, TaskConfig{Enabled: true, Interval: 30 * time.Minute}, config.GetTaskConfig(TaskIDIndexRefresh))
	assert.Equal(t, TaskConfig{Enabled: true, Interval: time.Hour}, config.GetTaskConfig(TaskIDExecutionPrune))
	assert.Equal(t, TaskConfig{Enabled: true, Interval: 10 * time.Minute}, config.GetTaskConfig(TaskIDCacheSweep))
}

func TestSchedulerConfig_GetTaskConfig_Missing(t *testing.T) {
	config := DefaultSchedulerConfig()
	assert.Equal(t, TaskConfig{}, config.GetTaskConfig("unknown-task"))

	empty := SchedulerConfig{Enabled: true}
	assert.Equal(t, TaskConfig{}, empty.GetTaskConfig(TaskIDIndexRefresh))
}

func TestSchedulerConfig_Active(t *testing.T) {
	config := DefaultSchedulerConfig()
	assert.True(t, config.Active(TaskIDIndexRefresh))
	assert.False(t, config.Active("unknown-task"))

	config.TaskConfigs[TaskIDExecutionPrune] = TaskConfig{Enabled: true}
	assert.False(t, config.Active(TaskIDExecutionPrune), "zero interval")

	config.Enabled = false
	assert.False(t, config.Active(TaskIDIndexRefresh), "master switch")
}

func TestBuiltinTasks(t *testing.T) {
	tasks := BuiltinTasks()

	assert.Equal(t, []TaskDefinition{
		{ID: "index-refresh", Name: "Index Refresh"},
		{ID: "execution-prune", Name: "Execution Prune"},
		{ID: "cache-sweep", Name: "Cache Sweep"},
	}, tasks)
}

func TestScheduledTask_IsDue(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		task ScheduledTask
		want bool
	}{
		{name: "never scheduled", task: ScheduledTask{Enabled: true}, want: true},
		{name: "past due", task: ScheduledTask{Enabled: true, NextRun: now.Add(-time.Second)}, want: true},
		{name: "exactly due", task: ScheduledTask{Enabled: true, NextRun: now}, want: true},
		{name: "future", task: ScheduledTask{Enabled: true, NextRun: now.Add(time.Minute)}, want: false},
		{name: "disabled", task: ScheduledTask{NextRun: now.Add(-time.Hour)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.IsDue(now))
		})
	}
}

func TestScheduledTask_Apply(t *testing.T) {
	start := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Second)
	task := ScheduledTask{Interval: time.Hour, LastError: "old failure"}

	task.Apply(&TaskResult{StartedAt: start, EndedAt: end, Success: true})

	assert.Equal(t, start, task.LastRun)
	assert.Equal(t, end.Add(time.Hour), task.NextRun)
	assert.Equal(t, end, task.LastSuccess)
	assert.Empty(t, task.LastError)

	task.Apply(&TaskResult{StartedAt: end, EndedAt: end.Add(time.Second), Error: "source missing"})

	assert.Equal(t, "source missing", task.LastError)
	assert.Equal(t, end, task.LastSuccess, "last success is kept on failure")
}

func TestScheduledTask_Configure(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	next := now.Add(10 * time.Minute)
	task := ScheduledTask{Interval: time.Hour, NextRun: next}

	task.Configure(TaskConfig{Enabled: true, Interval: time.Hour}, now)
	assert.Equal(t, next, task.NextRun, "same interval keeps the schedule")
	assert.True(t, task.Enabled)

	task.Configure(TaskConfig{Enabled: true, Interval: 2 * time.Hour}, now)
	assert.Equal(t, now.Add(2*time.Hour), task.NextRun)
	assert.Equal(t, 2*time.Hour, task.Interval)
}

func TestTaskResult_Duration(t *testing.T) {
	start := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	r := TaskResult{StartedAt: start, EndedAt: start.Add(1500 * time.Millisecond)}
	assert.Equal(t, 1500*time.Millisecond, r.Duration())
}
