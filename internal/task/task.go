// Package task defines the records that flow through the orchestrator:
// tasks, batches, and their execution results.
package task

import (
	"sort"
	"strings"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Priority orders task execution within a batch. Higher priorities run first.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank returns the numeric weight of a priority for sorting.
// Unknown values rank below low so malformed input never jumps the queue.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 0
	default:
		return -1
	}
}

// ParsePriority maps a string to a Priority, defaulting to medium.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(s)) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return Priority(strings.ToLower(s))
	default:
		return PriorityMedium
	}
}

// Task is a single prompt execution request. The executor mutates Status,
// Result, Error, and (on quota fallback) Model in place; everything else is
// fixed at creation.
type Task struct {
	ID       string            `json:"id"`
	Prompt   string            `json:"prompt"`
	Model    string            `json:"model"`
	Priority Priority          `json:"priority"`
	Status   Status            `json:"status"`
	Result   string            `json:"result,omitempty"`
	Error    string            `json:"error,omitempty"`
	Context  map[string]string `json:"context,omitempty"`
}

// EffectivePrompt renders the prompt the model actually sees: context pairs
// as "key: value" lines in sorted key order, then the prompt itself.
func (t *Task) EffectivePrompt() string {
	if len(t.Context) == 0 {
		return t.Prompt
	}
	keys := make([]string, 0, len(t.Context))
	for k := range t.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(t.Context[k])
		b.WriteString("\n")
	}
	b.WriteString(t.Prompt)
	return b.String()
}

// Result is an immutable snapshot of one task execution. Exactly one Result
// exists per logical task, even when quota fallback caused two remote calls.
type Result struct {
	TaskID   string        `json:"task_id"`
	Status   Status        `json:"status"`
	Result   string        `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"execution_time"`
}

// Batch groups tasks for a single execution pass.
type Batch struct {
	ID       string  `json:"id"`
	Tasks    []*Task `json:"tasks"`
	Parallel bool    `json:"parallel"`
}

// BatchResult aggregates the outcome of one batch execution. It is immutable
// once built and always satisfies Completed+Failed == Total == len(Results).
type BatchResult struct {
	BatchID   string        `json:"batch_id"`
	Completed int           `json:"completed_tasks"`
	Failed    int           `json:"failed_tasks"`
	Total     int           `json:"total_tasks"`
	Results   []Result      `json:"results"`
	Duration  time.Duration `json:"total_time"`
}
