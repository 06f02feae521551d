// Package orchestrator coordinates task and batch execution against Gemini.
//
// The Orchestrator is the single stateful component in the system: it mints
// task and batch identities, drives sequential or parallel execution through
// the gemini.Executor, and tracks batch lifecycle across two registries
// (active batches and completed batch results). Both registries are unbounded
// for the process lifetime and are only ever touched under the orchestrator's
// lock.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/geminid/internal/gemini"
	"github.com/fyrsmithlabs/geminid/internal/task"
)

// DefaultModel is used when a caller does not name a model.
const DefaultModel = "gemini-2.5-pro"

// ErrBatchNotFound indicates an identity in neither registry.
var ErrBatchNotFound = errors.New("batch not found")

// Orchestrator creates, executes, and tracks tasks and batches.
type Orchestrator struct {
	executor      *gemini.Executor
	maxConcurrent int
	defaultModel  string
	logger        *zap.Logger

	mu        sync.RWMutex
	active    map[string]*task.Batch
	completed map[string]*task.BatchResult
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxConcurrent bounds in-flight executions within one parallel batch.
func WithMaxConcurrent(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxConcurrent = n
		}
	}
}

// WithDefaultModel overrides the model used when callers pass none.
func WithDefaultModel(model string) Option {
	return func(o *Orchestrator) {
		if model != "" {
			o.defaultModel = model
		}
	}
}

// WithLogger sets the orchestrator's logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an Orchestrator over the given executor.
func New(executor *gemini.Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		executor:      executor,
		maxConcurrent: gemini.DefaultMaxConcurrent,
		defaultModel:  DefaultModel,
		logger:        zap.NewNop(),
		active:        make(map[string]*task.Batch),
		completed:     make(map[string]*task.BatchResult),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// newID mints a short opaque identifier.
func newID() string {
	return uuid.NewString()[:8]
}

// CreateTask returns a new pending task with a fresh identity. It has no
// side effects beyond identity allocation.
func (o *Orchestrator) CreateTask(prompt, model string, priority task.Priority, ctx map[string]string) *task.Task {
	if model == "" {
		model = o.defaultModel
	}
	if priority == "" {
		priority = task.PriorityMedium
	}
	return &task.Task{
		ID:       newID(),
		Prompt:   prompt,
		Model:    model,
		Priority: priority,
		Status:   task.StatusPending,
		Context:  ctx,
	}
}

// CreateBatch registers a new batch in the active registry and returns it.
func (o *Orchestrator) CreateBatch(tasks []*task.Task, parallel bool) *task.Batch {
	batch := &task.Batch{
		ID:       newID(),
		Tasks:    tasks,
		Parallel: parallel,
	}

	o.mu.Lock()
	o.active[batch.ID] = batch
	o.mu.Unlock()

	o.logger.Debug("batch created",
		zap.String("batch_id", batch.ID),
		zap.Int("tasks", len(tasks)),
		zap.Bool("parallel", parallel))
	return batch
}

// ExecuteBatch runs a batch to completion and moves it from the active
// registry to the completed registry under the same identity.
//
// Tasks execute in priority order, descending, with ties keeping their
// original relative order. The returned BatchResult's results follow that
// execution order, and its counts always satisfy
// Completed+Failed == Total == len(Results).
func (o *Orchestrator) ExecuteBatch(ctx context.Context, batch *task.Batch) (*task.BatchResult, error) {
	start := time.Now()

	// Sort a copy; the batch's own ordering is left alone.
	sorted := make([]*task.Task, len(batch.Tasks))
	copy(sorted, batch.Tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority.Rank() > sorted[j].Priority.Rank()
	})

	var results []task.Result
	if batch.Parallel {
		results = o.executor.ExecuteParallel(ctx, sorted, o.maxConcurrent)
	} else {
		results = o.executor.ExecuteSequential(ctx, sorted)
	}

	completed, failed := 0, 0
	for _, r := range results {
		if r.Status == task.StatusCompleted {
			completed++
		} else {
			failed++
		}
	}

	result := &task.BatchResult{
		BatchID:   batch.ID,
		Completed: completed,
		Failed:    failed,
		Total:     len(results),
		Results:   results,
		Duration:  time.Since(start),
	}

	o.mu.Lock()
	delete(o.active, batch.ID)
	o.completed[batch.ID] = result
	o.mu.Unlock()

	o.logger.Info("batch executed",
		zap.String("batch_id", batch.ID),
		zap.Int("completed", completed),
		zap.Int("failed", failed),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// QuickAsk executes a single prompt outside batch bookkeeping and returns
// the result text, or an error carrying the task's failure.
func (o *Orchestrator) QuickAsk(ctx context.Context, prompt, model string, taskCtx map[string]string) (string, error) {
	t := o.CreateTask(prompt, model, task.PriorityMedium, taskCtx)
	result := o.executor.Execute(ctx, t)

	if result.Status != task.StatusCompleted {
		return "", fmt.Errorf("task failed: %s", result.Error)
	}
	return result.Result, nil
}

// ParallelAsk executes one task per prompt as a parallel batch and returns
// the result texts in batch result order.
//
// If any task failed, the whole call fails identifying the first failed task
// encountered in result order; no partial results are returned.
func (o *Orchestrator) ParallelAsk(ctx context.Context, prompts []string, model string, taskCtx map[string]string) ([]string, error) {
	tasks := make([]*task.Task, 0, len(prompts))
	for _, prompt := range prompts {
		tasks = append(tasks, o.CreateTask(prompt, model, task.PriorityMedium, taskCtx))
	}

	batch := o.CreateBatch(tasks, true)
	batchResult, err := o.ExecuteBatch(ctx, batch)
	if err != nil {
		return nil, err
	}

	results := make([]string, 0, len(batchResult.Results))
	for _, r := range batchResult.Results {
		if r.Status != task.StatusCompleted {
			return nil, fmt.Errorf("task %s failed: %s", r.TaskID, r.Error)
		}
		results = append(results, r.Result)
	}
	return results, nil
}

// BatchState marks which registry a batch status was read from.
type BatchState string

const (
	BatchStateActive    BatchState = "active"
	BatchStateCompleted BatchState = "completed"
)

// BatchStatus is the point-in-time view of a batch returned by Status.
type BatchStatus struct {
	State     BatchState    `json:"status"`
	BatchID   string        `json:"batch_id"`
	Total     int           `json:"total_tasks"`
	Parallel  bool          `json:"parallel,omitempty"`
	Completed int           `json:"completed_tasks,omitempty"`
	Failed    int           `json:"failed_tasks,omitempty"`
	Duration  time.Duration `json:"total_time,omitempty"`
}

// Status looks a batch up first in the active registry, then in the
// completed registry. A batch is never reported from both.
func (o *Orchestrator) Status(batchID string) (*BatchStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if batch, ok := o.active[batchID]; ok {
		return &BatchStatus{
			State:    BatchStateActive,
			BatchID:  batchID,
			Total:    len(batch.Tasks),
			Parallel: batch.Parallel,
		}, nil
	}

	if result, ok := o.completed[batchID]; ok {
		return &BatchStatus{
			State:     BatchStateCompleted,
			BatchID:   batchID,
			Total:     result.Total,
			Completed: result.Completed,
			Failed:    result.Failed,
			Duration:  result.Duration,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
}
