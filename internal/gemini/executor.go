package gemini

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/geminid/internal/task"
)

const (
	// DefaultFallbackModel absorbs quota exhaustion on the primary model.
	DefaultFallbackModel = "gemini-2.5-flash"

	// DefaultMaxConcurrent bounds parallel executions within one batch.
	DefaultMaxConcurrent = 3

	// fallback is one extra attempt, never more
	maxAttempts = 2
)

// Executor runs tasks against a Generator, applying the model-fallback policy
// and bounded-concurrency fan-out. It mutates the task's status, result,
// error, and model fields in place for the duration of one execution.
type Executor struct {
	gen           Generator
	fallbackModel string
	timeout       time.Duration
	logger        *zap.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithFallbackModel overrides the quota-fallback model.
func WithFallbackModel(model string) ExecutorOption {
	return func(e *Executor) {
		if model != "" {
			e.fallbackModel = model
		}
	}
}

// WithTimeout sets the per-remote-call deadline. Zero disables it.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

// WithLogger sets the executor's logger.
func WithLogger(l *zap.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor creates an Executor over the given Generator.
func NewExecutor(gen Generator, opts ...ExecutorOption) *Executor {
	e := &Executor{
		gen:           gen,
		fallbackModel: DefaultFallbackModel,
		timeout:       defaultTimeout,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one task to a terminal state and returns its result.
//
// Failure never escapes as an error: every outcome, including quota
// exhaustion on both model tiers, is represented in the returned Result.
// The fallback policy is a bounded two-attempt loop, not recursion: on
// quota exhaustion with a non-fallback model the task's model is rewritten
// to the fallback and tried exactly once more.
func (e *Executor) Execute(ctx context.Context, t *task.Task) task.Result {
	start := time.Now()
	t.Status = task.StatusRunning

	prompt := t.EffectivePrompt()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		text, err := e.generate(ctx, t.Model, prompt)
		if err == nil {
			t.Status = task.StatusCompleted
			t.Result = text
			e.logger.Debug("task completed",
				zap.String("task_id", t.ID),
				zap.String("model", t.Model),
				zap.Duration("duration", time.Since(start)))
			return task.Result{
				TaskID:   t.ID,
				Status:   task.StatusCompleted,
				Result:   text,
				Duration: time.Since(start),
			}
		}

		lastErr = err
		if errors.Is(err, ErrQuotaExhausted) && t.Model != e.fallbackModel {
			e.logger.Warn("quota exhausted, falling back",
				zap.String("task_id", t.ID),
				zap.String("from", t.Model),
				zap.String("to", e.fallbackModel))
			t.Model = e.fallbackModel
			t.Status = task.StatusRunning
			continue
		}
		break
	}

	errMsg := fmt.Sprintf("task execution failed: %v", lastErr)
	if errors.Is(lastErr, ErrQuotaExhausted) {
		errMsg = "quota exceeded for both primary and fallback models"
	}

	t.Status = task.StatusFailed
	t.Error = errMsg
	e.logger.Error("task failed",
		zap.String("task_id", t.ID),
		zap.String("model", t.Model),
		zap.String("error", errMsg))

	return task.Result{
		TaskID:   t.ID,
		Status:   task.StatusFailed,
		Error:    errMsg,
		Duration: time.Since(start),
	}
}

// generate makes one remote call under the per-call deadline.
func (e *Executor) generate(ctx context.Context, model, prompt string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.gen.Generate(ctx, model, prompt)
}

// ExecuteParallel runs tasks concurrently with at most maxConcurrent in
// flight. Results are index-aligned with the input regardless of completion
// order. A panic inside one execution is recovered into a FAILED result
// rather than aborting sibling tasks.
func (e *Executor) ExecuteParallel(ctx context.Context, tasks []*task.Task, maxConcurrent int) []task.Result {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}

	results := make([]task.Result, len(tasks))

	// Use semaphore to limit parallelism
	sem := make(chan struct{}, maxConcurrent)

	var wg sync.WaitGroup
	for i, t := range tasks {
		wg.Add(1)
		go func(i int, t *task.Task) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					t.Status = task.StatusFailed
					t.Error = fmt.Sprintf("unexpected execution failure: %v", r)
					results[i] = task.Result{
						TaskID: t.ID,
						Status: task.StatusFailed,
						Error:  t.Error,
					}
					e.logger.Error("recovered panic in task execution",
						zap.String("task_id", t.ID),
						zap.Any("panic", r))
				}
			}()

			// Acquire semaphore
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				t.Status = task.StatusFailed
				t.Error = ctx.Err().Error()
				results[i] = task.Result{
					TaskID: t.ID,
					Status: task.StatusFailed,
					Error:  t.Error,
				}
				return
			}

			results[i] = e.Execute(ctx, t)
		}(i, t)
	}
	wg.Wait()

	return results
}

// ExecuteSequential runs tasks one at a time in input order; each reaches a
// terminal state before the next starts.
func (e *Executor) ExecuteSequential(ctx context.Context, tasks []*task.Task) []task.Result {
	results := make([]task.Result, 0, len(tasks))
	for _, t := range tasks {
		results = append(results, e.Execute(ctx, t))
	}
	return results
}
