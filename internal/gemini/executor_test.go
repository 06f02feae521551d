package gemini

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/geminid/internal/task"
)

// fakeGenerator scripts responses per (model, prompt) call.
type fakeGenerator struct {
	mu    sync.Mutex
	calls []fakeCall
	fn    func(model, prompt string) (string, error)
}

type fakeCall struct {
	model  string
	prompt string
}

func (f *fakeGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{model: model, prompt: prompt})
	f.mu.Unlock()
	return f.fn(model, prompt)
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTask(prompt, model string) *task.Task {
	return &task.Task{
		ID:       prompt + "-id",
		Prompt:   prompt,
		Model:    model,
		Priority: task.PriorityMedium,
		Status:   task.StatusPending,
	}
}

func TestExecute_Success(t *testing.T) {
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		return "4", nil
	}}
	exec := NewExecutor(gen)

	tsk := newTask("2+2?", "model-a")
	result := exec.Execute(context.Background(), tsk)

	assert.Equal(t, task.StatusCompleted, result.Status)
	assert.Equal(t, "4", result.Result)
	assert.Equal(t, tsk.ID, result.TaskID)
	assert.Equal(t, task.StatusCompleted, tsk.Status)
	assert.Equal(t, "4", tsk.Result)
	assert.Equal(t, 1, gen.callCount())
	assert.GreaterOrEqual(t, result.Duration, time.Duration(0))
}

func TestExecute_ContextMergedIntoPrompt(t *testing.T) {
	var seen string
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		seen = prompt
		return "ok", nil
	}}
	exec := NewExecutor(gen)

	tsk := newTask("do it", "model-a")
	tsk.Context = map[string]string{"language": "go", "audience": "beginners"}
	exec.Execute(context.Background(), tsk)

	assert.Equal(t, "audience: beginners\nlanguage: go\ndo it", seen)
}

func TestExecute_QuotaFallbackSucceeds(t *testing.T) {
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		if model == "model-a" {
			return "", fmt.Errorf("%w: model model-a (429)", ErrQuotaExhausted)
		}
		return "from fallback", nil
	}}
	exec := NewExecutor(gen, WithFallbackModel("model-flash"))

	tsk := newTask("p", "model-a")
	result := exec.Execute(context.Background(), tsk)

	require.Equal(t, task.StatusCompleted, result.Status)
	assert.Equal(t, "from fallback", result.Result)
	// The task's model was rewritten by the fallback policy.
	assert.Equal(t, "model-flash", tsk.Model)
	assert.Equal(t, 2, gen.callCount())
}

func TestExecute_QuotaExhaustedOnBothTiers(t *testing.T) {
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		return "", fmt.Errorf("%w: model %s", ErrQuotaExhausted, model)
	}}
	exec := NewExecutor(gen, WithFallbackModel("model-flash"))

	tsk := newTask("p", "model-a")
	result := exec.Execute(context.Background(), tsk)

	assert.Equal(t, task.StatusFailed, result.Status)
	assert.Equal(t, "quota exceeded for both primary and fallback models", result.Error)
	assert.Empty(t, result.Result)
	// Exactly one fallback attempt, never more.
	assert.Equal(t, 2, gen.callCount())
	assert.Equal(t, task.StatusFailed, tsk.Status)
}

func TestExecute_QuotaOnFallbackModelDoesNotRetry(t *testing.T) {
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		return "", fmt.Errorf("%w: model %s", ErrQuotaExhausted, model)
	}}
	exec := NewExecutor(gen, WithFallbackModel("model-flash"))

	tsk := newTask("p", "model-flash")
	result := exec.Execute(context.Background(), tsk)

	assert.Equal(t, task.StatusFailed, result.Status)
	assert.Equal(t, 1, gen.callCount())
}

func TestExecute_GenericFailureNotRetried(t *testing.T) {
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		return "", fmt.Errorf("boom")
	}}
	exec := NewExecutor(gen)

	tsk := newTask("p", "model-a")
	result := exec.Execute(context.Background(), tsk)

	assert.Equal(t, task.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "boom")
	assert.Equal(t, 1, gen.callCount())
	// Generic failures don't touch the model.
	assert.Equal(t, "model-a", tsk.Model)
}

func TestExecuteParallel_ResultsIndexAligned(t *testing.T) {
	// Later tasks finish first; results must still align with input order.
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		switch prompt {
		case "a":
			time.Sleep(30 * time.Millisecond)
		case "b":
			time.Sleep(10 * time.Millisecond)
		}
		return "result-" + prompt, nil
	}}
	exec := NewExecutor(gen)

	tasks := []*task.Task{newTask("a", "m"), newTask("b", "m"), newTask("c", "m")}
	results := exec.ExecuteParallel(context.Background(), tasks, 3)

	require.Len(t, results, 3)
	for i, tsk := range tasks {
		assert.Equal(t, tsk.ID, results[i].TaskID)
		assert.Equal(t, "result-"+tsk.Prompt, results[i].Result)
	}
}

func TestExecuteParallel_BoundsConcurrency(t *testing.T) {
	var inFlight, peak int64
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return "ok", nil
	}}
	exec := NewExecutor(gen)

	tasks := make([]*task.Task, 6)
	for i := range tasks {
		tasks[i] = newTask(fmt.Sprintf("p%d", i), "m")
	}
	exec.ExecuteParallel(context.Background(), tasks, 2)

	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
}

func TestExecuteParallel_MixedOutcomes(t *testing.T) {
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		if prompt == "bad" {
			return "", fmt.Errorf("backend unavailable")
		}
		return "ok", nil
	}}
	exec := NewExecutor(gen)

	tasks := []*task.Task{newTask("good1", "m"), newTask("bad", "m"), newTask("good2", "m")}
	results := exec.ExecuteParallel(context.Background(), tasks, 3)

	require.Len(t, results, 3)
	assert.Equal(t, task.StatusCompleted, results[0].Status)
	assert.Equal(t, task.StatusFailed, results[1].Status)
	assert.Equal(t, task.StatusCompleted, results[2].Status)
}

func TestExecuteParallel_RecoversPanic(t *testing.T) {
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		if prompt == "explode" {
			panic("defect in backend")
		}
		return "ok", nil
	}}
	exec := NewExecutor(gen)

	tasks := []*task.Task{newTask("fine", "m"), newTask("explode", "m")}
	results := exec.ExecuteParallel(context.Background(), tasks, 2)

	require.Len(t, results, 2)
	assert.Equal(t, task.StatusCompleted, results[0].Status)
	assert.Equal(t, task.StatusFailed, results[1].Status)
	assert.Contains(t, results[1].Error, "unexpected execution failure")
}

func TestExecuteSequential_InOrder(t *testing.T) {
	var order []string
	var mu sync.Mutex
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		mu.Lock()
		order = append(order, prompt)
		mu.Unlock()
		return "r-" + prompt, nil
	}}
	exec := NewExecutor(gen)

	tasks := []*task.Task{newTask("first", "m"), newTask("second", "m"), newTask("third", "m")}
	results := exec.ExecuteSequential(context.Background(), tasks)

	require.Len(t, results, 3)
	assert.Equal(t, []string{"first", "second", "third"}, order)
	for i, tsk := range tasks {
		assert.Equal(t, tsk.ID, results[i].TaskID)
	}
}
