package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/geminid/internal/gemini"
	"github.com/fyrsmithlabs/geminid/internal/task"
)

// recordingGenerator answers prompts and records the order they arrive in.
type recordingGenerator struct {
	mu      sync.Mutex
	prompts []string
	fn      func(model, prompt string) (string, error)
}

func (g *recordingGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.fn != nil {
		return g.fn(model, prompt)
	}
	return "echo:" + prompt, nil
}

func newTestOrchestrator(gen gemini.Generator, opts ...Option) *Orchestrator {
	return New(gemini.NewExecutor(gen), opts...)
}

func TestCreateTask(t *testing.T) {
	orc := newTestOrchestrator(&recordingGenerator{})

	tsk := orc.CreateTask("p", "", "", nil)

	assert.NotEmpty(t, tsk.ID)
	assert.Len(t, tsk.ID, 8)
	assert.Equal(t, DefaultModel, tsk.Model)
	assert.Equal(t, task.PriorityMedium, tsk.Priority)
	assert.Equal(t, task.StatusPending, tsk.Status)

	other := orc.CreateTask("p", "", "", nil)
	assert.NotEqual(t, tsk.ID, other.ID)
}

func TestCreateBatch_RegistersActive(t *testing.T) {
	orc := newTestOrchestrator(&recordingGenerator{})

	batch := orc.CreateBatch([]*task.Task{orc.CreateTask("a", "", "", nil)}, true)

	status, err := orc.Status(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, BatchStateActive, status.State)
	assert.Equal(t, 1, status.Total)
	assert.True(t, status.Parallel)
}

func TestExecuteBatch_PrioritySortStableDescending(t *testing.T) {
	gen := &recordingGenerator{}
	orc := newTestOrchestrator(gen)

	tasks := []*task.Task{
		orc.CreateTask("low", "", task.PriorityLow, nil),
		orc.CreateTask("urgent-1", "", task.PriorityUrgent, nil),
		orc.CreateTask("medium", "", task.PriorityMedium, nil),
		orc.CreateTask("urgent-2", "", task.PriorityUrgent, nil),
	}
	batch := orc.CreateBatch(tasks, false) // sequential makes order observable

	result, err := orc.ExecuteBatch(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, []string{"urgent-1", "urgent-2", "medium", "low"}, gen.prompts)
	// Results follow execution order, not submission order.
	require.Len(t, result.Results, 4)
	assert.Equal(t, tasks[1].ID, result.Results[0].TaskID)
	assert.Equal(t, tasks[3].ID, result.Results[1].TaskID)
	// The batch's own task slice keeps its original order.
	assert.Equal(t, "low", batch.Tasks[0].Prompt)
}

func TestExecuteBatch_CountsInvariant(t *testing.T) {
	gen := &recordingGenerator{fn: func(model, prompt string) (string, error) {
		if prompt == "bad" {
			return "", fmt.Errorf("backend unavailable")
		}
		return "ok", nil
	}}
	orc := newTestOrchestrator(gen)

	tasks := []*task.Task{
		orc.CreateTask("a", "", "", nil),
		orc.CreateTask("bad", "", "", nil),
		orc.CreateTask("c", "", "", nil),
	}
	batch := orc.CreateBatch(tasks, true)

	result, err := orc.ExecuteBatch(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Completed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, result.Completed+result.Failed, result.Total)
	assert.Len(t, result.Results, result.Total)
}

func TestExecuteBatch_MovesActiveToCompleted(t *testing.T) {
	orc := newTestOrchestrator(&recordingGenerator{})

	batch := orc.CreateBatch([]*task.Task{orc.CreateTask("a", "", "", nil)}, true)

	_, err := orc.ExecuteBatch(context.Background(), batch)
	require.NoError(t, err)

	status, err := orc.Status(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, BatchStateCompleted, status.State)
	assert.Equal(t, 1, status.Completed)
	assert.Equal(t, 0, status.Failed)

	// Never reported from both registries: the active view is gone.
	orc.mu.RLock()
	_, stillActive := orc.active[batch.ID]
	orc.mu.RUnlock()
	assert.False(t, stillActive)
}

func TestStatus_UnknownBatch(t *testing.T) {
	orc := newTestOrchestrator(&recordingGenerator{})

	_, err := orc.Status("missing")
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestQuickAsk(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		gen := &recordingGenerator{fn: func(model, prompt string) (string, error) {
			return "4", nil
		}}
		orc := newTestOrchestrator(gen)

		result, err := orc.QuickAsk(context.Background(), "2+2?", "model-a", nil)
		require.NoError(t, err)
		assert.Equal(t, "4", result)
	})

	t.Run("failure_carries_task_error", func(t *testing.T) {
		gen := &recordingGenerator{fn: func(model, prompt string) (string, error) {
			return "", fmt.Errorf("backend down")
		}}
		orc := newTestOrchestrator(gen)

		_, err := orc.QuickAsk(context.Background(), "p", "", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "task failed")
		assert.Contains(t, err.Error(), "backend down")
	})

	t.Run("bypasses_batch_bookkeeping", func(t *testing.T) {
		orc := newTestOrchestrator(&recordingGenerator{})
		_, err := orc.QuickAsk(context.Background(), "p", "", nil)
		require.NoError(t, err)

		orc.mu.RLock()
		defer orc.mu.RUnlock()
		assert.Empty(t, orc.active)
		assert.Empty(t, orc.completed)
	})
}

func TestParallelAsk(t *testing.T) {
	t.Run("results_in_submission_order", func(t *testing.T) {
		gen := &recordingGenerator{fn: func(model, prompt string) (string, error) {
			return "result" + prompt, nil
		}}
		orc := newTestOrchestrator(gen, WithMaxConcurrent(2))

		results, err := orc.ParallelAsk(context.Background(), []string{"A", "B", "C"}, "model-a", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"resultA", "resultB", "resultC"}, results)
	})

	t.Run("first_failure_aborts_with_task_identity", func(t *testing.T) {
		gen := &recordingGenerator{fn: func(model, prompt string) (string, error) {
			if prompt == "B" {
				return "", fmt.Errorf("backend unavailable")
			}
			return "ok", nil
		}}
		orc := newTestOrchestrator(gen)

		_, err := orc.ParallelAsk(context.Background(), []string{"A", "B", "C"}, "", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed")
		// No partial results; the batch result itself is still recorded.
		orc.mu.RLock()
		require.Len(t, orc.completed, 1)
		for _, br := range orc.completed {
			assert.Equal(t, 1, br.Failed)
			assert.Equal(t, 2, br.Completed)
		}
		orc.mu.RUnlock()
	})
}
