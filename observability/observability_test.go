package observability

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/Emilio-01-T/Modular-2/chain"
	"github.com/Emilio-01-T/Modular-2/internal/tt"
	"github.com/Emilio-01-T/Modular-2/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recoveringChain fails on "summarize" and recovers through "fetch", skipping
// "gate" on the way.
func recoveringChain(t *testing.T, hook any) *chain.Chain {
	t.Helper()
	c, err := chain.New("docs", []modular.Step{
		{Name: "fetch", Component: "fetch"},
		{Name: "gate", Component: "fetch", Condition: "false"},
		{Name: "summarize", Component: "llm", Fallback: "fetch"},
	}, tt.MapResolver{
		"fetch": tt.NewMockRunnable("fetch").AddResponse("doc").AddResponse("doc-retry"),
		"llm":   tt.NewMockRunnable("llm").AddError(errors.New("model down")),
	})
	require.NoError(t, err)
	c.RegisterHook(hook)
	return c
}

func TestLoggingHook(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := recoveringChain(t, NewLoggingHook(logger)).Run(context.Background(), "q", nil)
	require.NoError(t, err)

	out := buf.String()
	for _, msg := range []string{
		"chain started", "step started", "step completed", "condition evaluated",
		"fallback triggered", "step failed", "chain completed",
	} {
		assert.Contains(t, out, msg)
	}
	assert.Contains(t, out, "level=WARN msg=\"fallback triggered\"")
	assert.Contains(t, out, "level=ERROR msg=\"step failed\"")
}

func TestMetricsHook(t *testing.T) {
	reg := prometheus.NewRegistry()
	hook, err := NewMetricsHook(reg)
	require.NoError(t, err)

	c := recoveringChain(t, hook)
	for range 2 {
		_, err := c.Run(context.Background(), "q", nil)
		require.NoError(t, err)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(hook.chainRuns.WithLabelValues("docs", OutcomeSuccess)))
	assert.Equal(t, 4.0, testutil.ToFloat64(hook.steps.WithLabelValues("docs", "fetch", OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(hook.steps.WithLabelValues("docs", "summarize", OutcomeError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(hook.fallbacks.WithLabelValues("docs", "summarize")))
	assert.Equal(t, 2.0, testutil.ToFloat64(hook.conditionSkips.WithLabelValues("docs", "gate")))

	count, err := testutil.GatherAndCount(reg, "modular_step_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = NewMetricsHook(reg)
	assert.Error(t, err, "registering the same collectors twice fails")
}

func TestTraceStore_RecordsRuns(t *testing.T) {
	store := NewTraceStore(2)
	c := recoveringChain(t, store)

	execCtx := modular.NewExecutionContext()
	out, err := c.Run(context.Background(), "q", execCtx)
	require.NoError(t, err)

	rec, ok := store.Get(execCtx.RunID())
	require.True(t, ok)
	assert.Equal(t, "docs", rec.Chain)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Equal(t, "q", rec.Input)
	assert.Equal(t, out, rec.Output)
	assert.Len(t, rec.History, 2)
	require.Len(t, rec.Errors, 1)
	assert.Equal(t, "summarize", rec.Errors[0].Step)
}

func TestTraceStore_FailedRunAndCapacity(t *testing.T) {
	store := NewTraceStore(2)
	c, err := chain.New("broken", []modular.Step{{Name: "s", Component: "x"}}, tt.MapResolver{})
	require.NoError(t, err)
	c.RegisterHook(store)

	var ids []string
	for range 3 {
		execCtx := modular.NewExecutionContext()
		_, err := c.Run(context.Background(), "q", execCtx)
		require.Error(t, err)
		ids = append(ids, execCtx.RunID())
	}

	assert.Equal(t, 2, store.Len())
	_, ok := store.Get(ids[0])
	assert.False(t, ok, "oldest run is evicted")

	recent := store.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[2], recent[0].RunID)
	assert.Equal(t, ids[1], recent[1].RunID)
	assert.Equal(t, StatusFailed, recent[0].Status)
	assert.Contains(t, recent[0].Error, "resolution error")
	assert.Len(t, store.Recent(1), 1)
}

func TestTraceStore_FoldsNestedAndPipelineChains(t *testing.T) {
	store := NewTraceStore(10)
	resolver := tt.MapResolver{"m": tt.NewMockRunnable("m").WithHandler(func(in any) (any, error) {
		return fmt.Sprint(in) + "+", nil
	})}

	inner, err := chain.New("inner", []modular.Step{{Name: "i", Component: "m"}}, resolver)
	require.NoError(t, err)
	inner.RegisterHook(store)
	resolver["inner"] = inner

	first, err := chain.New("first", []modular.Step{{Name: "nested", Kind: modular.KindChain, Component: "inner"}}, resolver)
	require.NoError(t, err)
	first.RegisterHook(store)
	second, err := chain.New("second", []modular.Step{{Name: "s", Component: "m"}}, resolver)
	require.NoError(t, err)
	second.RegisterHook(store)

	execCtx := modular.NewExecutionContext()
	out, err := pipeline.New("p", first, second).Run(context.Background(), "x", execCtx)
	require.NoError(t, err)

	require.Equal(t, 1, store.Len())
	rec, ok := store.Get(execCtx.RunID())
	require.True(t, ok)
	assert.Equal(t, "first", rec.Chain)
	assert.Equal(t, "x", rec.Input)
	assert.Equal(t, out, rec.Output)
	assert.Len(t, rec.History, 3)
}

func TestTranscriptHook(t *testing.T) {
	var buf bytes.Buffer
	_, err := recoveringChain(t, NewTranscriptHook(&buf)).Run(context.Background(), "q", nil)
	require.NoError(t, err)

	out := buf.String()
	for _, part := range []string{
		"CHAIN docs STARTED",
		"StepStart: fetch",
		"Condition: gate",
		"Error: summarize",
		"Fallback: summarize -> fetch",
		"error: model down",
		"CHAIN docs ENDED",
		"History:",
		"Errors:",
	} {
		assert.Contains(t, out, part)
	}
}
