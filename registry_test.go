package toolbind

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minCallback is a bare Callback for registry and middleware tests.
type minCallback struct {
	name string
	call func(ctx context.Context, input string, tc *ToolContext) (string, error)
}

func (m *minCallback) Name() string               { return m.name }
func (m *minCallback) Description() string        { return "min " + m.name }
func (m *minCallback) InputSchema() string        { return `{"type":"object"}` }
func (m *minCallback) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (m *minCallback) Call(ctx context.Context, input string, tc *ToolContext) (string, error) {
	return m.call(ctx, input, tc)
}

// funcCallback builds a callback from fn under name with the given parameter names.
func funcCallback(t *testing.T, name string, fn any, names ...string) *MethodCallback {
	t.Helper()
	target, err := NamedFuncTarget(name, fn)
	require.NoError(t, err)
	cb, err := NewMethodCallback(target, "func "+name, WithParamNames(names...))
	require.NoError(t, err)
	return cb
}

func doubleCallback(t *testing.T) *MethodCallback {
	return funcCallback(t, "double", func(x int) int { return x * 2 }, "x")
}

func TestRegistry_Register_Execute(t *testing.T) {
	reg := NewRegistry(WithDefaultTimeout(time.Second), WithRecoverPanics(true))
	reg.Register(doubleCallback(t))
	all := reg.GetAllTools()
	require.Len(t, all, 1)
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "double", Args: `{"x": 7}`})
	require.NoError(t, res.Error)
	assert.Equal(t, "14", res.Output)
	assert.Equal(t, "1", res.CallID)
	assert.Equal(t, "double", res.ToolName)
}

func TestRegistry_Execute_GeneratesCallID(t *testing.T) {
	reg := NewRegistry()
	reg.Register(doubleCallback(t))
	a := reg.Execute(context.Background(), ToolCall{ToolName: "double", Args: `{"x":1}`})
	b := reg.Execute(context.Background(), ToolCall{ToolName: "double", Args: `{"x":1}`})
	require.NoError(t, a.Error)
	assert.Len(t, a.CallID, 36)
	assert.NotEqual(t, a.CallID, b.CallID)
}

func TestRegistry_GetTool(t *testing.T) {
	cb := doubleCallback(t)
	reg := NewRegistry()
	reg.Register(cb)
	got, ok := reg.GetTool("double")
	require.True(t, ok)
	require.Same(t, cb, got)
	_, ok = reg.GetTool("missing")
	require.False(t, ok)
}

func TestRegistry_GetAllTools_SortedDescriptors(t *testing.T) {
	reg := NewRegistry()
	reg.Register(funcCallback(t, "zeta", func() {}))
	reg.Register(funcCallback(t, "alpha", func() {}))
	reg.Register(doubleCallback(t))
	names := make([]string, 0, 3)
	for _, cb := range reg.GetAllTools() {
		names = append(names, cb.Name())
	}
	assert.Equal(t, []string{"alpha", "double", "zeta"}, names)

	descs := reg.Descriptors()
	require.Len(t, descs, 3)
	assert.Equal(t, "double", descs[1].Name)
	assert.Equal(t, "func double", descs[1].Description)
	assert.Contains(t, descs[1].InputSchema, `"x"`)
}

func TestRegistry_Execute_ToolNotFound(t *testing.T) {
	reg := NewRegistry()
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "missing", Args: "{}"})
	require.Error(t, res.Error)
	assert.ErrorIs(t, res.Error, ErrToolNotFound)
	assert.Equal(t, "1", res.CallID)
}

func TestRegistry_Execute_PassesToolContext(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newToolsCallback(t, "Lookup"))
	res := reg.Execute(context.Background(), ToolCall{
		ToolName: "Lookup",
		Args:     `{"key":"tenant"}`,
		Context:  NewToolContext(map[string]any{"tenant": "acme"}),
	})
	require.NoError(t, res.Error)
	assert.Equal(t, "acme", res.Output)
}

func TestRegistry_Execute_PanicRecovery(t *testing.T) {
	reg := NewRegistry(WithRecoverPanics(true))
	reg.Register(&minCallback{name: "panic", call: func(context.Context, string, *ToolContext) (string, error) {
		panic("oops")
	}})
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "panic", Args: `{}`})
	require.Error(t, res.Error)
	var se *SystemError
	require.ErrorAs(t, res.Error, &se)
	assert.Empty(t, res.Output)
}

func TestRegistry_Execute_MethodPanicIsInvocationError(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newToolsCallback(t, "Explode"))
	res := reg.Execute(context.Background(), ToolCall{ToolName: "Explode"})
	assert.ErrorIs(t, res.Error, ErrInvocation)
	assert.False(t, IsSystemError(res.Error))
}

func TestRegistry_Execute_Timeout(t *testing.T) {
	reg := NewRegistry(WithDefaultTimeout(10 * time.Millisecond))
	reg.Register(funcCallback(t, "wait", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, "ctx"))
	res := reg.Execute(context.Background(), ToolCall{ToolName: "wait"})
	require.Error(t, res.Error)
	assert.ErrorIs(t, res.Error, ErrTimeout)
	assert.ErrorIs(t, res.Error, context.DeadlineExceeded)
}

func TestRegistry_Execute_CallbackTimeoutOverridesDefault(t *testing.T) {
	target, err := NamedFuncTarget("deadline", func(ctx context.Context) string {
		d, _ := ctx.Deadline()
		return time.Until(d).Round(time.Hour).String()
	})
	require.NoError(t, err)
	cb, err := NewMethodCallback(target, "deadline", WithParamNames("ctx"), WithTimeout(time.Hour))
	require.NoError(t, err)
	reg := NewRegistry(WithDefaultTimeout(time.Second))
	reg.Register(cb)
	res := reg.Execute(context.Background(), ToolCall{ToolName: "deadline"})
	require.NoError(t, res.Error)
	assert.Equal(t, "1h0m0s", res.Output)
}

func TestRegistry_ExecuteBatch_PartialSuccess(t *testing.T) {
	reg := NewRegistry(WithDefaultTimeout(time.Second))
	reg.Register(doubleCallback(t))
	calls := []ToolCall{
		{ID: "1", ToolName: "double", Args: `{"x": 1}`},
		{ID: "2", ToolName: "missing", Args: "{}"},
		{ID: "3", ToolName: "double", Args: `{"x": 3}`},
		{ID: "4", ToolName: "double", Args: `{"x": "three"}`},
	}
	results := reg.ExecuteBatch(context.Background(), calls)
	require.Len(t, results, 4)
	require.NoError(t, results[0].Error)
	assert.Equal(t, "2", results[0].Output)
	require.ErrorIs(t, results[1].Error, ErrToolNotFound)
	require.NoError(t, results[2].Error)
	assert.Equal(t, "6", results[2].Output)
	assert.True(t, IsClientError(results[3].Error))
	for i, res := range results {
		assert.Equal(t, calls[i].ID, res.CallID)
	}
}

func TestRegistry_ExecuteBatch_Empty(t *testing.T) {
	reg := NewRegistry()
	assert.Empty(t, reg.ExecuteBatch(context.Background(), nil))
	assert.Empty(t, reg.ExecuteBatch(context.Background(), []ToolCall{}))
}

func TestRegistry_Shutdown(t *testing.T) {
	reg := NewRegistry()
	reg.Register(funcCallback(t, "nop", func() {}))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, reg.Shutdown(ctx))
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "nop", Args: "{}"})
	assert.ErrorIs(t, res.Error, ErrShutdown)
}

func TestRegistry_Shutdown_InFlight(t *testing.T) {
	started := make(chan struct{})
	done := make(chan struct{})
	reg := NewRegistry(WithDefaultTimeout(5 * time.Second))
	reg.Register(funcCallback(t, "slow", func() {
		close(started)
		time.Sleep(50 * time.Millisecond)
		close(done)
	}))
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "slow"})
	}()
	<-started
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, reg.Shutdown(ctx))
	select {
	case <-done:
	default:
		t.Fatal("in-flight execution should have completed before Shutdown returned")
	}
	<-finished
}

func TestRegistry_Shutdown_Idempotent(t *testing.T) {
	reg := NewRegistry()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, reg.Shutdown(ctx))
	require.NoError(t, reg.Shutdown(ctx))
}

func TestRegistry_Execute_CancelledContext(t *testing.T) {
	reg := NewRegistry(WithDefaultTimeout(time.Second))
	reg.Register(doubleCallback(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := reg.Execute(ctx, ToolCall{ID: "1", ToolName: "double", Args: `{"x": 1}`})
	require.Error(t, res.Error)
	assert.True(t, errors.Is(res.Error, context.Canceled) || errors.Is(res.Error, ErrTimeout),
		"expected context.Canceled or ErrTimeout, got %v", res.Error)
}

func TestRegistry_MaxConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	reg := NewRegistry(WithMaxConcurrency(1), WithDefaultTimeout(time.Second))
	reg.Register(funcCallback(t, "slow", func(ctx context.Context) error {
		n := running.Add(1)
		defer running.Add(-1)
		if n > peak.Load() {
			peak.Store(n)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
			return nil
		}
	}, "ctx"))
	results := reg.ExecuteBatch(context.Background(), []ToolCall{
		{ID: "1", ToolName: "slow"},
		{ID: "2", ToolName: "slow"},
		{ID: "3", ToolName: "slow"},
	})
	for _, res := range results {
		require.NoError(t, res.Error)
	}
	assert.Equal(t, int32(1), peak.Load())
}

func TestRegistry_MaxConcurrency_Unlimited(t *testing.T) {
	for _, n := range []int{0, -1} {
		name := "Zero"
		if n < 0 {
			name = "Negative"
		}
		t.Run(name, func(t *testing.T) {
			reg := NewRegistry(WithMaxConcurrency(n), WithDefaultTimeout(time.Second))
			reg.Register(doubleCallback(t))
			results := reg.ExecuteBatch(context.Background(), []ToolCall{
				{ID: "1", ToolName: "double", Args: `{"x": 1}`},
				{ID: "2", ToolName: "double", Args: `{"x": 2}`},
			})
			require.Len(t, results, 2)
			require.NoError(t, results[0].Error)
			require.NoError(t, results[1].Error)
		})
	}
}

func TestRegistry_ObservabilityHooks(t *testing.T) {
	var beforeCalls, afterCalls int
	var lastCall ToolCall
	var lastResult ToolResult
	var lastDuration time.Duration
	reg := NewRegistry(
		WithOnBeforeExecute(func(_ context.Context, call ToolCall) {
			beforeCalls++
			lastCall = call
		}),
		WithOnAfterExecute(func(_ context.Context, _ ToolCall, result ToolResult, duration time.Duration) {
			afterCalls++
			lastResult = result
			lastDuration = duration
		}),
	)
	reg.Register(doubleCallback(t))
	res := reg.Execute(context.Background(), ToolCall{ID: "h1", ToolName: "double", Args: `{"x": 10}`})
	require.NoError(t, res.Error)
	assert.Equal(t, 1, beforeCalls)
	assert.Equal(t, 1, afterCalls)
	assert.Equal(t, "h1", lastCall.ID)
	assert.Equal(t, "double", lastCall.ToolName)
	assert.Equal(t, "h1", lastResult.CallID)
	assert.Equal(t, "20", lastResult.Output)
	assert.GreaterOrEqual(t, lastDuration, time.Duration(0))
}

func TestRegistry_OnAfter_ErrorPath(t *testing.T) {
	errSentinel := errors.New("tool error")
	var afterCalls int
	var lastResult ToolResult
	reg := NewRegistry(WithOnAfterExecute(func(_ context.Context, _ ToolCall, result ToolResult, _ time.Duration) {
		afterCalls++
		lastResult = result
	}))
	reg.Register(funcCallback(t, "fail", func() error { return errSentinel }))
	res := reg.Execute(context.Background(), ToolCall{ID: "e1", ToolName: "fail", Args: "{}"})
	require.Error(t, res.Error)
	require.ErrorIs(t, res.Error, errSentinel)
	assert.Equal(t, 1, afterCalls)
	assert.Equal(t, "e1", lastResult.CallID)
	assert.Equal(t, "fail", lastResult.ToolName)
	assert.ErrorIs(t, lastResult.Error, errSentinel)
}

func TestRegistry_OnAfter_SeesRecoveredPanic(t *testing.T) {
	var lastResult ToolResult
	reg := NewRegistry(WithOnAfterExecute(func(_ context.Context, _ ToolCall, result ToolResult, _ time.Duration) {
		lastResult = result
	}))
	reg.Register(&minCallback{name: "boom", call: func(context.Context, string, *ToolContext) (string, error) {
		panic("boom")
	}})
	res := reg.Execute(context.Background(), ToolCall{ToolName: "boom"})
	assert.True(t, IsSystemError(res.Error))
	assert.True(t, IsSystemError(lastResult.Error))
}

func TestRegistry_Register_Overwrite(t *testing.T) {
	first := funcCallback(t, "same", func(x int) int { return x }, "x")
	second := funcCallback(t, "same", func(x int) int { return x * 10 }, "x")
	reg := NewRegistry()
	reg.Register(first)
	reg.Register(second)
	got, ok := reg.GetTool("same")
	require.True(t, ok)
	require.Same(t, second, got)
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "same", Args: `{"x": 5}`})
	require.NoError(t, res.Error)
	assert.Equal(t, "50", res.Output)
}
