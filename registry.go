package toolbind

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/iter"
)

// Registry holds callbacks and executes tool calls with timeout, semaphore, and optional panic recovery.
type Registry struct {
	callbacks   map[string]Callback // wrapped with middlewares, used by Execute
	raw         map[string]Callback // unwrapped, used by Use() to re-apply middlewares from scratch
	sem         chan struct{}
	opts        registryOptions
	done        chan struct{}
	running     sync.WaitGroup
	mu          sync.Mutex
	middlewares []Middleware
}

// NewRegistry creates a Registry with the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	o := registryOptions{
		timeout:        5 * time.Second,
		maxConcurrency: 10,
		recoverPanics:  true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	var sem chan struct{}
	if o.maxConcurrency > 0 {
		sem = make(chan struct{}, o.maxConcurrency)
	}
	return &Registry{
		callbacks: make(map[string]Callback),
		raw:       make(map[string]Callback),
		sem:       sem,
		opts:      o,
		done:      make(chan struct{}),
	}
}

// Register adds a callback. Stored middlewares (see Use) are applied before registration.
// A callback with the same name is replaced. Safe for concurrent use with Execute.
func (r *Registry) Register(cb Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := cb.Name()
	r.raw[name] = cb
	r.callbacks[name] = chain(cb, r.middlewares)
}

// GetAllTools returns all registered callbacks, sorted by name for deterministic order.
func (r *Registry) GetAllTools() []Callback {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.callbacks))
	for name := range r.callbacks {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]Callback, 0, len(names))
	for _, name := range names {
		out = append(out, r.callbacks[name])
	}
	return out
}

// Descriptors returns the descriptors of all registered callbacks, sorted by name.
func (r *Registry) Descriptors() []Descriptor {
	all := r.GetAllTools()
	out := make([]Descriptor, len(all))
	for i, cb := range all {
		out[i] = DescriptorOf(cb)
	}
	return out
}

// GetTool returns the callback with the given name (after middlewares are applied), or (nil, false).
func (r *Registry) GetTool(name string) (Callback, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.callbacks[name]
	return cb, ok
}

// Execute runs one tool call. A call without ID gets a generated one. The result always
// names the call; Error is ErrShutdown, ErrToolNotFound, ErrTimeout or the callback's error.
// The after-execution hook (WithOnAfterExecute) is invoked for every call that reached a callback.
func (r *Registry) Execute(ctx context.Context, call ToolCall) (res ToolResult) {
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	res = ToolResult{CallID: call.ID, ToolName: call.ToolName}

	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		res.Error = ErrShutdown
		return res
	default:
	}
	cb, ok := r.callbacks[call.ToolName]
	if !ok {
		r.mu.Unlock()
		res.Error = ErrToolNotFound
		return res
	}
	r.running.Add(1)
	r.mu.Unlock()

	if err := r.acquireSemaphore(ctx); err != nil {
		r.running.Done()
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimeout
		}
		res.Error = err
		return res
	}
	defer r.releaseSemaphore()
	defer r.running.Done()

	timeout := r.opts.timeout
	if md, ok := cb.(CallbackMetadata); ok && md.Timeout() > 0 {
		timeout = md.Timeout()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	// Recover defer is registered after onAfter so it runs first on panic and sets res.Error before the hook runs.
	defer func() {
		if r.opts.onAfter != nil {
			r.opts.onAfter(ctx, call, res, time.Since(start))
		}
	}()
	if r.opts.recoverPanics {
		defer func() {
			if p := recover(); p != nil {
				res.Output = ""
				res.Error = &SystemError{Err: &panicError{p: p}}
			}
		}()
	}

	if r.opts.onBefore != nil {
		r.opts.onBefore(ctx, call)
	}

	out, err := cb.Call(ctx, call.Args, call.Context)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		res.Error = err
		return res
	}
	res.Output = out
	return res
}

func (r *Registry) acquireSemaphore(ctx context.Context) error {
	if r.sem == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) releaseSemaphore() {
	if r.sem != nil {
		<-r.sem
	}
}

// ExecuteBatch runs all calls in parallel and returns their results in call order.
// A failing call does not cancel the others; inspect each ToolResult.Error.
func (r *Registry) ExecuteBatch(ctx context.Context, calls []ToolCall) []ToolResult {
	if len(calls) == 0 {
		return nil
	}
	return iter.Map(calls, func(call *ToolCall) ToolResult {
		return r.Execute(ctx, *call)
	})
}

// Shutdown closes the registry for new calls and waits for in-flight executions or ctx to cancel.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		return nil
	default:
		close(r.done)
	}
	r.mu.Unlock()
	done := make(chan struct{})
	go func() {
		r.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
