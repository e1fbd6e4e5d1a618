package toolbind

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Middleware wraps a Callback with cross-cutting behavior (logging, recovery, timeout).
type Middleware func(Callback) Callback

// chain applies middlewares in onion order: the first one is outermost.
func chain(cb Callback, middlewares []Middleware) Callback {
	for i := len(middlewares) - 1; i >= 0; i-- {
		cb = middlewares[i](cb)
	}
	return cb
}

// WithLogging returns a middleware that logs start, end, duration, and errors.
func WithLogging(logger zerolog.Logger) Middleware {
	return func(next Callback) Callback {
		return &loggingCallback{callbackBase: callbackBase{next: next}, logger: logger}
	}
}

// WithRecovery returns a middleware that recovers panics and returns SystemError.
func WithRecovery() Middleware {
	return func(next Callback) Callback {
		return &recoveryCallback{callbackBase{next: next}}
	}
}

// WithTimeoutMiddleware returns a middleware that enforces a per-callback timeout (overrides registry default for this callback).
// Named with "Middleware" suffix to avoid collision with CallbackOption WithTimeout. When both registry default timeout
// and this middleware apply, the effective timeout is the minimum of the two (inner context cancels first).
func WithTimeoutMiddleware(d time.Duration) Middleware {
	return func(next Callback) Callback {
		return &timeoutCallback{callbackBase: callbackBase{next: next}, timeout: d}
	}
}

// callbackBase delegates Callback and CallbackMetadata to the wrapped Callback; used by middleware wrappers.
type callbackBase struct{ next Callback }

func (b *callbackBase) Name() string               { return b.next.Name() }
func (b *callbackBase) Description() string        { return b.next.Description() }
func (b *callbackBase) InputSchema() string        { return b.next.InputSchema() }
func (b *callbackBase) Parameters() map[string]any { return b.next.Parameters() }

func (b *callbackBase) Timeout() time.Duration {
	if md, ok := b.next.(CallbackMetadata); ok {
		return md.Timeout()
	}
	return 0
}
func (b *callbackBase) Tags() []string {
	if md, ok := b.next.(CallbackMetadata); ok {
		return md.Tags()
	}
	return nil
}
func (b *callbackBase) Version() string {
	if md, ok := b.next.(CallbackMetadata); ok {
		return md.Version()
	}
	return ""
}
func (b *callbackBase) IsDangerous() bool {
	if md, ok := b.next.(CallbackMetadata); ok {
		return md.IsDangerous()
	}
	return false
}

type loggingCallback struct {
	callbackBase
	logger zerolog.Logger
}

func (m *loggingCallback) Call(ctx context.Context, input string, tc *ToolContext) (string, error) {
	m.logger.Info().Str("tool", m.next.Name()).Msg("tool start")
	start := time.Now()
	out, err := m.next.Call(ctx, input, tc)
	dur := time.Since(start)
	if err != nil {
		m.logger.Error().Str("tool", m.next.Name()).Dur("duration", dur).Err(err).Msg("tool error")
		return "", err
	}
	m.logger.Info().Str("tool", m.next.Name()).Dur("duration", dur).Int("output_bytes", len(out)).Msg("tool end")
	return out, nil
}

type recoveryCallback struct{ callbackBase }

func (r *recoveryCallback) Call(ctx context.Context, input string, tc *ToolContext) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = ""
			err = &SystemError{Err: &panicError{p: p}}
		}
	}()
	return r.next.Call(ctx, input, tc)
}

type timeoutCallback struct {
	callbackBase
	timeout time.Duration
}

func (t *timeoutCallback) Timeout() time.Duration {
	if t.timeout > 0 {
		return t.timeout
	}
	return t.callbackBase.Timeout()
}

func (t *timeoutCallback) Call(ctx context.Context, input string, tc *ToolContext) (string, error) {
	if t.timeout <= 0 {
		return t.next.Call(ctx, input, tc)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Call(ctx, input, tc)
}

// Use stores the given middlewares and reapplies them from scratch to all registered callbacks (onion order:
// first middleware is outermost). Callbacks registered after Use also get these middlewares applied.
// Calling Use multiple times replaces the middleware chain and rewraps from raw callbacks, avoiding double-wrapping.
func (r *Registry) Use(middlewares ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = middlewares
	for name, raw := range r.raw {
		r.callbacks[name] = chain(raw, middlewares)
	}
}
