package toolbind

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// callbackOptions hold optional callback settings (names, strict, codec, metadata).
type callbackOptions struct {
	paramNames        []string
	paramDescriptions map[string]string
	strict            bool
	validate          bool
	codec             Codec
	logger            zerolog.Logger
	timeout           time.Duration
	tags              []string
	version           string
	dangerous         bool
}

// CallbackOption configures a callback (e.g. WithParamNames, WithStrict).
type CallbackOption func(*callbackOptions)

func newCallbackOptions(opts []CallbackOption) callbackOptions {
	o := callbackOptions{
		codec:  DefaultCodec(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.codec == nil {
		o.codec = DefaultCodec()
	}
	return o
}

// WithParamNames names the method's parameters in declaration order. Every parameter
// needs a name, injected ones (*ToolContext, context.Context) included.
func WithParamNames(names ...string) CallbackOption {
	names = slices.Clone(names)
	return func(o *callbackOptions) {
		o.paramNames = slices.Clone(names)
	}
}

// WithParamDescriptions adds a description to the schema property of each named parameter.
func WithParamDescriptions(descriptions map[string]string) CallbackOption {
	descriptions = maps.Clone(descriptions)
	return func(o *callbackOptions) {
		o.paramDescriptions = maps.Clone(descriptions)
	}
}

// WithStrict sets strict mode for schema: additionalProperties: false for all objects,
// and all properties become required. Use for OpenAI Structured Outputs compatibility.
func WithStrict() CallbackOption {
	return func(o *callbackOptions) {
		o.strict = true
	}
}

// WithValidation validates call input against the generated schema before coercion.
// Without it, values are only checked by coercion, which accepts e.g. "42" for an int.
func WithValidation() CallbackOption {
	return func(o *callbackOptions) {
		o.validate = true
	}
}

// WithCodec replaces the JSON codec used for input, structural coercion and results.
func WithCodec(c Codec) CallbackOption {
	return func(o *callbackOptions) {
		o.codec = c
	}
}

// WithLogger sets the logger that receives construction details (the generated schema at debug level).
func WithLogger(logger zerolog.Logger) CallbackOption {
	return func(o *callbackOptions) {
		o.logger = logger
	}
}

// WithTimeout sets a per-callback timeout (used by Registry instead of its default).
func WithTimeout(d time.Duration) CallbackOption {
	return func(o *callbackOptions) {
		o.timeout = d
	}
}

// WithTags sets callback tags (metadata for discovery/orchestrator).
func WithTags(tags ...string) CallbackOption {
	tags = slices.Clone(tags)
	return func(o *callbackOptions) {
		o.tags = slices.Clone(tags)
	}
}

// WithVersion sets the callback version.
func WithVersion(version string) CallbackOption {
	return func(o *callbackOptions) {
		o.version = version
	}
}

// WithDangerous marks the callback as dangerous (orchestrator may require confirmation).
func WithDangerous() CallbackOption {
	return func(o *callbackOptions) {
		o.dangerous = true
	}
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	timeout        time.Duration
	maxConcurrency int
	recoverPanics  bool
	onBefore       func(context.Context, ToolCall)
	onAfter        func(context.Context, ToolCall, ToolResult, time.Duration)
}

// WithDefaultTimeout sets the default execution timeout for callbacks.
func WithDefaultTimeout(d time.Duration) RegistryOption {
	return func(o *registryOptions) {
		o.timeout = d
	}
}

// WithMaxConcurrency limits concurrent executions (semaphore).
// Pass 0 or negative to disable the semaphore (unlimited concurrency).
func WithMaxConcurrency(n int) RegistryOption {
	return func(o *registryOptions) {
		o.maxConcurrency = n
	}
}

// WithRecoverPanics enables panic recovery in Execute (returns SystemError).
func WithRecoverPanics(enable bool) RegistryOption {
	return func(o *registryOptions) {
		o.recoverPanics = enable
	}
}

// WithOnBeforeExecute sets a hook called before each execution.
func WithOnBeforeExecute(fn func(context.Context, ToolCall)) RegistryOption {
	return func(o *registryOptions) {
		o.onBefore = fn
	}
}

// WithOnAfterExecute sets a hook called after each execution, success or error.
func WithOnAfterExecute(fn func(context.Context, ToolCall, ToolResult, time.Duration)) RegistryOption {
	return func(o *registryOptions) {
		o.onAfter = fn
	}
}
