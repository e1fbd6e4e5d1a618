package toolbind

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"time"
)

// DoneResult is the output of a method that returns no value.
const DoneResult = "Done"

// MethodCallback is the Callback built by NewMethodCallback: one bound method, its
// descriptor and the schema generated from its parameters. It is immutable and safe
// for concurrent Call.
type MethodCallback struct {
	target Target
	desc   Descriptor
	params []Param
	schema *inputSchema
	result resultShape
	opts   callbackOptions
}

// resultShape describes how the method reports its outcome.
type resultShape struct {
	hasValue bool
	hasError bool
	typ      reflect.Type
	asJSON   bool
}

// NewMethodCallback builds a callback from target. The parameter list and input schema
// are computed here, once; a type that cannot be modeled fails construction with a
// *SchemaError. Fails with ErrInvalidArgument when the target names no method, the
// description is blank, a non-static target has no receiver, the parameter names do
// not fit the signature, or the method returns something other than (), (T), (error)
// or (T, error).
func NewMethodCallback(target Target, description string, opts ...CallbackOption) (*MethodCallback, error) {
	if !target.hasMethod() {
		return nil, invalidArgumentf("method must not be nil")
	}
	if strings.TrimSpace(description) == "" {
		return nil, invalidArgumentf("description must not be empty")
	}
	if !target.static && target.receiver == nil {
		return nil, invalidArgumentf("a receiver must be provided for non-static method %q", target.name)
	}
	if !target.bound() {
		return nil, invalidArgumentf("method %q is not bound", target.name)
	}
	o := newCallbackOptions(opts)
	shape, err := resultShapeOf(target.sig)
	if err != nil {
		return nil, fmt.Errorf("method %q: %w", target.name, err)
	}
	params, err := buildParams(target, o.paramNames)
	if err != nil {
		return nil, err
	}
	schema, err := generateInputSchema(params, o)
	if err != nil {
		return nil, err
	}
	o.logger.Debug().
		Str("callback", target.name).
		Str("owner", target.owner).
		Bool("accepts_context", schema.acceptsContext).
		RawJSON("schema", []byte(schema.doc)).
		Msg("generated input schema")
	return &MethodCallback{
		target: target,
		desc:   Descriptor{Name: target.name, Description: description, InputSchema: schema.doc},
		params: params,
		schema: schema,
		result: shape,
		opts:   o,
	}, nil
}

func resultShapeOf(sig reflect.Type) (resultShape, error) {
	switch sig.NumOut() {
	case 0:
		return resultShape{}, nil
	case 1:
		if sig.Out(0) == errorType {
			return resultShape{hasError: true}, nil
		}
		return valueShape(sig.Out(0), false), nil
	case 2:
		if sig.Out(1) != errorType {
			return resultShape{}, invalidArgumentf("second result must be error, got %v", sig.Out(1))
		}
		return valueShape(sig.Out(0), true), nil
	default:
		return resultShape{}, invalidArgumentf("unsupported result list %v", sig)
	}
}

func valueShape(t reflect.Type, hasError bool) resultShape {
	return resultShape{hasValue: true, hasError: hasError, typ: t, asJSON: encodesAsJSON(t)}
}

// encodesAsJSON reports whether results of type t are serialized as JSON: composite
// objects, sequences, mappings and type descriptors. Other results use their default
// string form.
func encodesAsJSON(t reflect.Type) bool {
	if t == typeType {
		return true
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Slice, reflect.Array, reflect.Map:
		return true
	case reflect.Pointer:
		return t.Elem().Kind() == reflect.Struct
	}
	return false
}

func (c *MethodCallback) Name() string        { return c.desc.Name }
func (c *MethodCallback) Description() string { return c.desc.Description }
func (c *MethodCallback) InputSchema() string { return c.desc.InputSchema }

// Descriptor returns the callback's name, description and input schema.
func (c *MethodCallback) Descriptor() Descriptor { return c.desc }

// Parameters returns a shallow copy of the JSON Schema (top-level keys only).
// Nested maps (e.g. under "properties") are shared; callers must not mutate them.
func (c *MethodCallback) Parameters() map[string]any { return maps.Clone(c.schema.schemaMap) }

// Params returns the ordered parameter list, injected parameters included.
func (c *MethodCallback) Params() []Param { return slices.Clone(c.params) }

// AcceptsContext reports whether the method declares a *ToolContext parameter.
func (c *MethodCallback) AcceptsContext() bool { return c.schema.acceptsContext }

// Target returns the bound method.
func (c *MethodCallback) Target() Target { return c.target }

func (c *MethodCallback) Timeout() time.Duration { return c.opts.timeout }
func (c *MethodCallback) Tags() []string         { return append([]string(nil), c.opts.tags...) }
func (c *MethodCallback) Version() string        { return c.opts.version }
func (c *MethodCallback) IsDangerous() bool      { return c.opts.dangerous }

// Call decodes input into a flat object, builds the argument list in declaration order,
// invokes the method and encodes its result.
//
// Errors: ErrInvalidArgument when tc is non-empty but the method takes no *ToolContext;
// *ClientError wrapping ErrDecode, ErrValidation (schema or Validatable) or a
// *CoercionError for bad input; *InvocationError when the method returns an error or
// panics; *SystemError when the result cannot be encoded.
func (c *MethodCallback) Call(ctx context.Context, input string, tc *ToolContext) (string, error) {
	if !tc.IsEmpty() && !c.schema.acceptsContext {
		return "", invalidArgumentf("configured method does not accept a context parameter")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	fields, err := c.decode(input)
	if err != nil {
		return "", err
	}
	args := make([]reflect.Value, len(c.params))
	for i, p := range c.params {
		switch p.Kind {
		case KindToolContext:
			args[i] = reflect.ValueOf(tc)
		case KindGoContext:
			args[i] = reflect.ValueOf(&ctx).Elem()
		default:
			v, err := coerce(c.opts.codec, p, fields[p.Name])
			if err != nil {
				return "", &ClientError{Reason: err.Error(), Err: err}
			}
			if err := validateArg(p.Name, v); err != nil {
				return "", err
			}
			args[i] = v
		}
	}
	out, err := c.invoke(args)
	if err != nil {
		return "", err
	}
	return c.encode(out)
}

func (c *MethodCallback) decode(input string) (map[string]any, error) {
	if strings.TrimSpace(input) == "" {
		input = "{}"
	}
	var fields map[string]any
	if err := c.opts.codec.Unmarshal([]byte(input), &fields); err != nil {
		return nil, wrapJSONParseError(err)
	}
	if c.opts.validate {
		if err := validateInput(c.schema.compiled, input); err != nil {
			return nil, err
		}
	}
	return fields, nil
}

func (c *MethodCallback) invoke(args []reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, &InvocationError{Method: c.target.name, Err: &panicError{p: p}}
		}
	}()
	if c.target.sig.IsVariadic() {
		out = c.target.fn.CallSlice(args)
	} else {
		out = c.target.fn.Call(args)
	}
	if c.result.hasError {
		if e := out[len(out)-1]; !e.IsNil() {
			return nil, &InvocationError{Method: c.target.name, Err: e.Interface().(error)}
		}
	}
	return out, nil
}

func (c *MethodCallback) encode(out []reflect.Value) (string, error) {
	if !c.result.hasValue {
		return DoneResult, nil
	}
	v := out[0]
	if !c.result.asJSON {
		return fmt.Sprint(v.Interface()), nil
	}
	var payload any = v.Interface()
	if c.result.typ == typeType && !v.IsNil() {
		payload = v.Interface().(reflect.Type).String()
	}
	data, err := c.opts.codec.Marshal(payload)
	if err != nil {
		return "", &SystemError{Err: fmt.Errorf("encode result of %q: %w", c.target.name, err)}
	}
	return string(data), nil
}

var (
	_ Callback         = (*MethodCallback)(nil)
	_ CallbackMetadata = (*MethodCallback)(nil)
)
