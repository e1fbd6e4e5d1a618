package toolbind

import (
	"context"
	"encoding"
	"fmt"
	"reflect"
	"strings"
)

// ParamKind is the semantic category of a parameter; it selects the schema mapping
// and the coercion rule.
type ParamKind int

const (
	KindPrimitive   ParamKind = iota // bool, integers, floats
	KindString                       // string and named string types
	KindEnum                         // types implementing Enum
	KindCollection                   // slices and arrays
	KindObject                       // structs, maps, interfaces
	KindToolContext                  // *ToolContext, injected from the caller
	KindGoContext                    // context.Context, injected from Call's ctx
)

var kindNames = [...]string{"primitive", "string", "enum", "collection", "object", "tool-context", "go-context"}

func (k ParamKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ParamKind(%d)", int(k))
}

// Param describes one positional parameter of a callback.
type Param struct {
	Name string
	Type reflect.Type
	Kind ParamKind
}

// injected reports whether the argument comes from the caller instead of the payload.
func (p Param) injected() bool { return p.Kind == KindToolContext || p.Kind == KindGoContext }

// Enum is implemented by named types that accept a closed set of symbols. String-kinded
// enums convert the symbol directly; integer-kinded enums take the symbol's index;
// types whose pointer implements encoding.TextUnmarshaler decode the symbol with it.
// Values are matched case-sensitively.
type Enum interface {
	EnumValues() []string
}

// ParamNamer is implemented by receivers that know the parameter names of their
// methods. Go does not keep parameter names at runtime, so without WithParamNames or
// ParamNamer a callback falls back to arg0, arg1, ...
type ParamNamer interface {
	ToolParamNames(method string) []string
}

var (
	enumType            = reflect.TypeFor[Enum]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	goContextType       = reflect.TypeFor[context.Context]()
	errorType           = reflect.TypeFor[error]()
	typeType            = reflect.TypeFor[reflect.Type]()
)

// enumValues returns the symbols of t when t implements Enum.
func enumValues(t reflect.Type) ([]string, bool) {
	if !t.Implements(enumType) {
		return nil, false
	}
	v := reflect.Zero(t)
	if t.Kind() == reflect.Pointer {
		v = reflect.New(t.Elem())
	}
	e, ok := v.Interface().(Enum)
	if !ok {
		return nil, false
	}
	return e.EnumValues(), true
}

// enumSymbols is enumValues for t or, when EnumValues has a pointer receiver, for *t.
func enumSymbols(t reflect.Type) ([]string, bool) {
	if vals, ok := enumValues(t); ok {
		return vals, true
	}
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
		return enumValues(reflect.PointerTo(t))
	}
	return nil, false
}

func classify(t reflect.Type) ParamKind {
	switch {
	case t == toolContextType:
		return KindToolContext
	case t == goContextType:
		return KindGoContext
	}
	base := t
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if _, ok := enumSymbols(base); ok {
		return KindEnum
	}
	switch base.Kind() {
	case reflect.String:
		return KindString
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return KindPrimitive
	case reflect.Slice, reflect.Array:
		return KindCollection
	default:
		return KindObject
	}
}

// paramNames picks the parameter names for target: explicit names first, then a
// ParamNamer receiver, then positional defaults.
func paramNames(target Target, explicit []string) ([]string, error) {
	n := target.sig.NumIn()
	names := explicit
	if len(names) == 0 {
		if pn, ok := target.receiver.(ParamNamer); ok {
			names = pn.ToolParamNames(target.name)
		}
	}
	if len(names) == 0 {
		names = make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("arg%d", i)
		}
		return names, nil
	}
	if len(names) != n {
		return nil, invalidArgumentf("method %q has %d parameters, got %d names", target.name, n, len(names))
	}
	seen := make(map[string]struct{}, n)
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, invalidArgumentf("method %q: parameter names must not be empty", target.name)
		}
		if _, dup := seen[name]; dup {
			return nil, invalidArgumentf("method %q: duplicate parameter name %q", target.name, name)
		}
		seen[name] = struct{}{}
	}
	return names, nil
}

// buildParams derives the ordered parameter list of target. It is the only place that
// reads the method signature; schema generation and call-time coercion both use its result.
func buildParams(target Target, explicit []string) ([]Param, error) {
	names, err := paramNames(target, explicit)
	if err != nil {
		return nil, err
	}
	params := make([]Param, target.sig.NumIn())
	for i := range params {
		t := target.sig.In(i)
		params[i] = Param{Name: names[i], Type: t, Kind: classify(t)}
	}
	return params, nil
}
