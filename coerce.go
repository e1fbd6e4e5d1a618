package toolbind

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// coerce converts one loosely typed JSON value to a parameter's Go type.
//
// null becomes the zero value (nil for pointers, slices, maps and interfaces).
// Scalars are parsed from the value's text, so "42" and 42 both fit an int.
// Enums must match one of their symbols exactly. Everything else is re-encoded
// and decoded into the target type with the codec.
func coerce(codec Codec, p Param, raw any) (reflect.Value, error) {
	return coerceTo(codec, p.Name, p.Type, raw)
}

func coerceTo(codec Codec, name string, t reflect.Type, raw any) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(t), nil
	}
	if t.Kind() == reflect.Pointer && isScalar(t.Elem()) {
		elem, err := coerceTo(codec, name, t.Elem(), raw)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}
	if symbols, ok := enumSymbols(t); ok {
		return coerceEnum(codec, name, t, symbols, raw)
	}
	fail := func(err error) (reflect.Value, error) {
		return reflect.Value{}, &CoercionError{Param: name, Type: t, Value: raw, Err: err}
	}
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		s, err := textOf(codec, raw)
		if err != nil {
			return fail(err)
		}
		v.SetString(s)
	case reflect.Bool:
		s, err := textOf(codec, raw)
		if err != nil {
			return fail(err)
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fail(err)
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		s, err := textOf(codec, raw)
		if err != nil {
			return fail(err)
		}
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return fail(err)
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		s, err := textOf(codec, raw)
		if err != nil {
			return fail(err)
		}
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return fail(err)
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		s, err := textOf(codec, raw)
		if err != nil {
			return fail(err)
		}
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return fail(err)
		}
		v.SetFloat(f)
	default:
		data, err := codec.Marshal(raw)
		if err != nil {
			return fail(err)
		}
		ptr := reflect.New(t)
		if err := codec.Unmarshal(data, ptr.Interface()); err != nil {
			return fail(err)
		}
		return ptr.Elem(), nil
	}
	return v, nil
}

func coerceEnum(codec Codec, name string, t reflect.Type, symbols []string, raw any) (reflect.Value, error) {
	s, err := textOf(codec, raw)
	if err != nil {
		return reflect.Value{}, &CoercionError{Param: name, Type: t, Value: raw, Err: err}
	}
	idx := slices.Index(symbols, s)
	if idx < 0 {
		return reflect.Value{}, &CoercionError{
			Param: name, Type: t, Value: raw,
			Err: fmt.Errorf("must be one of [%s]", strings.Join(symbols, ", ")),
		}
	}
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		ptr := reflect.New(t)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return reflect.Value{}, &CoercionError{Param: name, Type: t, Value: raw, Err: err}
		}
		return ptr.Elem(), nil
	}
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(int64(idx))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v.SetUint(uint64(idx))
	default:
		return reflect.Value{}, &CoercionError{Param: name, Type: t, Value: raw, Err: errUnsupportedEnum}
	}
	return v, nil
}

// textOf returns the textual form of a decoded JSON value. Numbers keep their literal
// text; objects and arrays are rendered as JSON.
func textOf(codec Codec, raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case map[string]any, []any:
		data, err := codec.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// isScalar reports whether t is coerced from text (possibly through a pointer).
func isScalar(t reflect.Type) bool {
	switch classify(t) {
	case KindPrimitive, KindString, KindEnum:
		return true
	}
	return false
}

// enumKindSupported reports whether coerceEnum can build a value of enum type t.
func enumKindSupported(t reflect.Type) bool {
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return true
	}
	switch t.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

var errUnsupportedEnum = fmt.Errorf("enum type must be string- or integer-kinded or implement encoding.TextUnmarshaler")
