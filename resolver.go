package toolbind

import (
	"reflect"
	"strings"
)

// Entry is one named value held by a Lookup.
type Entry struct {
	Name  string
	Value any
}

// Lookup is the registry collaborator Resolve reads from. Container is the in-process
// implementation; adapters over dependency-injection containers can provide their own.
type Lookup interface {
	// LookupByName returns the value registered under name.
	LookupByName(name string) (any, bool)
	// LookupAllByType returns every value assignable to t, in registration order.
	LookupAllByType(t reflect.Type) []Entry
	// IsIntercepted reports whether v wraps another value behind interception.
	IsIntercepted(v any) bool
	// InterceptedInterfaces returns the interfaces an intercepted v exposes, in declared order.
	InterceptedInterfaces(v any) []reflect.Type
}

// Key selects the value to resolve: by registered name or by type.
type Key struct {
	name string
	typ  reflect.Type
}

// ByName selects the value registered under name.
func ByName(name string) Key { return Key{name: name} }

// ByType selects a value assignable to t (an interface or a concrete type).
func ByType(t reflect.Type) Key { return Key{typ: t} }

// ByTypeOf is ByType for the type parameter T.
func ByTypeOf[T any]() Key { return ByType(reflect.TypeFor[T]()) }

func (k Key) String() string {
	if k.typ != nil {
		return "type " + typeName(k.typ)
	}
	return "name " + k.name
}

// Resolve finds the value selected by key and binds its method named method.
//
// By type, the first intercepted match wins over plain matches; without one the first
// match in registration order is used. For an intercepted value the method is looked
// up in its interception interfaces (declared order, first hit) so the call goes
// through the wrapper; otherwise in the value's own method set. Methods are matched by
// name only.
//
// A missing value or method is ErrNotFound; a nil lookup, an empty key or an empty
// method name is ErrInvalidArgument. Both are configuration errors, not retryable.
func Resolve(lookup Lookup, key Key, method string) (Target, error) {
	if lookup == nil {
		return Target{}, invalidArgumentf("lookup must not be nil")
	}
	if strings.TrimSpace(method) == "" {
		return Target{}, invalidArgumentf("method name must not be empty")
	}
	var obj any
	switch {
	case key.typ != nil:
		entries := lookup.LookupAllByType(key.typ)
		if len(entries) == 0 {
			return Target{}, notFoundf("no object of type '%s' found", typeName(key.typ))
		}
		obj = preferIntercepted(lookup, entries).Value
	case key.name != "":
		v, ok := lookup.LookupByName(key.name)
		if !ok {
			return Target{}, notFoundf("no object named '%s' found", key.name)
		}
		obj = v
	default:
		return Target{}, invalidArgumentf("key must name an object or a type")
	}
	if lookup.IsIntercepted(obj) {
		return resolveIntercepted(obj, lookup.InterceptedInterfaces(obj), method)
	}
	objType := reflect.TypeOf(obj)
	if _, ok := objType.MethodByName(method); !ok {
		return Target{}, notFoundf("method '%s' not found in '%s'", method, typeName(objType))
	}
	return boundTarget(obj, objType, method), nil
}

func preferIntercepted(lookup Lookup, entries []Entry) Entry {
	for _, e := range entries {
		if lookup.IsIntercepted(e.Value) {
			return e
		}
	}
	return entries[0]
}

func resolveIntercepted(obj any, interfaces []reflect.Type, method string) (Target, error) {
	names := make([]string, 0, len(interfaces))
	for _, iface := range interfaces {
		if _, ok := iface.MethodByName(method); !ok {
			names = append(names, typeName(iface))
			continue
		}
		t, err := UnboundMethodTarget(iface, method)
		if err != nil {
			return Target{}, err
		}
		return t.Bind(obj)
	}
	return Target{}, notFoundf("method '%s' not found in '%s'", method, strings.Join(names, ", "))
}

// FromLookup resolves key and method in lookup and builds a callback from the result.
func FromLookup(lookup Lookup, key Key, method, description string, opts ...CallbackOption) (*MethodCallback, error) {
	target, err := Resolve(lookup, key, method)
	if err != nil {
		return nil, err
	}
	return NewMethodCallback(target, description, opts...)
}
