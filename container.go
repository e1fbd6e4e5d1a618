package toolbind

import (
	"reflect"
	"slices"
	"strings"
	"sync"
)

// Container is an ordered, name-keyed set of values implementing Lookup. Values may be
// registered as intercepted: a wrapper that exposes the given interfaces and runs
// cross-cutting logic around the value it wraps. Safe for concurrent use.
type Container struct {
	mu      sync.RWMutex
	entries []containerEntry
	byName  map[string]int
}

type containerEntry struct {
	name       string
	value      any
	interfaces []reflect.Type
}

// RegisterOption configures one registration.
type RegisterOption func(*containerEntry)

// Intercepted marks the value as an interception wrapper exposing interfaces. Resolve
// then binds methods through these interfaces, first declared first.
func Intercepted(interfaces ...reflect.Type) RegisterOption {
	return func(e *containerEntry) {
		e.interfaces = append(e.interfaces, interfaces...)
	}
}

// NewContainer returns an empty Container.
func NewContainer() *Container {
	return &Container{byName: make(map[string]int)}
}

// Register adds value under name. Names are unique; interception interfaces must be
// interface types that value implements. A value registered more than once must carry
// the same interception interfaces every time, since interception is looked up by value.
func (c *Container) Register(name string, value any, opts ...RegisterOption) error {
	if strings.TrimSpace(name) == "" {
		return invalidArgumentf("object name must not be empty")
	}
	if value == nil {
		return invalidArgumentf("object %q must not be nil", name)
	}
	e := containerEntry{name: name, value: value}
	for _, opt := range opts {
		opt(&e)
	}
	vt := reflect.TypeOf(value)
	for _, iface := range e.interfaces {
		if iface == nil || iface.Kind() != reflect.Interface {
			return invalidArgumentf("object %q: interception type %v is not an interface", name, iface)
		}
		if !vt.Implements(iface) {
			return invalidArgumentf("object %q: %v does not implement %v", name, vt, iface)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byName[name]; exists {
		return invalidArgumentf("object %q is already registered", name)
	}
	if prev, ok := c.entryOf(value); ok && !slices.Equal(prev.interfaces, e.interfaces) {
		return invalidArgumentf("object %q: value is already registered as %q with different interception", name, prev.name)
	}
	c.byName[name] = len(c.entries)
	c.entries = append(c.entries, e)
	return nil
}

// Names returns registered names in registration order.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.name
	}
	return out
}

func (c *Container) LookupByName(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return c.entries[i].value, true
}

func (c *Container) LookupAllByType(t reflect.Type) []Entry {
	if t == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Entry
	for _, e := range c.entries {
		if reflect.TypeOf(e.value).AssignableTo(t) {
			out = append(out, Entry{Name: e.name, Value: e.value})
		}
	}
	return out
}

// IsIntercepted reports whether v was registered with Intercepted. Values of
// non-comparable types are never found.
func (c *Container) IsIntercepted(v any) bool {
	return len(c.InterceptedInterfaces(v)) > 0
}

func (c *Container) InterceptedInterfaces(v any) []reflect.Type {
	if v == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, _ := c.entryOf(v)
	return slices.Clone(e.interfaces)
}

// entryOf finds the first entry holding v. c.mu must be held.
func (c *Container) entryOf(v any) (containerEntry, bool) {
	if !reflect.TypeOf(v).Comparable() {
		return containerEntry{}, false
	}
	for _, e := range c.entries {
		if reflect.TypeOf(e.value) == reflect.TypeOf(v) && e.value == v {
			return e, true
		}
	}
	return containerEntry{}, false
}

var _ Lookup = (*Container)(nil)
