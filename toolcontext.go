package toolbind

import (
	"maps"
	"reflect"
)

// ToolContext carries out-of-band values (user id, tenant, conversation state) into a
// method call. It is never read from the JSON payload: a method receives it by
// declaring a *ToolContext parameter, and the parameter is left out of the schema.
type ToolContext struct {
	values map[string]any
}

// NewToolContext copies values into a new ToolContext.
func NewToolContext(values map[string]any) *ToolContext {
	return &ToolContext{values: maps.Clone(values)}
}

// Get returns the value stored under key.
func (c *ToolContext) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.values[key]
	return v, ok
}

// Values returns a copy of all values.
func (c *ToolContext) Values() map[string]any {
	if c == nil {
		return map[string]any{}
	}
	out := maps.Clone(c.values)
	if out == nil {
		out = map[string]any{}
	}
	return out
}

// IsEmpty reports whether c is nil or holds no values.
func (c *ToolContext) IsEmpty() bool {
	return c == nil || len(c.values) == 0
}

var toolContextType = reflect.TypeFor[*ToolContext]()
