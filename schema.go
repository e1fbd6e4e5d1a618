package toolbind

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaDraft is the $schema of every generated input schema.
const SchemaDraft = "https://json-schema.org/draft/2020-12/schema"

const inputSchemaURL = "input.schema.json"

// inputSchema is the result of schema generation for one callback.
type inputSchema struct {
	doc            string         // pretty-printed document
	schemaMap      map[string]any // same document as a map
	compiled       *sjsonschema.Schema
	acceptsContext bool
}

// newReflector returns the reflector used for parameter fragments. Definitions are
// inlined (no $ref) so the document can be handed to an LLM as is.
func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		DoNotReference: true,
		Anonymous:      true,
		Mapper:         enumMapper,
	}
}

// enumMapper maps Enum types, at any depth, to string schemas listing their symbols.
func enumMapper(t reflect.Type) *jsonschema.Schema {
	vals, ok := enumSymbols(t)
	if !ok {
		return nil
	}
	enum := make([]any, len(vals))
	for i, v := range vals {
		enum[i] = v
	}
	return &jsonschema.Schema{Type: "string", Enum: enum}
}

// generateInputSchema builds the input schema of params once, at construction time.
// Injected parameters are skipped; a *ToolContext parameter sets acceptsContext.
func generateInputSchema(params []Param, o callbackOptions) (*inputSchema, error) {
	reflector := newReflector()
	props := make(map[string]any, len(params))
	out := &inputSchema{}
	for _, p := range params {
		if p.injected() {
			out.acceptsContext = out.acceptsContext || p.Kind == KindToolContext
			continue
		}
		frag, err := fragmentFor(reflector, p, o.codec)
		if err != nil {
			return nil, &SchemaError{Param: p.Name, Type: p.Type, Err: err}
		}
		if desc := o.paramDescriptions[p.Name]; desc != "" {
			frag["description"] = desc
		}
		props[p.Name] = frag
	}
	root := map[string]any{
		"$schema":    SchemaDraft,
		"type":       "object",
		"properties": props,
	}
	if o.strict {
		applyStrictMode(root)
	}
	data, err := o.codec.MarshalIndent(root, "", "  ")
	if err != nil {
		return nil, &SchemaError{Err: err}
	}
	compiled, err := compileSchema(data)
	if err != nil {
		return nil, &SchemaError{Err: err}
	}
	out.doc = string(data)
	out.schemaMap = root
	out.compiled = compiled
	return out, nil
}

// fragmentFor reflects the schema of one parameter type into a map.
func fragmentFor(reflector *jsonschema.Reflector, p Param, codec Codec) (frag map[string]any, err error) {
	if err := checkModelable(p.Type, nil); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			frag, err = nil, fmt.Errorf("reflect %v: %v", p.Type, r)
		}
	}()
	s := reflector.ReflectFromType(p.Type)
	if s == nil {
		return nil, errNilSchema
	}
	data, err := codec.Marshal(s)
	if err != nil {
		return nil, err
	}
	var raw any
	if err := codec.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	switch v := raw.(type) {
	case map[string]any:
		frag = v
	case bool:
		// true accepts anything (interface types); false accepts nothing.
		if !v {
			return nil, fmt.Errorf("type %v accepts no value", p.Type)
		}
		frag = map[string]any{}
	default:
		return nil, errNilSchema
	}
	delete(frag, "$schema")
	stripSchemaIDs(frag)
	return frag, nil
}

var errNilSchema = errors.New("schema reflection returned nil")

// checkModelable rejects types that have no JSON representation. stack holds the
// struct types on the current path; meeting one of them again means a recursive type,
// which cannot be inlined.
func checkModelable(t reflect.Type, stack []reflect.Type) error {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if _, ok := enumSymbols(t); ok {
		if !enumKindSupported(t) {
			return fmt.Errorf("enum %v: %w", t, errUnsupportedEnum)
		}
		return nil
	}
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer, reflect.Invalid:
		return fmt.Errorf("type %v has no JSON representation", t)
	case reflect.Slice, reflect.Array:
		return checkModelable(t.Elem(), stack)
	case reflect.Map:
		switch t.Key().Kind() {
		case reflect.String,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		default:
			return fmt.Errorf("map key type %v is not a string or integer", t.Key())
		}
		return checkModelable(t.Elem(), stack)
	case reflect.Struct:
		if slices.Contains(stack, t) {
			return fmt.Errorf("recursive type %v cannot be inlined", t)
		}
		stack = append(stack[:len(stack):len(stack)], t)
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() && !f.Anonymous {
				continue
			}
			if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name == "-" {
				continue
			}
			if err := checkModelable(f.Type, stack); err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
		}
	}
	return nil
}

// walkSchema recursively visits every map node in the schema tree (including $defs and definitions).
func walkSchema(schemaMap map[string]any, visit func(map[string]any)) {
	if schemaMap == nil {
		return
	}
	visit(schemaMap)
	for _, val := range schemaMap {
		switch v := val.(type) {
		case map[string]any:
			walkSchema(v, visit)
		case []any:
			for _, item := range v {
				if m2, ok := item.(map[string]any); ok {
					walkSchema(m2, visit)
				}
			}
		}
	}
}

// applyStrictMode sets additionalProperties: false and requires every property, for every object in the schema.
// The root "properties" map is itself walked; its keys are parameter names, not schema keywords,
// so only nodes that carry a "type" of object are touched.
func applyStrictMode(schemaMap map[string]any) {
	walkSchema(schemaMap, func(n map[string]any) {
		props, isObj := n["properties"].(map[string]any)
		if !isObj || n["type"] != "object" {
			return
		}
		n["additionalProperties"] = false
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		required := make([]any, len(keys))
		for i, k := range keys {
			required[i] = k
		}
		if len(required) > 0 {
			n["required"] = required
		}
	})
}

// stripSchemaIDs removes id and $id keywords from schema so resolution does not depend
// on them. A property named id holds a schema object, not a string, and is kept.
func stripSchemaIDs(schemaMap map[string]any) {
	walkSchema(schemaMap, func(n map[string]any) {
		for _, k := range []string{"id", "$id"} {
			if _, isKeyword := n[k].(string); isKeyword {
				delete(n, k)
			}
		}
	})
}

// compileSchema compiles a schema document for validation. A document that does not
// compile is a construction error, never a call-time one.
func compileSchema(data []byte) (*sjsonschema.Schema, error) {
	doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	c := sjsonschema.NewCompiler()
	if err := c.AddResource(inputSchemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(inputSchemaURL)
}
