package toolbind

import (
	"fmt"
	"reflect"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Validatable is implemented by argument types that need custom business validation.
// Called after coercion, before the method runs.
type Validatable interface {
	Validate() error
}

var validatableType = reflect.TypeFor[Validatable]()

// schemaValidator validates a JSON-like value decoded by sjsonschema.UnmarshalJSON.
// *sjsonschema.Schema implements it.
type schemaValidator interface {
	Validate(v any) error
}

// validateAgainstSchema runs schema validation on an already-parsed value v.
func validateAgainstSchema(validate schemaValidator, v any) error {
	if err := validate.Validate(v); err != nil {
		return &ClientError{Reason: err.Error(), Err: ErrValidation}
	}
	return nil
}

// validateInput parses input with the validator's own decoder and validates it.
func validateInput(schema *sjsonschema.Schema, input string) error {
	inst, err := sjsonschema.UnmarshalJSON(strings.NewReader(input))
	if err != nil {
		return wrapJSONParseError(err)
	}
	return validateAgainstSchema(schema, inst)
}

// validateArg runs Validatable on a coerced argument: on the value itself, or on its
// address when Validate has a pointer receiver. Nil pointers are not validated.
func validateArg(name string, v reflect.Value) error {
	var target Validatable
	switch {
	case v.Type().Implements(validatableType):
		if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
			return nil
		}
		target = v.Interface().(Validatable)
	case reflect.PointerTo(v.Type()).Implements(validatableType):
		ptr := reflect.New(v.Type())
		ptr.Elem().Set(v)
		target = ptr.Interface().(Validatable)
	default:
		return nil
	}
	err := target.Validate()
	if err == nil || IsClientError(err) {
		return err
	}
	return &ClientError{
		Reason: fmt.Sprintf("parameter %q: %v", name, err),
		Err:    fmt.Errorf("%w: %w", ErrValidation, err),
	}
}
