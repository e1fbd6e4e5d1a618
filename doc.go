// Package toolbind exposes methods of ordinary Go values (and plain functions) as
// tools for LLM agents.
//
// # Overview
//
// An LLM produces tool calls as loosely typed JSON. This package bridges that JSON to
// a concrete Go method chosen at runtime: resolve the method → generate a JSON Schema
// for its parameters once → coerce each JSON field to the parameter's Go type →
// call → encode the result as a string the model can read.
//
// Pipeline: Lookup (e.g. Container) → Resolve → Target → NewMethodCallback (parameter
// list + schema) → Callback → Registry → Call (decode, coerce, invoke, encode).
//
// # Key concepts
//
//   - Parameter order is fixed at construction. The same ordered parameter list drives
//     the schema and the positional arguments of every call.
//   - Injected parameters: *ToolContext and context.Context parameters never appear in
//     the schema; they are filled from the caller instead of the JSON payload.
//   - Interception: values registered with interception interfaces are invoked through
//     the interface method, so wrappers around the real implementation still run.
//   - Self-Correction: ClientError carries decode and coercion problems back to the LLM.
//
// # Example
//
//	type Unit string
//	func (Unit) EnumValues() []string { return []string{"CELSIUS", "FAHRENHEIT"} }
//
//	type Weather struct{}
//	func (Weather) GetWeather(city string, unit Unit) string { ... }
//
//	c := toolbind.NewContainer()
//	c.Register("weatherService", Weather{})
//	cb, err := toolbind.FromLookup(c, toolbind.ByName("weatherService"), "GetWeather",
//	    "Get weather information for a city", toolbind.WithParamNames("city", "unit"))
//	if err != nil { ... }
//	out, err := cb.Call(ctx, `{"city":"Barcelona","unit":"CELSIUS"}`, nil)
package toolbind
