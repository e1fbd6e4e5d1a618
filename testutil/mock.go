// Package testutil provides test helpers for toolbind (e.g. MockCallback).
package testutil

import (
	"context"

	"github.com/skosovsky/toolbind"
)

// MockCallback is a configurable Callback implementation for tests.
type MockCallback struct {
	NameVal   string
	DescVal   string
	SchemaVal string
	ParamsVal map[string]any
	CallFn    func(ctx context.Context, input string, tc *toolbind.ToolContext) (string, error)
}

// Name returns the callback name.
func (m *MockCallback) Name() string {
	if m.NameVal != "" {
		return m.NameVal
	}
	return "mock"
}

// Description returns the callback description.
func (m *MockCallback) Description() string {
	return m.DescVal
}

// InputSchema returns SchemaVal, or an empty object schema.
func (m *MockCallback) InputSchema() string {
	if m.SchemaVal != "" {
		return m.SchemaVal
	}
	return `{"type":"object","properties":{}}`
}

// Parameters returns the parameters schema (or empty map).
func (m *MockCallback) Parameters() map[string]any {
	if m.ParamsVal != nil {
		return m.ParamsVal
	}
	return map[string]any{}
}

// Call runs CallFn if set, otherwise returns toolbind.DoneResult.
func (m *MockCallback) Call(ctx context.Context, input string, tc *toolbind.ToolContext) (string, error) {
	if m.CallFn != nil {
		return m.CallFn(ctx, input, tc)
	}
	return toolbind.DoneResult, nil
}

// Ensure MockCallback implements Callback.
var _ toolbind.Callback = (*MockCallback)(nil)
