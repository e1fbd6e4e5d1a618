package testutil

import (
	"time"

	"github.com/skosovsky/toolbind"
)

// NewTestRegistry returns a Registry with long timeout and panic recovery enabled,
// suitable for tests.
func NewTestRegistry(callbacks ...toolbind.Callback) *toolbind.Registry {
	reg := toolbind.NewRegistry(
		toolbind.WithDefaultTimeout(30*time.Second),
		toolbind.WithRecoverPanics(true),
	)
	for _, cb := range callbacks {
		reg.Register(cb)
	}
	return reg
}
