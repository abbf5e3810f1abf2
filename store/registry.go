// Package store defines the combined storage interface and a registry of
// named backend factories, so callers can construct a backend from
// configuration alone.
package store

import (
	"context"
	"fmt"

	"github.com/variome/variome"
	"github.com/variome/variome/theory"
)

// Store is the full storage surface: anchors and diffs plus theories and
// evidence. Every backend in this repository implements it.
type Store interface {
	variome.Store
	theory.Store
}

// Factory constructs a Store from backend-specific configuration.
type Factory func(context.Context, map[string]interface{}) (Store, error)

var registry = make(map[string]Factory)

// Register adds a named factory to the registry.
// Backends call it from init.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create constructs the backend registered under key.
func Create(ctx context.Context, key string, conf map[string]interface{}) (Store, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in registry", key)
	}
	return f(ctx, conf)
}
