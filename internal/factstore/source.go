// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package factstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	projerr "github.com/sigil-dev/projector/pkg/errors"
)

// Source is durable fact storage behind a Store. A Store over a Source starts
// cold and pulls every fact on its first load.
type Source interface {
	// Load returns every stored fact, predecessors before successors.
	Load(ctx context.Context) ([]*Fact, error)
	// Append persists facts. Facts already stored are ignored.
	Append(ctx context.Context, facts []*Fact) error
	Close() error
}

// StorageConfig controls which backend OpenSource uses.
type StorageConfig struct {
	Backend string // "memory" (default) or a registered backend such as "sqlite".
	Path    string // Backend-specific location, e.g. a database file.
}

// SourceFactory opens a Source at path. A nil Source means memory only.
type SourceFactory func(path string) (Source, error)

var (
	factories   = map[string]SourceFactory{}
	factoriesMu sync.RWMutex
)

func init() {
	RegisterBackend("memory", func(string) (Source, error) { return nil, nil })
}

// RegisterBackend registers the factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, factory SourceFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// Backends returns the registered backend names in sorted order.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}

// resolveBackend returns the effective backend name, defaulting to "memory".
func resolveBackend(cfg *StorageConfig) string {
	if cfg == nil || cfg.Backend == "" {
		return "memory"
	}
	return cfg.Backend
}

// OpenSource opens the Source selected by cfg.
func OpenSource(cfg *StorageConfig) (Source, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, projerr.Errorf(projerr.CodeFactStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	path := ""
	if cfg != nil {
		path = cfg.Path
	}
	src, err := factory(path)
	if err != nil {
		return nil, projerr.Wrap(err, projerr.CodeFactStoreSourceFailure, "opening fact source",
			projerr.FieldBackend(backend))
	}
	return src, nil
}

// Open opens the configured source and returns a Store over it.
func Open(cfg *StorageConfig, opts ...Option) (*Store, error) {
	src, err := OpenSource(cfg)
	if err != nil {
		return nil, err
	}
	return New(append([]Option{WithSource(src)}, opts...)...), nil
}
