// Package factory provides functions for creating storage backends based on configuration.
package factory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yidong72/chisel/internal/storage"
	"github.com/yidong72/chisel/internal/storage/sqlite"
)

// Backend names accepted by New.
const (
	BackendSQLite = "sqlite"
	BackendDolt   = "dolt"
)

// BackendFactory is a function that creates a storage backend
type BackendFactory func(ctx context.Context, opts Options) (storage.Storage, error)

// backendRegistry holds registered backend factories
var backendRegistry = make(map[string]BackendFactory)

// RegisterBackend registers a storage backend factory
func RegisterBackend(name string, factory BackendFactory) {
	backendRegistry[name] = factory
}

// Options configures how the storage backend is opened
type Options struct {
	Backend string // "sqlite" (default) or "dolt"
	Path    string // SQLite file, or embedded Dolt directory

	// Dolt server mode options
	ServerMode     bool   // Connect to dolt sql-server instead of embedded
	ServerHost     string // default: 127.0.0.1
	ServerPort     int    // default: 3307
	ServerUser     string // default: root
	ServerPassword string
	Database       string // default: chisel
}

func init() {
	RegisterBackend(BackendSQLite, func(ctx context.Context, opts Options) (storage.Storage, error) {
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite backend requires a database path")
		}
		return sqlite.New(ctx, opts.Path)
	})
}

// New creates the storage backend named by opts.Backend.
func New(ctx context.Context, opts Options) (storage.Storage, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendSQLite
	}
	factory, ok := backendRegistry[backend]
	if !ok {
		return nil, fmt.Errorf("unknown storage backend: %s (supported: %s)", backend, strings.Join(Backends(), ", "))
	}
	return factory(ctx, opts)
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	names := make([]string, 0, len(backendRegistry))
	for name := range backendRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
