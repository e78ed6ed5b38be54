package warehouse

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Target binds a configured warehouse name to an engine kind and its
// connection parameters.
type Target struct {
	Kind   string
	Config ConnectionConfig
}

// Router manages warehouse adapters and connection pooling. Adapters
// are created lazily on first use and kept until a health check fails.
type Router struct {
	factories map[string]AdapterFactory
	targets   map[string]Target
	pool      map[string]Adapter
	mu        sync.RWMutex
}

// NewRouter creates a new warehouse router
func NewRouter() *Router {
	return &Router{
		factories: make(map[string]AdapterFactory),
		targets:   make(map[string]Target),
		pool:      make(map[string]Adapter),
	}
}

// RegisterKind registers an adapter factory for a warehouse engine
func (r *Router) RegisterKind(kind string, factory AdapterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// RegisterTarget registers a named warehouse. The engine kind must have
// been registered first so configuration typos surface at startup.
func (r *Router) RegisterTarget(name string, target Target) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[target.Kind]; !ok {
		return fmt.Errorf("unsupported warehouse kind: %s", target.Kind)
	}

	r.targets[name] = target
	return nil
}

// Kinds returns list of supported warehouse engine kinds
func (r *Router) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Targets returns the registered warehouse names in stable order
func (r *Router) Targets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.targets))
	for name := range r.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the registered target for a warehouse name
func (r *Router) Lookup(name string) (Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	target, ok := r.targets[name]
	return target, ok
}

// Get returns a live adapter for the named warehouse, connecting on
// first use and reconnecting after a failed health check.
func (r *Router) Get(ctx context.Context, name string) (Adapter, error) {
	r.mu.RLock()
	target, registered := r.targets[name]
	adapter, pooled := r.pool[name]
	r.mu.RUnlock()

	if !registered {
		return nil, fmt.Errorf("unknown warehouse: %s", name)
	}

	if pooled {
		if err := adapter.HealthCheck(ctx); err == nil {
			return adapter, nil
		}
		// Connection went stale, drop it and recreate below
		r.mu.Lock()
		adapter.Close()
		delete(r.pool, name)
		r.mu.Unlock()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if adapter, ok := r.pool[name]; ok {
		if err := adapter.HealthCheck(ctx); err == nil {
			return adapter, nil
		}
		adapter.Close()
		delete(r.pool, name)
	}

	factory, ok := r.factories[target.Kind]
	if !ok {
		return nil, fmt.Errorf("unsupported warehouse kind: %s", target.Kind)
	}

	adapter = factory()
	if err := adapter.Connect(ctx, target.Config); err != nil {
		return nil, fmt.Errorf("failed to connect to warehouse %s: %w", name, err)
	}

	r.pool[name] = adapter
	return adapter, nil
}

// CloseTarget closes the pooled connection for a named warehouse
func (r *Router) CloseTarget(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if adapter, ok := r.pool[name]; ok {
		err := adapter.Close()
		delete(r.pool, name)
		return err
	}

	return nil
}

// CloseAll closes all pooled connections
func (r *Router) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, adapter := range r.pool {
		adapter.Close()
		delete(r.pool, name)
	}
}

// PoolSize returns the current number of pooled connections
func (r *Router) PoolSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pool)
}
