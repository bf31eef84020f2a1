package sitestack

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// ProviderFactory builds a Backend for a configuration.
type ProviderFactory interface {
	Create(ctx context.Context, cfg SiteConfig) (*Backend, error)
}

// ProviderFactoryFunc adapts a function to ProviderFactory.
type ProviderFactoryFunc func(ctx context.Context, cfg SiteConfig) (*Backend, error)

// Create implements ProviderFactory.
func (f ProviderFactoryFunc) Create(ctx context.Context, cfg SiteConfig) (*Backend, error) {
	return f(ctx, cfg)
}

// Registry manages backend factories by name.
// It provides thread-safe access to registered factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// DefaultRegistry is the global provider registry.
// Providers register themselves via init() functions.
var DefaultRegistry = NewRegistry()

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]ProviderFactory),
	}
}

// RegisterFactory adds a provider factory to the registry.
func (r *Registry) RegisterFactory(name string, f ProviderFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("provider factory already registered: %s", name)
	}

	r.factories[name] = f
	return nil
}

// Create builds a backend with the named factory.
func (r *Registry) Create(ctx context.Context, name string, cfg SiteConfig) (*Backend, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, ErrNotFound("provider", name)
	}

	b, err := factory.Create(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %s: %w", name, err)
	}
	if err := b.check(); err != nil {
		return nil, fmt.Errorf("provider %s: %w", name, err)
	}
	return b, nil
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes a factory from the registry.
// This is mainly useful for testing.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, name)
}

// RegisterFactory adds a provider factory to the default registry.
func RegisterFactory(name string, f ProviderFactory) error {
	return DefaultRegistry.RegisterFactory(name, f)
}
