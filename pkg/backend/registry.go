package backend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/acorn-io/dns01-hook/pkg/config"
)

// Factory creates a provider from the hook configuration.
type Factory func(cfg *config.Config) (Provider, error)

var (
	mu        sync.Mutex
	factories = make(map[string]Factory)
)

// Register makes a provider available under name. It panics on duplicates.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("backend: provider %q already registered", name))
	}
	factories[name] = f
}

// Providers lists the registered provider names, sorted.
func Providers() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewProvider creates the provider selected by cfg.Provider.
func NewProvider(cfg *config.Config) (Provider, error) {
	mu.Lock()
	f, ok := factories[cfg.Provider]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unsupported DNS provider: %q (registered: %v)", cfg.Provider, Providers())
	}
	return f(cfg)
}
