package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Factory creates an unconnected session. A nil logger means discard.
type Factory func(*slog.Logger) Session

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a backend factory to the registry.
// Called by backends in their init() functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a backend factory by name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// IsRegistered checks if a backend type is registered.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// ListTypes returns all registered backend names (sorted).
func ListTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates an unconnected session for cfg.Type.
func New(cfg Config, logger *slog.Logger) (Session, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("session type not specified")
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownTypeError{
			Type:      cfg.Type,
			Available: ListTypes(),
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(logger), nil
}

// Connect creates a session for cfg.Type and connects it within the
// configured connect timeout. Connection failures are returned as
// *ConnectionError.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (Session, error) {
	s, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	connCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.Connect(connCtx, cfg); err != nil {
		_ = s.Close()
		return nil, &ConnectionError{Type: cfg.Type, Address: cfg.URI, Err: err}
	}
	return s, nil
}
