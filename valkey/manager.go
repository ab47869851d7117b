package valkey

import (
	"context"
	"errors"
	"sync"

	"s7bench/bench"
	"s7bench/config"
)

// Manager manages multiple Valkey publishers.
type Manager struct {
	publishers []*Publisher
	mu         sync.RWMutex
}

// NewManager creates a new Valkey manager.
func NewManager() *Manager {
	return &Manager{
		publishers: make([]*Publisher, 0),
	}
}

// Name identifies the manager as a report sink.
func (m *Manager) Name() string { return "valkey" }

// LoadFromConfig adds a publisher for every enabled server.
func (m *Manager) LoadFromConfig(configs []config.ValkeyConfig, ns string) {
	for i := range configs {
		if configs[i].Enabled {
			m.Add(&configs[i], ns)
		}
	}
}

// Add adds a new publisher.
func (m *Manager) Add(cfg *config.ValkeyConfig, ns string) *Publisher {
	m.mu.Lock()
	defer m.mu.Unlock()

	pub := NewPublisher(cfg, ns)
	m.publishers = append(m.publishers, pub)
	return pub
}

// Get returns a publisher by name.
func (m *Manager) Get(name string) *Publisher {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, pub := range m.publishers {
		if pub.config.Name == name {
			return pub
		}
	}
	return nil
}

// List returns all publishers.
func (m *Manager) List() []*Publisher {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Publisher, len(m.publishers))
	copy(result, m.publishers)
	return result
}

// StartAll starts every publisher. It returns the number started and the
// joined errors of those that failed.
func (m *Manager) StartAll(ctx context.Context) (int, error) {
	started := 0
	var errs []error
	for _, pub := range m.List() {
		if err := pub.Start(ctx); err != nil {
			debugLog("Failed to start Valkey %s: %v", pub.config.Name, err)
			errs = append(errs, err)
			continue
		}
		debugLog("Started Valkey %s at %s", pub.config.Name, pub.Address())
		started++
	}
	return started, errors.Join(errs...)
}

// StopAll stops all publishers.
func (m *Manager) StopAll() {
	for _, pub := range m.List() {
		pub.Stop()
	}
}

// AnyRunning returns true if any publisher is running.
func (m *Manager) AnyRunning() bool {
	for _, pub := range m.List() {
		if pub.IsRunning() {
			return true
		}
	}
	return false
}

// Publish stores the report on every running publisher.
func (m *Manager) Publish(ctx context.Context, rep *bench.Report) error {
	var errs []error
	for _, pub := range m.List() {
		if !pub.IsRunning() {
			continue
		}
		if err := pub.Publish(ctx, rep); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
