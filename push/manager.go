package push

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"s7bench/bench"
	"s7bench/config"
)

// Manager manages all configured webhooks.
type Manager struct {
	pushes map[string]*Push
	mu     sync.RWMutex
}

// NewManager creates a new push manager.
func NewManager() *Manager {
	return &Manager{
		pushes: make(map[string]*Push),
	}
}

// Name identifies the manager as a report sink.
func (m *Manager) Name() string { return "push" }

// AddPush adds a new webhook.
func (m *Manager) AddPush(cfg *config.PushConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.pushes[cfg.Name]; exists {
		return fmt.Errorf("push already exists: %s", cfg.Name)
	}
	m.pushes[cfg.Name] = NewPush(cfg)
	return nil
}

// RemovePush removes a webhook.
func (m *Manager) RemovePush(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pushes, name)
}

// GetPush returns the webhook with the given name.
func (m *Manager) GetPush(name string) *Push {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pushes[name]
}

// ListPushes returns all webhook names, sorted.
func (m *Manager) ListPushes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.pushes))
	for name := range m.pushes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFromConfig adds every enabled webhook. Duplicate names are reported
// and skipped.
func (m *Manager) LoadFromConfig(configs []config.PushConfig) error {
	var errs []error
	for i := range configs {
		if !configs[i].Enabled {
			continue
		}
		if err := m.AddPush(&configs[i]); err != nil {
			debugLog("error adding push %s: %v", configs[i].Name, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Publish sends the report to every webhook.
func (m *Manager) Publish(ctx context.Context, rep *bench.Report) error {
	var errs []error
	for _, name := range m.ListPushes() {
		p := m.GetPush(name)
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, rep); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PushInfo holds summary information about a webhook.
type PushInfo struct {
	Name         string
	URL          string
	Method       string
	Error        error
	SendCount    int64
	LastSend     time.Time
	LastHTTPCode int
}

// GetAllPushInfo returns info for all webhooks, sorted by name.
func (m *Manager) GetAllPushInfo() []PushInfo {
	names := m.ListPushes()
	infos := make([]PushInfo, 0, len(names))
	for _, name := range names {
		p := m.GetPush(name)
		if p == nil {
			continue
		}
		count, lastSend, lastCode := p.GetStats()
		infos = append(infos, PushInfo{
			Name:         name,
			URL:          p.config.URL,
			Method:       p.config.Method,
			Error:        p.GetError(),
			SendCount:    count,
			LastSend:     lastSend,
			LastHTTPCode: lastCode,
		})
	}
	return infos
}
