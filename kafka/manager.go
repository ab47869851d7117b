package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"s7bench/bench"
	"s7bench/config"
	"s7bench/logging"
	"s7bench/namespace"
)

// Manager manages the producers of all configured clusters.
type Manager struct {
	producers map[string]*Producer
	namespace string
	mu        sync.RWMutex
}

// NewManager creates a new Kafka manager producing under namespace ns.
func NewManager(ns string) *Manager {
	return &Manager{
		producers: make(map[string]*Producer),
		namespace: ns,
	}
}

// Name identifies the manager as a report sink.
func (m *Manager) Name() string { return "kafka" }

// AddCluster adds or replaces a cluster.
func (m *Manager) AddCluster(cfg *Config) {
	m.mu.Lock()
	old := m.producers[cfg.Name]
	m.producers[cfg.Name] = NewProducer(cfg)
	m.mu.Unlock()

	if old != nil {
		old.Disconnect()
	}
}

// GetProducer returns a cluster's producer.
func (m *Manager) GetProducer(name string) *Producer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.producers[name]
}

// ListClusters returns the cluster names in sorted order.
func (m *Manager) ListClusters() []string {
	m.mu.RLock()
	names := make([]string, 0, len(m.producers))
	for name := range m.producers {
		names = append(names, name)
	}
	m.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (m *Manager) list() []*Producer {
	names := m.ListClusters()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Producer, 0, len(names))
	for _, name := range names {
		out = append(out, m.producers[name])
	}
	return out
}

// LoadFromConfig adds every enabled cluster.
func (m *Manager) LoadFromConfig(cfgs []config.KafkaConfig) {
	for i := range cfgs {
		if cfgs[i].Enabled {
			m.AddCluster(FromConfig(&cfgs[i]))
		}
	}
}

// ConnectEnabled connects all enabled clusters. It returns the number
// connected and the joined errors of the rest.
func (m *Manager) ConnectEnabled(ctx context.Context) (int, error) {
	connected := 0
	var errs []error
	for _, p := range m.list() {
		if !p.config.Enabled {
			continue
		}
		if err := p.Connect(ctx); err != nil {
			errs = append(errs, err)
			continue
		}
		connected++
	}
	return connected, errors.Join(errs...)
}

// StopAll disconnects every cluster.
func (m *Manager) StopAll() {
	for _, p := range m.list() {
		p.Disconnect()
	}
}

// Topic returns the topic reports are produced to on cluster cfg.
func (m *Manager) Topic(cfg *Config) string {
	if cfg.Topic != "" {
		return cfg.Topic
	}
	return namespace.New(m.namespace, cfg.Selector).KafkaRunsTopic()
}

// Publish produces the report, keyed by driver name, to every connected
// cluster.
func (m *Manager) Publish(ctx context.Context, rep *bench.Report) error {
	payload, err := rep.JSON()
	if err != nil {
		return err
	}

	var errs []error
	for _, p := range m.list() {
		if p.GetStatus() != StatusConnected {
			continue
		}
		topic := m.Topic(p.config)
		err := p.ProduceWithRetry(ctx, topic, []byte(rep.Driver), payload, p.config.MaxRetries, p.config.RetryBackoff)
		if err != nil {
			errs = append(errs, fmt.Errorf("kafka %s: %w", p.Name(), err))
			continue
		}
		logging.DebugLog("kafka", "PUBLISH %s: %s report to '%s'", p.Name(), rep.Driver, topic)
	}
	return errors.Join(errs...)
}
