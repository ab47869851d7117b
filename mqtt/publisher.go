// Package mqtt publishes benchmark run reports to MQTT brokers.
package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"s7bench/bench"
	"s7bench/config"
	"s7bench/logging"
	"s7bench/namespace"
)

func logMQTT(format string, args ...any) {
	logging.DebugLog("mqtt", format, args...)
}

// DefaultPort is used when the config leaves the port at zero.
const DefaultPort = 1883

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

// Publisher handles one broker connection and publishes run reports.
type Publisher struct {
	config  *config.MQTTConfig
	ns      *namespace.Builder
	client  pahomqtt.Client
	running bool
	mu      sync.RWMutex

	newClient func(*pahomqtt.ClientOptions) pahomqtt.Client
}

// NewPublisher creates a publisher for a single broker. Topics are built
// under the given namespace and the config's selector.
func NewPublisher(cfg *config.MQTTConfig, ns string) *Publisher {
	return &Publisher{
		config:    cfg,
		ns:        namespace.New(ns, cfg.Selector),
		newClient: pahomqtt.NewClient,
	}
}

// Name returns the publisher's name.
func (p *Publisher) Name() string {
	return p.config.Name
}

// IsRunning returns whether the publisher is connected.
func (p *Publisher) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Address returns the broker URL.
func (p *Publisher) Address() string {
	port := p.config.Port
	if port == 0 {
		port = DefaultPort
	}
	scheme := "tcp"
	if p.config.UseTLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, p.config.Broker, port)
}

func (p *Publisher) clientOptions() *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(p.Address())
	if p.config.UseTLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	clientID := p.config.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("s7bench-%d", os.Getpid())
	}
	opts.SetClientID(clientID)

	if p.config.Username != "" {
		opts.SetUsername(p.config.Username)
		opts.SetPassword(p.config.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetWill(p.ns.MQTTStatusTopic(), "offline", 1, true)
	return opts
}

// Start connects to the broker and marks the benchmark online.
func (p *Publisher) Start() error {
	p.mu.RLock()
	if p.running {
		p.mu.RUnlock()
		return nil
	}
	p.mu.RUnlock()

	client := p.newClient(p.clientOptions())
	logMQTT("Attempting to connect to MQTT broker %s", p.Address())

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		logMQTT("MQTT connection timeout")
		return fmt.Errorf("mqtt %s: connection timeout", p.config.Name)
	}
	if err := token.Error(); err != nil {
		logMQTT("MQTT connection error: %v", err)
		return fmt.Errorf("mqtt %s: %w", p.config.Name, err)
	}
	logMQTT("Successfully connected to MQTT broker %s", p.Address())

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		client.Disconnect(100)
		return nil
	}
	p.client = client
	p.running = true
	p.mu.Unlock()

	client.Publish(p.ns.MQTTStatusTopic(), 1, true, "online").WaitTimeout(publishTimeout)
	return nil
}

// Stop marks the benchmark offline and disconnects.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if !p.running || p.client == nil {
		p.mu.Unlock()
		return
	}
	p.running = false
	client := p.client
	p.client = nil
	p.mu.Unlock()

	client.Publish(p.ns.MQTTStatusTopic(), 1, true, "offline").WaitTimeout(publishTimeout)
	client.Disconnect(500)
	logMQTT("Disconnected from MQTT broker %s", p.Address())
}

// Topic returns the topic a driver's reports are published to.
func (p *Publisher) Topic(driver string) string {
	return p.ns.MQTTRunTopic(driver)
}

// Publish sends the report as a retained QoS 1 message.
func (p *Publisher) Publish(ctx context.Context, rep *bench.Report) error {
	p.mu.RLock()
	running := p.running
	client := p.client
	p.mu.RUnlock()

	if !running || client == nil {
		return fmt.Errorf("mqtt %s: not connected", p.config.Name)
	}

	payload, err := rep.JSON()
	if err != nil {
		return err
	}

	topic := p.Topic(rep.Driver)
	token := client.Publish(topic, 1, true, payload)

	wait := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		wait = time.Until(deadline)
	}
	if !token.WaitTimeout(wait) {
		return fmt.Errorf("mqtt %s: publish to %s timed out", p.config.Name, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt %s: publish to %s: %w", p.config.Name, topic, err)
	}
	logMQTT("Published %d bytes to %s", len(payload), topic)
	return nil
}

// Manager holds the configured publishers.
type Manager struct {
	publishers map[string]*Publisher
	mu         sync.RWMutex
}

// NewManager creates a new MQTT manager.
func NewManager() *Manager {
	return &Manager{
		publishers: make(map[string]*Publisher),
	}
}

// Name identifies the manager as a report sink.
func (m *Manager) Name() string { return "mqtt" }

// Add adds a publisher to the manager, replacing one with the same name.
func (m *Manager) Add(pub *Publisher) {
	m.mu.Lock()
	old := m.publishers[pub.Name()]
	m.publishers[pub.Name()] = pub
	m.mu.Unlock()

	if old != nil && old != pub {
		old.Stop()
	}
}

// Get returns a publisher by name.
func (m *Manager) Get(name string) *Publisher {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.publishers[name]
}

// List returns all publishers sorted by name.
func (m *Manager) List() []*Publisher {
	m.mu.RLock()
	result := make([]*Publisher, 0, len(m.publishers))
	for _, pub := range m.publishers {
		result = append(result, pub)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// LoadFromConfig creates publishers for every enabled broker.
func (m *Manager) LoadFromConfig(cfgs []config.MQTTConfig, ns string) {
	for i := range cfgs {
		if !cfgs[i].Enabled {
			continue
		}
		m.Add(NewPublisher(&cfgs[i], ns))
	}
}

// StartAll starts every publisher. It returns the number started and the
// joined errors of those that failed.
func (m *Manager) StartAll() (int, error) {
	started := 0
	var errs []error
	for _, pub := range m.List() {
		if pub.IsRunning() {
			continue
		}
		if err := pub.Start(); err != nil {
			logMQTT("Failed to start %s: %v", pub.Name(), err)
			errs = append(errs, err)
			continue
		}
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

// Publish sends the report through every running publisher.
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
