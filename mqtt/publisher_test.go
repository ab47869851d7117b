package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"s7bench/bench"
	"s7bench/config"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient records publishes. Methods not overridden panic through the
// nil embedded interface.
type fakeClient struct {
	pahomqtt.Client

	opts       *pahomqtt.ClientOptions
	connectErr error
	mu         sync.Mutex
	published  []message
	disconnect bool
}

func (c *fakeClient) Connect() pahomqtt.Token { return &fakeToken{err: c.connectErr} }

func (c *fakeClient) Disconnect(quiesce uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnect = true
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	var data []byte
	switch v := payload.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	}
	c.published = append(c.published, message{topic, qos, retained, data})
	return &fakeToken{}
}

func newTestPublisher(cfg *config.MQTTConfig, client *fakeClient) *Publisher {
	pub := NewPublisher(cfg, "s7bench")
	pub.newClient = func(opts *pahomqtt.ClientOptions) pahomqtt.Client {
		client.opts = opts
		return client
	}
	return pub
}

func TestPublisherLifecycle(t *testing.T) {
	client := &fakeClient{}
	cfg := &config.MQTTConfig{Name: "local", Enabled: true, Broker: "broker.local", Selector: "line1", ClientID: "bench-1"}
	pub := newTestPublisher(cfg, client)

	if err := pub.Publish(context.Background(), &bench.Report{Driver: "simple"}); err == nil {
		t.Error("expected error publishing before Start")
	}

	if err := pub.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !pub.IsRunning() {
		t.Fatal("publisher not running after Start")
	}
	if got := client.opts.Servers[0].String(); got != "tcp://broker.local:1883" {
		t.Errorf("broker = %s", got)
	}
	if client.opts.ClientID != "bench-1" || client.opts.WillTopic != "s7bench/line1/status" {
		t.Errorf("client id = %q, will = %q", client.opts.ClientID, client.opts.WillTopic)
	}

	rep := &bench.Report{Driver: "batched", Host: "10.0.0.1", Summary: bench.Summary{AvgMillis: 4}}
	if err := pub.Publish(context.Background(), rep); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	pub.Stop()

	if !client.disconnect {
		t.Error("client not disconnected")
	}
	if len(client.published) != 3 {
		t.Fatalf("published %d messages, want 3", len(client.published))
	}

	online, run, offline := client.published[0], client.published[1], client.published[2]
	if online.topic != "s7bench/line1/status" || string(online.payload) != "online" || !online.retained {
		t.Errorf("online message = %+v", online)
	}
	if offline.topic != "s7bench/line1/status" || string(offline.payload) != "offline" {
		t.Errorf("offline message = %+v", offline)
	}
	if run.topic != "s7bench/line1/runs/batched" || run.qos != 1 || !run.retained {
		t.Errorf("run message = %s qos=%d retained=%v", run.topic, run.qos, run.retained)
	}
	var decoded bench.Report
	if err := json.Unmarshal(run.payload, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Host != "10.0.0.1" || decoded.Summary.AvgMillis != 4 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestPublisherConnectError(t *testing.T) {
	client := &fakeClient{connectErr: errors.New("not authorized")}
	pub := newTestPublisher(&config.MQTTConfig{Name: "m", Broker: "b", UseTLS: true, Port: 8883}, client)

	if err := pub.Start(); err == nil {
		t.Fatal("expected connect error")
	}
	if pub.IsRunning() {
		t.Error("running after failed Start")
	}
	if got := pub.Address(); got != "ssl://b:8883" {
		t.Errorf("Address() = %s", got)
	}
}

func TestManager(t *testing.T) {
	cfgs := []config.MQTTConfig{
		{Name: "b", Enabled: true, Broker: "b.local"},
		{Name: "off", Enabled: false, Broker: "x"},
		{Name: "a", Enabled: true, Broker: "a.local"},
	}

	m := NewManager()
	m.LoadFromConfig(cfgs, "s7bench")

	list := m.List()
	if len(list) != 2 || list[0].Name() != "a" || list[1].Name() != "b" {
		t.Fatalf("List() = %v", list)
	}
	if m.Get("off") != nil {
		t.Error("disabled broker loaded")
	}

	clients := map[string]*fakeClient{"a": {}, "b": {connectErr: errors.New("refused")}}
	for _, pub := range list {
		c := clients[pub.Name()]
		pub.newClient = func(*pahomqtt.ClientOptions) pahomqtt.Client { return c }
	}

	started, err := m.StartAll()
	if started != 1 || err == nil {
		t.Errorf("StartAll() = %d, %v", started, err)
	}
	if !m.AnyRunning() {
		t.Error("AnyRunning() = false")
	}

	if err := m.Publish(context.Background(), &bench.Report{Driver: "simple"}); err != nil {
		t.Errorf("Publish: %v", err)
	}
	if n := len(clients["a"].published); n != 2 {
		t.Errorf("client a published %d messages, want 2", n)
	}

	m.StopAll()
	if m.AnyRunning() {
		t.Error("still running after StopAll")
	}
}
