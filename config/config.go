// Package config handles configuration persistence for the s7bench application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"s7bench/driver"
	"s7bench/s7"
)

// Config holds the complete application configuration.
type Config struct {
	Namespace string `yaml:"namespace"` // Topic/key prefix for report sinks

	// PLC connection
	Host    string        `yaml:"host"`
	Rack    int           `yaml:"rack"`
	Slot    int           `yaml:"slot"`
	Bus     string        `yaml:"bus"` // native, gos7 or sim
	Timeout time.Duration `yaml:"timeout"`

	// Benchmark scenario
	NumCycles        int           `yaml:"num_cycles"`
	CycleTime        time.Duration `yaml:"cycle_time"`
	Tags             string        `yaml:"tags,omitempty"`      // Inline tag list, one "address|TYPE;literal" per line
	TagsFile         string        `yaml:"tags_file,omitempty"` // Tag list file, used when Tags is empty
	Drivers          []string      `yaml:"drivers"`
	MaxItemsPerBatch int           `yaml:"max_items_per_batch"`

	Log    LogConfig      `yaml:"log"`
	Web    WebConfig      `yaml:"web"`
	MQTT   []MQTTConfig   `yaml:"mqtt,omitempty"`
	Valkey []ValkeyConfig `yaml:"valkey,omitempty"`
	Kafka  []KafkaConfig  `yaml:"kafka,omitempty"`
	Push   []PushConfig   `yaml:"push,omitempty"`

	dataMu sync.Mutex `yaml:"-"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level       string `yaml:"level"`                  // trace, debug, info, warn, error
	File        string `yaml:"file,omitempty"`         // Plain text log file
	DebugFile   string `yaml:"debug_file,omitempty"`   // Protocol debug log with hex dumps
	DebugFilter string `yaml:"debug_filter,omitempty"` // Comma-separated protocols, e.g. "s7,bench"
}

// WebConfig holds the status server configuration.
type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Serve   bool   `yaml:"serve,omitempty"` // Keep serving after the benchmark until interrupted
}

// MQTTConfig holds MQTT publisher configuration.
type MQTTConfig struct {
	Name     string `yaml:"name"`
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	ClientID string `yaml:"client_id"`
	Selector string `yaml:"selector,omitempty"` // Optional sub-namespace
	UseTLS   bool   `yaml:"use_tls,omitempty"`
}

// ValkeyConfig holds Valkey/Redis publisher configuration.
type ValkeyConfig struct {
	Name       string        `yaml:"name"`
	Enabled    bool          `yaml:"enabled"`
	Address    string        `yaml:"address"` // host:port format
	Password   string        `yaml:"password,omitempty"`
	Database   int           `yaml:"database"`           // Redis DB number (default 0)
	Selector   string        `yaml:"selector,omitempty"` // Optional sub-namespace
	UseTLS     bool          `yaml:"use_tls,omitempty"`
	KeyTTL     time.Duration `yaml:"key_ttl,omitempty"`     // TTL for the latest-report key (0 = no expiry)
	HistoryLen int           `yaml:"history_len,omitempty"` // Reports kept per driver (default 100)
}

// KafkaConfig holds Kafka cluster configuration for YAML persistence.
type KafkaConfig struct {
	Name          string        `yaml:"name"`
	Enabled       bool          `yaml:"enabled"`
	Brokers       []string      `yaml:"brokers"`
	Topic         string        `yaml:"topic,omitempty"` // Default: <namespace>-runs
	UseTLS        bool          `yaml:"use_tls,omitempty"`
	TLSSkipVerify bool          `yaml:"tls_skip_verify,omitempty"`
	SASLMechanism string        `yaml:"sasl_mechanism,omitempty"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username      string        `yaml:"username,omitempty"`
	Password      string        `yaml:"password,omitempty"`
	RequiredAcks  int           `yaml:"required_acks,omitempty"` // -1=all, 0=none, 1=leader
	MaxRetries    int           `yaml:"max_retries,omitempty"`
	RetryBackoff  time.Duration `yaml:"retry_backoff,omitempty"`

	Selector         string `yaml:"selector,omitempty"`           // Optional sub-namespace
	AutoCreateTopics *bool  `yaml:"auto_create_topics,omitempty"` // Auto-create topics if they don't exist (default true)
}

// PushAuthType selects how a webhook request authenticates.
type PushAuthType string

const (
	PushAuthNone         PushAuthType = ""
	PushAuthBearer       PushAuthType = "bearer"
	PushAuthBasic        PushAuthType = "basic"
	PushAuthJWT          PushAuthType = "jwt"
	PushAuthCustomHeader PushAuthType = "custom_header"
)

// PushAuthConfig holds webhook credentials.
type PushAuthConfig struct {
	Type        PushAuthType `yaml:"type,omitempty"`
	Token       string       `yaml:"token,omitempty"` // bearer and jwt
	Username    string       `yaml:"username,omitempty"`
	Password    string       `yaml:"password,omitempty"`
	HeaderName  string       `yaml:"header_name,omitempty"`
	HeaderValue string       `yaml:"header_value,omitempty"`
}

// PushConfig holds an HTTP webhook that receives run reports.
type PushConfig struct {
	Name         string            `yaml:"name"`
	Enabled      bool              `yaml:"enabled"`
	URL          string            `yaml:"url"`
	Method       string            `yaml:"method,omitempty"`       // Default POST
	ContentType  string            `yaml:"content_type,omitempty"` // Default application/json
	Headers      map[string]string `yaml:"headers,omitempty"`
	Auth         PushAuthConfig    `yaml:"auth,omitempty"`
	Timeout      time.Duration     `yaml:"timeout,omitempty"`       // Default 30s
	OnlyFailures bool              `yaml:"only_failures,omitempty"` // Send only reports of failed runs
}

// Defaults for the benchmark scenario.
const (
	DefaultHost      = "192.168.23.30"
	DefaultRack      = 0
	DefaultSlot      = 1
	DefaultNumCycles = 50
	DefaultCycleTime = 300 * time.Millisecond
)

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Namespace:        "s7bench",
		Host:             DefaultHost,
		Rack:             DefaultRack,
		Slot:             DefaultSlot,
		Bus:              driver.BusNative,
		Timeout:          s7.DefaultTimeout,
		NumCycles:        DefaultNumCycles,
		CycleTime:        DefaultCycleTime,
		Drivers:          driver.Names(),
		MaxItemsPerBatch: s7.MaxItemsPerRequest,
		Log: LogConfig{
			Level: "info",
		},
		Web: WebConfig{
			Enabled: false,
			Host:    "0.0.0.0",
			Port:    8080,
		},
	}
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".s7bench", "config.yaml")
}

// Load reads configuration from a YAML file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating the directory if needed.
func (c *Config) Save(path string) error {
	c.dataMu.Lock()
	data, err := yaml.Marshal(c)
	c.dataMu.Unlock() // Release lock after marshal, before I/O

	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// TagSource names where the tag list comes from.
type TagSource string

const (
	TagSourceInline  TagSource = "config"
	TagSourceFile    TagSource = "file"
	TagSourceDefault TagSource = "default"
)

// TagList returns the tag list text and its source. Inline tags win over
// the tags file; with neither set the caller falls back to its built-in
// scenario and the returned text is empty.
func (c *Config) TagList() (string, TagSource, error) {
	if strings.TrimSpace(c.Tags) != "" {
		return c.Tags, TagSourceInline, nil
	}
	if c.TagsFile != "" {
		data, err := os.ReadFile(c.TagsFile)
		if err != nil {
			return "", TagSourceFile, fmt.Errorf("read tags file: %w", err)
		}
		return string(data), TagSourceFile, nil
	}
	return "", TagSourceDefault, nil
}

// FindMQTT returns the MQTT config with the given name, or nil if not found.
func (c *Config) FindMQTT(name string) *MQTTConfig {
	for i := range c.MQTT {
		if c.MQTT[i].Name == name {
			return &c.MQTT[i]
		}
	}
	return nil
}

// FindValkey returns the Valkey config with the given name, or nil if not found.
func (c *Config) FindValkey(name string) *ValkeyConfig {
	for i := range c.Valkey {
		if c.Valkey[i].Name == name {
			return &c.Valkey[i]
		}
	}
	return nil
}

// FindPush returns the webhook config with the given name, or nil if not found.
func (c *Config) FindPush(name string) *PushConfig {
	for i := range c.Push {
		if c.Push[i].Name == name {
			return &c.Push[i]
		}
	}
	return nil
}

// FindKafka returns the Kafka config with the given name, or nil if not found.
func (c *Config) FindKafka(name string) *KafkaConfig {
	for i := range c.Kafka {
		if c.Kafka[i].Name == name {
			return &c.Kafka[i]
		}
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("host must not be empty")
	}
	if c.Rack < 0 || c.Slot < 0 {
		return fmt.Errorf("rack and slot must not be negative (rack=%d, slot=%d)", c.Rack, c.Slot)
	}
	if c.NumCycles < 1 {
		return fmt.Errorf("num_cycles must be at least 1, got %d", c.NumCycles)
	}
	if c.CycleTime < 0 {
		return fmt.Errorf("cycle_time must not be negative, got %s", c.CycleTime)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.MaxItemsPerBatch < 1 || c.MaxItemsPerBatch > s7.MaxItemsPerRequest {
		return fmt.Errorf("max_items_per_batch must be between 1 and %d, got %d", s7.MaxItemsPerRequest, c.MaxItemsPerBatch)
	}
	if !contains(driver.Buses(), c.Bus) {
		return fmt.Errorf("unknown bus %q (known: %s)", c.Bus, strings.Join(driver.Buses(), ", "))
	}
	if len(c.Drivers) == 0 {
		return fmt.Errorf("at least one driver is required")
	}
	for _, name := range c.Drivers {
		if !contains(driver.Names(), name) {
			return fmt.Errorf("unknown driver %q (known: %s)", name, strings.Join(driver.Names(), ", "))
		}
	}
	if c.Namespace != "" && !IsValidNamespace(c.Namespace) {
		return fmt.Errorf("invalid namespace: must contain only alphanumeric characters, hyphens, underscores, and dots")
	}

	for _, m := range c.MQTT {
		if m.Enabled && m.Broker == "" {
			return fmt.Errorf("mqtt %q: broker is required", m.Name)
		}
	}
	for _, v := range c.Valkey {
		if v.Enabled && v.Address == "" {
			return fmt.Errorf("valkey %q: address is required", v.Name)
		}
	}
	for _, k := range c.Kafka {
		if k.Enabled && len(k.Brokers) == 0 {
			return fmt.Errorf("kafka %q: at least one broker is required", k.Name)
		}
	}
	for _, p := range c.Push {
		if p.Enabled && p.URL == "" {
			return fmt.Errorf("push %q: url is required", p.Name)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// IsValidNamespace returns true if the namespace is valid.
// Valid namespaces contain only alphanumeric characters, hyphens, underscores, and dots.
func IsValidNamespace(ns string) bool {
	if ns == "" {
		return false
	}
	for _, r := range ns {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.') {
			return false
		}
	}
	return true
}
