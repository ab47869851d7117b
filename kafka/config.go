// Package kafka produces benchmark run reports to Kafka clusters.
package kafka

import (
	"crypto/tls"
	"time"

	"s7bench/config"
)

// SASLMechanism represents the SASL authentication mechanism.
type SASLMechanism string

const (
	SASLNone        SASLMechanism = ""
	SASLPlain       SASLMechanism = "PLAIN"
	SASLSCRAMSHA256 SASLMechanism = "SCRAM-SHA-256"
	SASLSCRAMSHA512 SASLMechanism = "SCRAM-SHA-512"
)

// Config holds configuration for a Kafka cluster connection.
type Config struct {
	Name          string
	Enabled       bool
	Brokers       []string
	UseTLS        bool
	TLSSkipVerify bool
	SASLMechanism SASLMechanism
	Username      string
	Password      string

	// Producer settings
	RequiredAcks int // -1=all, 0=none, 1=leader only
	MaxRetries   int
	RetryBackoff time.Duration

	Topic            string // Overrides the namespace topic when set
	Selector         string
	AutoCreateTopics bool
}

// DefaultConfig returns a Kafka configuration with sensible defaults.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		Enabled:          false,
		Brokers:          []string{"localhost:9092"},
		RequiredAcks:     -1, // All replicas must acknowledge
		MaxRetries:       3,
		RetryBackoff:     100 * time.Millisecond,
		AutoCreateTopics: true,
	}
}

// FromConfig converts the persisted cluster settings, filling defaults for
// zero values.
func FromConfig(cfg *config.KafkaConfig) *Config {
	c := DefaultConfig(cfg.Name)
	c.Enabled = cfg.Enabled
	if len(cfg.Brokers) > 0 {
		c.Brokers = cfg.Brokers
	}
	c.UseTLS = cfg.UseTLS
	c.TLSSkipVerify = cfg.TLSSkipVerify
	c.SASLMechanism = SASLMechanism(cfg.SASLMechanism)
	c.Username = cfg.Username
	c.Password = cfg.Password
	if cfg.RequiredAcks != 0 {
		c.RequiredAcks = cfg.RequiredAcks
	}
	if cfg.MaxRetries > 0 {
		c.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryBackoff > 0 {
		c.RetryBackoff = cfg.RetryBackoff
	}
	c.Topic = cfg.Topic
	c.Selector = cfg.Selector
	if cfg.AutoCreateTopics != nil {
		c.AutoCreateTopics = *cfg.AutoCreateTopics
	}
	return &c
}

// GetTLSConfig returns a TLS configuration if TLS is enabled.
func (c *Config) GetTLSConfig() *tls.Config {
	if !c.UseTLS {
		return nil
	}
	return &tls.Config{
		InsecureSkipVerify: c.TLSSkipVerify,
	}
}
