// Package valkey stores benchmark run reports in Valkey/Redis.
package valkey

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"s7bench/bench"
	"s7bench/config"
	"s7bench/logging"
	"s7bench/namespace"
)

// DefaultHistoryLen is the number of reports kept per driver when the
// config leaves it at zero.
const DefaultHistoryLen = 100

func debugLog(format string, args ...any) {
	logging.DebugLog("valkey", format, args...)
}

// commander is the subset of *redis.Client the publisher uses.
type commander interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	LPush(ctx context.Context, key string, values ...any) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Close() error
}

// Publisher stores reports on one Valkey server.
type Publisher struct {
	config  *config.ValkeyConfig
	ns      *namespace.Builder
	client  commander
	running bool
	mu      sync.RWMutex

	newClient func(*redis.Options) commander
}

// NewPublisher creates a new Valkey publisher. Keys are built under the
// given namespace and the config's selector.
func NewPublisher(cfg *config.ValkeyConfig, ns string) *Publisher {
	return &Publisher{
		config: cfg,
		ns:     namespace.New(ns, cfg.Selector),
		newClient: func(opts *redis.Options) commander {
			return redis.NewClient(opts)
		},
	}
}

// Name returns the publisher's name.
func (p *Publisher) Name() string {
	return p.config.Name
}

// Start connects to the Valkey server.
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.RLock()
	if p.running {
		p.mu.RUnlock()
		return nil
	}
	p.mu.RUnlock()

	opts := &redis.Options{
		Addr:         p.config.Address,
		Password:     p.config.Password,
		DB:           p.config.Database,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}
	if p.config.UseTLS {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	client := p.newClient(opts)

	debugLog("Attempting to connect to Valkey at %s (DB: %d, TLS: %v)",
		p.config.Address, p.config.Database, p.config.UseTLS)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		debugLog("Valkey connection failed: %v", err)
		client.Close()
		return fmt.Errorf("failed to connect to Valkey at %s: %w", p.config.Address, err)
	}

	debugLog("Successfully connected to Valkey at %s", p.config.Address)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		client.Close()
		return nil
	}
	p.client = client
	p.running = true
	return nil
}

// Stop disconnects from the Valkey server.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	client := p.client
	p.client = nil
	p.mu.Unlock()

	if client != nil {
		return client.Close()
	}
	return nil
}

// IsRunning returns whether the publisher is connected.
func (p *Publisher) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Address returns the server address.
func (p *Publisher) Address() string {
	scheme := "redis"
	if p.config.UseTLS {
		scheme = "rediss"
	}
	return fmt.Sprintf("%s://%s", scheme, p.config.Address)
}

func (p *Publisher) historyLen() int64 {
	if p.config.HistoryLen > 0 {
		return int64(p.config.HistoryLen)
	}
	return DefaultHistoryLen
}

// Publish stores the report as the driver's latest, prepends it to the
// driver's history (trimmed to the configured length) and announces it on
// the runs channel.
func (p *Publisher) Publish(ctx context.Context, rep *bench.Report) error {
	p.mu.RLock()
	if !p.running || p.client == nil {
		p.mu.RUnlock()
		return fmt.Errorf("valkey %s: not connected", p.config.Name)
	}
	client := p.client
	p.mu.RUnlock()

	data, err := rep.JSON()
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	latest := p.ns.ValkeyLatestKey(rep.Driver)
	if err := client.Set(ctx, latest, data, p.config.KeyTTL).Err(); err != nil {
		return fmt.Errorf("valkey %s: failed to set %s: %w", p.config.Name, latest, err)
	}

	history := p.ns.ValkeyHistoryKey(rep.Driver)
	if err := client.LPush(ctx, history, data).Err(); err != nil {
		return fmt.Errorf("valkey %s: failed to push %s: %w", p.config.Name, history, err)
	}
	if err := client.LTrim(ctx, history, 0, p.historyLen()-1).Err(); err != nil {
		return fmt.Errorf("valkey %s: failed to trim %s: %w", p.config.Name, history, err)
	}

	channel := p.ns.ValkeyRunsChannel()
	if err := client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("valkey %s: failed to publish on %s: %w", p.config.Name, channel, err)
	}
	debugLog("Stored %s report at %s", rep.Driver, latest)
	return nil
}
