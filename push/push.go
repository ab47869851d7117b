package push

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"s7bench/bench"
	"s7bench/config"
	"s7bench/logging"
)

// DefaultTimeout bounds a single webhook request.
const DefaultTimeout = 30 * time.Second

func debugLog(format string, args ...any) {
	logging.DebugLog("push", format, args...)
}

// Push sends run reports to an HTTP endpoint.
type Push struct {
	config *config.PushConfig

	lastErr      error
	sendCount    int64
	skipCount    int64
	lastSend     time.Time
	lastHTTPCode int
	mu           sync.RWMutex

	httpClient *http.Client
}

// NewPush creates a webhook sink from configuration.
func NewPush(cfg *config.PushConfig) *Push {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Push{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the configured name.
func (p *Push) Name() string { return p.config.Name }

// URL returns the target URL.
func (p *Push) URL() string { return p.config.URL }

// GetError returns the error of the last request, if any.
func (p *Push) GetError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// GetStats returns push statistics.
func (p *Push) GetStats() (sendCount int64, lastSend time.Time, lastHTTPCode int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sendCount, p.lastSend, p.lastHTTPCode
}

// Skipped returns how many reports were filtered out by OnlyFailures.
func (p *Push) Skipped() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.skipCount
}

// Publish sends the report as the request body. A response status of 400 or
// above is an error.
func (p *Push) Publish(ctx context.Context, rep *bench.Report) error {
	if p.config.OnlyFailures && rep.OK() {
		p.mu.Lock()
		p.skipCount++
		p.mu.Unlock()
		debugLog("%s: skipping successful %s run", p.config.Name, rep.Driver)
		return nil
	}

	body, err := rep.JSON()
	if err != nil {
		return p.fail(fmt.Errorf("encode report: %w", err))
	}

	req, err := p.buildRequest(ctx, body)
	if err != nil {
		return p.fail(fmt.Errorf("failed to build request: %w", err))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return p.fail(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	debugLog("%s: sent HTTP %s to %s, status=%d", p.config.Name, req.Method, p.config.URL, resp.StatusCode)

	p.mu.Lock()
	p.sendCount++
	p.lastSend = time.Now()
	p.lastHTTPCode = resp.StatusCode
	p.lastErr = nil
	p.mu.Unlock()

	if resp.StatusCode >= 400 {
		return p.fail(fmt.Errorf("push %s: HTTP %d", p.config.Name, resp.StatusCode))
	}
	return nil
}

// buildRequest constructs the HTTP request with headers and auth.
func (p *Push) buildRequest(ctx context.Context, body []byte) (*http.Request, error) {
	method := p.config.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, p.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	ct := p.config.ContentType
	if ct == "" {
		ct = "application/json"
	}
	req.Header.Set("Content-Type", ct)

	for k, v := range p.config.Headers {
		req.Header.Set(k, v)
	}

	switch p.config.Auth.Type {
	case config.PushAuthBearer, config.PushAuthJWT:
		req.Header.Set("Authorization", "Bearer "+p.config.Auth.Token)
	case config.PushAuthBasic:
		req.SetBasicAuth(p.config.Auth.Username, p.config.Auth.Password)
	case config.PushAuthCustomHeader:
		if p.config.Auth.HeaderName != "" {
			req.Header.Set(p.config.Auth.HeaderName, p.config.Auth.HeaderValue)
		}
	}

	return req, nil
}

func (p *Push) fail(err error) error {
	debugLog("%s: error: %v", p.config.Name, err)
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
	return err
}
