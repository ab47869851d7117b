package s7

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robinson/gos7"

	"s7bench/logging"
)

// GoS7Client implements Bus on top of the gos7 library.
type GoS7Client struct {
	handler   *gos7.TCPClientHandler
	client    gos7.Client
	address   string
	rack      int
	slot      int
	timeout   time.Duration
	connected bool
	mu        sync.Mutex
}

// NewGoS7Client creates an unconnected client. A zero timeout selects
// DefaultTimeout.
func NewGoS7Client(address string, rack, slot int, timeout time.Duration) *GoS7Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &GoS7Client{
		address: withDefaultPort(address),
		rack:    rack,
		slot:    slot,
		timeout: timeout,
	}
}

// Connect establishes the connection. gos7 dials without a context, so
// ctx is only checked before dialing.
func (c *GoS7Client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	handler := gos7.NewTCPClientHandler(c.address, c.rack, c.slot)
	handler.Timeout = c.timeout
	handler.IdleTimeout = c.timeout

	logging.DebugConnect("gos7", c.address)
	if err := handler.Connect(); err != nil {
		logging.DebugConnectError("gos7", c.address, err)
		return fmt.Errorf("%w: %s: %v", ErrConnection, c.address, err)
	}
	logging.DebugConnectSuccess("gos7", c.address, fmt.Sprintf("rack=%d slot=%d", c.rack, c.slot))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
	c.client = gos7.NewClient(handler)
	c.connected = true
	return nil
}

// Close releases all resources associated with the client.
func (c *GoS7Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.handler == nil {
		return nil
	}
	err := c.handler.Close()
	logging.DebugDisconnect("gos7", c.address, "closed by client")
	c.handler = nil
	c.client = nil
	return err
}

// IsConnected returns true if the client is connected.
func (c *GoS7Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ReadOne reads a single element run. Bit reads fetch the containing byte
// and return the bit as 0 or 1.
func (c *GoS7Client) ReadOne(r Request) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.client == nil {
		return nil, &ReadError{Err: fmt.Errorf("not connected")}
	}

	start, size := r.Start, r.Count*r.WireType.UnitSize()
	if r.WireType == WireBit {
		start, size = r.Start/8, 1
	}
	buf := make([]byte, size)

	var err error
	switch r.Area {
	case AreaDB:
		err = c.client.AGReadDB(r.DBNumber, start, size, buf)
	case AreaI:
		err = c.client.AGReadEB(start, size, buf)
	case AreaQ:
		err = c.client.AGReadAB(start, size, buf)
	case AreaM:
		err = c.client.AGReadMB(start, size, buf)
	default:
		return nil, &ReadError{Err: fmt.Errorf("unsupported area: %v", r.Area)}
	}

	if err != nil {
		logging.DebugError("gos7", fmt.Sprintf("read %v DB%d @%d", r.Area, r.DBNumber, start), err)
		if isConnectionError(err) {
			c.connected = false
		}
		return nil, &ReadError{Err: err}
	}
	logging.DebugRX("gos7", buf)

	if r.WireType == WireBit {
		return []byte{(buf[0] >> uint(r.Start%8)) & 0x01}, nil
	}
	return buf, nil
}

// isConnectionError checks if an error indicates the TCP connection is broken.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "reset by peer") ||
		strings.Contains(errStr, "eof") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "refused") ||
		strings.Contains(errStr, "closed")
}
