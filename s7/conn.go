package s7

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Conn is a native S7 connection speaking ISO-on-TCP directly.
// It implements MultiBus.
type Conn struct {
	t       *transport
	address string
	rack    int
	slot    int
}

// NewConn creates an unconnected Conn. A zero timeout selects DefaultTimeout.
func NewConn(address string, rack, slot int, timeout time.Duration) *Conn {
	return &Conn{
		t:       newTransport(timeout),
		address: address,
		rack:    rack,
		slot:    slot,
	}
}

// Connect dials the PLC and negotiates the PDU size.
func (c *Conn) Connect(ctx context.Context) error {
	if err := c.t.connect(ctx, c.address, c.rack, c.slot); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConnection, c.address, err)
	}
	return nil
}

// attach runs the handshake over an existing connection.
func (c *Conn) attach(conn net.Conn) error {
	if err := c.t.handshake(conn, c.address, c.rack, c.slot); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.t.close()
}

// IsConnected returns true if the connection is up.
func (c *Conn) IsConnected() bool {
	return c.t.isConnected()
}

// TransferBudget returns the negotiated PDU size.
func (c *Conn) TransferBudget() int {
	return c.t.negotiatedPDU()
}

// ReadOne reads a single element run.
func (c *Conn) ReadOne(r Request) ([]byte, error) {
	results, err := c.ReadMany([]Request{r})
	if err != nil {
		return nil, err
	}
	if results[0].Err != nil {
		return nil, &ReadError{Err: results[0].Err}
	}
	return results[0].Data, nil
}

// ReadMany reads up to MaxItemsPerRequest element runs in one Read Var job.
func (c *Conn) ReadMany(reqs []Request) ([]ItemResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	if len(reqs) > MaxItemsPerRequest {
		return nil, &ReadError{Err: fmt.Errorf("%d items exceed the limit of %d", len(reqs), MaxItemsPerRequest)}
	}

	resp, err := c.t.sendReceive(buildReadRequest(reqs, c.t.nextRef()))
	if err != nil {
		return nil, &ReadError{Err: err}
	}

	results, err := parseReadResponse(resp, len(reqs))
	if err != nil {
		return nil, &ReadError{Err: err}
	}
	return results, nil
}
