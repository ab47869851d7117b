package driver

import (
	"context"
	"fmt"

	"s7bench/s7"
)

// SimpleDriver reads every tag with its own request.
type SimpleDriver struct {
	bus       s7.Bus
	connected bool
}

// NewSimpleDriver creates a SimpleDriver over bus.
func NewSimpleDriver(bus s7.Bus) *SimpleDriver {
	return &SimpleDriver{bus: bus}
}

// Name returns "simple".
func (d *SimpleDriver) Name() string { return NameSimple }

// Connect opens the bus connection.
func (d *SimpleDriver) Connect(ctx context.Context) error {
	if err := d.bus.Connect(ctx); err != nil {
		return err
	}
	d.connected = true
	return nil
}

// Close releases the connection.
func (d *SimpleDriver) Close() error {
	d.connected = false
	return d.bus.Close()
}

// Read parses, reads and decodes each tag in name order.
func (d *SimpleDriver) Read(tags map[string]string) (map[string]s7.Value, error) {
	if !d.connected {
		return nil, &s7.ReadError{Err: fmt.Errorf("not connected")}
	}

	values := make(map[string]s7.Value, len(tags))
	for _, name := range sortedNames(tags) {
		desc, err := s7.ParseAddress(tags[name])
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", name, err)
		}

		data, err := d.bus.ReadOne(desc.Request())
		if err != nil {
			return nil, attribute(name, err)
		}

		v, err := s7.Decode(data, desc)
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", name, err)
		}
		values[name] = v
	}
	return values, nil
}
