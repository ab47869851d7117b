package driver

import (
	"context"
	"fmt"

	"s7bench/logging"
	"s7bench/s7"
)

// BatchedDriver packs tags into multi-item requests sized to the
// negotiated PDU. A failed item fails the whole read.
type BatchedDriver struct {
	bus       s7.MultiBus
	maxItems  int
	connected bool
}

// NewBatchedDriver creates a BatchedDriver over bus. maxItems <= 0 selects
// s7.MaxItemsPerRequest.
func NewBatchedDriver(bus s7.MultiBus, maxItems int) *BatchedDriver {
	if maxItems <= 0 || maxItems > s7.MaxItemsPerRequest {
		maxItems = s7.MaxItemsPerRequest
	}
	return &BatchedDriver{bus: bus, maxItems: maxItems}
}

// Name returns "batched".
func (d *BatchedDriver) Name() string { return NameBatched }

// Connect opens the bus connection.
func (d *BatchedDriver) Connect(ctx context.Context) error {
	if err := d.bus.Connect(ctx); err != nil {
		return err
	}
	d.connected = true
	return nil
}

// Close releases the connection.
func (d *BatchedDriver) Close() error {
	d.connected = false
	return d.bus.Close()
}

// Read plans all tags into batches and executes them in order. Singleton
// batches use the single-item path.
func (d *BatchedDriver) Read(tags map[string]string) (map[string]s7.Value, error) {
	if !d.connected {
		return nil, &s7.ReadError{Err: fmt.Errorf("not connected")}
	}

	items := make([]s7.Item, 0, len(tags))
	for _, name := range sortedNames(tags) {
		desc, err := s7.ParseAddress(tags[name])
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", name, err)
		}
		items = append(items, s7.Item{Tag: name, Desc: desc})
	}

	batches := s7.Plan(items, d.bus.TransferBudget(), d.maxItems)
	values := make(map[string]s7.Value, len(items))
	for i := range batches {
		if err := d.readBatch(&batches[i], values); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func (d *BatchedDriver) readBatch(b *s7.Batch, values map[string]s7.Value) error {
	logging.DebugLog("driver", "batch %s DB%d: %d items, ~%d bytes", b.Area, b.DBNumber, len(b.Items), b.EstimatedSize())

	if len(b.Items) == 1 {
		it := b.Items[0]
		data, err := d.bus.ReadOne(it.Desc.Request())
		if err != nil {
			return attribute(it.Tag, err)
		}
		return decodeInto(values, it, data)
	}

	results, err := d.bus.ReadMany(b.Requests())
	if err != nil {
		return err
	}
	if len(results) != len(b.Items) {
		return &s7.ReadError{Err: fmt.Errorf("got %d results for %d items", len(results), len(b.Items))}
	}

	for i, it := range b.Items {
		if results[i].Err != nil {
			return attribute(it.Tag, results[i].Err)
		}
		if err := decodeInto(values, it, results[i].Data); err != nil {
			return err
		}
	}
	return nil
}

func decodeInto(values map[string]s7.Value, it s7.Item, data []byte) error {
	v, err := s7.Decode(data, it.Desc)
	if err != nil {
		return fmt.Errorf("tag %s: %w", it.Tag, err)
	}
	values[it.Tag] = v
	return nil
}
