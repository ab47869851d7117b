package driver

import (
	"fmt"
	"strings"
	"time"

	"s7bench/s7"
)

// Variant names.
const (
	NameSimple  = "simple"
	NameBatched = "batched"
)

// Bus flavours.
const (
	BusNative = "native" // built-in ISO-on-TCP client, supports multi-item reads
	BusGoS7   = "gos7"   // github.com/robinson/gos7, single-item reads only
	BusSim    = "sim"    // in-memory simulator
)

// Options configures the connection a driver is created with.
type Options struct {
	Address          string
	Rack             int
	Slot             int
	Timeout          time.Duration
	Bus              string
	MaxItemsPerBatch int

	// Simulator backs BusSim. A fresh empty simulator is used when nil.
	Simulator *s7.Simulator
}

// Names returns the known variant names.
func Names() []string {
	return []string{NameSimple, NameBatched}
}

// Buses returns the known bus flavours.
func Buses() []string {
	return []string{BusNative, BusGoS7, BusSim}
}

// Create creates the named Driver. The connection is not established until
// Connect() is called on the returned driver.
func Create(name string, opts Options) (Driver, error) {
	bus, err := newBus(opts)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(name) {
	case NameSimple:
		return NewSimpleDriver(bus), nil
	case NameBatched:
		multi, ok := bus.(s7.MultiBus)
		if !ok {
			return nil, fmt.Errorf("driver %q needs multi-item reads, bus %q has none", name, opts.Bus)
		}
		return NewBatchedDriver(multi, opts.MaxItemsPerBatch), nil
	default:
		return nil, fmt.Errorf("unknown driver %q (known: %s)", name, strings.Join(Names(), ", "))
	}
}

func newBus(opts Options) (s7.Bus, error) {
	switch strings.ToLower(opts.Bus) {
	case "", BusNative:
		return s7.NewConn(opts.Address, opts.Rack, opts.Slot, opts.Timeout), nil
	case BusGoS7:
		return s7.NewGoS7Client(opts.Address, opts.Rack, opts.Slot, opts.Timeout), nil
	case BusSim:
		if opts.Simulator != nil {
			return opts.Simulator, nil
		}
		return s7.NewSimulator(0), nil
	default:
		return nil, fmt.Errorf("unknown bus %q (known: %s)", opts.Bus, strings.Join(Buses(), ", "))
	}
}
