// Package driver provides the benchmark client variants. Each variant reads
// a set of named tag addresses from one PLC connection and returns decoded
// values.
package driver

import (
	"context"

	"s7bench/s7"
)

// Driver is the capability set the benchmark exercises.
type Driver interface {
	// Name returns the variant name, e.g. "simple" or "batched".
	Name() string

	// Connection management
	Connect(ctx context.Context) error
	Close() error

	// Read resolves and reads every tag (name -> address) and returns the
	// decoded values keyed by tag name. Any failure aborts the whole read.
	Read(tags map[string]string) (map[string]s7.Value, error)
}
