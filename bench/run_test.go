package bench

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"s7bench/driver"
	"s7bench/s7"
)

// scriptedDriver returns canned read results.
type scriptedDriver struct {
	connectErr error
	values     func(tags map[string]string) (map[string]s7.Value, error)
	reads      int
	closed     bool
}

func (d *scriptedDriver) Name() string { return "scripted" }

func (d *scriptedDriver) Connect(ctx context.Context) error { return d.connectErr }

func (d *scriptedDriver) Close() error {
	d.closed = true
	return nil
}

func (d *scriptedDriver) Read(tags map[string]string) (map[string]s7.Value, error) {
	d.reads++
	return d.values(tags)
}

func simDriver(t *testing.T, name string, specs []TagSpec) (driver.Driver, *s7.Simulator) {
	t.Helper()
	sim := s7.NewSimulator(240)
	if err := SeedSimulator(sim, specs); err != nil {
		t.Fatal(err)
	}
	d, err := driver.Create(name, driver.Options{Bus: driver.BusSim, Simulator: sim, MaxItemsPerBatch: s7.MaxItemsPerRequest})
	if err != nil {
		t.Fatal(err)
	}
	return d, sim
}

func TestRunAgainstSimulator(t *testing.T) {
	specs, err := ParseTagList(DefaultTags)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range driver.Names() {
		t.Run(name, func(t *testing.T) {
			d, sim := simDriver(t, name, specs)

			res, err := Run(context.Background(), d, Options{Cycles: 3}, specs)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if res.CycleCount != 3 || len(res.ReadTimes) != 3 {
				t.Errorf("cycles = %d, read times = %d", res.CycleCount, len(res.ReadTimes))
			}
			if res.Driver != name {
				t.Errorf("Driver = %q", res.Driver)
			}
			if len(res.LastValues) != len(specs) {
				t.Errorf("LastValues has %d entries", len(res.LastValues))
			}

			one, many := sim.Calls()
			switch name {
			case driver.NameSimple:
				if one != 3*len(specs) || many != 0 {
					t.Errorf("simple Calls() = %d, %d", one, many)
				}
			case driver.NameBatched:
				if many == 0 || one+many >= 3*len(specs) {
					t.Errorf("batched Calls() = %d, %d", one, many)
				}
			}
		})
	}
}

func TestRunMismatch(t *testing.T) {
	specs, _ := ParseTagList("%DB1:0:INT|INT;5\n%DB1:2:INT|INT;6\n")
	d, sim := simDriver(t, driver.NameBatched, specs)
	sim.Seed(s7.MustParseAddress("%DB1:2:INT"), s7.Int16Value(7))

	var logBuf bytes.Buffer
	log := zerolog.New(&logBuf)

	res, err := Run(context.Background(), d, Options{Cycles: 5, Logger: log}, specs)
	if !errors.Is(err, s7.ErrUnexpectedResult) {
		t.Fatalf("err = %v, want ErrUnexpectedResult", err)
	}
	if !strings.Contains(err.Error(), "tag-2 for tag address %DB1:2:INT") {
		t.Errorf("err = %v", err)
	}
	if res.CycleCount != 1 {
		t.Errorf("CycleCount = %d, want 1", res.CycleCount)
	}
	if !strings.Contains(logBuf.String(), "benchmark failed") {
		t.Errorf("log = %s", logBuf.String())
	}
}

func TestRunVerification(t *testing.T) {
	specs, _ := ParseTagList("%DB1:0:INT|INT;5\n%DB1:2:INT|INT;6\n")

	tests := []struct {
		name   string
		values map[string]s7.Value
		want   string
	}{
		{"unknown tag", map[string]s7.Value{"tag-1": s7.Int16Value(5), "tag-2": s7.Int16Value(6), "tag-9": s7.Int16Value(1)}, "tag-9 was not requested"},
		{"wrong value", map[string]s7.Value{"tag-1": s7.Int16Value(5), "tag-2": s7.Int16Value(7)}, "got INT 7, want INT 6"},
		{"missing tag", map[string]s7.Value{"tag-1": s7.Int16Value(5)}, "tag-2 for tag address %DB1:2:INT missing"},
		{"wrong variant", map[string]s7.Value{"tag-1": s7.UInt16Value(5), "tag-2": s7.Int16Value(6)}, "tag-1 for tag address %DB1:0:INT: got UINT 5, want INT 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &scriptedDriver{values: func(map[string]string) (map[string]s7.Value, error) {
				return tt.values, nil
			}}
			_, err := Run(context.Background(), d, Options{Cycles: 2}, specs)
			if !errors.Is(err, s7.ErrUnexpectedResult) || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
			if !d.closed {
				t.Error("driver not closed")
			}
		})
	}
}

func TestRunConnectFailure(t *testing.T) {
	d := &scriptedDriver{connectErr: s7.ErrConnection}
	res, err := Run(context.Background(), d, Options{Cycles: 2}, nil)
	if !errors.Is(err, s7.ErrConnection) {
		t.Fatalf("err = %v", err)
	}
	if d.reads != 0 || !d.closed {
		t.Errorf("reads = %d, closed = %v", d.reads, d.closed)
	}
	if res.CycleCount != 0 {
		t.Errorf("CycleCount = %d", res.CycleCount)
	}
}

func TestRunReadError(t *testing.T) {
	specs, _ := ParseTagList("%DB1:0:INT|INT;5\n")
	d := &scriptedDriver{values: func(map[string]string) (map[string]s7.Value, error) {
		return nil, &s7.ReadError{Tag: "tag-1", Err: errors.New("address out of range")}
	}}
	_, err := Run(context.Background(), d, Options{Cycles: 2}, specs)
	var re *s7.ReadError
	if !errors.As(err, &re) || re.Tag != "tag-1" {
		t.Errorf("err = %v, want ReadError for tag-1", err)
	}
}

func TestRunCancelledBetweenCycles(t *testing.T) {
	specs, _ := ParseTagList("%DB1:0:INT|INT;5\n")
	ctx, cancel := context.WithCancel(context.Background())

	d := &scriptedDriver{values: func(map[string]string) (map[string]s7.Value, error) {
		cancel()
		return map[string]s7.Value{"tag-1": s7.Int16Value(5)}, nil
	}}

	start := time.Now()
	res, err := Run(ctx, d, Options{Cycles: 10, CycleTime: time.Hour}, specs)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("sleep was not interrupted")
	}
	if res.CycleCount != 1 || !d.closed {
		t.Errorf("CycleCount = %d, closed = %v", res.CycleCount, d.closed)
	}
}

func TestRunCycleTime(t *testing.T) {
	specs, _ := ParseTagList("%DB1:0:INT|INT;5\n")
	d := &scriptedDriver{values: func(map[string]string) (map[string]s7.Value, error) {
		return map[string]s7.Value{"tag-1": s7.Int16Value(5)}, nil
	}}

	start := time.Now()
	if _, err := Run(context.Background(), d, Options{Cycles: 3, CycleTime: 20 * time.Millisecond}, specs); err != nil {
		t.Fatal(err)
	}
	// Two pauses, none after the last cycle.
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("elapsed %v, want at least 40ms", elapsed)
	}
}
