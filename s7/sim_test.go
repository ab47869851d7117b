package s7

import (
	"context"
	"errors"
	"testing"
)

func TestSimulatorSeedAndRead(t *testing.T) {
	sim := NewSimulator(480)
	if err := sim.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	seeds := []struct {
		addr  string
		value Value
	}{
		{"%DB4:0.0:BOOL", BoolValue(true)},
		{"%DB4:0.1:BOOL", BoolValue(false)},
		{"%DB4:0.2:BOOL", BoolValue(true)},
		{"%DB4:18:INT", Int16Value(-2424)},
		{"%DB4:140:STRING(10)", StringValue("hurz")},
		{"M3.WORD", UInt16Value(7)},
	}
	for _, s := range seeds {
		if err := sim.Seed(MustParseAddress(s.addr), s.value); err != nil {
			t.Fatalf("Seed(%s): %v", s.addr, err)
		}
	}

	for _, s := range seeds {
		d := MustParseAddress(s.addr)
		data, err := sim.ReadOne(d.Request())
		if err != nil {
			t.Fatalf("ReadOne(%s): %v", s.addr, err)
		}
		got, err := Decode(data, d)
		if err != nil {
			t.Fatalf("Decode(%s): %v", s.addr, err)
		}
		if !got.Equal(s.value) {
			t.Errorf("%s = %v, want %v", s.addr, got, s.value)
		}
	}

	one, many := sim.Calls()
	if one != len(seeds) || many != 0 {
		t.Errorf("Calls() = %d, %d", one, many)
	}
}

func TestSimulatorFailures(t *testing.T) {
	sim := NewSimulator(480)

	d := MustParseAddress("%DB1:0:INT")
	if _, err := sim.ReadOne(d.Request()); !errors.Is(err, ErrRead) {
		t.Errorf("read while disconnected = %v, want ErrRead", err)
	}

	sim.Connect(context.Background())
	sim.FailBlock(AreaDB, 2)
	results, err := sim.ReadMany([]Request{d.Request(), MustParseAddress("%DB2:0:INT").Request()})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Err != nil || results[1].Err == nil {
		t.Errorf("results = %+v", results)
	}

	sim.ConnectErr = errors.New("refused")
	if err := sim.Connect(context.Background()); !errors.Is(err, ErrConnection) {
		t.Errorf("Connect() = %v, want ErrConnection", err)
	}
}
