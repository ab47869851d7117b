package s7

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memKey struct {
	area Area
	db   int
}

// Simulator is an in-memory PLC implementing MultiBus. Memory is seeded
// through Seed, which lays values out with Encode.
type Simulator struct {
	mu        sync.Mutex
	memory    map[memKey][]byte
	failed    map[memKey]bool
	budget    int
	latency   time.Duration
	connected bool

	// ConnectErr, when set, is returned by Connect.
	ConnectErr error

	readOneCalls  int
	readManyCalls int
}

// NewSimulator creates a simulator that reports budget as its PDU size.
func NewSimulator(budget int) *Simulator {
	if budget <= 0 {
		budget = defaultPDUSize
	}
	return &Simulator{
		memory: make(map[memKey][]byte),
		failed: make(map[memKey]bool),
		budget: budget,
	}
}

// SetLatency delays every read request by d.
func (s *Simulator) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// Seed stores v at the location described by d.
func (s *Simulator) Seed(d *Descriptor, v Value) error {
	buf, err := Encode(v, d)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := keyFor(d.Area, d.DBNumber)
	mem := s.grow(k, d.ByteOffset()+len(buf))
	if d.WireType == WireBit {
		mask := byte(1) << uint(d.BitNum())
		if buf[0]&0x01 != 0 {
			mem[d.ByteOffset()] |= mask
		} else {
			mem[d.ByteOffset()] &^= mask
		}
		return nil
	}
	copy(mem[d.ByteOffset():], buf)
	return nil
}

// FailBlock makes every item addressing the given area and DB report an
// address error.
func (s *Simulator) FailBlock(area Area, db int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[keyFor(area, db)] = true
}

// Calls returns the number of ReadOne and ReadMany requests served.
func (s *Simulator) Calls() (readOne, readMany int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readOneCalls, s.readManyCalls
}

// Connect marks the simulator connected.
func (s *Simulator) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if s.ConnectErr != nil {
		return fmt.Errorf("%w: %v", ErrConnection, s.ConnectErr)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

// Close marks the simulator disconnected.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

// TransferBudget returns the configured PDU size.
func (s *Simulator) TransferBudget() int {
	return s.budget
}

// ReadOne reads a single element run.
func (s *Simulator) ReadOne(r Request) ([]byte, error) {
	s.mu.Lock()
	s.readOneCalls++
	s.mu.Unlock()

	results, err := s.read([]Request{r})
	if err != nil {
		return nil, err
	}
	if results[0].Err != nil {
		return nil, &ReadError{Err: results[0].Err}
	}
	return results[0].Data, nil
}

// ReadMany reads several element runs in one simulated request.
func (s *Simulator) ReadMany(reqs []Request) ([]ItemResult, error) {
	s.mu.Lock()
	s.readManyCalls++
	s.mu.Unlock()

	if len(reqs) > MaxItemsPerRequest {
		return nil, &ReadError{Err: fmt.Errorf("%d items exceed the limit of %d", len(reqs), MaxItemsPerRequest)}
	}
	return s.read(reqs)
}

func (s *Simulator) read(reqs []Request) ([]ItemResult, error) {
	s.mu.Lock()
	latency := s.latency
	s.mu.Unlock()
	if latency > 0 {
		time.Sleep(latency)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, &ReadError{Err: fmt.Errorf("not connected")}
	}

	size := 0
	for _, r := range reqs {
		size += ItemHeaderSize + r.Count*r.WireType.UnitSize()
	}
	if len(reqs) > 1 && size+RequestHeaderSize > s.budget {
		return nil, &ReadError{Err: S7Error{Class: errClassNoResource}}
	}

	results := make([]ItemResult, len(reqs))
	for i, r := range reqs {
		k := keyFor(r.Area, r.DBNumber)
		if s.failed[k] {
			results[i].Err = ItemStatus(dataItemAddressError)
			continue
		}

		if r.WireType == WireBit {
			mem := s.grow(k, r.Start/8+1)
			results[i].Data = []byte{(mem[r.Start/8] >> uint(r.Start%8)) & 0x01}
			continue
		}
		n := r.Count * r.WireType.UnitSize()
		mem := s.grow(k, r.Start+n)
		results[i].Data = append([]byte(nil), mem[r.Start:r.Start+n]...)
	}
	return results, nil
}

// grow returns the memory for k, extended to at least n bytes.
func (s *Simulator) grow(k memKey, n int) []byte {
	mem := s.memory[k]
	if len(mem) < n {
		mem = append(mem, make([]byte, n-len(mem))...)
		s.memory[k] = mem
	}
	return mem
}

func keyFor(area Area, db int) memKey {
	if area != AreaDB {
		db = 0
	}
	return memKey{area: area, db: db}
}
