package s7

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// Station is a rack/slot pair addressing a CPU.
type Station struct {
	Rack int
	Slot int
}

func (s Station) String() string {
	return fmt.Sprintf("rack %d slot %d", s.Rack, s.Slot)
}

// DefaultStations are the usual CPU positions: S7-1200/1500 answer on
// slot 0 or 1, S7-300/400 on slot 2.
var DefaultStations = []Station{{0, 1}, {0, 0}, {0, 2}}

// ProbeResult is the outcome of a handshake against one station.
type ProbeResult struct {
	Address string
	Station Station
	PDUSize int // negotiated, zero on failure
	Took    time.Duration
	Err     error
}

// OK reports whether the station completed the handshake.
func (r ProbeResult) OK() bool { return r.Err == nil }

type dialFunc func(ctx context.Context, address string) (net.Conn, error)

// Probe runs the COTP and S7 setup handshake against every station at
// address and disconnects again. Results are in the order of stations.
// concurrency bounds the number of parallel connections; the CPU may
// refuse more than a few.
func Probe(ctx context.Context, address string, stations []Station, timeout time.Duration, concurrency int) []ProbeResult {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	dial := func(ctx context.Context, address string) (net.Conn, error) {
		return dialer.DialContext(ctx, "tcp", address)
	}
	return probe(ctx, dial, address, stations, timeout, concurrency)
}

func probe(ctx context.Context, dial dialFunc, address string, stations []Station, timeout time.Duration, concurrency int) []ProbeResult {
	if concurrency <= 0 {
		concurrency = 2
	}
	address = withDefaultPort(address)

	var (
		results = make([]ProbeResult, len(stations))
		wg      sync.WaitGroup
		sem     = make(chan struct{}, concurrency)
	)

	for i, st := range stations {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, st Station) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = probeStation(ctx, dial, address, st, timeout)
		}(i, st)
	}

	wg.Wait()
	return results
}

func probeStation(ctx context.Context, dial dialFunc, address string, st Station, timeout time.Duration) ProbeResult {
	res := ProbeResult{Address: address, Station: st}
	start := time.Now()

	conn, err := dial(ctx, address)
	if err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrConnection, err)
		res.Took = time.Since(start)
		return res
	}

	t := newTransport(timeout)
	if err := t.handshake(conn, address, st.Rack, st.Slot); err != nil {
		res.Err = fmt.Errorf("%w: %s: %v", ErrConnection, st, err)
		res.Took = time.Since(start)
		return res
	}
	res.PDUSize = t.negotiatedPDU()
	t.close()
	res.Took = time.Since(start)
	return res
}

// FirstReachable returns the first successful result, or false if none.
func FirstReachable(results []ProbeResult) (ProbeResult, bool) {
	for _, r := range results {
		if r.OK() {
			return r, true
		}
	}
	return ProbeResult{}, false
}
