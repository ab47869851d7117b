package s7

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

// refusingPLC answers the COTP connection request with a disconnect request.
func refusingPLC(conn net.Conn) {
	defer conn.Close()
	hdr := make([]byte, 4)
	if _, err := io.ReadFull(conn, hdr); err != nil {
		return
	}
	body := make([]byte, int(binary.BigEndian.Uint16(hdr[2:4]))-4)
	if _, err := io.ReadFull(conn, body); err != nil {
		return
	}
	dr := []byte{0x06, 0x80, 0x00, 0x01, 0x00, 0x01, 0x00}
	conn.Write(append([]byte{tpktVersion, 0, 0, byte(len(dr) + 4)}, dr...))
}

func TestProbe(t *testing.T) {
	stations := []Station{{0, 1}, {0, 2}}

	tests := []struct {
		name    string
		serve   func(net.Conn)
		dialErr error
		wantOK  bool
	}{
		{"answering", (&fakePLC{pdu: 240}).serve, nil, true},
		{"refusing", refusingPLC, nil, false},
		{"unreachable", nil, errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dialed []string
			dial := func(ctx context.Context, address string) (net.Conn, error) {
				dialed = append(dialed, address)
				if tt.dialErr != nil {
					return nil, tt.dialErr
				}
				client, server := net.Pipe()
				go tt.serve(server)
				return client, nil
			}

			results := probe(context.Background(), dial, "10.0.0.1", stations, time.Second, 1)
			if len(results) != len(stations) {
				t.Fatalf("got %d results", len(results))
			}
			for i, r := range results {
				if r.Station != stations[i] {
					t.Errorf("result %d station = %v, want %v", i, r.Station, stations[i])
				}
				if r.Address != "10.0.0.1:102" {
					t.Errorf("address = %q", r.Address)
				}
				if r.OK() != tt.wantOK {
					t.Errorf("%s OK() = %v, err = %v", r.Station, r.OK(), r.Err)
				}
				if tt.wantOK && r.PDUSize != 240 {
					t.Errorf("PDUSize = %d, want 240", r.PDUSize)
				}
				if !tt.wantOK && !errors.Is(r.Err, ErrConnection) {
					t.Errorf("err = %v, want ErrConnection", r.Err)
				}
			}
			if len(dialed) != len(stations) {
				t.Errorf("dialed %d times, want %d", len(dialed), len(stations))
			}

			first, ok := FirstReachable(results)
			if ok != tt.wantOK {
				t.Errorf("FirstReachable ok = %v", ok)
			}
			if ok && first.Station != stations[0] {
				t.Errorf("FirstReachable = %v", first.Station)
			}
		})
	}
}

func TestStationString(t *testing.T) {
	if got := (Station{Rack: 0, Slot: 2}).String(); got != "rack 0 slot 2" {
		t.Errorf("String() = %q", got)
	}
}
