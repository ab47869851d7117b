package s7

import (
	"encoding/binary"
	"fmt"
)

const (
	s7ProtocolID = 0x32

	// Message Types
	s7MsgJob     = 0x01
	s7MsgAckData = 0x03

	// Functions
	s7FuncSetupComm = 0xF0
	s7FuncRead      = 0x04

	// Area Codes (for S7ANY addressing)
	s7AreaI  = 0x81 // Inputs
	s7AreaQ  = 0x82 // Outputs
	s7AreaM  = 0x83 // Markers/Flags
	s7AreaDB = 0x84 // Data blocks

	// Transport sizes for S7ANY
	tsBIT   = 0x01
	tsBYTE  = 0x02
	tsCHAR  = 0x03
	tsWORD  = 0x04
	tsDWORD = 0x06
	tsREAL  = 0x08

	// Transport sizes in Read Var response data items
	rtsBit     = 0x03 // length in bits
	rtsByte    = 0x04 // BYTE/WORD/DWORD, length in bits
	rtsInteger = 0x05 // length in bits
	rtsDInt    = 0x06 // length in bits
	rtsReal    = 0x07 // length in bytes
	rtsOctet   = 0x09 // length in bytes

	// S7ANY constants
	s7AnySpecType = 0x12
	s7AnyLen      = 0x0A
	s7AnySyntaxID = 0x10
)

// Request addresses one contiguous element run in the PLC.
// Start is a bit address for WireBit and a byte offset otherwise.
type Request struct {
	Area     Area
	DBNumber int
	Start    int
	WireType WireType
	Count    int
}

// ItemResult is the outcome of one item in a multi-item read. Err is set
// (usually an ItemStatus) when the PLC rejected the item.
type ItemResult struct {
	Data []byte
	Err  error
}

// buildSetupCommRequest creates an S7 Setup Communication request PDU.
func buildSetupCommRequest(pduSize uint16) []byte {
	// S7 Header (10 bytes for Job)
	header := []byte{
		s7ProtocolID, // Protocol ID
		s7MsgJob,     // Message type: Job
		0x00, 0x00,   // Reserved
		0x00, 0x00, // PDU reference
		0x00, 0x08, // Parameter length: 8 bytes
		0x00, 0x00, // Data length: 0
	}

	// Setup Communication parameters (8 bytes)
	params := []byte{
		s7FuncSetupComm, // Function: Setup Communication
		0x00,            // Reserved
		0x00, 0x01,      // Max AMQ calling
		0x00, 0x01, // Max AMQ called
		byte(pduSize >> 8), byte(pduSize), // PDU size
	}

	return append(header, params...)
}

// parseSetupCommResponse parses an S7 Setup Communication response.
func parseSetupCommResponse(data []byte) (uint16, error) {
	// Response header is 12 bytes (includes error class/code) + 8 byte params
	if len(data) < 20 {
		return 0, fmt.Errorf("setup response too short: %d bytes", len(data))
	}
	if err := checkAckHeader(data); err != nil {
		return 0, err
	}
	if data[12] != s7FuncSetupComm {
		return 0, fmt.Errorf("unexpected function: 0x%02X", data[12])
	}

	// Negotiated PDU size is the last 2 bytes of params
	return binary.BigEndian.Uint16(data[18:20]), nil
}

// checkAckHeader validates the common part of an Ack-Data header.
func checkAckHeader(data []byte) error {
	if data[0] != s7ProtocolID {
		return fmt.Errorf("invalid protocol ID: 0x%02X", data[0])
	}
	if data[1] != s7MsgAckData {
		return fmt.Errorf("unexpected message type: 0x%02X", data[1])
	}
	if data[10] != 0 || data[11] != 0 {
		return S7Error{Class: data[10], Code: data[11]}
	}
	return nil
}

// buildReadRequest creates an S7 Read Variable request PDU.
func buildReadRequest(reqs []Request, pduRef uint16) []byte {
	itemCount := len(reqs)

	paramLen := 2 + itemCount*12 // function + count + items
	header := []byte{
		s7ProtocolID, // Protocol ID
		s7MsgJob,     // Message type: Job
		0x00, 0x00,   // Reserved
		byte(pduRef >> 8), byte(pduRef), // PDU reference
		byte(paramLen >> 8), byte(paramLen), // Parameter length
		0x00, 0x00, // Data length: 0 for read request
	}

	params := []byte{
		s7FuncRead,      // Function: Read Variable
		byte(itemCount), // Item count
	}
	for _, r := range reqs {
		params = append(params, requestToS7Any(r)...)
	}

	return append(header, params...)
}

// requestToS7Any encodes one request as a 12-byte S7ANY item.
func requestToS7Any(r Request) []byte {
	// Address is (byte_offset << 3) | bit_number, 24-bit big-endian
	bitAddr := r.Start * 8
	if r.WireType == WireBit {
		bitAddr = r.Start
	}

	dbNumber := r.DBNumber
	if r.Area != AreaDB {
		dbNumber = 0
	}

	return []byte{
		s7AnySpecType, // variable item marker
		s7AnyLen,      // Length of this item
		s7AnySyntaxID, // Syntax ID: S7ANY
		r.WireType.transportSize(),
		byte(r.Count >> 8), byte(r.Count), // Count
		byte(dbNumber >> 8), byte(dbNumber), // DB number
		r.Area.Code(),                                          // Area
		byte(bitAddr >> 16), byte(bitAddr >> 8), byte(bitAddr), // Address (24-bit)
	}
}

// parseReadResponse parses an S7 Read Variable response carrying count items.
// A malformed header fails the whole response; item-level failures are
// returned in band.
func parseReadResponse(data []byte, count int) ([]ItemResult, error) {
	if len(data) < 14 {
		return nil, fmt.Errorf("response too short: %d bytes", len(data))
	}
	if err := checkAckHeader(data); err != nil {
		return nil, err
	}
	if data[12] != s7FuncRead {
		return nil, fmt.Errorf("unexpected function: 0x%02X", data[12])
	}
	if int(data[13]) != count {
		return nil, fmt.Errorf("item count mismatch: sent %d, got %d", count, data[13])
	}

	paramLen := int(binary.BigEndian.Uint16(data[6:8]))
	dataLen := int(binary.BigEndian.Uint16(data[8:10]))

	// Skip header (12 bytes) and parameters
	pos := 12 + paramLen
	if pos > len(data) || dataLen > len(data)-pos {
		return nil, fmt.Errorf("invalid response lengths")
	}
	end := pos + dataLen

	results := make([]ItemResult, count)
	for i := 0; i < count; i++ {
		if pos >= end {
			results[i].Err = fmt.Errorf("unexpected end of data")
			continue
		}

		// Data item header: return code, transport size, length
		returnCode := data[pos]
		if returnCode != dataItemSuccess {
			results[i].Err = ItemStatus(returnCode)
			// Error items carry a 4 byte header and no payload
			pos += 4
			continue
		}
		if pos+4 > end {
			results[i].Err = fmt.Errorf("data item header too short")
			continue
		}

		transportSize := data[pos+1]
		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))

		var byteLen int
		switch transportSize {
		case rtsBit:
			byteLen = (length + 7) / 8
		case rtsByte, rtsInteger, rtsDInt:
			byteLen = length / 8
		default:
			byteLen = length
		}
		pos += 4

		if pos+byteLen > end {
			results[i].Err = fmt.Errorf("data truncated")
			continue
		}

		results[i].Data = make([]byte, byteLen)
		copy(results[i].Data, data[pos:pos+byteLen])
		pos += byteLen

		// Items are padded to even bytes (except last)
		if i < count-1 && byteLen%2 == 1 {
			pos++
		}
	}

	return results, nil
}
