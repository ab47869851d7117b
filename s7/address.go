package s7

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	defaultStringLength = 254
	maxStringLength     = 254

	// MaxByteOffset is the largest byte offset an S7ANY item can address:
	// the item carries a 24-bit bit address.
	MaxByteOffset = 0x1FFFFF
	// MaxDBNumber is the largest data block number an S7ANY item carries.
	MaxDBNumber = 0xFFFF
)

// Descriptor is a resolved tag address: where the data lives, how it is
// requested on the wire, and which Value variant it decodes to.
type Descriptor struct {
	Area     Area
	DBNumber int      // Data block number (only for AreaDB)
	Start    int      // Bit address for WireBit (byte*8+bit), byte offset otherwise
	WireType WireType // Element size used in the request
	Size     int      // Bytes occupied in the PLC
	Count    int      // Elements requested (equals Size for strings)
	Kind     Kind     // Decoded Value variant
}

// ByteOffset returns the byte that holds the first element.
func (d *Descriptor) ByteOffset() int {
	if d.WireType == WireBit {
		return d.Start / 8
	}
	return d.Start
}

// BitNum returns the bit number within ByteOffset for bit addresses, -1 otherwise.
func (d *Descriptor) BitNum() int {
	if d.WireType == WireBit {
		return d.Start % 8
	}
	return -1
}

// PayloadSize returns the number of data bytes a read of d transfers.
func (d *Descriptor) PayloadSize() int {
	return d.Count * d.WireType.UnitSize()
}

// Request returns the wire request for d.
func (d *Descriptor) Request() Request {
	return Request{
		Area:     d.Area,
		DBNumber: d.DBNumber,
		Start:    d.Start,
		WireType: d.WireType,
		Count:    d.Count,
	}
}

// String formats the descriptor for diagnostics.
func (d *Descriptor) String() string {
	loc := d.Area.String()
	if d.Area == AreaDB {
		loc = fmt.Sprintf("DB%d", d.DBNumber)
	}
	if d.WireType == WireBit {
		return fmt.Sprintf("%s %d.%d %s", loc, d.ByteOffset(), d.BitNum(), d.Kind)
	}
	return fmt.Sprintf("%s %d %s x%d (%d bytes)", loc, d.Start, d.WireType, d.Count, d.Size)
}

// Regular expressions for the address grammar, tried in order.
var (
	// %DB4:0.0:BOOL, %DB4:140:STRING(10)
	reDB = regexp.MustCompile(`^%DB(\d+):(\d+)(?:\.(\d+))?:(\w+)(?:\((\d+)\))?$`)

	// I0.0.BOOL, Q4.WORD, M10.DWORD
	reI = regexp.MustCompile(`^I(\d+)(?:\.(\d+))?\.(\w+)$`)
	reQ = regexp.MustCompile(`^Q(\d+)(?:\.(\d+))?\.(\w+)$`)
	reM = regexp.MustCompile(`^M(\d+)(?:\.(\d+))?\.(\w+)$`)
)

// ParseAddress resolves a textual tag address.
// Supported formats:
//   - %DB<n>:<byte>[.<bit>]:<TYPE>[(<len>)] - Data Block
//   - I<byte>[.<bit>].<TYPE>               - Input (BOOL, BYTE, WORD, DWORD)
//   - Q<byte>[.<bit>].<TYPE>               - Output (BOOL, BYTE, WORD, DWORD)
//   - M<byte>[.<bit>].<TYPE>               - Merker (BOOL, BYTE, WORD, DWORD)
func ParseAddress(addr string) (*Descriptor, error) {
	addr = strings.ToUpper(strings.TrimSpace(addr))
	if addr == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	if m := reDB.FindStringSubmatch(addr); m != nil {
		return parseDBAddress(addr, m)
	}
	if m := reI.FindStringSubmatch(addr); m != nil {
		return parseIQMAddress(addr, AreaI, m)
	}
	if m := reQ.FindStringSubmatch(addr); m != nil {
		return parseIQMAddress(addr, AreaQ, m)
	}
	if m := reM.FindStringSubmatch(addr); m != nil {
		return parseIQMAddress(addr, AreaM, m)
	}

	return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
}

// MustParseAddress is like ParseAddress but panics on error.
func MustParseAddress(addr string) *Descriptor {
	d, err := ParseAddress(addr)
	if err != nil {
		panic(err)
	}
	return d
}

func parseDBAddress(addr string, m []string) (*Descriptor, error) {
	dbNum, err := atoi(addr, m[1])
	if err != nil {
		return nil, err
	}
	if dbNum > MaxDBNumber {
		return nil, fmt.Errorf("%w: data block %d above %d in %s", ErrInvalidAddress, dbNum, MaxDBNumber, addr)
	}
	offset, err := atoi(addr, m[2])
	if err != nil {
		return nil, err
	}
	bit, err := optionalAtoi(addr, m[3])
	if err != nil {
		return nil, err
	}
	length, err := optionalAtoi(addr, m[5])
	if err != nil {
		return nil, err
	}

	spec, ok := dbTypes[m[4]]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s (supported: %s)", ErrUnsupportedType, m[4], addr,
			strings.Join(SupportedTypeNames(), ", "))
	}

	switch spec.kind {
	case KindString:
		if length <= 0 {
			length = defaultStringLength
		}
		if length > maxStringLength {
			return nil, fmt.Errorf("%w: STRING length %d exceeds %d", ErrInvalidAddress, length, maxStringLength)
		}
		spec.size = length + 2
		spec.count = spec.size
	case KindWideString:
		if length <= 0 {
			length = defaultStringLength
		}
		spec.size = 4 + 2*length
		spec.count = spec.size
	}

	return build(addr, AreaDB, dbNum, offset, bit, spec)
}

func parseIQMAddress(addr string, area Area, m []string) (*Descriptor, error) {
	offset, err := atoi(addr, m[1])
	if err != nil {
		return nil, err
	}
	bit, err := optionalAtoi(addr, m[2])
	if err != nil {
		return nil, err
	}

	spec, ok := ioTypes[m[3]]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s area", ErrUnsupportedType, m[3], area)
	}

	return build(addr, area, 0, offset, bit, spec)
}

// build assembles the descriptor. Only BOOL uses the bit offset; the start
// of a bit address is pre-multiplied so every area shares one offset unit.
func build(addr string, area Area, dbNum, offset, bit int, spec typeSpec) (*Descriptor, error) {
	if offset > MaxByteOffset {
		return nil, fmt.Errorf("%w: byte offset %d above %d in %s", ErrInvalidAddress, offset, MaxByteOffset, addr)
	}
	start := offset
	if spec.wire == WireBit {
		if bit > 7 {
			return nil, fmt.Errorf("%w: bit number must be 0-7, got %d in %s", ErrInvalidAddress, bit, addr)
		}
		start = offset*8 + bit
	}

	return &Descriptor{
		Area:     area,
		DBNumber: dbNum,
		Start:    start,
		WireType: spec.wire,
		Size:     spec.size,
		Count:    spec.count,
		Kind:     spec.kind,
	}, nil
}

func atoi(addr, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q in %s", ErrInvalidAddress, s, addr)
	}
	return n, nil
}

func optionalAtoi(addr, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return atoi(addr, s)
}

// ValidateAddress checks if an address string is valid.
func ValidateAddress(addr string) error {
	_, err := ParseAddress(addr)
	return err
}
