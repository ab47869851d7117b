package s7

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
	"unicode/utf16"
)

// dateEpoch is day zero of the S7 DATE type.
var dateEpoch = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

// Decode converts raw bytes read for d into a Value.
// S7 uses big-endian byte order on the wire.
func Decode(data []byte, d *Descriptor) (Value, error) {
	if need := fixedSize(d); len(data) < need {
		return Value{}, tooShort(d, need, len(data))
	}

	switch d.Kind {
	case KindBool:
		return BoolValue(data[0]&0x01 != 0), nil
	case KindInt8:
		return Int8Value(int8(data[0])), nil
	case KindUInt8:
		return UInt8Value(data[0]), nil
	case KindInt16:
		return Int16Value(int16(binary.BigEndian.Uint16(data))), nil
	case KindUInt16:
		return UInt16Value(binary.BigEndian.Uint16(data)), nil
	case KindInt32:
		return Int32Value(int32(binary.BigEndian.Uint32(data))), nil
	case KindUInt32:
		return UInt32Value(binary.BigEndian.Uint32(data)), nil
	case KindInt64:
		return Int64Value(int64(binary.BigEndian.Uint64(data))), nil
	case KindUInt64:
		return UInt64Value(binary.BigEndian.Uint64(data)), nil
	case KindFloat32:
		return Float32Value(math.Float32frombits(binary.BigEndian.Uint32(data))), nil
	case KindFloat64:
		return Float64Value(math.Float64frombits(binary.BigEndian.Uint64(data))), nil
	case KindChar:
		return CharValue(data[0]), nil
	case KindWideChar:
		return WideCharValue(binary.BigEndian.Uint16(data)), nil
	case KindString:
		// 1 byte max length (ignored), 1 byte actual length, then chars
		n := int(data[1])
		if len(data) < 2+n {
			return Value{}, tooShort(d, 2+n, len(data))
		}
		return StringValue(string(data[2 : 2+n])), nil
	case KindWideString:
		// 2 bytes max length (ignored), 2 bytes actual length, then UTF-16BE units
		n := int(binary.BigEndian.Uint16(data[2:4]))
		if len(data) < 4+2*n {
			return Value{}, tooShort(d, 4+2*n, len(data))
		}
		units := make([]uint16, n)
		for i := range units {
			units[i] = binary.BigEndian.Uint16(data[4+2*i:])
		}
		return WideStringValue(string(utf16.Decode(units))), nil
	case KindDuration:
		ms := binary.BigEndian.Uint32(data)
		return DurationValue(time.Duration(ms) * time.Millisecond), nil
	case KindDate:
		days := int(binary.BigEndian.Uint16(data))
		return DateValue(DateFromDays(days)), nil
	case KindTimeOfDay:
		return TimeOfDayValue(TimeOfDayFromMillis(binary.BigEndian.Uint32(data))), nil
	default:
		return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedType, d.Kind)
	}
}

// fixedSize returns the minimum buffer length needed before any
// length-prefixed payload is inspected.
func fixedSize(d *Descriptor) int {
	switch d.Kind {
	case KindBool, KindInt8, KindUInt8, KindChar:
		return 1
	case KindInt16, KindUInt16, KindWideChar, KindDate:
		return 2
	case KindString:
		return 2
	case KindInt32, KindUInt32, KindFloat32, KindDuration, KindTimeOfDay:
		return 4
	case KindWideString:
		return 4
	case KindInt64, KindUInt64, KindFloat64:
		return 8
	default:
		return 0
	}
}

func tooShort(d *Descriptor, need, got int) error {
	return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrBufferTooShort, d.Kind, need, got)
}

// Encode is the inverse of Decode: it lays v out as the PLC stores it for d.
// String types fill the declared capacity of d.
func Encode(v Value, d *Descriptor) ([]byte, error) {
	if v.Kind() != d.Kind {
		return nil, fmt.Errorf("%w: cannot encode %s as %s", ErrUnsupportedType, v.Kind(), d.Kind)
	}

	buf := make([]byte, fixedSize(d))
	switch v.kind {
	case KindBool:
		buf[0] = byte(v.u & 0x01)
	case KindInt8:
		buf[0] = byte(int8(v.i))
	case KindUInt8, KindChar:
		buf[0] = byte(v.u)
	case KindInt16:
		binary.BigEndian.PutUint16(buf, uint16(int16(v.i)))
	case KindUInt16, KindWideChar:
		binary.BigEndian.PutUint16(buf, uint16(v.u))
	case KindInt32:
		binary.BigEndian.PutUint32(buf, uint32(int32(v.i)))
	case KindUInt32:
		binary.BigEndian.PutUint32(buf, uint32(v.u))
	case KindInt64:
		binary.BigEndian.PutUint64(buf, uint64(v.i))
	case KindUInt64:
		binary.BigEndian.PutUint64(buf, v.u)
	case KindFloat32:
		binary.BigEndian.PutUint32(buf, math.Float32bits(float32(v.f)))
	case KindFloat64:
		binary.BigEndian.PutUint64(buf, math.Float64bits(v.f))
	case KindDuration:
		ms, err := MillisFromDuration(v.d)
		if err != nil {
			return nil, err
		}
		binary.BigEndian.PutUint32(buf, ms)
	case KindDate:
		days, err := DaysFromDate(v.date)
		if err != nil {
			return nil, err
		}
		binary.BigEndian.PutUint16(buf, uint16(days))
	case KindTimeOfDay:
		binary.BigEndian.PutUint32(buf, v.tod.Millis())
	case KindString:
		return encodeString(v.s, d)
	case KindWideString:
		return encodeWideString(v.s, d)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, v.kind)
	}
	return buf, nil
}

func encodeString(s string, d *Descriptor) ([]byte, error) {
	capacity := d.Size - 2
	if len(s) > capacity {
		return nil, fmt.Errorf("%w: STRING of %d chars does not fit %d", ErrBufferTooShort, len(s), capacity)
	}
	buf := make([]byte, d.Size)
	buf[0] = byte(capacity)
	buf[1] = byte(len(s))
	copy(buf[2:], s)
	return buf, nil
}

func encodeWideString(s string, d *Descriptor) ([]byte, error) {
	units := utf16.Encode([]rune(s))
	capacity := (d.Size - 4) / 2
	if len(units) > capacity {
		return nil, fmt.Errorf("%w: WSTRING of %d units does not fit %d", ErrBufferTooShort, len(units), capacity)
	}
	buf := make([]byte, d.Size)
	binary.BigEndian.PutUint16(buf[0:2], uint16(capacity))
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(units)))
	for i, u := range units {
		binary.BigEndian.PutUint16(buf[4+2*i:], u)
	}
	return buf, nil
}

// DateFromDays converts an S7 DATE day count to a calendar date.
// Day zero is 1990-01-01; month rollover follows the Gregorian leap-year rule.
func DateFromDays(days int) Date {
	t := dateEpoch.AddDate(0, 0, days)
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// DaysFromDate is the inverse of DateFromDays.
func DaysFromDate(d Date) (int, error) {
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	days := int(t.Sub(dateEpoch).Hours() / 24)
	if days < 0 || days > math.MaxUint16 {
		return 0, fmt.Errorf("%w: date %s outside S7 DATE range", ErrInvalidLiteral, d)
	}
	return days, nil
}

// MillisFromDuration converts d to the unsigned millisecond count of an S7
// TIME.
func MillisFromDuration(d time.Duration) (uint32, error) {
	ms := d / time.Millisecond
	if ms < 0 || ms > math.MaxUint32 {
		return 0, fmt.Errorf("%w: duration %s outside S7 TIME range", ErrInvalidLiteral, d)
	}
	return uint32(ms), nil
}

// TimeOfDayFromMillis splits milliseconds since midnight into clock fields.
func TimeOfDayFromMillis(ms uint32) TimeOfDay {
	return TimeOfDay{
		Hour:        int(ms / 3600000),
		Minute:      int(ms % 3600000 / 60000),
		Second:      int(ms % 60000 / 1000),
		Millisecond: int(ms % 1000),
	}
}
