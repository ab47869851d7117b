package s7

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf16"
)

// Date is a calendar date as stored by the S7 DATE type.
type Date struct {
	Year  int
	Month int
	Day   int
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// TimeOfDay is a wall-clock time with millisecond resolution.
type TimeOfDay struct {
	Hour        int
	Minute      int
	Second      int
	Millisecond int
}

// String formats the time as HH:MM:SS.mmm.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d.%03d", t.Hour, t.Minute, t.Second, t.Millisecond)
}

// Millis returns the number of milliseconds since midnight.
func (t TimeOfDay) Millis() uint32 {
	return uint32(t.Hour)*3600000 + uint32(t.Minute)*60000 + uint32(t.Second)*1000 + uint32(t.Millisecond)
}

// Value is a typed PLC value. Exactly one variant is active, identified by
// Kind. Values are immutable; copying a Value copies its payload.
type Value struct {
	kind Kind
	i    int64  // signed integers
	u    uint64 // unsigned integers, Bool, Char, WideChar
	f    float64
	s    string // String and WideString
	d    time.Duration
	date Date
	tod  TimeOfDay
}

// Constructors, one per variant.

func BoolValue(v bool) Value {
	var u uint64
	if v {
		u = 1
	}
	return Value{kind: KindBool, u: u}
}

func Int8Value(v int8) Value     { return Value{kind: KindInt8, i: int64(v)} }
func Int16Value(v int16) Value   { return Value{kind: KindInt16, i: int64(v)} }
func Int32Value(v int32) Value   { return Value{kind: KindInt32, i: int64(v)} }
func Int64Value(v int64) Value   { return Value{kind: KindInt64, i: v} }
func UInt8Value(v uint8) Value   { return Value{kind: KindUInt8, u: uint64(v)} }
func UInt16Value(v uint16) Value { return Value{kind: KindUInt16, u: uint64(v)} }
func UInt32Value(v uint32) Value { return Value{kind: KindUInt32, u: uint64(v)} }
func UInt64Value(v uint64) Value { return Value{kind: KindUInt64, u: v} }

// Float32Value stores v widened to float64; the widening is exact.
func Float32Value(v float32) Value { return Value{kind: KindFloat32, f: float64(v)} }
func Float64Value(v float64) Value { return Value{kind: KindFloat64, f: v} }

func CharValue(v byte) Value       { return Value{kind: KindChar, u: uint64(v)} }
func WideCharValue(v uint16) Value { return Value{kind: KindWideChar, u: uint64(v)} }
func StringValue(v string) Value   { return Value{kind: KindString, s: v} }
func WideStringValue(v string) Value {
	return Value{kind: KindWideString, s: v}
}

func DurationValue(v time.Duration) Value { return Value{kind: KindDuration, d: v} }
func DateValue(v Date) Value              { return Value{kind: KindDate, date: v} }
func TimeOfDayValue(v TimeOfDay) Value    { return Value{kind: KindTimeOfDay, tod: v} }

// Kind returns the active variant.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v was built by one of the constructors.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

func (v Value) mismatch(want Kind) error {
	return fmt.Errorf("value is %s, not %s", v.kind, want)
}

// Bool returns the value of a Bool variant.
func (v Value) Bool() (bool, error) {
	if v.kind != KindBool {
		return false, v.mismatch(KindBool)
	}
	return v.u != 0, nil
}

// Int8 returns the value of an Int8 variant.
func (v Value) Int8() (int8, error) {
	if v.kind != KindInt8 {
		return 0, v.mismatch(KindInt8)
	}
	return int8(v.i), nil
}

// Int16 returns the value of an Int16 variant.
func (v Value) Int16() (int16, error) {
	if v.kind != KindInt16 {
		return 0, v.mismatch(KindInt16)
	}
	return int16(v.i), nil
}

// Int32 returns the value of an Int32 variant.
func (v Value) Int32() (int32, error) {
	if v.kind != KindInt32 {
		return 0, v.mismatch(KindInt32)
	}
	return int32(v.i), nil
}

// Int64 returns the value of an Int64 variant.
func (v Value) Int64() (int64, error) {
	if v.kind != KindInt64 {
		return 0, v.mismatch(KindInt64)
	}
	return v.i, nil
}

// UInt8 returns the value of a UInt8 variant.
func (v Value) UInt8() (uint8, error) {
	if v.kind != KindUInt8 {
		return 0, v.mismatch(KindUInt8)
	}
	return uint8(v.u), nil
}

// UInt16 returns the value of a UInt16 variant.
func (v Value) UInt16() (uint16, error) {
	if v.kind != KindUInt16 {
		return 0, v.mismatch(KindUInt16)
	}
	return uint16(v.u), nil
}

// UInt32 returns the value of a UInt32 variant.
func (v Value) UInt32() (uint32, error) {
	if v.kind != KindUInt32 {
		return 0, v.mismatch(KindUInt32)
	}
	return uint32(v.u), nil
}

// UInt64 returns the value of a UInt64 variant.
func (v Value) UInt64() (uint64, error) {
	if v.kind != KindUInt64 {
		return 0, v.mismatch(KindUInt64)
	}
	return v.u, nil
}

// Float32 returns the value of a Float32 variant.
func (v Value) Float32() (float32, error) {
	if v.kind != KindFloat32 {
		return 0, v.mismatch(KindFloat32)
	}
	return float32(v.f), nil
}

// Float64 returns the value of a Float64 variant.
func (v Value) Float64() (float64, error) {
	if v.kind != KindFloat64 {
		return 0, v.mismatch(KindFloat64)
	}
	return v.f, nil
}

// Char returns the value of a Char variant.
func (v Value) Char() (byte, error) {
	if v.kind != KindChar {
		return 0, v.mismatch(KindChar)
	}
	return byte(v.u), nil
}

// WideChar returns the UTF-16 code unit of a WideChar variant.
func (v Value) WideChar() (uint16, error) {
	if v.kind != KindWideChar {
		return 0, v.mismatch(KindWideChar)
	}
	return uint16(v.u), nil
}

// Str returns the text of a String variant.
func (v Value) Str() (string, error) {
	if v.kind != KindString {
		return "", v.mismatch(KindString)
	}
	return v.s, nil
}

// WideStr returns the text of a WideString variant.
func (v Value) WideStr() (string, error) {
	if v.kind != KindWideString {
		return "", v.mismatch(KindWideString)
	}
	return v.s, nil
}

// Duration returns the value of a Duration variant.
func (v Value) Duration() (time.Duration, error) {
	if v.kind != KindDuration {
		return 0, v.mismatch(KindDuration)
	}
	return v.d, nil
}

// Date returns the value of a Date variant.
func (v Value) Date() (Date, error) {
	if v.kind != KindDate {
		return Date{}, v.mismatch(KindDate)
	}
	return v.date, nil
}

// TimeOfDay returns the value of a TimeOfDay variant.
func (v Value) TimeOfDay() (TimeOfDay, error) {
	if v.kind != KindTimeOfDay {
		return TimeOfDay{}, v.mismatch(KindTimeOfDay)
	}
	return v.tod, nil
}

// Equal reports whether v and o hold the same variant and payload.
// Values of different variants are never equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInvalid:
		return true
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return v.i == o.i
	case KindBool, KindUInt8, KindUInt16, KindUInt32, KindUInt64, KindChar, KindWideChar:
		return v.u == o.u
	case KindFloat32, KindFloat64:
		return v.f == o.f
	case KindString, KindWideString:
		return v.s == o.s
	case KindDuration:
		return v.d == o.d
	case KindDate:
		return v.date == o.date
	case KindTimeOfDay:
		return v.tod == o.tod
	default:
		return false
	}
}

// String formats the payload for display.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.u != 0)
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return strconv.FormatInt(v.i, 10)
	case KindUInt8, KindUInt16, KindUInt32, KindUInt64:
		return strconv.FormatUint(v.u, 10)
	case KindFloat32:
		return strconv.FormatFloat(v.f, 'g', -1, 32)
	case KindFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindChar:
		return string([]byte{byte(v.u)})
	case KindWideChar:
		return string(utf16.Decode([]uint16{uint16(v.u)}))
	case KindString, KindWideString:
		return v.s
	case KindDuration:
		return v.d.String()
	case KindDate:
		return v.date.String()
	case KindTimeOfDay:
		return v.tod.String()
	default:
		return "<invalid>"
	}
}

// GoValue returns the payload as a plain Go value suitable for JSON encoding.
func (v Value) GoValue() interface{} {
	switch v.kind {
	case KindBool:
		return v.u != 0
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return v.i
	case KindUInt8, KindUInt16, KindUInt32, KindUInt64:
		return v.u
	case KindFloat32, KindFloat64:
		return v.f
	case KindChar, KindWideChar, KindString, KindWideString, KindDate, KindTimeOfDay:
		return v.String()
	case KindDuration:
		return v.d.Seconds()
	default:
		return nil
	}
}
