package s7

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
)

// reTimeOfDay matches HH:MM:SS with an optional fraction of a second.
var reTimeOfDay = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})(?:\.(\d+))?$`)

// ParseExpected parses an expected-value string of the form "TYPE;literal",
// for example "INT;-2424" or "TIME_OF_DAY;15:36:30.123".
func ParseExpected(s string) (Value, error) {
	typ, lit, ok := strings.Cut(s, ";")
	if !ok {
		return Value{}, fmt.Errorf("%w: missing ';' in %q", ErrInvalidLiteral, s)
	}
	return ParseLiteral(typ, lit)
}

// ParseLiteral converts literal text into a Value of the named S7 type.
func ParseLiteral(typeName, lit string) (Value, error) {
	kind, ok := KindFromName(typeName)
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrUnsupportedType, typeName)
	}
	lit = strings.TrimSpace(lit)

	switch kind {
	case KindBool:
		switch strings.ToLower(lit) {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		}
		return Value{}, badLiteral(typeName, lit)

	case KindInt8, KindInt16, KindInt32, KindInt64:
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return Value{}, badLiteral(typeName, lit)
		}
		switch kind {
		case KindInt8:
			return Int8Value(int8(n)), nil
		case KindInt16:
			return Int16Value(int16(n)), nil
		case KindInt32:
			return Int32Value(int32(n)), nil
		}
		return Int64Value(n), nil

	case KindUInt8, KindUInt16, KindUInt32, KindUInt64:
		n, err := parseUnsigned(lit)
		if err != nil {
			return Value{}, badLiteral(typeName, lit)
		}
		switch kind {
		case KindUInt8:
			return UInt8Value(uint8(n)), nil
		case KindUInt16:
			return UInt16Value(uint16(n)), nil
		case KindUInt32:
			return UInt32Value(uint32(n)), nil
		}
		return UInt64Value(n), nil

	case KindFloat32:
		f, err := strconv.ParseFloat(lit, 32)
		if err != nil {
			return Value{}, badLiteral(typeName, lit)
		}
		return Float32Value(float32(f)), nil

	case KindFloat64:
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return Value{}, badLiteral(typeName, lit)
		}
		return Float64Value(f), nil

	case KindChar:
		if lit == "" {
			return Value{}, badLiteral(typeName, lit)
		}
		return CharValue(lit[0]), nil

	case KindWideChar:
		units := utf16.Encode([]rune(lit))
		if len(units) == 0 {
			return Value{}, badLiteral(typeName, lit)
		}
		return WideCharValue(units[0]), nil

	case KindString:
		return StringValue(lit), nil

	case KindWideString:
		return WideStringValue(lit), nil

	case KindDuration:
		d, err := parseDuration(lit)
		if err != nil {
			return Value{}, badLiteral(typeName, lit)
		}
		return DurationValue(d), nil

	case KindDate:
		t, err := time.Parse("2006-01-02", lit)
		if err != nil {
			return Value{}, badLiteral(typeName, lit)
		}
		return DateValue(Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}), nil

	case KindTimeOfDay:
		tod, err := parseTimeOfDay(lit)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s %q: %v", ErrInvalidLiteral, typeName, lit, err)
		}
		return TimeOfDayValue(tod), nil
	}

	return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedType, kind)
}

func badLiteral(typeName, lit string) error {
	return fmt.Errorf("%w: %q is not a valid %s", ErrInvalidLiteral, lit, strings.ToUpper(strings.TrimSpace(typeName)))
}

// parseUnsigned accepts negative input and wraps it to the unsigned width,
// matching a C-style truncating conversion.
func parseUnsigned(lit string) (uint64, error) {
	if n, err := strconv.ParseUint(lit, 10, 64); err == nil {
		return n, nil
	}
	n, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// parseDuration reads the PT<seconds>S form, e.g. PT1.234S. The value must
// fit the unsigned 32-bit millisecond count of an S7 TIME.
func parseDuration(lit string) (time.Duration, error) {
	upper := strings.ToUpper(lit)
	if !strings.HasPrefix(upper, "PT") || !strings.HasSuffix(upper, "S") || len(upper) < 4 {
		return 0, fmt.Errorf("expected PT<seconds>S")
	}
	secs, err := strconv.ParseFloat(upper[2:len(upper)-1], 64)
	if err != nil || secs < 0 || math.IsInf(secs, 0) || math.IsNaN(secs) {
		return 0, fmt.Errorf("bad seconds")
	}
	ms := math.Round(secs * 1000)
	if ms > math.MaxUint32 {
		return 0, fmt.Errorf("over %d ms", uint32(math.MaxUint32))
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// parseTimeOfDay reads HH:MM:SS[.fraction]. The fraction is right-padded or
// truncated to three digits, so ".12" is 120 ms.
func parseTimeOfDay(lit string) (TimeOfDay, error) {
	m := reTimeOfDay.FindStringSubmatch(lit)
	if m == nil {
		return TimeOfDay{}, fmt.Errorf("expected HH:MM:SS[.fff]")
	}

	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])

	ms := 0
	if frac := m[4]; frac != "" {
		frac = (frac + "000")[:3]
		ms, _ = strconv.Atoi(frac)
	}

	if h > 23 || mi > 59 || s > 59 {
		return TimeOfDay{}, fmt.Errorf("field out of range")
	}
	return TimeOfDay{Hour: h, Minute: mi, Second: s, Millisecond: ms}, nil
}
