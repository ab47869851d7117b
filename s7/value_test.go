package s7

import (
	"testing"
	"time"
)

func TestValueAccessors(t *testing.T) {
	v := Int16Value(-2424)
	if v.Kind() != KindInt16 {
		t.Errorf("Kind() = %s, want Int16", v.Kind())
	}
	n, err := v.Int16()
	if err != nil || n != -2424 {
		t.Errorf("Int16() = %d, %v", n, err)
	}
	if _, err := v.Int32(); err == nil {
		t.Error("Int32() on Int16 value: expected error")
	}
	if _, err := v.Str(); err == nil {
		t.Error("Str() on Int16 value: expected error")
	}

	s := WideStringValue("wolf")
	if _, err := s.Str(); err == nil {
		t.Error("Str() on WideString: expected error")
	}
	if w, err := s.WideStr(); err != nil || w != "wolf" {
		t.Errorf("WideStr() = %q, %v", w, err)
	}

	d := DurationValue(1234 * time.Millisecond)
	if got, _ := d.Duration(); got != 1234*time.Millisecond {
		t.Errorf("Duration() = %v", got)
	}

	var zero Value
	if zero.IsValid() {
		t.Error("zero Value reports valid")
	}
}

func TestValueEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same int", Int16Value(5), Int16Value(5), true},
		{"diff int", Int16Value(5), Int16Value(6), false},
		{"cross variant", Int16Value(5), Int32Value(5), false},
		{"uint vs word alias", UInt16Value(5), UInt16Value(5), true},
		{"string vs wstring", StringValue("a"), WideStringValue("a"), false},
		{"char vs uint8", CharValue('A'), UInt8Value('A'), false},
		{"bool", BoolValue(true), BoolValue(true), true},
		{"date", DateValue(Date{1998, 3, 28}), DateValue(Date{1998, 3, 28}), true},
		{"tod", TimeOfDayValue(TimeOfDay{1, 2, 3, 4}), TimeOfDayValue(TimeOfDay{1, 2, 3, 5}), false},
		{"float32", Float32Value(3.141593), Float32Value(3.141593), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Equal(tt.a); got != tt.want {
				t.Errorf("reverse Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{BoolValue(true), "true"},
		{Int8Value(-42), "-42"},
		{UInt32Value(4242442424), "4242442424"},
		{CharValue('H'), "H"},
		{WideCharValue(0x20AC), "€"},
		{StringValue("hurz"), "hurz"},
		{DurationValue(1234 * time.Millisecond), "1.234s"},
		{DateValue(Date{1998, 3, 28}), "1998-03-28"},
		{TimeOfDayValue(TimeOfDay{15, 36, 30, 120}), "15:36:30.120"},
		{Value{}, "<invalid>"},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("%s String() = %q, want %q", tt.v.Kind(), got, tt.want)
		}
	}
}

func TestValueGoValue(t *testing.T) {
	if got := DurationValue(1500 * time.Millisecond).GoValue(); got != 1.5 {
		t.Errorf("Duration GoValue = %v, want 1.5", got)
	}
	if got := Int32Value(-7).GoValue(); got != int64(-7) {
		t.Errorf("Int32 GoValue = %v (%T), want int64(-7)", got, got)
	}
	if got := DateValue(Date{1998, 3, 28}).GoValue(); got != "1998-03-28" {
		t.Errorf("Date GoValue = %v", got)
	}
}

func TestKindFromName(t *testing.T) {
	for _, name := range SupportedTypeNames() {
		if _, ok := KindFromName(name); !ok {
			t.Errorf("KindFromName(%q) not found", name)
		}
	}
	if k, ok := KindFromName("tod"); !ok || k != KindTimeOfDay {
		t.Errorf("KindFromName(tod) = %v, %v", k, ok)
	}
	if _, ok := KindFromName("FOO"); ok {
		t.Error("KindFromName(FOO) found")
	}
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindBool, "BOOL"},
		{KindInt16, "INT"},
		{KindUInt32, "UDINT"},
		{KindFloat64, "LREAL"},
		{KindDuration, "TIME"},
		{KindTimeOfDay, "TIME_OF_DAY"},
		{KindInvalid, "Invalid"},
	}
	for _, tt := range tests {
		if got := TypeName(tt.kind); got != tt.want {
			t.Errorf("TypeName(%v) = %q, want %q", tt.kind, got, tt.want)
		}
	}

	for _, name := range SupportedTypeNames() {
		k, _ := KindFromName(name)
		if back, ok := KindFromName(TypeName(k)); !ok || back != k {
			t.Errorf("TypeName(%v) = %q does not map back", k, TypeName(k))
		}
	}
}
