// Package s7 resolves Siemens S7 tag addresses, plans batched reads within a
// negotiated PDU size, and converts between on-wire bytes and typed values.
package s7

import (
	"fmt"
	"strings"
)

// Area represents an S7 memory area.
type Area int

const (
	AreaDB Area = iota // Data Block
	AreaI              // Process Image Input
	AreaQ              // Process Image Output
	AreaM              // Merker/Flag
)

// String returns the area name.
func (a Area) String() string {
	switch a {
	case AreaDB:
		return "DB"
	case AreaI:
		return "I"
	case AreaQ:
		return "Q"
	case AreaM:
		return "M"
	default:
		return "?"
	}
}

// Code returns the S7ANY area code.
func (a Area) Code() byte {
	switch a {
	case AreaI:
		return s7AreaI
	case AreaQ:
		return s7AreaQ
	case AreaM:
		return s7AreaM
	default:
		return s7AreaDB
	}
}

// WireType is the protocol-level element size used when requesting data.
type WireType int

const (
	WireBit WireType = iota
	WireByte
	WireWord
	WireDWord
	WireReal
	WireChar
)

// String returns the snap7-style word length name.
func (w WireType) String() string {
	switch w {
	case WireBit:
		return "Bit"
	case WireByte:
		return "Byte"
	case WireWord:
		return "Word"
	case WireDWord:
		return "DWord"
	case WireReal:
		return "Real"
	case WireChar:
		return "Char"
	default:
		return fmt.Sprintf("WireType(%d)", int(w))
	}
}

// UnitSize returns the number of payload bytes one element occupies.
func (w WireType) UnitSize() int {
	switch w {
	case WireWord:
		return 2
	case WireDWord, WireReal:
		return 4
	default:
		return 1
	}
}

// transportSize returns the S7ANY transport size code.
func (w WireType) transportSize() byte {
	switch w {
	case WireBit:
		return tsBIT
	case WireChar:
		return tsCHAR
	case WireWord:
		return tsWORD
	case WireDWord:
		return tsDWORD
	case WireReal:
		return tsREAL
	default:
		return tsBYTE
	}
}

// Kind identifies the active variant of a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUInt8
	KindUInt16
	KindUInt32
	KindUInt64
	KindFloat32
	KindFloat64
	KindChar
	KindWideChar
	KindString
	KindWideString
	KindDuration
	KindDate
	KindTimeOfDay
)

var kindNames = [...]string{
	KindInvalid:    "Invalid",
	KindBool:       "Bool",
	KindInt8:       "Int8",
	KindInt16:      "Int16",
	KindInt32:      "Int32",
	KindInt64:      "Int64",
	KindUInt8:      "UInt8",
	KindUInt16:     "UInt16",
	KindUInt32:     "UInt32",
	KindUInt64:     "UInt64",
	KindFloat32:    "Float32",
	KindFloat64:    "Float64",
	KindChar:       "Char",
	KindWideChar:   "WideChar",
	KindString:     "String",
	KindWideString: "WideString",
	KindDuration:   "Duration",
	KindDate:       "Date",
	KindTimeOfDay:  "TimeOfDay",
}

// String returns the variant name.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// typeSpec describes how one S7 type name maps onto the wire and onto a Value.
type typeSpec struct {
	kind  Kind
	wire  WireType
	size  int // bytes on the wire
	count int // element count requested from the PLC
}

// dbTypes is the catalog accepted in data block addresses.
// STRING and WSTRING are sized from their declared length at parse time.
var dbTypes = map[string]typeSpec{
	"BOOL":        {KindBool, WireBit, 1, 1},
	"BYTE":        {KindUInt8, WireByte, 1, 1},
	"SINT":        {KindInt8, WireByte, 1, 1},
	"USINT":       {KindUInt8, WireByte, 1, 1},
	"CHAR":        {KindChar, WireChar, 1, 1},
	"WORD":        {KindUInt16, WireWord, 2, 1},
	"INT":         {KindInt16, WireWord, 2, 1},
	"UINT":        {KindUInt16, WireWord, 2, 1},
	"WCHAR":       {KindWideChar, WireWord, 2, 1},
	"DATE":        {KindDate, WireWord, 2, 1},
	"DWORD":       {KindUInt32, WireDWord, 4, 1},
	"DINT":        {KindInt32, WireDWord, 4, 1},
	"UDINT":       {KindUInt32, WireDWord, 4, 1},
	"TIME":        {KindDuration, WireDWord, 4, 1},
	"TIME_OF_DAY": {KindTimeOfDay, WireDWord, 4, 1},
	"REAL":        {KindFloat32, WireReal, 4, 1},
	"LREAL":       {KindFloat64, WireReal, 8, 2},
	"LINT":        {KindInt64, WireByte, 8, 8},
	"ULINT":       {KindUInt64, WireByte, 8, 8},
	"LWORD":       {KindUInt64, WireByte, 8, 8},
	"STRING":      {KindString, WireByte, 0, 0},
	"WSTRING":     {KindWideString, WireByte, 0, 0},
}

// ioTypes is the reduced catalog accepted for I, Q and M addresses.
var ioTypes = map[string]typeSpec{
	"BOOL":  dbTypes["BOOL"],
	"BYTE":  dbTypes["BYTE"],
	"WORD":  dbTypes["WORD"],
	"DWORD": dbTypes["DWORD"],
}

// literalKinds maps the type tag of an expected-value literal to its variant.
var literalKinds = map[string]Kind{
	"BOOL":        KindBool,
	"BYTE":        KindUInt8,
	"USINT":       KindUInt8,
	"SINT":        KindInt8,
	"WORD":        KindUInt16,
	"UINT":        KindUInt16,
	"INT":         KindInt16,
	"DWORD":       KindUInt32,
	"UDINT":       KindUInt32,
	"DINT":        KindInt32,
	"LWORD":       KindUInt64,
	"ULINT":       KindUInt64,
	"LINT":        KindInt64,
	"REAL":        KindFloat32,
	"LREAL":       KindFloat64,
	"CHAR":        KindChar,
	"WCHAR":       KindWideChar,
	"STRING":      KindString,
	"WSTRING":     KindWideString,
	"TIME":        KindDuration,
	"DATE":        KindDate,
	"TIME_OF_DAY": KindTimeOfDay,
	"TOD":         KindTimeOfDay,
}

// KindFromName returns the Value variant for an S7 type name.
func KindFromName(name string) (Kind, bool) {
	k, ok := literalKinds[strings.ToUpper(strings.TrimSpace(name))]
	return k, ok
}

// typeNames is the canonical S7 type name of each variant.
var typeNames = map[Kind]string{
	KindBool:       "BOOL",
	KindInt8:       "SINT",
	KindInt16:      "INT",
	KindInt32:      "DINT",
	KindInt64:      "LINT",
	KindUInt8:      "USINT",
	KindUInt16:     "UINT",
	KindUInt32:     "UDINT",
	KindUInt64:     "ULINT",
	KindFloat32:    "REAL",
	KindFloat64:    "LREAL",
	KindChar:       "CHAR",
	KindWideChar:   "WCHAR",
	KindString:     "STRING",
	KindWideString: "WSTRING",
	KindDuration:   "TIME",
	KindDate:       "DATE",
	KindTimeOfDay:  "TIME_OF_DAY",
}

// TypeName returns the S7 type name for k, the way it is written in tag
// lists. Kinds without one fall back to Kind.String.
func TypeName(k Kind) string {
	if name, ok := typeNames[k]; ok {
		return name
	}
	return k.String()
}

// SupportedTypeNames returns the type names accepted in data block addresses.
func SupportedTypeNames() []string {
	return []string{
		"BOOL", "BYTE", "CHAR", "SINT", "USINT",
		"WORD", "INT", "UINT", "WCHAR", "DATE",
		"DWORD", "DINT", "UDINT", "REAL", "TIME", "TIME_OF_DAY",
		"LWORD", "LINT", "ULINT", "LREAL",
		"STRING", "WSTRING",
	}
}
