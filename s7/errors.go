package s7

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error returned by this package wraps one of these
// so callers can classify failures with errors.Is.
var (
	ErrInvalidAddress   = errors.New("invalid address")
	ErrUnsupportedType  = errors.New("unsupported type")
	ErrInvalidLiteral   = errors.New("invalid literal")
	ErrBufferTooShort   = errors.New("buffer too short")
	ErrRead             = errors.New("read error")
	ErrUnexpectedResult = errors.New("unexpected result")
	ErrConnection       = errors.New("connection error")
)

// ReadError reports a failed read, attributed to a tag when one is known.
type ReadError struct {
	Tag string // empty for transport-level failures
	Err error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("read failed: %v", e.Err)
	}
	return fmt.Sprintf("failed to read item %s: %v", e.Tag, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ReadError) Unwrap() error { return e.Err }

// Is makes every ReadError match ErrRead.
func (e *ReadError) Is(target error) bool { return target == ErrRead }

// S7 Error Classes
const (
	errClassNoError     = 0x00
	errClassAppRelation = 0x81
	errClassObjDef      = 0x82
	errClassResource    = 0x83
	errClassService     = 0x84
	errClassNoResource  = 0x85 // No resource available (often PDU size exceeded)
	errClassAccess      = 0x87
)

// S7 Data Item Return Codes
const (
	dataItemSuccess          = 0xFF
	dataItemHardwareFault    = 0x01
	dataItemAccessDenied     = 0x03
	dataItemAddressError     = 0x05
	dataItemTypeError        = 0x06
	dataItemTypeInconsistent = 0x07 // Data type/size mismatch
	dataItemNotExist         = 0x0A
)

// S7Error represents an error class/code pair from an S7 response header.
type S7Error struct {
	Class byte
	Code  byte
}

// Error implements the error interface.
func (e S7Error) Error() string {
	switch e.Class {
	case errClassNoError:
		return "no error"
	case errClassAppRelation:
		return fmt.Sprintf("application relationship error (code %d)", e.Code)
	case errClassObjDef:
		return fmt.Sprintf("object definition error (code %d)", e.Code)
	case errClassResource:
		return fmt.Sprintf("resource error (code %d)", e.Code)
	case errClassService:
		return fmt.Sprintf("service error (code %d)", e.Code)
	case errClassNoResource:
		return fmt.Sprintf("no resource available - request may exceed PDU size (code %d)", e.Code)
	case errClassAccess:
		return fmt.Sprintf("access error (code %d)", e.Code)
	default:
		return fmt.Sprintf("S7 error class 0x%02X code %d", e.Class, e.Code)
	}
}

// ItemStatus is a non-success return code for one item of a Read Var response.
type ItemStatus byte

// Error implements the error interface.
func (s ItemStatus) Error() string {
	switch byte(s) {
	case dataItemHardwareFault:
		return "hardware fault"
	case dataItemAccessDenied:
		return "access denied"
	case dataItemAddressError:
		return "invalid address"
	case dataItemTypeError:
		return "data type not supported"
	case dataItemTypeInconsistent:
		return "data type/size mismatch"
	case dataItemNotExist:
		return "object does not exist"
	default:
		return fmt.Sprintf("data item error 0x%02X", byte(s))
	}
}
