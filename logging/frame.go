package logging

import (
	"encoding/binary"
	"fmt"
	"strings"
)

var cotpTypes = map[byte]string{
	0xE0: "CR",
	0xD0: "CC",
	0xF0: "DT",
	0x80: "DR",
	0x70: "ER",
}

var s7Rosctr = map[byte]string{
	0x01: "Job",
	0x02: "Ack",
	0x03: "AckData",
	0x07: "Userdata",
}

var s7Functions = map[byte]string{
	0xF0: "SetupComm",
	0x04: "ReadVar",
	0x05: "WriteVar",
}

// describeFrame summarises the TPKT, COTP and S7 headers of an ISO-on-TCP
// frame, e.g. "COTP DT | S7 Job ref=3 ReadVar items=4". Anything that is not
// a complete TPKT frame yields "".
func describeFrame(data []byte) string {
	if len(data) < 7 || data[0] != 0x03 || data[1] != 0x00 {
		return ""
	}
	if int(binary.BigEndian.Uint16(data[2:4])) != len(data) {
		return ""
	}

	li := int(data[4])
	typ := data[5] & 0xF0
	name, ok := cotpTypes[typ]
	if !ok {
		name = fmt.Sprintf("0x%02X", typ)
	}
	parts := []string{"COTP " + name}

	if typ == 0xF0 {
		if s7 := describeS7(data[5+li:]); s7 != "" {
			parts = append(parts, s7)
		}
	}
	return strings.Join(parts, " | ")
}

// describeS7 summarises an S7 PDU: message type, PDU reference, error
// class for acknowledgements and the function with its main argument.
func describeS7(pdu []byte) string {
	if len(pdu) < 10 || pdu[0] != 0x32 {
		return ""
	}

	rosctr := pdu[1]
	kind, ok := s7Rosctr[rosctr]
	if !ok {
		kind = fmt.Sprintf("0x%02X", rosctr)
	}
	out := fmt.Sprintf("S7 %s ref=%d", kind, binary.BigEndian.Uint16(pdu[4:6]))

	headerLen := 10
	if rosctr == 0x02 || rosctr == 0x03 {
		if len(pdu) < 12 {
			return out
		}
		headerLen = 12
		if pdu[10] != 0 || pdu[11] != 0 {
			out += fmt.Sprintf(" error=0x%02X%02X", pdu[10], pdu[11])
		}
	}

	paramLen := int(binary.BigEndian.Uint16(pdu[6:8]))
	if paramLen == 0 || len(pdu) < headerLen+paramLen {
		return out
	}
	param := pdu[headerLen : headerLen+paramLen]

	fn, ok := s7Functions[param[0]]
	if !ok {
		return out + fmt.Sprintf(" func=0x%02X", param[0])
	}
	out += " " + fn
	switch {
	case param[0] == 0xF0 && len(param) >= 8:
		out += fmt.Sprintf(" pdu=%d", binary.BigEndian.Uint16(param[6:8]))
	case param[0] != 0xF0 && len(param) >= 2:
		out += fmt.Sprintf(" items=%d", param[1])
	}
	return out
}
