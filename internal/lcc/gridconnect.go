package lcc

import (
	"fmt"
	"strconv"
	"strings"
)

// GridConnect framing for the OpenLCB CAN adaptation.
//
// Hubs (JMRI, openmrn hub) exchange CAN frames as ASCII lines:
//
//	:X195B4123N0501010122600064;
//	 │└──┬───┘│└──────┬───────┘
//	 │   │    │       └ data bytes, hex (0-8 bytes)
//	 │   │    └ normal frame marker
//	 │   └ 29-bit CAN header, hex
//	 └ extended-frame prefix
//
// The 29-bit header carries the frame purpose and the sender's 12-bit
// alias in its low bits.

// CAN header layout constants.
const (
	// aliasMask isolates the 12-bit source alias in the header's low bits.
	aliasMask = 0x00000FFF

	// purposeMask isolates everything except the alias.
	purposeMask = 0x1FFFF000

	// headerReservedBit (bit 28) is set on every transmitted frame.
	headerReservedBit = 0x10000000

	// openLCBFrameBit distinguishes OpenLCB message frames (set) from CAN
	// control frames such as CID/RID/AMD (clear).
	openLCBFrameBit = 0x08000000

	// Control frame purposes (alias management).
	headerRID = 0x10700000 // Reserve ID
	headerAMD = 0x10701000 // Alias Map Definition
	headerAME = 0x10702000 // Alias Map Enquiry
	headerAMR = 0x10703000 // Alias Map Reset

	// headerEventReport is the Producer/Consumer Event Report (MTI 0x5B4),
	// the only message frame this station produces.
	headerEventReport = 0x195B4000

	// CID frames carry the node id in four 12-bit fragments; the prefix
	// counts down 7,6,5,4 in bits 27..24 across the sequence.
	cidPrefixFirst = 0x7
	cidPrefixLast  = 0x4
	cidPrefixShift = 24
	cidPrefixMask  = 0xF

	// cidFragmentShift positions a node id fragment in the header.
	cidFragmentShift = 12
	cidFragmentMask  = 0xFFF

	maxFrameData = 8
	headerHexLen = 8
)

// Frame is one CAN frame in GridConnect form: a 29-bit header plus up to
// eight data bytes.
type Frame struct {
	Header uint32
	Data   []byte
}

// Alias returns the sender alias from the header's low 12 bits.
func (f Frame) Alias() uint16 {
	return uint16(f.Header & aliasMask)
}

// IsControl reports whether the frame is a CAN control frame (CID, RID,
// AMD, AME, AMR) rather than an OpenLCB message.
func (f Frame) IsControl() bool {
	return f.Header&openLCBFrameBit == 0
}

// IsCID reports whether the frame is part of an alias check-in sequence.
func (f Frame) IsCID() bool {
	p := f.Header >> cidPrefixShift & cidPrefixMask
	return f.IsControl() && p >= cidPrefixLast && p <= cidPrefixFirst
}

// IsRID reports whether the frame is a Reserve ID control frame.
func (f Frame) IsRID() bool {
	return f.Header&purposeMask == headerRID
}

// IsAMD reports whether the frame is an Alias Map Definition.
func (f Frame) IsAMD() bool {
	return f.Header&purposeMask == headerAMD
}

// IsAME reports whether the frame is an Alias Map Enquiry.
func (f Frame) IsAME() bool {
	return f.Header&purposeMask == headerAME
}

// IsAMR reports whether the frame is an Alias Map Reset.
func (f Frame) IsAMR() bool {
	return f.Header&purposeMask == headerAMR
}

// IsEventReport reports whether the frame carries a PCER event.
func (f Frame) IsEventReport() bool {
	return f.Header&purposeMask == headerEventReport
}

// EventID extracts the 64-bit event id from a PCER frame.
// The second return is false when the frame is not a well-formed report.
func (f Frame) EventID() (EventID, bool) {
	if !f.IsEventReport() || len(f.Data) != eventIDBytes {
		return 0, false
	}
	var id EventID
	for _, b := range f.Data {
		id = id<<8 | EventID(b)
	}
	return id, true
}

// String renders the frame in GridConnect form for logging.
func (f Frame) String() string {
	return string(f.Encode())
}

// Encode renders the frame as a GridConnect ASCII line (without newline).
func (f Frame) Encode() []byte {
	buf := make([]byte, 0, 2+headerHexLen+1+2*len(f.Data)+1)
	buf = append(buf, ':', 'X')
	buf = appendHex(buf, uint64(f.Header), headerHexLen)
	buf = append(buf, 'N')
	for _, b := range f.Data {
		buf = appendHex(buf, uint64(b), 2)
	}
	buf = append(buf, ';')
	return buf
}

// appendHex appends v as exactly width uppercase hex digits.
func appendHex(buf []byte, v uint64, width int) []byte {
	const digits = "0123456789ABCDEF"
	for i := width - 1; i >= 0; i-- {
		buf = append(buf, digits[v>>(i*4)&0xF])
	}
	return buf
}

// ParseFrame parses one GridConnect line into a Frame.
//
// Accepts lowercase hex and variable-width headers; surrounding whitespace
// is ignored. Returns ErrInvalidFrame for anything that is not a
// well-formed extended data frame.
func ParseFrame(line string) (Frame, error) {
	s := strings.TrimSpace(line)
	if len(s) < 4 || s[0] != ':' || (s[1] != 'X' && s[1] != 'x') {
		return Frame{}, fmt.Errorf("%w: %q", ErrInvalidFrame, line)
	}
	if s[len(s)-1] != ';' {
		return Frame{}, fmt.Errorf("%w: missing terminator in %q", ErrInvalidFrame, line)
	}
	body := s[2 : len(s)-1]

	sep := strings.IndexAny(body, "Nn")
	if sep < 1 || sep > headerHexLen {
		return Frame{}, fmt.Errorf("%w: bad header in %q", ErrInvalidFrame, line)
	}

	header, err := strconv.ParseUint(body[:sep], 16, 29)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: bad header in %q", ErrInvalidFrame, line)
	}

	dataHex := body[sep+1:]
	if len(dataHex)%2 != 0 || len(dataHex) > 2*maxFrameData {
		return Frame{}, fmt.Errorf("%w: bad data length in %q", ErrInvalidFrame, line)
	}

	var data []byte
	for i := 0; i < len(dataHex); i += 2 {
		b, err := strconv.ParseUint(dataHex[i:i+2], 16, 8)
		if err != nil {
			return Frame{}, fmt.Errorf("%w: bad data byte in %q", ErrInvalidFrame, line)
		}
		data = append(data, byte(b))
	}

	return Frame{Header: uint32(header), Data: data}, nil
}

// cidFrame builds check-in frame i (0-3) of the alias reservation
// sequence. Frame 0 carries node id bits 47..36, frame 3 bits 11..0.
func cidFrame(i int, node NodeID, alias uint16) Frame {
	prefix := headerReservedBit | uint32(cidPrefixFirst-i)<<cidPrefixShift
	fragment := uint32(node>>((3-i)*cidFragmentShift)) & cidFragmentMask
	return Frame{Header: prefix | fragment<<cidFragmentShift | uint32(alias)&aliasMask}
}

// ridFrame builds the Reserve ID frame completing alias reservation.
func ridFrame(alias uint16) Frame {
	return Frame{Header: headerRID | uint32(alias)&aliasMask}
}

// amdFrame builds the Alias Map Definition announcing node→alias binding.
func amdFrame(alias uint16, node NodeID) Frame {
	return Frame{Header: headerAMD | uint32(alias)&aliasMask, Data: nodeIDBytesOf(node)}
}

// amrFrame builds the Alias Map Reset releasing the alias.
func amrFrame(alias uint16, node NodeID) Frame {
	return Frame{Header: headerAMR | uint32(alias)&aliasMask, Data: nodeIDBytesOf(node)}
}

// eventReportFrame builds a PCER frame carrying one event id.
func eventReportFrame(alias uint16, event EventID) Frame {
	data := make([]byte, eventIDBytes)
	for i := range data {
		data[i] = byte(event >> ((eventIDBytes - 1 - i) * 8))
	}
	return Frame{Header: headerEventReport | uint32(alias)&aliasMask, Data: data}
}

// nodeIDBytesOf renders the node id as its six big-endian payload bytes.
func nodeIDBytesOf(node NodeID) []byte {
	data := make([]byte, nodeIDBytes)
	for i := range data {
		data[i] = byte(node >> ((nodeIDBytes - 1 - i) * 8))
	}
	return data
}
