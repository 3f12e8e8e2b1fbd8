package lcc

import (
	"fmt"
	"strconv"
	"strings"
)

// EventID is a 64-bit LCC (OpenLCB) event identifier.
type EventID uint64

// NodeID is a 48-bit LCC node identifier held in the low bits of a uint64.
type NodeID uint64

// Param selects which lighting channel a command event addresses.
// The values double as the parameter byte in the event identifier.
type Param uint8

// Channel parameter indices. A command set transmits one event per
// parameter; Duration always travels last because receivers treat it as
// the trigger that activates the five pending channel values.
const (
	ParamRed Param = iota
	ParamGreen
	ParamBlue
	ParamWhite
	ParamBrightness
	ParamDuration

	// ParamCount is the number of events in one command set.
	ParamCount = 6
)

// Event identifier layout.
//
// A lighting command event packs three fields into 64 bits:
//
//	XX.XX.XX.XX.XX.XX.PP.VV
//	└───── base (48) ─────┘ PP = parameter, VV = value
//
// The base is configured per installation; every receiver listening on the
// same base interprets the full six-event burst as one fade instruction.
const (
	// BaseEventIDMask isolates the configurable top 48 bits of an event id.
	BaseEventIDMask EventID = 0xFFFFFFFFFFFF0000

	paramShift = 8
	byteMask   = 0xFF

	nodeIDBits   = 48
	nodeIDBytes  = 6
	eventIDBytes = 8
)

// Factory defaults, from the NMRA-assigned 05.01.01.01 unique-id range used
// by this station family.
const (
	DefaultBaseEventID EventID = 0x0501010122600000
	DefaultNodeID      NodeID  = 0x050101019F60
)

// MaxNodeID is the largest representable 48-bit node identifier.
const MaxNodeID NodeID = 1<<nodeIDBits - 1

// paramNames maps parameter indices to wire-order names.
var paramNames = [ParamCount]string{"red", "green", "blue", "white", "brightness", "duration"}

// String returns the lowercase channel name, or "param(N)" for out-of-range values.
func (p Param) String() string {
	if int(p) < len(paramNames) {
		return paramNames[p]
	}
	return fmt.Sprintf("param(%d)", uint8(p))
}

// Valid reports whether p is one of the six defined parameter indices.
func (p Param) Valid() bool {
	return p <= ParamDuration
}

// CommandEventID builds the event identifier for one channel of a command
// set: the base id's top 48 bits, the parameter selector in bits 15..8, and
// the channel value in bits 7..0.
func CommandEventID(base EventID, p Param, value uint8) EventID {
	return (base & BaseEventIDMask) | EventID(p)<<paramShift | EventID(value)
}

// Base returns the top 48 bits of the event id (low 16 bits zeroed).
func (e EventID) Base() EventID {
	return e & BaseEventIDMask
}

// Param returns the parameter selector carried in bits 15..8.
func (e EventID) Param() Param {
	return Param(e >> paramShift & byteMask)
}

// Value returns the channel value carried in the low 8 bits.
func (e EventID) Value() uint8 {
	return uint8(e & byteMask)
}

// String formats the event id as eight dotted hex octets.
//
// Example: "05.01.01.01.22.60.00.B4"
func (e EventID) String() string {
	return dottedHex(uint64(e), eventIDBytes)
}

// BaseString formats the configurable top 48 bits as six dotted hex
// octets, the short form used in configuration and settings.
//
// Example: "05.01.01.01.22.60"
func (e EventID) BaseString() string {
	return dottedHex(uint64(e)>>16, nodeIDBytes)
}

// String formats the node id as six dotted hex octets.
//
// Example: "05.01.01.01.9F.60"
func (n NodeID) String() string {
	return dottedHex(uint64(n), nodeIDBytes)
}

// Valid reports whether the node id is nonzero and fits in 48 bits.
func (n NodeID) Valid() bool {
	return n != 0 && n <= MaxNodeID
}

// CommandValues holds the six channel values of one command set.
type CommandValues struct {
	Red        uint8
	Green      uint8
	Blue       uint8
	White      uint8
	Brightness uint8

	// Duration is the segment length in whole seconds (0 = apply
	// immediately, no receiver-side interpolation).
	Duration uint8
}

// CommandSet expands one segment instruction into its six event ids in
// transmission order. The ordering is a protocol invariant: receivers latch
// the first five values as pending and start interpolating only when the
// duration event arrives, so duration is always last.
func CommandSet(base EventID, v CommandValues) [ParamCount]EventID {
	return [ParamCount]EventID{
		CommandEventID(base, ParamRed, v.Red),
		CommandEventID(base, ParamGreen, v.Green),
		CommandEventID(base, ParamBlue, v.Blue),
		CommandEventID(base, ParamWhite, v.White),
		CommandEventID(base, ParamBrightness, v.Brightness),
		CommandEventID(base, ParamDuration, v.Duration),
	}
}

// ParseNodeID parses a 48-bit node identifier string.
//
// Accepts formats:
//   - "05.01.01.01.9F.60" (dotted hex, six octets)
//   - "050101019F60"      (plain hex)
//   - "0x050101019F60"    (prefixed hex)
//
// Returns ErrInvalidNodeID if the string is malformed, zero, or wider than
// 48 bits.
func ParseNodeID(s string) (NodeID, error) {
	v, err := parseDottedOrHex(s, nodeIDBytes)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNodeID, s)
	}
	id := NodeID(v)
	if !id.Valid() {
		return 0, fmt.Errorf("%w: %q out of 48-bit range or zero", ErrInvalidNodeID, s)
	}
	return id, nil
}

// ParseEventID parses a full 64-bit event identifier string in dotted hex
// ("05.01.01.01.22.60.00.00", eight octets) or plain/0x-prefixed hex.
func ParseEventID(s string) (EventID, error) {
	v, err := parseDottedOrHex(s, eventIDBytes)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEventID, s)
	}
	return EventID(v), nil
}

// ParseBaseEventID parses a configurable base event id.
//
// Accepts the full eight-octet event-id forms of ParseEventID, plus the
// six-octet node-id style ("05.01.01.01.22.60") with the low 16 bits
// implied zero. The result always has its low 16 bits cleared, since those
// carry the per-event parameter and value.
func ParseBaseEventID(s string) (EventID, error) {
	if strings.Count(s, ".") == nodeIDBytes-1 {
		v, err := parseDottedOrHex(s, nodeIDBytes)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidEventID, s)
		}
		return EventID(v) << 16, nil
	}
	id, err := ParseEventID(s)
	if err != nil {
		return 0, err
	}
	return id.Base(), nil
}

// dottedHex renders the low n bytes of v as dotted uppercase hex octets.
func dottedHex(v uint64, n int) string {
	var b strings.Builder
	for i := n - 1; i >= 0; i-- {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		fmt.Fprintf(&b, "%02X", uint8(v>>(i*8)&byteMask))
	}
	return b.String()
}

// parseDottedOrHex parses either n dotted hex octets or a plain hex string
// no wider than n bytes.
func parseDottedOrHex(s string, n int) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty string")
	}

	if strings.Contains(s, ".") {
		parts := strings.Split(s, ".")
		if len(parts) != n {
			return 0, fmt.Errorf("expected %d octets, got %d", n, len(parts))
		}
		var v uint64
		for _, part := range parts {
			octet, err := strconv.ParseUint(part, 16, 8)
			if err != nil {
				return 0, fmt.Errorf("bad octet %q", part)
			}
			v = v<<8 | octet
		}
		return v, nil
	}

	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, n*8)
	if err != nil {
		return 0, err
	}
	return v, nil
}
