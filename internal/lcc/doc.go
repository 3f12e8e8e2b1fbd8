// Package lcc implements the LCC (Layout Command Control / OpenLCB) event
// transport for Lumen Station.
//
// This package provides connectivity to a GridConnect TCP hub (JMRI,
// openmrn hub, or compatible) and the lighting command event encoding
// consumed by downstream decoder nodes.
//
// # Architecture
//
// The station is an event producer on the layout bus:
//
//	┌─────────────────┐              ┌─────────────────┐
//	│  Lumen Station  │  GridConnect │   LCC Hub       │   CAN
//	│   (this pkg)    │◄────────────►│  (JMRI/openmrn) │◄───────► Decoders
//	└─────────────────┘              └─────────────────┘
//
// # Key Responsibilities
//
//   - Connect to a GridConnect hub over TCP
//   - Reserve and defend a 12-bit CAN alias (CID/RID/AMD check-in)
//   - Produce lighting command events as PCER frames
//   - Pace transmissions to the bus's minimum inter-event spacing
//   - Watch inbound traffic for alias enquiries and foreign event reports
//
// # Event Identifiers
//
// A lighting command event packs a configurable 48-bit base, an 8-bit
// parameter selector, and an 8-bit value into one 64-bit event id:
//
//	05.01.01.01.22.60.PP.VV
//
// Parameters 0-5 select red, green, blue, white, brightness, and duration.
// One fade segment is a "command set" of six events, duration last; the
// duration event is what starts the receiver-side interpolation.
//
// Example:
//
//	base, err := lcc.ParseBaseEventID("05.01.01.01.22.60")
//	if err != nil {
//	    return err
//	}
//	events := lcc.CommandSet(base, lcc.CommandValues{Red: 255, Duration: 10})
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
//
// # References
//
//   - OpenLCB standards: https://openlcb.org/specifications/
//   - GridConnect framing as spoken by JMRI and the openmrn hub utility
package lcc
