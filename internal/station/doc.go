// Package station supervises the lighting command station runtime.
//
// The Station ties the subsystems together: the LCC transport, the fade
// orchestrator, the display power controller, the scene catalogue, and
// the persisted runtime settings. It owns the lifecycle and the tick
// loops; the API and MQTT surfaces talk to the Station rather than to
// the subsystems directly.
//
// # Startup Sequence
//
// Start wires everything before the node becomes discoverable on the
// bus:
//
//  1. Load persisted settings (auto-apply, idle timeout, base event id)
//  2. Seed the scene catalogue if empty
//  3. Apply the idle timeout to the display controller
//  4. Connect the LCC transport (alias check-in happens here)
//  5. Launch the lighting and display tick loops
//  6. Kick off the boot auto-apply fade, when enabled
//
// The station produces no events before every consumer is wired; the
// boot auto-apply command set is the first event traffic on the bus
// after check-in.
//
// # Status
//
// Status is derived, not stored: Running means the tick loops are live
// and the transport is ready; Degraded means the transport is between
// reconnect attempts. Consumers poll Status (or Metrics) rather than
// registering callbacks.
//
// # Settings
//
// SettingsStore persists runtime-tunable values in the settings table.
// Reads never fail the caller: missing keys fall back to defaults,
// unreadable values fall back to defaults, out-of-range values clamp.
// Writes reject unparseable input with ErrInvalidSetting and clamp
// out-of-range numerics, storing the clamped value.
package station
