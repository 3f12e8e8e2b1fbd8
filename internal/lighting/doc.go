// Package lighting owns the fade orchestrator: the state machine that
// turns a color/brightness transition request into one or more
// bounded-duration command sets on the lighting bus.
//
// # Architecture
//
//	FadeRequest ──► Orchestrator ──► command sets ──► lcc.EventSender
//	                    │
//	                    ├── Tick (fixed short period, station loop)
//	                    └── Progress/Abort (presentation layers)
//
// The bus carries segment durations as a whole-second uint8, so a single
// command set can describe at most a 255-second transition. Longer
// requests are split into equal-duration segments whose targets walk the
// start→final line at fractions 1/N, 2/N, … 1; the downstream receivers
// interpolate within each segment themselves. The orchestrator never
// computes per-frame colors.
//
// # Sessions
//
// Exactly one session is in flight at a time. A new Start replaces the
// active session and interpolates from the current baseline (the last
// segment target sent), so superseding a fade mid-flight continues from
// where the bus was told to go, not from the old final target. Abort
// snaps to idle without reconstructing the receiver's true mid-fade
// position; the baseline stays at the last segment target.
//
// # Progress
//
// Progress percent is wall-clock elapsed over total duration, clamped to
// [0, 100]. It never decreases across segment boundaries and reads
// exactly 100 only in the one-tick Complete state, so consumers observe
// "100%, then idle" rather than the session vanishing atomically.
//
// # Thread Safety
//
// All methods are safe for concurrent use. One mutex guards the session;
// it is never shared with the display subsystem.
package lighting
