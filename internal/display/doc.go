// Package display manages panel backlight power: a timed, animated,
// interruptible transition between full brightness and off.
//
// # State Machine
//
//	          idle timeout / Sleep()
//	 Active ──────────────────────► FadingOut
//	   ▲                              │    │ activity
//	   │ ramp done                    │    ▼
//	FadingIn ◄──────── RenderWake ── Off  FadingIn (no power cut)
//	   ▲                              ▲
//	   └── activity latches ──────────┘
//	       pendingWake
//
// The idle timer is evaluated only in Active. Activity during FadingOut
// or Off latches pendingWake; the latch is serviced by the next tick and
// only ever moves the machine toward Active. Manual sleep shares the
// timeout transition rather than having its own path.
//
// # Rendering
//
// The machine never mutates rendering state directly. It emits a closed
// set of RenderCommands (fade_out, fade_in, power_off, wake) over a
// bounded queue drained by the owning rendering context; a tick that
// cannot hand off within a bounded millisecond wait skips and retries.
// The fade animations run as a small number of discrete opacity steps to
// avoid banding on partial-refresh panels.
//
// # Interactivity
//
// Interactive() is true only in Active. The touch that wakes a sleeping
// panel registers as activity (NotifyActivity) but is not delivered as a
// click; input dispatchers check Interactive() separately, and activity
// never implies interactivity.
//
// # Thread Safety
//
// All methods are safe for concurrent use. One mutex guards the machine;
// it is never shared with the lighting subsystem.
package display
