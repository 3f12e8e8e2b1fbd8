package station

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/lumen-station/internal/display"
	"github.com/nerrad567/lumen-station/internal/lcc"
)

// Settings table keys.
const (
	keyAutoApplyEnabled   = "auto_apply_enabled"
	keyAutoApplyDuration  = "auto_apply_duration"
	keyDisplayIdleTimeout = "display_idle_timeout"
	keyBaseEventID        = "base_event_id"
)

// Auto-apply duration bounds. The boot fade from dark to the first
// scene can be instant (0) or up to five minutes.
const (
	MaxAutoApplyDuration     = 300 * time.Second
	DefaultAutoApplyDuration = 10 * time.Second
)

// Settings is a typed snapshot of the runtime-tunable values. Reads
// always produce a snapshot within documented bounds, whatever the
// table holds.
type Settings struct {
	// AutoApplyEnabled controls the boot fade to the first scene.
	AutoApplyEnabled bool

	// AutoApplyDuration is the boot fade length. 0 applies instantly.
	AutoApplyDuration time.Duration

	// DisplayIdleTimeout is the display sleep timeout. 0 disables the
	// timer; nonzero values fall in [display.MinIdleTimeout,
	// display.MaxIdleTimeout].
	DisplayIdleTimeout time.Duration

	// BaseEventID is the 48-bit base all command events build on,
	// low 16 bits zero.
	BaseEventID lcc.EventID
}

// DefaultSettings returns the factory values used for missing or
// unreadable table entries.
func DefaultSettings() Settings {
	return Settings{
		AutoApplyEnabled:   true,
		AutoApplyDuration:  DefaultAutoApplyDuration,
		DisplayIdleTimeout: display.DefaultIdleTimeout,
		BaseEventID:        lcc.DefaultBaseEventID,
	}
}

// SettingsPatch carries a partial settings update. Nil fields are
// left untouched.
type SettingsPatch struct {
	AutoApplyEnabled *bool

	// AutoApplyDuration in whole seconds.
	AutoApplyDuration *int

	// DisplayIdleTimeout in whole seconds. 0 disables the timer.
	DisplayIdleTimeout *int

	// BaseEventID in dotted hex ("05.01.01.01.22.60") or plain hex.
	BaseEventID *string
}

// SettingsStore persists the runtime-tunable values in the settings
// table.
//
// Read policy: a missing key falls back to its default, an unreadable
// value falls back to its default, an out-of-range value clamps to its
// documented bounds. Loads never fail on content, only on I/O.
//
// Write policy: unparseable values are rejected with ErrInvalidSetting,
// out-of-range numeric values clamp and the clamped value is stored.
// The returned snapshot shows what actually took effect.
type SettingsStore struct {
	db *sql.DB
}

// NewSettingsStore creates a settings store backed by the given database.
func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Load reads the full settings snapshot.
func (s *SettingsStore) Load(ctx context.Context) (Settings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return Settings{}, fmt.Errorf("querying settings: %w", err)
	}
	defer rows.Close()

	raw := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Settings{}, fmt.Errorf("scanning setting row: %w", err)
		}
		raw[k] = v
	}
	if err := rows.Err(); err != nil {
		return Settings{}, fmt.Errorf("iterating settings: %w", err)
	}

	out := DefaultSettings()
	if v, ok := raw[keyAutoApplyEnabled]; ok {
		out.AutoApplyEnabled = boolSetting(v, out.AutoApplyEnabled)
	}
	if v, ok := raw[keyAutoApplyDuration]; ok {
		out.AutoApplyDuration = autoApplyDurationSetting(v, out.AutoApplyDuration)
	}
	if v, ok := raw[keyDisplayIdleTimeout]; ok {
		out.DisplayIdleTimeout = idleTimeoutSetting(v, out.DisplayIdleTimeout)
	}
	if v, ok := raw[keyBaseEventID]; ok {
		out.BaseEventID = baseEventIDSetting(v, out.BaseEventID)
	}
	return out, nil
}

// Apply validates the patch, persists the changed keys in one
// transaction, and returns the resulting snapshot.
func (s *SettingsStore) Apply(ctx context.Context, patch SettingsPatch) (Settings, error) {
	writes, err := patchWrites(patch)
	if err != nil {
		return Settings{}, err
	}

	if len(writes) > 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return Settings{}, fmt.Errorf("starting settings transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

		now := time.Now().UTC().Format(time.RFC3339)
		for key, value := range writes {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				key, value, now,
			); err != nil {
				return Settings{}, fmt.Errorf("writing setting %s: %w", key, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return Settings{}, fmt.Errorf("committing settings: %w", err)
		}
	}

	return s.Load(ctx)
}

// patchWrites converts a patch into key/value writes, clamping ranges
// and rejecting unparseable values.
func patchWrites(patch SettingsPatch) (map[string]string, error) {
	writes := make(map[string]string)

	if patch.AutoApplyEnabled != nil {
		if *patch.AutoApplyEnabled {
			writes[keyAutoApplyEnabled] = "1"
		} else {
			writes[keyAutoApplyEnabled] = "0"
		}
	}

	if patch.AutoApplyDuration != nil {
		d := clampAutoApplyDuration(time.Duration(*patch.AutoApplyDuration) * time.Second)
		writes[keyAutoApplyDuration] = strconv.Itoa(int(d / time.Second))
	}

	if patch.DisplayIdleTimeout != nil {
		d := clampIdleTimeoutSeconds(*patch.DisplayIdleTimeout)
		writes[keyDisplayIdleTimeout] = strconv.Itoa(int(d / time.Second))
	}

	if patch.BaseEventID != nil {
		base, err := lcc.ParseBaseEventID(*patch.BaseEventID)
		if err != nil {
			return nil, fmt.Errorf("%w: base_event_id: %v", ErrInvalidSetting, err)
		}
		writes[keyBaseEventID] = base.BaseString()
	}

	return writes, nil
}

// boolSetting parses a stored boolean, falling back to def.
func boolSetting(raw string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

// autoApplyDurationSetting parses and clamps a stored duration in seconds.
func autoApplyDurationSetting(raw string, def time.Duration) time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return clampAutoApplyDuration(time.Duration(n) * time.Second)
}

// clampAutoApplyDuration bounds the boot fade length to [0, MaxAutoApplyDuration].
func clampAutoApplyDuration(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > MaxAutoApplyDuration {
		return MaxAutoApplyDuration
	}
	return d
}

// idleTimeoutSetting parses and clamps a stored idle timeout in seconds.
func idleTimeoutSetting(raw string, def time.Duration) time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return clampIdleTimeoutSeconds(n)
}

// clampIdleTimeoutSeconds applies the display timeout policy: zero and
// below disable, nonzero clamps to the display bounds.
func clampIdleTimeoutSeconds(n int) time.Duration {
	d := time.Duration(n) * time.Second
	if d <= 0 {
		return 0
	}
	if d < display.MinIdleTimeout {
		return display.MinIdleTimeout
	}
	if d > display.MaxIdleTimeout {
		return display.MaxIdleTimeout
	}
	return d
}

// baseEventIDSetting parses a stored base event id, falling back to def.
func baseEventIDSetting(raw string, def lcc.EventID) lcc.EventID {
	base, err := lcc.ParseBaseEventID(raw)
	if err != nil {
		return def
	}
	return base
}
