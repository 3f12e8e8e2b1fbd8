package mqtt

import "fmt"

// DefaultTopicPrefix is used when topic_prefix is left empty in the
// configuration.
const DefaultTopicPrefix = "lumen"

// Topics builds the station's topic names under a configurable prefix.
// Using these helpers keeps topic naming consistent between the station,
// the panel, and any automation controllers on the broker.
//
//	topics := mqtt.NewTopics("lumen")
//	topics.FadeProgress() // "lumen/fade/progress"
//
// State topics are published retained so late subscribers immediately
// see the current values. Command topics are never retained.
type Topics struct {
	prefix string
}

// NewTopics creates a topic builder. An empty prefix falls back to
// DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// State topics are published by the station and retained by the broker.

// Status returns the online/offline presence topic. This is also the
// Last Will target: the broker publishes an offline payload here if the
// station disappears without a graceful disconnect.
//
// Example: lumen/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/status", t.prefix)
}

// StationStatus returns the station lifecycle topic, carrying
// running/degraded/stopped transitions.
//
// Example: lumen/station/status
func (t Topics) StationStatus() string {
	return fmt.Sprintf("%s/station/status", t.prefix)
}

// FadeProgress returns the fade progress snapshot topic.
//
// Example: lumen/fade/progress
func (t Topics) FadeProgress() string {
	return fmt.Sprintf("%s/fade/progress", t.prefix)
}

// DisplayState returns the display power state topic.
//
// Example: lumen/display/state
func (t Topics) DisplayState() string {
	return fmt.Sprintf("%s/display/state", t.prefix)
}

// Command topics are subscribed by the station.

// CommandFade returns the topic for fade commands. The payload mirrors
// the POST /api/v1/fade body: a target state and a duration in seconds.
//
// Example: lumen/command/fade
func (t Topics) CommandFade() string {
	return fmt.Sprintf("%s/command/fade", t.prefix)
}

// CommandAbort returns the topic for abort commands. The payload is
// ignored.
//
// Example: lumen/command/abort
func (t Topics) CommandAbort() string {
	return fmt.Sprintf("%s/command/abort", t.prefix)
}

// CommandDisplay returns the topic for display commands. The payload
// names an action: wake or sleep.
//
// Example: lumen/command/display
func (t Topics) CommandDisplay() string {
	return fmt.Sprintf("%s/command/display", t.prefix)
}

// AllCommands returns a pattern matching every command topic.
//
// Pattern: lumen/command/+
func (t Topics) AllCommands() string {
	return fmt.Sprintf("%s/command/+", t.prefix)
}

// All returns a pattern matching every topic under the prefix. Useful
// for debugging with mosquitto_sub; receives all station traffic.
//
// Pattern: lumen/#
func (t Topics) All() string {
	return fmt.Sprintf("%s/#", t.prefix)
}
