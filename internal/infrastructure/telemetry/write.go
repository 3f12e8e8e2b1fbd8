package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteFadeSample records one fade progress observation.
//
// The recorder samples an active session once per tick, so percent
// and segment position graph the fade as the receivers see it. The
// write is non-blocking; data is batched and sent asynchronously.
func (c *Client) WriteFadeSample(state string, percent, segmentIndex, segmentCount int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"fade_progress",
		map[string]string{
			"state": state,
		},
		map[string]interface{}{
			"percent":       percent,
			"segment_index": segmentIndex,
			"segment_count": segmentCount,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDisplayTransition records a display power state change,
// tagged with the states on both sides of the edge.
func (c *Client) WriteDisplayTransition(from, to string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"display_transitions",
		map[string]string{
			"from": from,
			"to":   to,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteTransportCounters records the cumulative LCC transport
// counters. Values are monotonic; rates fall out of derivatives at
// query time.
func (c *Client) WriteTransportCounters(sent, received, dropped, errorsTotal uint64) {
	if !c.IsConnected() {
		return
	}

	// #nosec G115 -- bus counters stay far below int64 range
	point := write.NewPoint(
		"transport",
		nil,
		map[string]interface{}{
			"events_sent":     int64(sent),
			"events_received": int64(received),
			"events_dropped":  int64(dropped),
			"errors_total":    int64(errorsTotal),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and
// fields, for measurements the helpers above don't cover.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
