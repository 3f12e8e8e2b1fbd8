// Package telemetry provides InfluxDB v2 connectivity for the station.
//
// It wraps the official influxdb-client-go v2 library with the
// station's patterns for connection management, measurement writing,
// and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Fade session samples (percent, segment position)
//   - Display power transitions
//   - LCC transport counters
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "station-token",
//	    Org:     "lumen",
//	    Bucket:  "station",
//	}
//
//	client, err := telemetry.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteFadeSample("fading", 42, 0, 1)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking; batch errors are delivered
// asynchronously via the SetOnError callback. Connection and health
// check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config (batch_size, flush_interval),
// so tick-rate sampling during a fade costs one HTTP request per
// flush, not per point.
package telemetry
