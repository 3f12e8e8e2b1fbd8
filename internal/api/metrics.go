package api

import (
	"fmt"
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Station       StationMetrics   `json:"station"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	Transport     TransportMetrics `json:"transport"`
	Display       DisplayMetrics   `json:"display"`
	Scenes        SceneMetrics     `json:"scenes"`
	Database      DatabaseMetrics  `json:"database"`
}

// StationMetrics contains supervisor statistics.
type StationMetrics struct {
	Status        string `json:"status"`
	LightingTicks uint64 `json:"lighting_ticks"`
	DisplayTicks  uint64 `json:"display_ticks"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// TransportMetrics contains LCC client statistics.
type TransportMetrics struct {
	Connected      bool   `json:"connected"`
	Ready          bool   `json:"ready"`
	Alias          string `json:"alias,omitempty"`
	EventsSent     uint64 `json:"events_sent"`
	EventsReceived uint64 `json:"events_received"`
	EventsDropped  uint64 `json:"events_dropped"`
	ErrorsTotal    uint64 `json:"errors_total"`
	Reconnects     uint64 `json:"reconnects"`
	AliasConflicts uint64 `json:"alias_conflicts"`
	LastActivity   string `json:"last_activity,omitempty"`
}

// DisplayMetrics contains display power controller counters.
type DisplayMetrics struct {
	TimeoutSleeps   uint64 `json:"timeout_sleeps"`
	ManualSleeps    uint64 `json:"manual_sleeps"`
	Wakes           uint64 `json:"wakes"`
	SkippedHandoffs uint64 `json:"skipped_handoffs"`
}

// SceneMetrics contains catalogue statistics.
type SceneMetrics struct {
	Total int `json:"total"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns comprehensive station metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	sm := s.station.Metrics()

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(sm.Uptime.Seconds()),
		Station: StationMetrics{
			Status:        sm.Status.String(),
			LightingTicks: sm.LightingTicks,
			DisplayTicks:  sm.DisplayTicks,
		},
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Transport: TransportMetrics{
			Connected:      sm.Transport.Connected,
			Ready:          sm.Transport.Ready,
			EventsSent:     sm.Transport.EventsSent,
			EventsReceived: sm.Transport.EventsReceived,
			EventsDropped:  sm.Transport.EventsDropped,
			ErrorsTotal:    sm.Transport.ErrorsTotal,
			Reconnects:     sm.Transport.Reconnects,
			AliasConflicts: sm.Transport.AliasConflicts,
		},
		Display: DisplayMetrics{
			TimeoutSleeps:   sm.Display.TimeoutSleeps,
			ManualSleeps:    sm.Display.ManualSleeps,
			Wakes:           sm.Display.Wakes,
			SkippedHandoffs: sm.Display.SkippedHandoffs,
		},
	}

	if sm.Transport.Alias != 0 {
		metrics.Transport.Alias = fmt.Sprintf("%03X", sm.Transport.Alias)
	}
	if !sm.Transport.LastActivity.IsZero() {
		metrics.Transport.LastActivity = sm.Transport.LastActivity.UTC().Format(time.RFC3339)
	}

	// WebSocket hub exists only after Start.
	if s.hub != nil {
		metrics.WebSocket.ConnectedClients = s.hub.ClientCount()
	}

	if count, err := s.scenes.Count(r.Context()); err == nil {
		metrics.Scenes.Total = count
	}

	dbStats := s.db.Stats()
	metrics.Database = DatabaseMetrics{
		OpenConnections: dbStats.OpenConnections,
		InUse:           dbStats.InUse,
		Idle:            dbStats.Idle,
		WaitCount:       dbStats.WaitCount,
	}

	writeJSON(w, http.StatusOK, metrics)
}
