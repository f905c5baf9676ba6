package observability

import (
	"runtime"
	"sync/atomic"
	"time"
)

// MonitoringStats is the point-in-time view exposed on /health and logged by the heartbeat.
type MonitoringStats struct {
	Connections      int     `json:"connections"`
	Groups           int     `json:"groups"`
	EventsDelivered  uint64  `json:"events_delivered"`
	EventsDropped    uint64  `json:"events_dropped"`
	MessagesSent     uint64  `json:"messages_sent"`
	MessagesRejected uint64  `json:"messages_rejected"`
	PresenceFailures uint64  `json:"presence_failures"`
	RelayFailures    uint64  `json:"relay_failures"`
	AllocMemMb       uint64  `json:"alloc_mem_mb"`
	NumGC            uint32  `json:"num_gc"`
	NumGoroutine     int     `json:"num_goroutine"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
}

// GaugeProvider reports live sizes that only the engine knows.
type GaugeProvider func() (connections int, groups int)

// MonitoringManager aggregates engine counters. Counters are updated atomically
// from any goroutine; Snapshot reads them together with Go runtime metrics.
type MonitoringManager struct {
	eventsDelivered  uint64
	eventsDropped    uint64
	messagesSent     uint64
	messagesRejected uint64
	presenceFailures uint64
	relayFailures    uint64
	startedAt        time.Time
	gauges           atomic.Pointer[GaugeProvider]
}

func NewMonitoringManager() *MonitoringManager {
	return &MonitoringManager{startedAt: time.Now()}
}

func (mm *MonitoringManager) IncrDelivered() {
	if mm == nil {
		return
	}
	atomic.AddUint64(&mm.eventsDelivered, 1)
}

func (mm *MonitoringManager) IncrDropped() {
	if mm == nil {
		return
	}
	atomic.AddUint64(&mm.eventsDropped, 1)
}

func (mm *MonitoringManager) IncrMessagesSent() {
	if mm == nil {
		return
	}
	atomic.AddUint64(&mm.messagesSent, 1)
}

func (mm *MonitoringManager) IncrMessagesRejected() {
	if mm == nil {
		return
	}
	atomic.AddUint64(&mm.messagesRejected, 1)
}

func (mm *MonitoringManager) IncrPresenceFailures() {
	if mm == nil {
		return
	}
	atomic.AddUint64(&mm.presenceFailures, 1)
}

func (mm *MonitoringManager) IncrRelayFailures() {
	if mm == nil {
		return
	}
	atomic.AddUint64(&mm.relayFailures, 1)
}

// WithGauges plugs the live connection and group counts.
func (mm *MonitoringManager) WithGauges(provider GaugeProvider) *MonitoringManager {
	if mm == nil {
		return nil
	}
	mm.gauges.Store(&provider)
	return mm
}

func (mm *MonitoringManager) Snapshot() MonitoringStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := MonitoringStats{
		EventsDelivered:  atomic.LoadUint64(&mm.eventsDelivered),
		EventsDropped:    atomic.LoadUint64(&mm.eventsDropped),
		MessagesSent:     atomic.LoadUint64(&mm.messagesSent),
		MessagesRejected: atomic.LoadUint64(&mm.messagesRejected),
		PresenceFailures: atomic.LoadUint64(&mm.presenceFailures),
		RelayFailures:    atomic.LoadUint64(&mm.relayFailures),
		AllocMemMb:       m.Alloc / 1024 / 1024,
		NumGC:            m.NumGC,
		NumGoroutine:     runtime.NumGoroutine(),
		UptimeSeconds:    time.Since(mm.startedAt).Seconds(),
	}
	if provider := mm.gauges.Load(); provider != nil {
		stats.Connections, stats.Groups = (*provider)()
	}
	return stats
}
