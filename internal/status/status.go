// Package status provides a thread-safe status tracker for the flicker daemon.
// It is read by HTTP handlers and system event payloads.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/flicker/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Backend     string
	PwmTickUs   int64
	IncrementMs int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	WSBroker    string // websocket broker URL for live page updates (empty = disabled)
}

// Flame is a copy of the flicker state taken on the dispatching goroutine.
type Flame struct {
	Brightness uint8
	Edges      logic.Edges
	Hold       logic.HoldState
	Targets    [logic.Channels]uint8
}

// FlameOf copies the observable parts of s.
func FlameOf(s *logic.State) Flame {
	f := Flame{
		Brightness: s.Brightness.Level(),
		Edges:      s.Brightness.Edges(),
		Hold:       s.Hold,
	}
	for i := range s.Channels {
		f.Targets[i] = s.Channels[i].Target()
	}
	return f
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and stays valid after the lock is released.
type Snapshot struct {
	Flame         Flame
	Counts        logic.EventCounts
	EdgeDrops     uint32
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Flame:     Flame{Edges: logic.EdgesFor(0)},
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the flame state and event counts.
// Called from runLoop on frames, increments and edges.
func (t *Tracker) Update(flame Flame, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Flame = flame
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetEdgeDrops records how many input edges the port had to drop.
func (t *Tracker) SetEdgeDrops(n uint32) {
	t.mu.Lock()
	t.snap.EdgeDrops = n
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
