package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/flicker/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Brightness    uint8      `json:"brightness"`
	Edges         EdgesJSON  `json:"edges"`
	Hold          bool       `json:"hold"`
	Targets       []int      `json:"targets"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"event_counts"`
	EdgeDrops     uint32     `json:"edge_drops"`
	Config        ConfigJSON `json:"config"`
}

// EdgesJSON is the JSON representation of the duty edges.
type EdgesJSON struct {
	Low  uint8 `json:"low"`
	High uint8 `json:"high"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	HoldOn  int    `json:"hold_on"`
	HoldOff int    `json:"hold_off"`
	Ceiling int    `json:"ceiling"`
	Floor   int    `json:"floor"`
	Frames  uint64 `json:"frames"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Backend     string `json:"backend"`
	PwmTickUs   int64  `json:"pwm_tick_us"`
	IncrementMs int64  `json:"increment_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	WSBroker    string `json:"ws_broker,omitempty"`
}

// targetsJSON widens the targets so they encode as numbers; a byte slice
// would be written as base64.
func targetsJSON(t [logic.Channels]uint8) []int {
	out := make([]int, len(t))
	for i, v := range t {
		out[i] = int(v)
	}
	return out
}

func buildInner(snap Snapshot) StatusInner {
	f := snap.Flame
	return StatusInner{
		Brightness:    f.Brightness,
		Edges:         EdgesJSON{Low: f.Edges.Low, High: f.Edges.High},
		Hold:          f.Hold == logic.Holding,
		Targets:       targetsJSON(f.Targets),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			HoldOn:  snap.Counts.HoldOn,
			HoldOff: snap.Counts.HoldOff,
			Ceiling: snap.Counts.Ceiling,
			Floor:   snap.Counts.Floor,
			Frames:  snap.Counts.Frames,
		},
		EdgeDrops: snap.EdgeDrops,
		Config: ConfigJSON{
			Backend:     snap.Config.Backend,
			PwmTickUs:   snap.Config.PwmTickUs,
			IncrementMs: snap.Config.IncrementMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			WSBroker:    snap.Config.WSBroker,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
