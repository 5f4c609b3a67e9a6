package internal

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/flicker/internal/gpio"
	"github.com/sweeney/flicker/internal/logic"
	"github.com/sweeney/flicker/internal/mqtt"
	"github.com/sweeney/flicker/internal/status"
)

var startTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type countingTimer struct{ n int }

func (c *countingTimer) Restart() { c.n++ }

// rig wires the fakes together the way the main loop does, servicing one
// source per dispatch.
type rig struct {
	t          *testing.T
	port       *gpio.FakePort
	publisher  *mqtt.FakePublisher
	tracker    *status.Tracker
	timer      *countingTimer
	dispatcher *logic.Dispatcher
	now        time.Time
}

func newRig(t *testing.T, seed uint32) *rig {
	port := gpio.NewFakePort(8)
	timer := &countingTimer{}
	return &rig{
		t:          t,
		port:       port,
		publisher:  mqtt.NewFakePublisher(),
		tracker:    status.NewTracker(startTime, status.Config{Backend: "fake"}),
		timer:      timer,
		dispatcher: logic.NewDispatcher(logic.NewState(seed), port, timer, startTime),
		now:        startTime,
	}
}

func (r *rig) dispatch(p logic.Pending) {
	r.t.Helper()
	p.Time = r.now
	events, err := r.dispatcher.Dispatch(p)
	if err != nil {
		r.t.Fatalf("dispatch %s: %v", p.Sources, err)
	}
	for _, event := range events {
		if err := r.publisher.Publish(event); err != nil {
			r.t.Logf("publish error: %v", err)
		}
	}
	r.tracker.Update(status.FlameOf(r.dispatcher.State()), r.dispatcher.EventCountsSnapshot())
}

func (r *rig) pwm(n int) {
	for i := 0; i < n; i++ {
		r.now = r.now.Add(256 * time.Microsecond)
		r.dispatch(logic.Pending{Sources: logic.SourcePwmTick})
	}
}

func (r *rig) increment(n int) {
	for i := 0; i < n; i++ {
		r.dispatch(logic.Pending{Sources: logic.SourceIncrementTick})
	}
}

// edges drains every queued edge from the port.
func (r *rig) edges() {
	for {
		select {
		case e := <-r.port.Edges():
			r.dispatch(logic.Pending{Sources: logic.SourceInputEdge, Level: e.Level})
		default:
			return
		}
	}
}

func (r *rig) brightness() uint8 {
	return r.dispatcher.State().Brightness.Level()
}

// TestIntegrationFullFlow tests press, ramp, release and decay to the floor
// from port edges through to published payloads and the status snapshot.
func TestIntegrationFullFlow(t *testing.T) {
	r := newRig(t, 0)

	if err := r.port.Press(r.now); err != nil {
		t.Fatal(err)
	}
	r.edges()
	r.increment(20)
	if b := r.brightness(); b != 21 {
		t.Fatalf("brightness after ramp: got %d, want 21", b)
	}

	if err := r.port.Release(r.now); err != nil {
		t.Fatal(err)
	}
	r.edges()
	r.increment(5) // idle: ignored

	// 21 frames decay 21 back to 0.
	r.pwm(21 * logic.FrameDelay)
	if b := r.brightness(); b != 0 {
		t.Fatalf("brightness after decay: got %d, want 0", b)
	}

	want := []logic.EventType{logic.EventHoldOn, logic.EventHoldOff, logic.EventFloor}
	got := r.publisher.Types()
	if len(got) != len(want) {
		t.Fatalf("events: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, got[i], want[i])
		}
	}
	if r.timer.n != 1 {
		t.Errorf("timer restarts: got %d, want 1", r.timer.n)
	}
	if len(r.port.Commits) != 21*logic.FrameDelay {
		t.Errorf("commits: got %d, want %d", len(r.port.Commits), 21*logic.FrameDelay)
	}

	// Payloads
	var p mqtt.Payload
	if err := json.Unmarshal(r.publisher.Payloads[0], &p); err != nil {
		t.Fatalf("unmarshal HOLD_ON payload: %v", err)
	}
	if p.Flicker.Event != "HOLD_ON" || p.Flicker.Brightness != 1 || !p.Flicker.Hold {
		t.Errorf("HOLD_ON payload: %+v", p.Flicker)
	}
	if err := json.Unmarshal(r.publisher.Payloads[1], &p); err != nil {
		t.Fatalf("unmarshal HOLD_OFF payload: %v", err)
	}
	if p.Flicker.Event != "HOLD_OFF" || p.Flicker.Brightness != 21 || p.Flicker.Hold {
		t.Errorf("HOLD_OFF payload: %+v", p.Flicker)
	}

	// Status
	var s status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(r.tracker.Snapshot()), &s); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if s.Status.Brightness != 0 || s.Status.Hold {
		t.Errorf("status flame: brightness=%d hold=%v", s.Status.Brightness, s.Status.Hold)
	}
	if s.Status.Counts.Frames != 21 || s.Status.Counts.HoldOn != 1 || s.Status.Counts.Floor != 1 {
		t.Errorf("status counts: %+v", s.Status.Counts)
	}
	if s.Status.Edges.Low != 0 || s.Status.Edges.High != 30 {
		t.Errorf("status edges at floor: got (%d,%d), want (0,30)", s.Status.Edges.Low, s.Status.Edges.High)
	}
}

// TestIntegrationHoldOverridesDecay holds the button across several frames:
// brightness follows the ramp only.
func TestIntegrationHoldOverridesDecay(t *testing.T) {
	r := newRig(t, 0)
	if err := r.port.Press(r.now); err != nil {
		t.Fatal(err)
	}
	r.edges()
	r.pwm(3 * logic.FrameDelay)
	if b := r.brightness(); b != 1 {
		t.Errorf("brightness while held over frames: got %d, want 1", b)
	}
	r.increment(2)
	if b := r.brightness(); b != 3 {
		t.Errorf("brightness after two increments: got %d, want 3", b)
	}
}

// TestIntegrationDutyMatchesTargets verifies each LED's on-time over one
// 256-tick period equals the target drawn at the last frame.
func TestIntegrationDutyMatchesTargets(t *testing.T) {
	r := newRig(t, 0x1234^0x5678)
	if err := r.port.Press(r.now); err != nil {
		t.Fatal(err)
	}
	r.edges()
	r.increment(99) // brightness 100: edges (19,118)
	if err := r.port.Release(r.now); err != nil {
		t.Fatal(err)
	}
	r.edges()

	r.pwm(logic.FrameDelay) // one frame: decays to 99, new targets
	s := r.dispatcher.State()
	edges := s.Brightness.Edges()
	var targets [logic.Channels]uint8
	for i := range targets {
		targets[i] = s.Channels[i].Target()
		// Targets were drawn against brightness 100 before the decay.
		if targets[i] < 19 || targets[i] >= 118 {
			t.Errorf("channel %d target %d outside [19,118)", i, targets[i])
		}
	}
	if edges != logic.EdgesFor(99) {
		t.Errorf("edges after decay: got %+v, want %+v", edges, logic.EdgesFor(99))
	}

	start := len(r.port.Commits)
	r.pwm(256)
	var on [logic.Channels]int
	for _, levels := range r.port.Commits[start:] {
		for i, l := range levels {
			if l {
				on[i]++
			}
		}
	}
	for i := range on {
		if on[i] != int(targets[i]) {
			t.Errorf("channel %d: on for %d ticks, want %d", i, on[i], targets[i])
		}
	}
}

// TestIntegrationPublishFailureKeepsFlame checks that broker failures never
// alter the flame state.
func TestIntegrationPublishFailureKeepsFlame(t *testing.T) {
	r := newRig(t, 0)
	r.publisher.PublishError = errors.New("broker unavailable")

	if err := r.port.Press(r.now); err != nil {
		t.Fatal(err)
	}
	r.edges()
	r.increment(254)
	if b := r.brightness(); b != logic.MaxBrightness {
		t.Errorf("brightness: got %d, want %d", b, logic.MaxBrightness)
	}
	if len(r.publisher.Events) != 0 {
		t.Errorf("expected no recorded events, got %d", len(r.publisher.Events))
	}
	counts := r.dispatcher.EventCountsSnapshot()
	if counts.HoldOn != 1 || counts.Ceiling != 1 {
		t.Errorf("counts: %+v", counts)
	}
}

// TestIntegrationSystemEvents checks STARTUP and SHUTDOWN payloads built from
// the tracker snapshot.
func TestIntegrationSystemEvents(t *testing.T) {
	r := newRig(t, 0)
	snap := r.tracker.Snapshot()
	if err := r.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}); err != nil {
		t.Fatal(err)
	}

	r.pwm(logic.FrameDelay)

	snap = r.tracker.Snapshot()
	if err := r.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "SHUTDOWN",
		Reason:     "SIGTERM",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"),
	}); err != nil {
		t.Fatal(err)
	}

	if len(r.publisher.SystemPayloads) != 2 {
		t.Fatalf("expected 2 system payloads, got %d", len(r.publisher.SystemPayloads))
	}
	var s status.StatusJSON
	if err := json.Unmarshal(r.publisher.SystemPayloads[1], &s); err != nil {
		t.Fatalf("unmarshal shutdown: %v", err)
	}
	if s.Status.Event != "SHUTDOWN" || s.Status.Reason != "SIGTERM" {
		t.Errorf("shutdown event/reason: %q/%q", s.Status.Event, s.Status.Reason)
	}
	if s.Status.Counts.Frames != 1 {
		t.Errorf("shutdown frames: got %d, want 1", s.Status.Counts.Frames)
	}
}
