package logic

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Dispatcher services hardware events against a State in a fixed order:
// PWM tick, frame tick, increment tick, input edge.
type Dispatcher struct {
	state     *State
	out       Output
	timer     Restarter
	busy      atomic.Bool
	startTime time.Time

	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewDispatcher creates a dispatcher owning state. Levels are committed to
// out and timer is restarted whenever the hold input is asserted. The
// startTime is used for calculating uptime in heartbeat events.
func NewDispatcher(state *State, out Output, timer Restarter, startTime time.Time) *Dispatcher {
	return &Dispatcher{
		state:         state,
		out:           out,
		timer:         timer,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Dispatch performs every pending source and returns the events it caused.
// A commit failure is returned only after the remaining sources have been
// serviced.
func (d *Dispatcher) Dispatch(p Pending) ([]Event, error) {
	if !d.busy.CompareAndSwap(false, true) {
		return nil, ErrReentrant
	}
	defer d.busy.Store(false)

	s := d.state
	var (
		events    []Event
		commitErr error
		frame     bool
	)
	emit := func(t EventType) {
		events = append(events, Event{
			Timestamp:  p.Time,
			Type:       t,
			Brightness: s.Brightness.Level(),
			Hold:       s.Hold,
		})
	}
	bounds := func(changed bool) {
		if !changed {
			return
		}
		switch s.Brightness.Level() {
		case MaxBrightness:
			emit(EventCeiling)
		case 0:
			emit(EventFloor)
		}
	}

	if p.Has(SourcePwmTick) {
		var levels Levels
		levels, frame = s.PwmTick()
		if err := d.out.Commit(levels); err != nil {
			commitErr = fmt.Errorf("commit levels: %w", err)
		}
	}

	if frame {
		bounds(s.FrameTick())
		d.eventCounts.Frames++
	}

	if p.Has(SourceIncrementTick) {
		bounds(s.IncrementTick())
	}

	if p.Has(SourceInputEdge) {
		before := s.Brightness.Level()
		switch s.Edge(p.Level) {
		case HoldStarted:
			if d.timer != nil {
				d.timer.Restart()
			}
			emit(EventHoldOn)
			bounds(s.Brightness.Level() != before)
		case HoldReleased:
			emit(EventHoldOff)
		}
	}

	for _, e := range events {
		switch e.Type {
		case EventHoldOn:
			d.eventCounts.HoldOn++
		case EventHoldOff:
			d.eventCounts.HoldOff++
		case EventCeiling:
			d.eventCounts.Ceiling++
		case EventFloor:
			d.eventCounts.Floor++
		}
	}

	return events, commitErr
}

// State returns the owned state. Callers must not mutate it and must only
// read it from the dispatching goroutine.
func (d *Dispatcher) State() *State {
	return d.state
}

// EventCountsSnapshot returns a copy of the event counters.
func (d *Dispatcher) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (d *Dispatcher) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp:  now,
		Uptime:     now.Sub(d.startTime),
		Brightness: d.state.Brightness.Level(),
		Hold:       d.state.Hold,
		Counts:     d.eventCounts,
	}
}
