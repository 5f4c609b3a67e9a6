// Package logic contains the flame flicker core: the software PWM channels,
// brightness control, flicker regeneration, hold input handling and the
// dispatcher that sequences them on every hardware event.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"errors"
	"time"
)

const (
	// Channels is the number of LED outputs driven by software PWM.
	Channels = 2

	// FrameDelay is the number of PWM ticks between two flicker frames.
	FrameDelay = 2930

	// MaxBrightness is the brightness ceiling.
	MaxBrightness = 255
)

// ErrReentrant is returned when Dispatch is called while a previous
// invocation is still running.
var ErrReentrant = errors.New("logic: dispatch re-entered")

// Levels holds one output level per channel, committed together.
type Levels [Channels]bool

// Output receives the channel levels once per PWM tick.
type Output interface {
	// Commit writes all channel levels to the port as a single operation.
	Commit(levels Levels) error
}

// Restarter restarts the increment timer's period from zero.
type Restarter interface {
	Restart()
}

// Counter is a free-running hardware counter used as a seed source.
type Counter interface {
	Count() uint32
}

// HoldState is the state of the hold input state machine.
type HoldState uint8

const (
	Idle HoldState = iota
	Holding
)

func (h HoldState) String() string {
	if h == Holding {
		return "HOLDING"
	}
	return "IDLE"
}

// Transition is the result of feeding an input level to the hold handler.
type Transition uint8

const (
	NoTransition Transition = iota
	HoldStarted
	HoldReleased
)

// Source identifies an event source serviced by the dispatcher.
type Source uint8

const (
	SourcePwmTick Source = 1 << iota
	SourceIncrementTick
	SourceInputEdge
)

func (s Source) String() string {
	if s == 0 {
		return "none"
	}
	out := ""
	add := func(name string) {
		if out != "" {
			out += "|"
		}
		out += name
	}
	if s&SourcePwmTick != 0 {
		add("pwm")
	}
	if s&SourceIncrementTick != 0 {
		add("increment")
	}
	if s&SourceInputEdge != 0 {
		add("edge")
	}
	return out
}

// Pending is the set of sources pending for one dispatcher invocation.
type Pending struct {
	Sources Source
	Level   bool // hold input level sampled with SourceInputEdge
	Time    time.Time
}

// Has reports whether src is pending.
func (p Pending) Has(src Source) bool {
	return p.Sources&src != 0
}

// EventType represents a reportable change in the flame state.
type EventType string

const (
	EventHoldOn  EventType = "HOLD_ON"
	EventHoldOff EventType = "HOLD_OFF"
	EventCeiling EventType = "CEILING"
	EventFloor   EventType = "FLOOR"
)

// Event represents a state change to be published.
type Event struct {
	Timestamp  time.Time
	Type       EventType
	Brightness uint8
	Hold       HoldState
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	HoldOn  int
	HoldOff int
	Ceiling int
	Floor   int
	Frames  uint64
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp  time.Time
	Uptime     time.Duration
	Brightness uint8
	Hold       HoldState
	Counts     EventCounts
}
