package logic

// State holds all mutable flicker state. It is owned by a Dispatcher and is
// not safe for concurrent use.
type State struct {
	Rand       Random
	Channels   [Channels]Channel
	Brightness Brightness
	Frame      uint16
	Hold       HoldState
}

// NewState returns the cold-start state: brightness 0, both targets 1,
// counters 0, hold released.
func NewState(seed uint32) *State {
	s := &State{Brightness: NewBrightness(0)}
	s.Rand.Seed(seed, 0)
	for i := range s.Channels {
		s.Channels[i].SetTarget(1)
	}
	return s
}

// PwmTick advances both channels and returns their levels. It reports
// whether the frame counter reached FrameDelay.
func (s *State) PwmTick() (Levels, bool) {
	var levels Levels
	for i := range s.Channels {
		levels[i] = s.Channels[i].Tick()
	}
	s.Frame++
	return levels, s.Frame >= FrameDelay
}

// Draw returns a random duty in [low, high) for the current edges.
func (s *State) Draw() uint8 {
	e := s.Brightness.Edges()
	return e.Low + s.Rand.NextByte()%e.Span()
}

// FrameTick re-randomizes every channel target and, unless the input is
// held, decays brightness by one. It resets the frame counter and reports
// whether brightness changed.
func (s *State) FrameTick() bool {
	for i := range s.Channels {
		s.Channels[i].SetTarget(s.Draw())
	}
	s.Frame = 0
	if s.Hold == Holding {
		return false
	}
	return s.Brightness.Decrement()
}

// IncrementTick services the increment timer: while holding, brightness
// ramps up by one. Ticks in Idle are ignored.
func (s *State) IncrementTick() bool {
	if s.Hold != Holding {
		return false
	}
	return s.Brightness.Increment()
}

// Edge feeds the sampled hold input level to the hold state machine.
// A high level in Idle starts holding and increments brightness at once;
// a low level in Holding releases. Levels that match the current state are
// ignored.
func (s *State) Edge(level bool) Transition {
	switch {
	case level && s.Hold == Idle:
		s.Hold = Holding
		s.Brightness.Increment()
		return HoldStarted
	case !level && s.Hold == Holding:
		s.Hold = Idle
		return HoldReleased
	}
	return NoTransition
}
