package gpio

import (
	"errors"
	"time"

	"github.com/sweeney/flicker/internal/logic"
)

// FakePort is a test double that records commits and emits scripted edges.
type FakePort struct {
	// Commits contains every committed set of levels, in order.
	Commits []logic.Levels

	// CommitError, if set, will be returned by Commit.
	CommitError error

	// LevelError, if set, will be returned by Level.
	LevelError error

	// Closed tracks if Close was called
	Closed bool

	hold  bool
	edges chan Edge
}

// NewFakePort creates a FakePort whose edge channel holds up to buffer edges.
func NewFakePort(buffer int) *FakePort {
	return &FakePort{edges: make(chan Edge, buffer)}
}

// Commit records the levels.
func (f *FakePort) Commit(levels logic.Levels) error {
	if f.CommitError != nil {
		return f.CommitError
	}
	f.Commits = append(f.Commits, levels)
	return nil
}

// Edges returns the scripted edge channel.
func (f *FakePort) Edges() <-chan Edge {
	return f.edges
}

// Level returns the last scripted hold level.
func (f *FakePort) Level() (bool, error) {
	if f.LevelError != nil {
		return false, f.LevelError
	}
	return f.hold, nil
}

// Press asserts the hold input and queues a rising edge.
func (f *FakePort) Press(t time.Time) error {
	return f.set(true, t)
}

// Release deasserts the hold input and queues a falling edge.
func (f *FakePort) Release(t time.Time) error {
	return f.set(false, t)
}

func (f *FakePort) set(level bool, t time.Time) error {
	if f.Closed {
		return errors.New("gpio: port closed")
	}
	f.hold = level
	select {
	case f.edges <- Edge{Level: level, Time: t}:
		return nil
	default:
		return errors.New("gpio: edge buffer full")
	}
}

// Last returns the most recent commit, or all-off if nothing was committed.
func (f *FakePort) Last() logic.Levels {
	if len(f.Commits) == 0 {
		return logic.Levels{}
	}
	return f.Commits[len(f.Commits)-1]
}

// Close marks the port as closed and closes the edge channel.
func (f *FakePort) Close() error {
	if !f.Closed {
		f.Closed = true
		close(f.edges)
	}
	return nil
}
