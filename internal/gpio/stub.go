//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/flicker/internal/logic"
)

// RealPort is not available on non-Linux platforms.
type RealPort struct{}

// NewRealPort returns an error on non-Linux platforms.
func NewRealPort(cfg Config) (*RealPort, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Commit is not implemented on non-Linux platforms.
func (p *RealPort) Commit(levels logic.Levels) error {
	return errors.New("gpio: not supported")
}

// Edges returns a nil channel on non-Linux platforms.
func (p *RealPort) Edges() <-chan Edge {
	return nil
}

// Level is not implemented on non-Linux platforms.
func (p *RealPort) Level() (bool, error) {
	return false, errors.New("gpio: not supported")
}

// Drops always returns 0 on non-Linux platforms.
func (p *RealPort) Drops() uint32 {
	return 0
}

// Close is not implemented on non-Linux platforms.
func (p *RealPort) Close() error {
	return nil
}
