// Package gpio provides the LED output port and hold input with hardware
// abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"time"

	"github.com/sweeney/flicker/internal/logic"
)

// Port drives the LED outputs and reports hold input edges.
type Port interface {
	// Commit writes both LED levels in one operation.
	Commit(levels logic.Levels) error

	// Edges delivers hold input transitions. The channel is closed by Close.
	Edges() <-chan Edge

	// Level returns the current logical hold input level (true = asserted).
	Level() (bool, error)

	// Close turns the LEDs off and releases GPIO resources.
	Close() error
}

// Edge is a hold input transition.
type Edge struct {
	Level bool // level after the transition
	Time  time.Time
}

// Pin definitions (BCM numbering)
const (
	DefaultPinLED1 = 17
	DefaultPinLED2 = 27
	DefaultPinHold = 22
)

// DefaultChip is the GPIO character device used on a Raspberry Pi.
const DefaultChip = "gpiochip0"

// Config selects the lines used by a real port.
type Config struct {
	Chip     string
	LEDs     [logic.Channels]int
	Hold     int
	Debounce time.Duration // 0 disables kernel debounce
	Buffer   int           // edge channel capacity
}

// DefaultConfig returns the default Raspberry Pi wiring.
func DefaultConfig() Config {
	return Config{
		Chip:   DefaultChip,
		LEDs:   [logic.Channels]int{DefaultPinLED1, DefaultPinLED2},
		Hold:   DefaultPinHold,
		Buffer: 16,
	}
}
