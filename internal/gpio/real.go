//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/flicker/internal/logic"
)

// RealPort drives actual hardware using Linux GPIO character device.
type RealPort struct {
	chip *gpiocdev.Chip
	leds *gpiocdev.Lines
	hold *gpiocdev.Line

	mu     sync.Mutex
	edges  chan Edge
	closed bool
	drops  atomic.Uint32

	values []int
}

// NewRealPort requests the LED lines as outputs (initially off) and the hold
// line as an input with both-edge detection.
func NewRealPort(cfg Config) (*RealPort, error) {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 16
	}
	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", cfg.Chip, err)
	}

	p := &RealPort{
		chip:   chip,
		edges:  make(chan Edge, cfg.Buffer),
		values: make([]int, logic.Channels),
	}

	// Both LEDs share one request so a commit is a single write.
	leds, err := chip.RequestLines(cfg.LEDs[:], gpiocdev.AsOutput(0, 0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request LED pins %v: %w", cfg.LEDs, err)
	}
	p.leds = leds

	// Pull-down matches Pi boot defaults; the button pulls the line high.
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(p.handleEvent),
	}
	if cfg.Debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(cfg.Debounce))
	}
	hold, err := chip.RequestLine(cfg.Hold, opts...)
	if err != nil {
		leds.Close()
		chip.Close()
		return nil, fmt.Errorf("request hold pin %d: %w", cfg.Hold, err)
	}
	p.hold = hold

	return p, nil
}

// handleEvent runs on the gpiocdev watcher goroutine and must not block.
func (p *RealPort) handleEvent(evt gpiocdev.LineEvent) {
	e := Edge{
		Level: evt.Type == gpiocdev.LineEventRisingEdge,
		Time:  time.Now(),
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.edges <- e:
	default:
		p.drops.Add(1)
	}
}

// Commit writes both LED levels with one SetValues call.
func (p *RealPort) Commit(levels logic.Levels) error {
	for i, on := range levels {
		p.values[i] = 0
		if on {
			p.values[i] = 1
		}
	}
	if err := p.leds.SetValues(p.values); err != nil {
		return fmt.Errorf("set LED values: %w", err)
	}
	return nil
}

// Edges delivers hold input transitions.
func (p *RealPort) Edges() <-chan Edge {
	return p.edges
}

// Level returns the current hold input level.
func (p *RealPort) Level() (bool, error) {
	v, err := p.hold.Value()
	if err != nil {
		return false, fmt.Errorf("read hold pin: %w", err)
	}
	return v == 1, nil
}

// Drops returns the number of edges dropped because the channel was full.
func (p *RealPort) Drops() uint32 {
	return p.drops.Load()
}

// Close turns the LEDs off and returns every line to input with pull-down
// (matching Pi boot defaults) before releasing it.
func (p *RealPort) Close() error {
	var errs []error

	if p.leds != nil {
		if err := p.leds.SetValues(make([]int, logic.Channels)); err != nil {
			errs = append(errs, fmt.Errorf("clear LED pins: %w", err))
		}
		if err := p.leds.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure LED pins: %w", err))
		}
		if err := p.leds.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close LED pins: %w", err))
		}
	}
	if p.hold != nil {
		if err := p.hold.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close hold pin: %w", err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.edges)
	}
	p.mu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
