// Package tui renders the LED outputs in a terminal and maps the space bar to
// the hold input, so the flicker can be watched without hardware.
package tui

import (
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/sweeney/flicker/internal/gpio"
	"github.com/sweeney/flicker/internal/logic"
)

// Period is the number of commits averaged into one rendered frame: one full
// PWM counter cycle.
const Period = 256

const (
	ledWidth  = 8
	ledHeight = 4
	ledGap    = 4
	originX   = 2
	originY   = 1
)

// Port is a gpio.Port backed by a tcell screen.
type Port struct {
	screen tcell.Screen

	mu     sync.Mutex
	hold   bool
	closed bool
	edges  chan gpio.Edge
	quit   chan struct{}
	done   chan struct{}

	// written only from the dispatching goroutine
	onTicks [logic.Channels]int
	ticks   int
}

// New initializes screen and starts reading keys from it.
func New(screen tcell.Screen, buffer int) (*Port, error) {
	if buffer <= 0 {
		buffer = 16
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}
	p := &Port{
		screen: screen,
		edges:  make(chan gpio.Edge, buffer),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	screen.Clear()
	p.render([logic.Channels]uint8{})
	go p.pollKeys()
	return p, nil
}

// NewTerminal opens the controlling terminal.
func NewTerminal(buffer int) (*Port, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("open terminal: %w", err)
	}
	return New(screen, buffer)
}

func (p *Port) pollKeys() {
	defer close(p.done)
	for {
		ev := p.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
				p.requestQuit()
			case ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
				p.requestQuit()
			case ev.Key() == tcell.KeyRune && ev.Rune() == ' ':
				p.toggle()
			}
		case *tcell.EventResize:
			p.screen.Sync()
		}
	}
}

func (p *Port) toggle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.hold = !p.hold
	select {
	case p.edges <- gpio.Edge{Level: p.hold, Time: time.Now()}:
	default:
		// keep the reported level consistent with what was delivered
		p.hold = !p.hold
	}
}

func (p *Port) requestQuit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.quit:
	default:
		close(p.quit)
	}
}

// Quit is closed when the user asks to exit.
func (p *Port) Quit() <-chan struct{} {
	return p.quit
}

// Commit accumulates levels and redraws once per PWM period with the
// averaged duty of each LED.
func (p *Port) Commit(levels logic.Levels) error {
	for i, on := range levels {
		if on {
			p.onTicks[i]++
		}
	}
	p.ticks++
	if p.ticks < Period {
		return nil
	}
	var duty [logic.Channels]uint8
	for i, n := range p.onTicks {
		duty[i] = uint8(n * 255 / p.ticks)
		p.onTicks[i] = 0
	}
	p.ticks = 0
	p.render(duty)
	return nil
}

// Edges delivers hold toggles from the space bar.
func (p *Port) Edges() <-chan gpio.Edge {
	return p.edges
}

// Level returns the current hold level.
func (p *Port) Level() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hold, nil
}

// Close restores the terminal.
func (p *Port) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.edges)
	p.mu.Unlock()

	p.screen.Fini()
	<-p.done
	return nil
}

// flameColor maps a duty to a warm color, black at 0.
func flameColor(duty uint8) tcell.Color {
	d := int32(duty)
	return tcell.NewRGBColor(d, d*150/255, d*40/255)
}

func (p *Port) render(duty [logic.Channels]uint8) {
	for i, d := range duty {
		style := tcell.StyleDefault.Foreground(flameColor(d))
		x0 := originX + i*(ledWidth+ledGap)
		for y := 0; y < ledHeight; y++ {
			for x := 0; x < ledWidth; x++ {
				p.screen.SetContent(x0+x, originY+y, '█', nil, style)
			}
		}
		label := fmt.Sprintf("LED%d %3d", i+1, d)
		drawText(p.screen, x0, originY+ledHeight+1, label, tcell.StyleDefault)
	}

	p.mu.Lock()
	hold := p.hold
	p.mu.Unlock()
	state := "released"
	if hold {
		state = "HELD    "
	}
	drawText(p.screen, originX, originY+ledHeight+3, "hold: "+state+"  [space] toggle  [q] quit", tcell.StyleDefault)
	p.screen.Show()
}

func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for i, r := range text {
		s.SetContent(x+i, y, r, nil, style)
	}
}

var _ gpio.Port = (*Port)(nil)
