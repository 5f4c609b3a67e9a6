//go:build rp2040 || rp2350

// Command flicker-pico runs the flame on a Raspberry Pi Pico. Build with
// TinyGo: tinygo flash -target=pico ./cmd/flicker-pico
package main

import (
	"log/slog"
	"machine"
	"sync/atomic"
	"time"

	"github.com/sweeney/flicker/internal/logic"
)

const (
	pwmTick   = 256 * time.Microsecond
	increment = 262144 * time.Microsecond
)

var (
	led1 = machine.GP15
	led2 = machine.GP14
	hold = machine.GP16
)

// pinPort drives both LEDs. The two writes happen back to back with no
// scheduling point between them.
type pinPort struct {
	pins [logic.Channels]machine.Pin
}

func (p *pinPort) Commit(levels logic.Levels) error {
	for i, pin := range p.pins {
		pin.Set(levels[i])
	}
	return nil
}

type tickerTimer struct {
	t      *time.Ticker
	period time.Duration
}

func (t *tickerTimer) Restart() { t.t.Reset(t.period) }

type clockCounter struct{ since time.Time }

func (c clockCounter) Count() uint32 { return uint32(time.Since(c.since).Nanoseconds()) }

type wallCounter struct{}

func (wallCounter) Count() uint32 { return uint32(time.Now().UnixNano() >> 8) }

// edgePending is set from the pin interrupt and cleared by the loop.
var edgePending atomic.Bool

func main() {
	boot := time.Now()
	logger := slog.New(slog.NewTextHandler(machine.Serial, nil))

	port := &pinPort{pins: [logic.Channels]machine.Pin{led1, led2}}
	for _, pin := range port.pins {
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pin.Low()
	}
	hold.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	if err := hold.SetInterrupt(machine.PinToggle, func(machine.Pin) {
		edgePending.Store(true)
	}); err != nil {
		logger.Error("hold interrupt", slog.String("err", err.Error()))
	}

	state := logic.NewState(0)
	state.Rand.SeedFrom(wallCounter{}, clockCounter{since: boot})

	pwm := time.NewTicker(pwmTick)
	inc := &tickerTimer{t: time.NewTicker(increment), period: increment}
	d := logic.NewDispatcher(state, port, inc, boot)

	logger.Info("flicker started", slog.Duration("pwm_tick", pwmTick), slog.Duration("increment", increment))

	for {
		var p logic.Pending
		select {
		case <-pwm.C:
			p.Sources = logic.SourcePwmTick
		case <-inc.t.C:
			p.Sources = logic.SourceIncrementTick
		}
		select {
		case <-inc.t.C:
			p.Sources |= logic.SourceIncrementTick
		default:
		}
		select {
		case <-pwm.C:
			p.Sources |= logic.SourcePwmTick
		default:
		}
		if edgePending.Swap(false) {
			p.Sources |= logic.SourceInputEdge
			p.Level = hold.Get()
		}
		p.Time = time.Now()

		events, err := d.Dispatch(p)
		if err != nil {
			logger.Error("dispatch", slog.String("err", err.Error()))
		}
		for _, e := range events {
			logger.Info("event",
				slog.String("type", string(e.Type)),
				slog.Int("brightness", int(e.Brightness)),
				slog.String("hold", e.Hold.String()))
		}
	}
}
