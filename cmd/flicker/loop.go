package main

import (
	"log"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/flicker/internal/gpio"
	"github.com/sweeney/flicker/internal/logic"
	"github.com/sweeney/flicker/internal/mqtt"
	"github.com/sweeney/flicker/internal/status"
)

// loop is the single goroutine that owns the dispatcher. Each wakeup gathers
// every pending source before one Dispatch call, so invocations never
// overlap and coalesced sources keep their fixed order.
type loop struct {
	port       gpio.Port
	dispatcher *logic.Dispatcher
	publisher  *mqtt.Async // never blocks the loop
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	heartbeat  time.Duration
	now        func() time.Time

	pwmTick <-chan time.Time
	incTick <-chan time.Time
	edges   <-chan gpio.Edge
	sig     <-chan os.Signal
	quit    <-chan struct{}

	commitFailing bool
}

func (l *loop) run() error {
	for {
		var p logic.Pending
		select {
		case s := <-l.sig:
			log.Printf("received %v, shutting down", s)
			l.shutdown(signalName(s))
			return nil

		case <-l.quit:
			log.Printf("quit requested, shutting down")
			l.shutdown("QUIT")
			return nil

		case <-l.pwmTick:
			p.Sources = logic.SourcePwmTick

		case <-l.incTick:
			p.Sources = logic.SourceIncrementTick

		case e, ok := <-l.edges:
			if !ok {
				l.edges = nil
				continue
			}
			p.Sources = logic.SourceInputEdge
			p.Level = e.Level
		}

		l.collect(&p)
		p.Time = l.now()
		l.step(p)
	}
}

// collect adds any other source that is already pending without blocking.
func (l *loop) collect(p *logic.Pending) {
	if !p.Has(logic.SourcePwmTick) {
		select {
		case <-l.pwmTick:
			p.Sources |= logic.SourcePwmTick
		default:
		}
	}
	if !p.Has(logic.SourceIncrementTick) {
		select {
		case <-l.incTick:
			p.Sources |= logic.SourceIncrementTick
		default:
		}
	}
	if !p.Has(logic.SourceInputEdge) {
		select {
		case e, ok := <-l.edges:
			if !ok {
				l.edges = nil
				break
			}
			p.Sources |= logic.SourceInputEdge
			p.Level = e.Level
		default:
		}
	}
}

func (l *loop) step(p logic.Pending) {
	framesBefore := l.dispatcher.EventCountsSnapshot().Frames

	events, err := l.dispatcher.Dispatch(p)
	if err != nil {
		// Commit errors repeat on every PWM tick; log transitions only.
		if !l.commitFailing {
			log.Printf("dispatch error: %v", err)
			l.commitFailing = true
		}
	} else if l.commitFailing && p.Has(logic.SourcePwmTick) {
		log.Printf("output recovered")
		l.commitFailing = false
	}

	for _, event := range events {
		log.Printf("event: %s (brightness=%d hold=%s)", event.Type, event.Brightness, event.Hold)
		if err := l.publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
			// Don't crash on publish failure
		}
	}

	counts := l.dispatcher.EventCountsSnapshot()
	if l.tracker != nil && (p.Sources != logic.SourcePwmTick || counts.Frames != framesBefore) {
		l.tracker.Update(status.FlameOf(l.dispatcher.State()), counts)
		if d, ok := l.port.(interface{ Drops() uint32 }); ok {
			l.tracker.SetEdgeDrops(d.Drops())
		}
	}

	if p.Has(logic.SourceIncrementTick) {
		l.checkHeartbeat(p.Time)
	}
}

func (l *loop) checkHeartbeat(t time.Time) {
	hb := l.dispatcher.CheckHeartbeat(t, l.heartbeat)
	if hb == nil {
		return
	}
	log.Printf("heartbeat: uptime=%v brightness=%d hold=%s frames=%d hold_on=%d",
		hb.Uptime, hb.Brightness, hb.Hold, hb.Counts.Frames, hb.Counts.HoldOn)

	event := mqtt.SystemEvent{
		Timestamp: hb.Timestamp,
		Event:     "HEARTBEAT",
	}
	if l.tracker != nil {
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "HEARTBEAT", "")
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

func (l *loop) shutdown(reason string) {
	event := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if l.tracker != nil {
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
		l.tracker.Update(status.FlameOf(l.dispatcher.State()), l.dispatcher.EventCountsSnapshot())
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", reason)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to queue shutdown event: %v", err)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
