package mqtt

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/sweeney/flicker/internal/logic"
)

// ErrQueueFull is returned when an event is dropped because the publish
// queue is full.
var ErrQueueFull = errors.New("mqtt: publish queue full")

// ErrClosed is returned by publishes after Close.
var ErrClosed = errors.New("mqtt: publisher closed")

// Async hands events to a goroutine that publishes them in order, so the
// caller never waits on the broker. A full queue drops the event and counts
// it.
type Async struct {
	inner Publisher
	jobs  chan func() error
	done  chan struct{}
	drops atomic.Uint32

	mu     sync.RWMutex
	closed bool
}

// NewAsync starts the publishing goroutine. buffer is the queue length.
func NewAsync(inner Publisher, buffer int) *Async {
	a := &Async{
		inner: inner,
		jobs:  make(chan func() error, buffer),
		done:  make(chan struct{}),
	}
	go a.worker()
	return a
}

func (a *Async) worker() {
	defer close(a.done)
	for job := range a.jobs {
		if err := job(); err != nil {
			log.Printf("publish error: %v", err)
		}
	}
}

func (a *Async) Publish(event logic.Event) error {
	return a.enqueue(func() error { return a.inner.Publish(event) })
}

func (a *Async) PublishSystem(event SystemEvent) error {
	return a.enqueue(func() error { return a.inner.PublishSystem(event) })
}

func (a *Async) enqueue(job func() error) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.jobs <- job:
		return nil
	default:
		a.drops.Add(1)
		return ErrQueueFull
	}
}

// Drops returns the number of events dropped on a full queue.
func (a *Async) Drops() uint32 {
	return a.drops.Load()
}

// Close publishes everything already queued, then closes the inner publisher.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.jobs)
	a.mu.Unlock()

	<-a.done
	return a.inner.Close()
}
