package mqtt

import (
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/flicker/internal/logic"
)

// doneToken is a completed paho token.
type doneToken struct{ err error }

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// scriptedClient answers IsConnectionOpen from a script (the last answer
// repeats) and records publishes. Methods the publisher does not use are
// left to the embedded nil interface.
type scriptedClient struct {
	paho.Client

	mu        sync.Mutex
	open      []bool
	published []published
}

func (c *scriptedClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.open[0]
	if len(c.open) > 1 {
		c.open = c.open[1:]
	}
	return v
}

func (c *scriptedClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{topic, qos, retained, payload.([]byte)})
	return doneToken{}
}

func newScriptedPublisher(open ...bool) (*RealPublisher, *scriptedClient) {
	c := &scriptedClient{open: open}
	return &RealPublisher{client: c, topic: Topic, buf: newOutbox(BufferSize)}, c
}

func TestRealPublisherSendsWhenConnected(t *testing.T) {
	p, c := newScriptedPublisher(true)
	if err := p.Publish(logic.Event{Type: logic.EventHoldOn}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(c.published) != 1 || c.published[0].topic != Topic || c.published[0].qos != 0 {
		t.Errorf("published: %+v", c.published)
	}
	if p.Buffered() != 0 {
		t.Errorf("buffered: got %d, want 0", p.Buffered())
	}
}

func TestRealPublisherBuffersWhileDisconnected(t *testing.T) {
	p, c := newScriptedPublisher(false)
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}
	if len(c.published) != 0 {
		t.Errorf("nothing should be sent while disconnected, got %d", len(c.published))
	}
	if p.Buffered() != 1 {
		t.Fatalf("buffered: got %d, want 1", p.Buffered())
	}

	p.flush() // as paho's OnConnect handler would
	if len(c.published) != 1 || c.published[0].topic != TopicSystem || !c.published[0].retained || c.published[0].qos != 1 {
		t.Errorf("replayed: %+v", c.published)
	}
}

func TestRealPublisherConnectDuringBuffering(t *testing.T) {
	// Closed at the first check, open by the time the message is buffered:
	// the connect handler's flush has already run and found nothing.
	p, c := newScriptedPublisher(false, true)
	if err := p.Publish(logic.Event{Type: logic.EventHoldOff}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if p.Buffered() != 0 {
		t.Errorf("message left in buffer after connect: %d", p.Buffered())
	}
	if len(c.published) != 1 || c.published[0].topic != Topic {
		t.Errorf("published: %+v", c.published)
	}
}
