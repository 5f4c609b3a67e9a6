package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages while the broker is unreachable, oldest first.
//
// Retained messages on a topic replace any earlier retained message on the
// same topic, since the broker would only keep the last one. When full, the
// oldest QoS 0 flame event is evicted before any lifecycle message.
// Not safe for concurrent use; caller must synchronize.
type outbox struct {
	msgs     []bufferedMsg
	capacity int
	dropped  int // messages evicted since last drain
}

func newOutbox(capacity int) *outbox {
	return &outbox{
		msgs:     make([]bufferedMsg, 0, capacity),
		capacity: capacity,
	}
}

func (o *outbox) push(msg bufferedMsg) {
	if msg.retained {
		for i, m := range o.msgs {
			if m.retained && m.topic == msg.topic {
				o.remove(i)
				break
			}
		}
	}

	if len(o.msgs) == o.capacity {
		if o.dropped == 0 {
			log.Printf("mqtt: buffer full (%d messages), dropping oldest", o.capacity)
		}
		o.remove(o.victim())
		o.dropped++
	}
	o.msgs = append(o.msgs, msg)
}

// victim returns the index of the message to evict.
func (o *outbox) victim() int {
	for i, m := range o.msgs {
		if m.qos == 0 {
			return i
		}
	}
	return 0
}

func (o *outbox) remove(i int) {
	copy(o.msgs[i:], o.msgs[i+1:])
	o.msgs = o.msgs[:len(o.msgs)-1]
}

// drainAll returns the buffered messages in publish order and the number
// dropped since the previous drain.
func (o *outbox) drainAll() ([]bufferedMsg, int) {
	dropped := o.dropped
	o.dropped = 0
	if len(o.msgs) == 0 {
		return nil, dropped
	}
	result := make([]bufferedMsg, len(o.msgs))
	copy(result, o.msgs)
	o.msgs = o.msgs[:0]
	return result, dropped
}

func (o *outbox) len() int {
	return len(o.msgs)
}
