package mqtt

import "log"

// bufferedMsg is an encoded publish waiting for the broker to come back.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer holds the newest publishes made while offline. Once full, each
// push evicts the oldest entry. Callers provide locking.
type ringBuffer struct {
	slots   []bufferedMsg
	oldest  int
	n       int
	dropped int // evictions since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{slots: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	size := len(r.slots)
	if r.n < size {
		r.slots[(r.oldest+r.n)%size] = msg
		r.n++
		return
	}
	if r.dropped == 0 {
		log.Printf("mqtt: offline buffer full at %d messages, evicting oldest", size)
	}
	r.dropped++
	r.slots[r.oldest] = msg
	r.oldest = (r.oldest + 1) % size
}

// drainAll empties the buffer, returning its contents in publish order.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.n == 0 {
		return nil
	}
	if r.dropped > 0 {
		log.Printf("mqtt: %d offline messages were evicted before reconnect", r.dropped)
	}
	out := make([]bufferedMsg, 0, r.n)
	for i := 0; i < r.n; i++ {
		out = append(out, r.slots[(r.oldest+i)%len(r.slots)])
		r.slots[(r.oldest+i)%len(r.slots)] = bufferedMsg{}
	}
	r.oldest, r.n, r.dropped = 0, 0, 0
	return out
}

func (r *ringBuffer) len() int { return r.n }
