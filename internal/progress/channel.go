package progress

import "sync"

// Event is one of Update, Log, Result or Batch.
type Event interface{}

// Channel is a Reporter that forwards events onto a buffered channel so a
// consumer on another goroutine (a UI loop, a CLI printer) can read them.
//
// Update and Log are best effort and are dropped when the buffer is full.
// Result and Batch always block until delivered.
type Channel struct {
	mu     sync.RWMutex
	ch     chan Event
	closed bool
}

// NewChannel returns a Channel with the given buffer size.
func NewChannel(size int) *Channel {
	if size <= 0 {
		size = 256
	}
	return &Channel{ch: make(chan Event, size)}
}

// Events returns the receive side. It is closed by Close.
func (c *Channel) Events() <-chan Event {
	return c.ch
}

// Close stops delivery and closes the events channel. Sends after Close are
// discarded.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

func (c *Channel) Update(u Update) {
	// Stage transitions carry no percent; keep them so the consumer never
	// misses a state change.
	if u.Percent < 0 {
		c.send(u)
		return
	}
	c.trySend(u)
}

func (c *Channel) Log(l Log) {
	c.trySend(l)
}

func (c *Channel) Result(r Result) {
	c.send(r)
}

func (c *Channel) Batch(b Batch) {
	c.send(b)
}

func (c *Channel) send(e Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	c.ch <- e
}

func (c *Channel) trySend(e Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- e:
	default:
	}
}
