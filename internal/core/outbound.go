package core

import "sync"

// Outbound is a bounded per-connection queue. Any number of goroutines may
// Send; a single writer drains C in enqueue order.
type Outbound struct {
	ch   chan string
	done chan struct{}
	once sync.Once
}

// NewOutbound constructs a queue holding at most size pending payloads.
func NewOutbound(size int) *Outbound {
	if size <= 0 {
		size = 1
	}
	return &Outbound{
		ch:   make(chan string, size),
		done: make(chan struct{}),
	}
}

// Send enqueues payload. It drops the payload when the queue is full or closed.
func (o *Outbound) Send(payload string) bool {
	select {
	case <-o.done:
		return false
	default:
	}

	select {
	case o.ch <- payload:
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}

// C is drained by the connection's writer.
func (o *Outbound) C() <-chan string {
	return o.ch
}

// Done is closed once the queue stops accepting payloads.
func (o *Outbound) Done() <-chan struct{} {
	return o.done
}

// Close stops accepting payloads. The data channel is never closed, so a
// Send racing teardown drops instead of panicking.
func (o *Outbound) Close() {
	o.once.Do(func() { close(o.done) })
}
