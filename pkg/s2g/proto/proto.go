// Package proto implements the small counting/buffering protocols that
// coordinate a pipeline stage across peers: a ring-rotation handoff
// (RotationProtocol), an all-to-all direct exchange (DirectProtocol), and a
// worker-pool completion tracker with no payload of its own (HelperProtocol).
//
// None of the three dial or frame anything themselves — pkg/s2g/transport
// owns the wire. These are pure, lock-free bookkeeping types driven by a
// single coordinator goroutine per stage, exactly the way the teacher keeps
// its pipeline.Runner state untouched by anything but the run loop.
package proto

// RotationProtocol tracks a single value of type T rotating once around the
// peer ring: each peer sends to its successor and receives from its
// predecessor. A message that arrives before Start has been called (the
// receiving peer is still finishing local work) is buffered and replayed
// once Start runs, so arrival order across peers never matters.
type RotationProtocol[T any] struct {
	total     int
	sent      int
	received  []T
	buffer    []T
	started   bool
}

// Start begins the protocol, expecting n total messages to be received
// before it completes. Any messages buffered by Received calls that arrived
// before Start was called are folded in immediately.
func (p *RotationProtocol[T]) Start(n int) {
	p.total = n
	p.started = true
	if len(p.buffer) > 0 {
		p.received = append(p.received, p.buffer...)
		p.buffer = nil
	}
}

// Sent records an outgoing message and returns the running sent count.
func (p *RotationProtocol[T]) Sent() int {
	p.sent++
	return p.sent
}

// Received records an incoming message. If the protocol hasn't been
// Started yet, it is buffered for replay. Returns true once this message
// brings the protocol to completion (all n messages received).
func (p *RotationProtocol[T]) Received(msg T) bool {
	if !p.started {
		p.buffer = append(p.buffer, msg)
		return false
	}
	p.received = append(p.received, msg)
	return len(p.received) >= p.total
}

// ResolveBuffer folds any messages that arrived before Start into the
// received set and reports whether the protocol is now complete. It is a
// no-op if Start has not been called or the buffer is empty.
func (p *RotationProtocol[T]) ResolveBuffer() bool {
	if !p.started || len(p.buffer) == 0 {
		return p.IsComplete()
	}
	p.received = append(p.received, p.buffer...)
	p.buffer = nil
	return p.IsComplete()
}

// IsRunning reports whether Start has been called and the protocol has not
// yet received all expected messages.
func (p *RotationProtocol[T]) IsRunning() bool {
	return p.started && !p.IsComplete()
}

// IsComplete reports whether all expected messages have been received.
func (p *RotationProtocol[T]) IsComplete() bool {
	return p.started && len(p.received) >= p.total
}

// Values returns the messages received so far, in arrival order.
func (p *RotationProtocol[T]) Values() []T { return p.received }

// DirectProtocol tracks an all-to-all exchange: every peer sends one
// message directly to every other peer and expects one back from each, so
// completion requires n-1 receives in an n-peer cluster (symmetric
// one-send/one-receive-per-peer). It shares RotationProtocol's buffering
// behavior for early arrivals.
type DirectProtocol[T any] struct {
	inner RotationProtocol[T]
}

// Start expects n peer responses (n is typically nClusterNodes-1).
func (d *DirectProtocol[T]) Start(n int) { d.inner.Start(n) }

// Sent records an outgoing message to one peer.
func (d *DirectProtocol[T]) Sent() int { return d.inner.Sent() }

// Received records a message from one peer, returning true if this
// completes the exchange.
func (d *DirectProtocol[T]) Received(msg T) bool { return d.inner.Received(msg) }

// ResolveBuffer folds pre-Start arrivals in, as RotationProtocol.ResolveBuffer.
func (d *DirectProtocol[T]) ResolveBuffer() bool { return d.inner.ResolveBuffer() }

// IsRunning mirrors RotationProtocol.IsRunning.
func (d *DirectProtocol[T]) IsRunning() bool { return d.inner.IsRunning() }

// IsComplete mirrors RotationProtocol.IsComplete.
func (d *DirectProtocol[T]) IsComplete() bool { return d.inner.IsComplete() }

// Values returns the messages received so far.
func (d *DirectProtocol[T]) Values() []T { return d.inner.Values() }

// HelperProtocol tracks worker-pool dispatch/completion counts for a stage
// that has no payload worth typing (e.g. node-question answering, where the
// answer is written straight into the DataStore by the worker instead of
// being collected here).
type HelperProtocol struct {
	NTotal    int
	NSent     int
	NReceived int
}

// Start records the total amount of work expected.
func (h *HelperProtocol) Start(n int) { h.NTotal = n }

// Sent increments the sent counter.
func (h *HelperProtocol) Sent() { h.NSent++ }

// Receive increments the received counter and reports whether all expected
// work has now completed.
func (h *HelperProtocol) Receive() bool {
	h.NReceived++
	return h.NReceived >= h.NTotal
}

// IsRunning reports whether work has started but not yet fully completed.
func (h *HelperProtocol) IsRunning() bool {
	return h.NTotal > 0 && h.NReceived < h.NTotal
}
