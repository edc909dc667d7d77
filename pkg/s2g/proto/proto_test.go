package proto

import "testing"

func TestRotationProtocolBasic(t *testing.T) {
	var p RotationProtocol[int]
	p.Start(3)
	if p.IsComplete() {
		t.Fatal("should not be complete before any receives")
	}
	if !p.IsRunning() {
		t.Fatal("should be running after Start")
	}
	p.Received(1)
	p.Received(2)
	if done := p.Received(3); !done {
		t.Fatal("third receive should complete the protocol")
	}
	if !p.IsComplete() {
		t.Fatal("expected complete")
	}
	if p.IsRunning() {
		t.Fatal("should not be running once complete")
	}
	if got := p.Values(); len(got) != 3 {
		t.Fatalf("len(Values()) = %d, want 3", len(got))
	}
}

func TestRotationProtocolPreStartBuffer(t *testing.T) {
	var p RotationProtocol[string]
	p.Received("early")
	if p.IsComplete() {
		t.Fatal("buffered message should not mark complete before Start")
	}
	p.Start(1)
	if !p.IsComplete() {
		t.Fatal("buffered message should fold in and complete on Start")
	}
	if got := p.Values(); len(got) != 1 || got[0] != "early" {
		t.Fatalf("Values() = %v, want [early]", got)
	}
}

func TestRotationProtocolResolveBuffer(t *testing.T) {
	var p RotationProtocol[int]
	p.Start(2)
	p.Received(1)
	p.Received(9) // arrives late, but after Start it's a normal receive now
	if !p.ResolveBuffer() {
		t.Fatal("expected complete after resolving")
	}
}

func TestSentCounter(t *testing.T) {
	var p RotationProtocol[int]
	if got := p.Sent(); got != 1 {
		t.Fatalf("Sent() = %d, want 1", got)
	}
	if got := p.Sent(); got != 2 {
		t.Fatalf("Sent() = %d, want 2", got)
	}
}

func TestDirectProtocol(t *testing.T) {
	var d DirectProtocol[int]
	d.Start(2)
	d.Sent()
	d.Sent()
	if d.Received(1) {
		t.Fatal("first receive of two should not complete")
	}
	if !d.Received(2) {
		t.Fatal("second receive of two should complete")
	}
	if !d.IsComplete() {
		t.Fatal("expected complete")
	}
}

func TestHelperProtocol(t *testing.T) {
	var h HelperProtocol
	h.Start(2)
	if !h.IsRunning() {
		t.Fatal("expected running after Start with pending work")
	}
	h.Sent()
	h.Sent()
	if h.Receive() {
		t.Fatal("first of two receives should not finish")
	}
	if !h.Receive() {
		t.Fatal("second of two receives should finish")
	}
	if h.IsRunning() {
		t.Fatal("should not be running once all work received")
	}
	if h.NSent != 2 || h.NReceived != 2 || h.NTotal != 2 {
		t.Fatalf("counters = %+v", h)
	}
}
