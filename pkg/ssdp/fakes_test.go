package ssdp

import (
	"context"
	"net"
	"sync"
	"time"
)

type packet struct {
	b       []byte
	addr    *net.UDPAddr
	dst     net.IP
	ifIndex int
}

type fakeConn struct {
	local *net.UDPAddr
	in    chan packet

	mu     sync.Mutex
	sent   []packet
	left   bool
	closed bool
	done   chan struct{}
}

func newFakeConn(local *net.UDPAddr) *fakeConn {
	return &fakeConn{
		local: local,
		in:    make(chan packet, 16),
		done:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadFrom(b []byte) (int, PacketInfo, error) {
	select {
	case p := <-c.in:
		return copy(b, p.b), PacketInfo{Src: p.addr, Dst: p.dst, IfIndex: p.ifIndex}, nil
	case <-c.done:
		return 0, PacketInfo{}, net.ErrClosed
	}
}

func (c *fakeConn) WriteTo(b []byte, dst *net.UDPAddr) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	c.sent = append(c.sent, packet{b: append([]byte(nil), b...), addr: dst})
	return len(b), nil
}

func (c *fakeConn) LocalAddr() net.Addr { return c.local }

func (c *fakeConn) LeaveGroup() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.left = true
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// take returns and forgets everything sent so far.
func (c *fakeConn) take() []packet {
	c.mu.Lock()
	defer c.mu.Unlock()
	sent := c.sent
	c.sent = nil
	return sent
}

type fakeListener struct {
	mu           sync.Mutex
	portTaken    bool
	assignedPort int
	multicast    []*fakeConn
	unicast      []*fakeConn
}

func (l *fakeListener) ListenMulticast(ctx context.Context, ep *EndpointConfiguration) (PacketConn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := newFakeConn(&net.UDPAddr{Port: SSDPMulticastPort})
	l.multicast = append(l.multicast, c)
	return c, nil
}

func (l *fakeListener) ListenUnicast(ctx context.Context, ep *EndpointConfiguration, port int) (PacketConn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if port == DefaultSSDPSearchPort && l.portTaken {
		return nil, ErrAddressInUse
	}
	if port == 0 {
		port = l.assignedPort
	}
	c := newFakeConn(&net.UDPAddr{IP: ep.IP, Port: port})
	l.unicast = append(l.unicast, c)
	return c, nil
}

type manualTimer struct {
	s       *manualScheduler
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) armed() []*manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ts []*manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			ts = append(ts, t)
		}
	}
	return ts
}

// fire runs t's callback unless it was stopped.
func (s *manualScheduler) fire(t *manualTimer) {
	s.mu.Lock()
	if t.stopped || t.fired {
		s.mu.Unlock()
		return
	}
	t.fired = true
	s.mu.Unlock()
	t.f()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
