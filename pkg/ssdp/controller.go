// Package ssdp implements the device side of the Simple Service Discovery
// Protocol: periodic advertisement of a UPnP device tree and answering
// M-SEARCH requests.
package ssdp

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/forestnode-io/ssdpd/pkg/upnp"
	"github.com/rs/zerolog"
)

type state int

const (
	stateStopped state = iota
	stateRunning
	stateStopping
)

type Option func(*Controller)

// WithListener replaces the socket factory.
func WithListener(l Listener) Option {
	return func(c *Controller) {
		c.listener = l
	}
}

func withScheduler(s scheduler) Option {
	return func(c *Controller) {
		c.sched = s
	}
}

func withClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func withRand(r *rand.Rand) Option {
	return func(c *Controller) {
		c.rnd = r
	}
}

// Controller drives SSDP for the endpoints and device tree in its
// ServerData.
type Controller struct {
	sd       *ServerData
	log      *zerolog.Logger
	listener Listener
	sched    scheduler
	now      func() time.Time
	rnd      *rand.Rand

	// guarded by sd's lock
	state              state
	advertisementTimer timer
	searchTimer        timer
	// generation changes on every Start and Close, advertisement callbacks of
	// an earlier run are ignored
	generation uint64

	wg sync.WaitGroup
}

// NewController takes its logger from ctx.
func NewController(ctx context.Context, sd *ServerData, opts ...Option) *Controller {
	c := Controller{
		sd:       sd,
		log:      zerolog.Ctx(ctx),
		listener: &NetListener{},
		sched:    timeScheduler{},
		now:      time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

func (c *Controller) AdvertisementExpirationTime() int {
	c.sd.Lock()
	defer c.sd.Unlock()
	return c.sd.AdvertisementExpirationTime
}

// SetAdvertisementExpirationTime takes effect from the next advertisement
// on.
func (c *Controller) SetAdvertisementExpirationTime(seconds int) {
	c.sd.Lock()
	defer c.sd.Unlock()
	c.sd.AdvertisementExpirationTime = seconds
}

// Start schedules the first advertisement after a short random delay and
// starts answering search requests.
func (c *Controller) Start() error {
	c.sd.Lock()
	defer c.sd.Unlock()

	if c.state != stateStopped {
		return ErrAlreadyStarted
	}
	c.state = stateRunning
	c.sd.active = true

	c.generation++

	delay := time.Duration(c.rnd.Int63n(int64(InitialAdvertisementMaxWait)))
	c.scheduleAdvertisement(delay)
	c.rearmSearchTimer()

	c.log.Debug().
		Dur("initialDelay", delay).
		Msg("ssdp controller started")

	return nil
}

// Close revokes all advertisements, stops the timers and closes every
// endpoint. It may be called more than once.
func (c *Controller) Close() error {
	c.sd.Lock()
	wasRunning := c.state == stateRunning
	if wasRunning {
		c.state = stateStopping
		c.revokeAdvertisements()
	}
	c.sd.active = false
	c.generation++
	if c.advertisementTimer != nil {
		c.advertisementTimer.Stop()
		c.advertisementTimer = nil
	}
	if c.searchTimer != nil {
		c.searchTimer.Stop()
		c.searchTimer = nil
	}
	c.sd.pending.clear()
	c.sd.Unlock()

	c.CloseSSDPEndpoints()
	c.wg.Wait()

	c.sd.Lock()
	c.state = stateStopped
	c.sd.Unlock()

	if wasRunning {
		c.log.Debug().Msg("ssdp controller stopped")
	}
	return nil
}

// Advertise sends ssdp:alive for the whole device tree on every endpoint.
func (c *Controller) Advertise() {
	c.sd.Lock()
	defer c.sd.Unlock()
	c.advertise()
}

// Update sends ssdp:update for the whole device tree and increments the
// boot id. It is meant for changes of the endpoint set.
func (c *Controller) Update() {
	c.sd.Lock()
	defer c.sd.Unlock()
	c.update()
}

// RevokeAdvertisements sends ssdp:byebye for the whole device tree.
func (c *Controller) RevokeAdvertisements() {
	c.sd.Lock()
	defer c.sd.Unlock()
	c.revokeAdvertisements()
}

func (c *Controller) base() senderBase {
	return senderBase{sd: c.sd, now: c.now, log: c.log}
}

func (c *Controller) advertise() {
	if c.sd.Server == nil {
		return
	}
	SendMessagesServer(c.sd.Server, &aliveMessageSender{senderBase: c.base()})
}

func (c *Controller) update() {
	if c.sd.Server == nil {
		return
	}
	next := c.sd.BootID + 1
	SendMessagesServer(c.sd.Server, &updateMessageSender{
		senderBase: c.base(),
		lastBootID: c.sd.BootID,
		nextBootID: next,
	})
	c.sd.BootID = next
}

func (c *Controller) revokeAdvertisements() {
	if c.sd.Server == nil {
		return
	}
	SendMessagesServer(c.sd.Server, &byeByeMessageSender{senderBase: c.base()})
}

// scheduleAdvertisement must be called with sd's lock held.
func (c *Controller) scheduleAdvertisement(d time.Duration) {
	gen := c.generation
	c.advertisementTimer = c.sched.AfterFunc(d, func() {
		c.onAdvertisementTimerElapsed(gen)
	})
}

func (c *Controller) onAdvertisementTimerElapsed(gen uint64) {
	if !c.sd.mu.TryLock(timerLockTimeout) {
		c.log.Warn().Msg("unable to acquire server lock for advertisement, retrying later")
		c.sched.AfterFunc(timerLockTimeout, func() {
			c.onAdvertisementTimerElapsed(gen)
		})
		return
	}
	defer c.sd.Unlock()

	if !c.sd.active || gen != c.generation {
		return
	}

	c.advertise()

	delay := c.advertisementInterval()
	c.scheduleAdvertisement(delay)
	c.log.Debug().
		Dur("next", delay).
		Msg("advertised device tree")
}

// advertisementInterval draws the delay to the next advertisement. It stays
// below half the expiration time and at or above MinAdvertisementInterval
// whenever the expiration time allows it, and never goes below
// minAdvertisementSpacing.
func (c *Controller) advertisementInterval() time.Duration {
	half := time.Duration(c.sd.AdvertisementExpirationTime) * time.Second / 2
	floor := MinAdvertisementInterval * time.Second

	switch {
	case half <= minAdvertisementSpacing:
		return minAdvertisementSpacing
	case half < floor:
		d := time.Duration(c.rnd.Int63n(int64(half/time.Millisecond))) * time.Millisecond
		if d < minAdvertisementSpacing {
			d = minAdvertisementSpacing
		}
		return d
	case half == floor:
		return floor
	default:
		return floor + time.Duration(c.rnd.Int63n(int64((half-floor)/time.Millisecond)))*time.Millisecond
	}
}

// StartSSDPEndpoints starts every endpoint in ServerData. Endpoints that
// fail to start are logged and left without sockets.
func (c *Controller) StartSSDPEndpoints(ctx context.Context) {
	c.sd.Lock()
	eps := append([]*EndpointConfiguration(nil), c.sd.Endpoints...)
	c.sd.Unlock()

	for _, ep := range eps {
		if err := c.StartSSDPEndpoint(ctx, ep); err != nil {
			c.log.Error().Err(err).
				Str("endpoint", ep.String()).
				Msg("unable to start ssdp endpoint")
		}
	}
}

// StartSSDPEndpoint binds the sockets of ep and starts receiving on them.
// The search port falls back to a system assigned one if the default port
// is taken.
func (c *Controller) StartSSDPEndpoint(ctx context.Context, ep *EndpointConfiguration) error {
	mc, err := c.listener.ListenMulticast(ctx, ep)
	if err != nil {
		// searches still arrive on the unicast socket
		c.log.Warn().Err(err).
			Str("endpoint", ep.String()).
			Msg("unable to receive ssdp multicast traffic")
		mc = nil
	}

	uc, err := c.listener.ListenUnicast(ctx, ep, DefaultSSDPSearchPort)
	if errors.Is(err, ErrAddressInUse) {
		c.log.Info().
			Str("endpoint", ep.String()).
			Int("port", DefaultSSDPSearchPort).
			Msg("default search port is taken, using a system assigned port")
		uc, err = c.listener.ListenUnicast(ctx, ep, 0)
	}
	if err != nil {
		if mc != nil {
			mc.Close()
		}
		return fmt.Errorf("unable to bind unicast socket for %s: %w", ep, err)
	}

	port := DefaultSSDPSearchPort
	if ua, ok := uc.LocalAddr().(*net.UDPAddr); ok && ua.Port != 0 {
		port = ua.Port
	}

	c.sd.Lock()
	ep.multicastConn = mc
	ep.unicastConn = uc
	ep.SSDPSearchPort = port
	c.sd.Unlock()

	if mc != nil {
		c.wg.Add(1)
		go c.receive(ep, mc, true)
	}
	c.wg.Add(1)
	go c.receive(ep, uc, false)

	c.log.Info().
		Str("endpoint", ep.String()).
		Str("group", ep.SSDPMulticastAddress.String()).
		Int("searchPort", port).
		Msg("ssdp endpoint started")

	return nil
}

// CloseSSDPEndpoints closes the sockets of every endpoint in ServerData.
func (c *Controller) CloseSSDPEndpoints() {
	c.sd.Lock()
	eps := append([]*EndpointConfiguration(nil), c.sd.Endpoints...)
	c.sd.Unlock()

	for _, ep := range eps {
		c.CloseSSDPEndpoint(ep, true)
	}
}

// CloseSSDPEndpoint closes the sockets of ep and drops searches received on
// it. Closing an endpoint twice is a no-op.
func (c *Controller) CloseSSDPEndpoint(ep *EndpointConfiguration, leaveGroup bool) {
	c.sd.Lock()
	mc, uc := ep.multicastConn, ep.unicastConn
	ep.multicastConn, ep.unicastConn = nil, nil
	c.sd.pending.dropEndpoint(ep)
	c.sd.Unlock()

	if mc != nil {
		if leaveGroup {
			if err := mc.LeaveGroup(); err != nil {
				c.log.Debug().Err(err).
					Str("endpoint", ep.String()).
					Msg("unable to leave multicast group")
			}
		}
		mc.Close()
	}
	if uc != nil {
		uc.Close()
	}
}

func (c *Controller) receive(ep *EndpointConfiguration, conn PacketConn, multicast bool) {
	defer c.wg.Done()

	buf := make([]byte, receiveBufferSize)
	for {
		n, info, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !c.owns(ep, conn) {
				c.log.Info().
					Str("endpoint", ep.String()).
					Bool("multicast", multicast).
					Msg("stopped listening for ssdp messages")
				return
			}
			c.log.Debug().Err(err).
				Str("endpoint", ep.String()).
				Msg("error reading ssdp socket")
			time.Sleep(readErrorBackoff)
			continue
		}

		if multicast && !c.accepts(ep, info) {
			continue
		}

		c.onSSDPReceive(ep, buf[:n], info.Src)
	}
}

// accepts filters what the multicast socket of ep reads. The socket is bound
// to the wildcard address, so it also sees the traffic of other interfaces
// and the groups of sibling endpoints on the same interface.
func (c *Controller) accepts(ep *EndpointConfiguration, info PacketInfo) bool {
	if info.IfIndex != 0 && ep.Interface != nil && info.IfIndex != ep.Interface.Index {
		return false
	}
	if info.Dst == nil || info.Dst.Equal(ep.SSDPMulticastAddress) {
		return true
	}
	if !info.Dst.IsMulticast() {
		return info.Dst.Equal(ep.IP)
	}

	c.sd.Lock()
	defer c.sd.Unlock()
	for _, other := range c.sd.Endpoints {
		if other == ep || other.multicastConn == nil {
			continue
		}
		if other.Interface != nil && ep.Interface != nil && other.Interface.Index != ep.Interface.Index {
			continue
		}
		if info.Dst.Equal(other.SSDPMulticastAddress) {
			return false
		}
	}
	return true
}

// owns reports whether conn still belongs to ep.
func (c *Controller) owns(ep *EndpointConfiguration, conn PacketConn) bool {
	c.sd.Lock()
	defer c.sd.Unlock()
	return ep.multicastConn == conn || ep.unicastConn == conn
}

func (c *Controller) onSSDPReceive(ep *EndpointConfiguration, b []byte, src *net.UDPAddr) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().
				Str("endpoint", ep.String()).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("unexpected failure handling ssdp packet")
		}
	}()

	c.sd.Lock()
	active := c.sd.active
	c.sd.Unlock()
	if !active {
		return
	}

	m, err := ParseMessage(b)
	if err != nil {
		c.log.Debug().Err(err).
			Str("endpoint", ep.String()).
			Stringer("from", src).
			Msg("unable to parse incoming packet")
		return
	}

	if err := c.HandleSSDPRequest(m, ep, src); err != nil {
		c.log.Debug().Err(err).
			Str("endpoint", ep.String()).
			Stringer("from", src).
			Msg("rejected ssdp request")
	}
}

// HandleSSDPRequest validates an incoming request and queues a search
// response. Only M-SEARCH is answered, other methods are ignored.
func (c *Controller) HandleSSDPRequest(m *Message, ep *EndpointConfiguration, src *net.UDPAddr) error {
	if m.Method != methodMSearch {
		return nil
	}
	if m.Target != "*" {
		return fmt.Errorf("%w: request target %q", ErrInvalidRequest, m.Target)
	}
	if man := m.Header.Get(headerMan); man != ssdpDiscover {
		return fmt.Errorf("%w: MAN %q", ErrInvalidRequest, man)
	}

	mx := 0
	if m.Header.Has(headerMX) {
		v := m.Header.Get(headerMX)
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 1 {
			return fmt.Errorf("%w: %q", ErrInvalidMX, v)
		}
		mx = n
		if mx > MaxSearchResponseDelay {
			mx = MaxSearchResponseDelay
		}
	}

	st := strings.TrimSpace(m.Header.Get(headerST))
	if st == "" {
		return ErrMissingSearchTarget
	}

	if m.Header.Has(headerUserAgent) {
		if err := checkUserAgent(m.Header.Get(headerUserAgent)); err != nil {
			return err
		}
	}

	c.delaySearchResponse(&PendingSearchRequest{
		ST:        st,
		Endpoint:  ep,
		Requester: src,
	}, mx)

	return nil
}

func (c *Controller) delaySearchResponse(ps *PendingSearchRequest, mx int) {
	c.sd.Lock()
	defer c.sd.Unlock()

	if !c.sd.active {
		return
	}

	var delay time.Duration
	if mx > 0 {
		delay = time.Duration(c.rnd.Intn(mx*1000+1)) * time.Millisecond
	}
	ps.Deadline = c.now().Add(delay)
	c.sd.pending.push(ps)
	c.rearmSearchTimer()
}

// rearmSearchTimer points the search timer at the earliest pending
// deadline. The caller holds the lock.
func (c *Controller) rearmSearchTimer() {
	if c.searchTimer != nil {
		c.searchTimer.Stop()
		c.searchTimer = nil
	}
	next, ok := c.sd.pending.next()
	if !ok {
		return
	}
	d := next.Sub(c.now())
	if d < 0 {
		d = 0
	}
	c.searchTimer = c.sched.AfterFunc(d, c.onSearchResponseTimerElapsed)
}

func (c *Controller) onSearchResponseTimerElapsed() {
	c.sd.Lock()
	defer c.sd.Unlock()

	if !c.sd.active {
		return
	}
	for _, ps := range c.sd.pending.popDue(c.now()) {
		c.processSearch(ps)
	}
	c.rearmSearchTimer()
}

// ProcessSearch answers ps right away.
func (c *Controller) ProcessSearch(ps *PendingSearchRequest) {
	c.sd.Lock()
	defer c.sd.Unlock()
	c.processSearch(ps)
}

func (c *Controller) processSearch(ps *PendingSearchRequest) {
	server := c.sd.Server
	if server == nil {
		return
	}
	sender := &searchResultMessageSender{
		senderBase: c.base(),
		endpoint:   ps.Endpoint,
		requester:  ps.Requester,
	}

	switch {
	case ps.ST == ST_All:
		SendMessagesServer(server, sender)
	case ps.ST == upnp.URN_RootDevice:
		for _, root := range server.RootDevices() {
			sender.SendMessage(upnp.URN_RootDevice, root.UDN()+"::"+upnp.URN_RootDevice, root)
		}
	case strings.HasPrefix(ps.ST, upnp.UUIDPrefix):
		d := upnp.FindDeviceByUDN(server, ps.ST)
		if d == nil {
			c.log.Debug().
				Str("st", ps.ST).
				Msg("search for unknown device")
			return
		}
		sender.SendMessage(d.UDN(), d.UDN(), d.RootDevice())
	case upnp.IsDeviceURN(ps.ST):
		typ, version, err := upnp.ParseTypeVersionURN(ps.ST)
		if err != nil {
			c.log.Debug().Err(err).
				Str("st", ps.ST).
				Msg("unable to parse device search target")
			return
		}
		for _, d := range upnp.FindDevicesByTypeAndVersion(server, typ, version, true) {
			urn := d.DeviceTypeVersionURN()
			sender.SendMessage(urn, d.UDN()+"::"+urn, d.RootDevice())
		}
	case upnp.IsServiceURN(ps.ST):
		typ, version, err := upnp.ParseTypeVersionURN(ps.ST)
		if err != nil {
			c.log.Debug().Err(err).
				Str("st", ps.ST).
				Msg("unable to parse service search target")
			return
		}
		for _, root := range server.RootDevices() {
			for _, s := range upnp.FindServicesByTypeAndVersion(root, typ, version, true) {
				urn := s.ServiceTypeVersionURN()
				parent := s.ParentDevice()
				sender.SendMessage(urn, parent.UDN()+"::"+urn, parent.RootDevice())
			}
		}
	default:
		c.log.Debug().
			Str("st", ps.ST).
			Msg("ignoring search with unknown search target")
	}
}
