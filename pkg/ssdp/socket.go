package ssdp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// PacketInfo tells where a datagram came from and how it arrived. Dst and
// IfIndex are zero if the platform does not report them.
type PacketInfo struct {
	Src     *net.UDPAddr
	Dst     net.IP
	IfIndex int
}

// PacketConn is the part of a UDP socket the controller needs.
type PacketConn interface {
	ReadFrom(b []byte) (int, PacketInfo, error)
	WriteTo(b []byte, dst *net.UDPAddr) (int, error)
	LocalAddr() net.Addr
	LeaveGroup() error
	Close() error
}

// Listener creates the sockets of an endpoint.
type Listener interface {
	// ListenMulticast binds to the SSDP port and joins the endpoint's group.
	ListenMulticast(ctx context.Context, ep *EndpointConfiguration) (PacketConn, error)
	// ListenUnicast binds to the endpoint's address. Errors caused by the
	// port being taken wrap ErrAddressInUse.
	ListenUnicast(ctx context.Context, ep *EndpointConfiguration, port int) (PacketConn, error)
}

// NetListener opens real sockets with SO_REUSEADDR set.
type NetListener struct {
	TTL      int
	HopLimit int
}

func (l *NetListener) listenConfig() *net.ListenConfig {
	return &net.ListenConfig{Control: reuseAddrControl}
}

func (l *NetListener) ListenMulticast(ctx context.Context, ep *EndpointConfiguration) (PacketConn, error) {
	// bind the wildcard address, not every platform lets us bind the group.
	// Datagrams for other interfaces are filtered by the interface index.
	c, err := l.listenConfig().ListenPacket(ctx, ep.Network(), ":"+strconv.Itoa(SSDPMulticastPort))
	if err != nil {
		return nil, fmt.Errorf("unable to bind multicast socket: %w", err)
	}

	group := &net.UDPAddr{IP: ep.SSDPMulticastAddress}
	if ep.IsIPv4() {
		pc := ipv4.NewPacketConn(c)
		if err := pc.JoinGroup(ep.Interface, group); err != nil {
			c.Close()
			return nil, fmt.Errorf("unable to join %s: %w", ep.SSDPMulticastAddress, err)
		}
		// not supported on every platform
		_ = pc.SetControlMessage(ipv4.FlagDst|ipv4.FlagInterface, true)
		return &conn4{pc: pc, iface: ep.Interface, group: group}, nil
	}

	pc := ipv6.NewPacketConn(c)
	var joined []*net.UDPAddr
	for i, g := range multicastGroupsV6(ep.SSDPMulticastAddress) {
		group := &net.UDPAddr{IP: g}
		if err := pc.JoinGroup(ep.Interface, group); err != nil {
			if i == 0 {
				c.Close()
				return nil, fmt.Errorf("unable to join %s: %w", g, err)
			}
			// the other scopes are best effort, interface-local in
			// particular is not supported everywhere
			continue
		}
		joined = append(joined, group)
	}
	_ = pc.SetControlMessage(ipv6.FlagDst|ipv6.FlagInterface, true)
	return &conn6{pc: pc, iface: ep.Interface, groups: joined}, nil
}

// multicastGroupsV6 lists the SSDP groups an IPv6 endpoint listens on, its
// own group first. Control points search on any scope, most of them on
// link-local.
func multicastGroupsV6(own net.IP) []net.IP {
	groups := []net.IP{own}
	for _, g := range SSDPMulticastGroupsV6 {
		if !g.Equal(own) {
			groups = append(groups, g)
		}
	}
	return groups
}

func (l *NetListener) ListenUnicast(ctx context.Context, ep *EndpointConfiguration, port int) (PacketConn, error) {
	host := ep.IP.String()
	if z := ep.Zone(); z != "" {
		host += "%" + z
	}
	c, err := l.listenConfig().ListenPacket(ctx, ep.Network(), net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		if isAddrInUse(err) {
			return nil, fmt.Errorf("%w: %v", ErrAddressInUse, err)
		}
		return nil, fmt.Errorf("unable to bind unicast socket: %w", err)
	}

	// multicast traffic is sent from this socket too, so that the source
	// port matches the search port
	if ep.IsIPv4() {
		pc := ipv4.NewPacketConn(c)
		if ep.Interface != nil {
			if err := pc.SetMulticastInterface(ep.Interface); err != nil {
				c.Close()
				return nil, fmt.Errorf("unable to set multicast interface: %w", err)
			}
		}
		if err := pc.SetMulticastTTL(l.ttl()); err != nil {
			c.Close()
			return nil, fmt.Errorf("unable to set multicast ttl: %w", err)
		}
		_ = pc.SetMulticastLoopback(true)
		return &conn4{pc: pc, iface: ep.Interface}, nil
	}

	pc := ipv6.NewPacketConn(c)
	if ep.Interface != nil {
		if err := pc.SetMulticastInterface(ep.Interface); err != nil {
			c.Close()
			return nil, fmt.Errorf("unable to set multicast interface: %w", err)
		}
	}
	if err := pc.SetMulticastHopLimit(l.hopLimit()); err != nil {
		c.Close()
		return nil, fmt.Errorf("unable to set multicast hop limit: %w", err)
	}
	_ = pc.SetMulticastLoopback(true)
	return &conn6{pc: pc, iface: ep.Interface}, nil
}

func (l *NetListener) ttl() int {
	if l.TTL <= 0 {
		return DefaultTTLv4
	}
	return l.TTL
}

func (l *NetListener) hopLimit() int {
	if l.HopLimit <= 0 {
		return DefaultHopLimitV6
	}
	return l.HopLimit
}

type conn4 struct {
	pc    *ipv4.PacketConn
	iface *net.Interface
	group *net.UDPAddr
}

func (c *conn4) ReadFrom(b []byte) (int, PacketInfo, error) {
	n, cm, src, err := c.pc.ReadFrom(b)
	if err != nil {
		return 0, PacketInfo{}, err
	}
	info := PacketInfo{}
	info.Src, _ = src.(*net.UDPAddr)
	if cm != nil {
		info.Dst, info.IfIndex = cm.Dst, cm.IfIndex
	}
	return n, info, nil
}

func (c *conn4) WriteTo(b []byte, dst *net.UDPAddr) (int, error) {
	return c.pc.WriteTo(b, nil, dst)
}

func (c *conn4) LocalAddr() net.Addr { return c.pc.LocalAddr() }

func (c *conn4) LeaveGroup() error {
	if c.group == nil {
		return nil
	}
	return c.pc.LeaveGroup(c.iface, c.group)
}

func (c *conn4) Close() error { return c.pc.Close() }

type conn6 struct {
	pc     *ipv6.PacketConn
	iface  *net.Interface
	groups []*net.UDPAddr
}

func (c *conn6) ReadFrom(b []byte) (int, PacketInfo, error) {
	n, cm, src, err := c.pc.ReadFrom(b)
	if err != nil {
		return 0, PacketInfo{}, err
	}
	info := PacketInfo{}
	info.Src, _ = src.(*net.UDPAddr)
	if cm != nil {
		info.Dst, info.IfIndex = cm.Dst, cm.IfIndex
	}
	return n, info, nil
}

func (c *conn6) WriteTo(b []byte, dst *net.UDPAddr) (int, error) {
	return c.pc.WriteTo(b, nil, dst)
}

func (c *conn6) LocalAddr() net.Addr { return c.pc.LocalAddr() }

func (c *conn6) LeaveGroup() error {
	var errs []error
	for _, g := range c.groups {
		if err := c.pc.LeaveGroup(c.iface, g); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *conn6) Close() error { return c.pc.Close() }
