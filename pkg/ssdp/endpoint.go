package ssdp

import (
	"net"
	"strconv"

	"github.com/forestnode-io/ssdpd/pkg/upnp"
)

// EndpointConfiguration holds everything SSDP needs to know about one local
// address the server is reachable on.
type EndpointConfiguration struct {
	IP net.IP
	// Interface may be nil, in which case the system picks the interface
	// for multicast traffic.
	Interface *net.Interface

	SSDPMulticastAddress net.IP
	// SSDPSearchPort is the port the unicast socket is bound to. It differs
	// from DefaultSSDPSearchPort if that port was taken.
	SSDPSearchPort int

	// DescriptionURLs maps root device UDNs to the URL of their description
	// document on this endpoint. Only root devices in this map are
	// advertised on this endpoint.
	DescriptionURLs map[string]string

	multicastConn PacketConn
	unicastConn   PacketConn
}

func NewEndpointConfiguration(ip net.IP, iface *net.Interface, group net.IP) *EndpointConfiguration {
	return &EndpointConfiguration{
		IP:                   ip,
		Interface:            iface,
		SSDPMulticastAddress: group,
		SSDPSearchPort:       DefaultSSDPSearchPort,
		DescriptionURLs:      make(map[string]string),
	}
}

func (ep *EndpointConfiguration) IsIPv4() bool {
	return ep.IP.To4() != nil
}

func (ep *EndpointConfiguration) Network() string {
	if ep.IsIPv4() {
		return "udp4"
	}
	return "udp6"
}

// Zone is the interface name for IPv6 link-local endpoints, empty otherwise.
func (ep *EndpointConfiguration) Zone() string {
	if !ep.IsIPv4() && ep.IP.IsLinkLocalUnicast() && ep.Interface != nil {
		return ep.Interface.Name
	}
	return ""
}

func (ep *EndpointConfiguration) UsesSpecialSearchPort() bool {
	return ep.SSDPSearchPort != DefaultSSDPSearchPort
}

func (ep *EndpointConfiguration) DescriptionURL(root upnp.Device) (string, bool) {
	u, ok := ep.DescriptionURLs[root.UDN()]
	return u, ok
}

// MulticastHost is the value of the HOST header for this endpoint's group.
func (ep *EndpointConfiguration) MulticastHost() string {
	return net.JoinHostPort(ep.SSDPMulticastAddress.String(), strconv.Itoa(SSDPMulticastPort))
}

func (ep *EndpointConfiguration) multicastAddr() *net.UDPAddr {
	return &net.UDPAddr{
		IP:   ep.SSDPMulticastAddress,
		Port: SSDPMulticastPort,
		Zone: ep.Zone(),
	}
}

// sendConn returns the socket used for outgoing traffic. The unicast socket
// is preferred so that replies come from the search port.
func (ep *EndpointConfiguration) sendConn() PacketConn {
	if ep.unicastConn != nil {
		return ep.unicastConn
	}
	return ep.multicastConn
}

func (ep *EndpointConfiguration) String() string {
	s := ep.IP.String()
	if z := ep.Zone(); z != "" {
		s += "%" + z
	}
	return s
}
