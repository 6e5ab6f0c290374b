package network

import (
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/jackpal/gateway"
)

var (
	SSDPMulticastAddressV4          = net.IPv4(239, 255, 255, 250)
	SSDPMulticastAddressV6NodeLocal = net.ParseIP("ff01::c")
	SSDPMulticastAddressV6LinkLocal = net.ParseIP("ff02::c")
	SSDPMulticastAddressV6SiteLocal = net.ParseIP("ff05::c")
	SSDPMulticastAddressV6Global    = net.ParseIP("ff0e::c")
)

// Address is a local unicast address together with the interface it lives on.
type Address struct {
	IP        net.IP
	Interface net.Interface
}

func (a Address) IsIPv4() bool {
	return a.IP.To4() != nil
}

// Zone returns the IPv6 zone needed to use a link-local address.
func (a Address) Zone() string {
	if !a.IsIPv4() && a.IP.IsLinkLocalUnicast() {
		return a.Interface.Name
	}
	return ""
}

func (a Address) String() string {
	if z := a.Zone(); z != "" {
		return a.IP.String() + "%" + z
	}
	return a.IP.String()
}

type AddressOptions struct {
	IPv4 bool
	IPv6 bool
	// Filter restricts the result to these addresses when not empty.
	Filter []string
	// DefaultRouteOnly restricts the result to the address used to reach
	// the default gateway.
	DefaultRouteOnly bool
}

// UPnPEnabledAddresses returns all addresses on interfaces that are up and
// multicast capable, ordered by scope. Loopback addresses are skipped since
// multicast does not work on them.
func UPnPEnabledAddresses(opts AddressOptions) ([]Address, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var defaultIP net.IP
	if opts.DefaultRouteOnly {
		s, err := GetSourceIP("", 0)
		if err != nil {
			return nil, fmt.Errorf("unable to determine default route address: %w", err)
		}
		defaultIP = net.ParseIP(s)
	}

	var result []Address
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			default:
				continue
			}

			a := Address{IP: ip, Interface: iface}
			if !opts.accepts(a, defaultIP) {
				continue
			}
			result = append(result, a)
		}
	}

	return OrderAddressesByScope(result), nil
}

func (o *AddressOptions) accepts(a Address, defaultIP net.IP) bool {
	if a.IP.IsLoopback() || a.IP.IsUnspecified() || a.IP.IsMulticast() {
		return false
	}
	if a.IsIPv4() && !o.IPv4 {
		return false
	}
	if !a.IsIPv4() && !o.IPv6 {
		return false
	}
	if defaultIP != nil && !a.IP.Equal(defaultIP) {
		return false
	}
	if len(o.Filter) == 0 {
		return true
	}
	for _, f := range o.Filter {
		// IPv6 addresses may be written in any case
		if strings.EqualFold(f, a.IP.String()) || strings.EqualFold(f, a.String()) {
			return true
		}
	}
	return false
}

// linkDistance orders addresses so that the most local ones come first.
func linkDistance(ip net.IP) int {
	switch {
	case ip.IsLoopback():
		return 0
	case ip.IsLinkLocalUnicast():
		return 1
	case isSiteLocal(ip) || ip.IsPrivate():
		return 2
	default:
		return 3
	}
}

func OrderAddressesByScope(addrs []Address) []Address {
	result := make([]Address, len(addrs))
	copy(result, addrs)
	sort.SliceStable(result, func(i, j int) bool {
		return linkDistance(result[i].IP) < linkDistance(result[j].IP)
	})
	return result
}

// isSiteLocal reports whether ip is in the deprecated fec0::/10 range.
func isSiteLocal(ip net.IP) bool {
	if ip.To4() != nil || len(ip) != net.IPv6len {
		return false
	}
	return ip[0] == 0xfe && ip[1]&0xc0 == 0xc0
}

// SSDPMulticastAddress returns the SSDP group to use for the given local
// address. If siteLocal is set, global IPv6 addresses use the site-local
// group.
func SSDPMulticastAddress(ip net.IP, siteLocal bool) net.IP {
	if ip.To4() != nil {
		return SSDPMulticastAddressV4
	}
	switch {
	case ip.IsLinkLocalUnicast():
		return SSDPMulticastAddressV6LinkLocal
	case isSiteLocal(ip) || siteLocal:
		return SSDPMulticastAddressV6SiteLocal
	default:
		return SSDPMulticastAddressV6Global
	}
}

// URLHost formats ip so it can be used as the host part of an URL.
// IPv6 addresses are wrapped in brackets, zones are escaped.
func URLHost(ip net.IP, zone string) string {
	if ip.To4() != nil {
		return ip.String()
	}
	if zone != "" {
		return "[" + ip.String() + "%25" + zone + "]"
	}
	return "[" + ip.String() + "]"
}

// GetSourceIP returns the ip address used to access target:port
// If target is the empty string then the default gateway ip is used.
// If the port is 0, then 80 is used by default.
func GetSourceIP(target string, port int) (string, error) {
	if target == "" {
		ip, err := gateway.DiscoverGateway()
		if err != nil {
			return "", err
		}
		target = ip.String()
	}
	if port <= 0 {
		port = 80
	}

	conn, err := net.Dial("udp", net.JoinHostPort(target, fmt.Sprint(port)))
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP.String(), nil
}
