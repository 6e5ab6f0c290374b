package ssdp

import (
	"net"
	"time"
)

// SSDPMulticastGroupsV6 are the SSDP groups of every IPv6 scope:
// interface-local, link-local, site-local and global.
var SSDPMulticastGroupsV6 = []net.IP{
	net.ParseIP("ff01::c"),
	net.ParseIP("ff02::c"),
	net.ParseIP("ff05::c"),
	net.ParseIP("ff0e::c"),
}

const (
	// SSDPMulticastPort is the port of every SSDP multicast group.
	SSDPMulticastPort = 1900
	// DefaultSSDPSearchPort is where unicast M-SEARCH requests are expected
	// unless SEARCHPORT.UPNP.ORG says otherwise.
	DefaultSSDPSearchPort = 1900

	DefaultAdvertisementExpirationTime = 1800 // seconds
	// MinAdvertisementInterval is the lower bound in seconds for the
	// repetition interval once the expiration time is large enough.
	MinAdvertisementInterval    = 600
	InitialAdvertisementMaxWait = 100 * time.Millisecond
	// minAdvertisementSpacing keeps tiny expiration times from turning the
	// advertisement loop into a busy loop.
	minAdvertisementSpacing = time.Second

	// MaxSearchResponseDelay caps the MX header.
	MaxSearchResponseDelay = 5 // seconds

	DefaultTTLv4      = 2
	DefaultHopLimitV6 = 2

	receiveBufferSize = 4096

	// timerLockTimeout bounds how long a timer callback waits for the
	// server lock before it reschedules itself.
	timerLockTimeout = 10 * time.Second
	readErrorBackoff = 100 * time.Millisecond
)

const (
	methodMSearch = "M-SEARCH"
	methodNotify  = "NOTIFY"

	ssdpDiscover = `"ssdp:discover"`

	NTS_Alive  = "ssdp:alive"
	NTS_ByeBye = "ssdp:byebye"
	NTS_Update = "ssdp:update"

	ST_All = "ssdp:all"
)

const (
	headerHost         = "HOST"
	headerCacheControl = "CACHE-CONTROL"
	headerDate         = "DATE"
	headerExt          = "EXT"
	headerLocation     = "LOCATION"
	headerMan          = "MAN"
	headerMX           = "MX"
	headerNT           = "NT"
	headerNTS          = "NTS"
	headerServer       = "SERVER"
	headerST           = "ST"
	headerUSN          = "USN"
	headerUserAgent    = "USER-AGENT"
	headerBootID       = "BOOTID.UPNP.ORG"
	headerNextBootID   = "NEXTBOOTID.UPNP.ORG"
	headerConfigID     = "CONFIGID.UPNP.ORG"
	headerSearchPort   = "SEARCHPORT.UPNP.ORG"
)
