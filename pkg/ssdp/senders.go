package ssdp

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/forestnode-io/ssdpd/pkg/upnp"
	"github.com/rs/zerolog"
)

// MessageSender produces and transmits one discovery message for the given
// NT/USN pair of a root device's tree.
type MessageSender interface {
	SendMessage(nt, usn string, rootDevice upnp.Device)
}

// senderBase carries what every sender needs. Senders run while the server
// lock is held.
type senderBase struct {
	sd  *ServerData
	now func() time.Time
	log *zerolog.Logger
}

func (s *senderBase) notify(ep *EndpointConfiguration, nts, nt, usn string) *Message {
	m := NewRequest(methodNotify, "*")
	m.Header.Set(headerHost, ep.MulticastHost())
	m.Header.Set(headerNT, nt)
	m.Header.Set(headerNTS, nts)
	m.Header.Set(headerUSN, usn)
	return m
}

func (s *senderBase) setIDs(m *Message) {
	m.Header.Set(headerBootID, strconv.Itoa(s.sd.BootID))
	m.Header.Set(headerConfigID, strconv.Itoa(s.sd.ConfigID))
}

func (s *senderBase) setSearchPort(m *Message, ep *EndpointConfiguration) {
	if ep.UsesSpecialSearchPort() {
		m.Header.Set(headerSearchPort, strconv.Itoa(ep.SSDPSearchPort))
	}
}

func (s *senderBase) send(ep *EndpointConfiguration, m *Message, dst *net.UDPAddr) {
	conn := ep.sendConn()
	if conn == nil {
		s.log.Debug().
			Str("endpoint", ep.String()).
			Msg("endpoint has no open socket, dropping message")
		return
	}
	if _, err := conn.WriteTo(m.Encode(), dst); err != nil {
		s.log.Debug().Err(err).
			Str("endpoint", ep.String()).
			Str("destination", dst.String()).
			Msg("unable to send ssdp message")
	}
}

func (s *senderBase) multicast(ep *EndpointConfiguration, m *Message) {
	s.send(ep, m, ep.multicastAddr())
}

type aliveMessageSender struct {
	senderBase
}

func (s *aliveMessageSender) SendMessage(nt, usn string, rootDevice upnp.Device) {
	for _, ep := range s.sd.Endpoints {
		location, ok := ep.DescriptionURL(rootDevice)
		if !ok {
			continue
		}
		m := s.notify(ep, NTS_Alive, nt, usn)
		m.Header.Set(headerCacheControl, "max-age="+strconv.Itoa(s.sd.AdvertisementExpirationTime))
		m.Header.Set(headerLocation, location)
		m.Header.Set(headerServer, s.sd.ServerHeader)
		s.setIDs(m)
		s.setSearchPort(m, ep)
		s.multicast(ep, m)
	}
}

type byeByeMessageSender struct {
	senderBase
}

func (s *byeByeMessageSender) SendMessage(nt, usn string, rootDevice upnp.Device) {
	for _, ep := range s.sd.Endpoints {
		m := s.notify(ep, NTS_ByeBye, nt, usn)
		s.setIDs(m)
		s.multicast(ep, m)
	}
}

type updateMessageSender struct {
	senderBase
	lastBootID int
	nextBootID int
}

func (s *updateMessageSender) SendMessage(nt, usn string, rootDevice upnp.Device) {
	for _, ep := range s.sd.Endpoints {
		location, ok := ep.DescriptionURL(rootDevice)
		if !ok {
			continue
		}
		m := s.notify(ep, NTS_Update, nt, usn)
		m.Header.Set(headerLocation, location)
		m.Header.Set(headerBootID, strconv.Itoa(s.lastBootID))
		m.Header.Set(headerConfigID, strconv.Itoa(s.sd.ConfigID))
		m.Header.Set(headerNextBootID, strconv.Itoa(s.nextBootID))
		s.setSearchPort(m, ep)
		s.multicast(ep, m)
	}
}

type searchResultMessageSender struct {
	senderBase
	endpoint  *EndpointConfiguration
	requester *net.UDPAddr
}

func (s *searchResultMessageSender) SendMessage(nt, usn string, rootDevice upnp.Device) {
	location, ok := s.endpoint.DescriptionURL(rootDevice)
	if !ok {
		s.log.Debug().
			Str("endpoint", s.endpoint.String()).
			Str("rootDevice", rootDevice.UDN()).
			Msg("root device is not published on endpoint, skipping search result")
		return
	}
	m := NewResponse(http.StatusOK)
	m.Header.Set(headerCacheControl, "max-age="+strconv.Itoa(s.sd.AdvertisementExpirationTime))
	m.Header.Set(headerDate, s.now().UTC().Format(http.TimeFormat))
	m.Header.Set(headerExt, "")
	m.Header.Set(headerLocation, location)
	m.Header.Set(headerServer, s.sd.ServerHeader)
	m.Header.Set(headerST, nt)
	m.Header.Set(headerUSN, usn)
	s.setIDs(m)
	s.setSearchPort(m, s.endpoint)
	s.send(s.endpoint, m, s.requester)
}
