package ssdp

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// NewSearchRequest builds a multicast M-SEARCH for the endpoint's group. mx
// is clamped to the range devices accept.
func NewSearchRequest(ep *EndpointConfiguration, st string, mx int, userAgent string) *Message {
	if mx < 1 {
		mx = 1
	}
	if mx > MaxSearchResponseDelay {
		mx = MaxSearchResponseDelay
	}

	m := NewRequest(methodMSearch, "*")
	m.Header.Set(headerHost, ep.MulticastHost())
	m.Header.Set(headerMan, ssdpDiscover)
	m.Header.Set(headerMX, strconv.Itoa(mx))
	m.Header.Set(headerST, st)
	if userAgent != "" {
		m.Header.Set(headerUserAgent, userAgent)
	}
	return m
}

// SearchResponse is the part of a 200 OK answer to an M-SEARCH a control
// point cares about.
type SearchResponse struct {
	ST       string `json:"st"`
	USN      string `json:"usn"`
	Location string `json:"location,omitempty"`
	Server   string `json:"server,omitempty"`
	MaxAge   int    `json:"maxAge"`
	// BootID and ConfigID are -1 if the device did not send them.
	BootID   int `json:"bootID"`
	ConfigID int `json:"configID"`
}

func ParseSearchResponse(b []byte) (*SearchResponse, error) {
	m, err := ParseMessage(b)
	if err != nil {
		return nil, err
	}
	if m.IsRequest() {
		return nil, fmt.Errorf("%w: expected a response, got %s", ErrMalformedMessage, m.Method)
	}
	if m.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrMalformedMessage, m.StatusCode)
	}

	r := SearchResponse{
		ST:       m.Header.Get(headerST),
		USN:      m.Header.Get(headerUSN),
		Location: m.Header.Get(headerLocation),
		Server:   m.Header.Get(headerServer),
		MaxAge:   maxAge(m.Header.Get(headerCacheControl)),
		BootID:   intHeader(&m.Header, headerBootID),
		ConfigID: intHeader(&m.Header, headerConfigID),
	}
	if r.USN == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedMessage, headerUSN)
	}
	return &r, nil
}

// maxAge reads max-age=N out of a CACHE-CONTROL value, 0 if absent.
func maxAge(v string) int {
	for _, d := range strings.Split(v, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(d), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(k), "max-age") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err == nil && n >= 0 {
			return n
		}
	}
	return 0
}

func intHeader(h *Header, name string) int {
	if !h.Has(name) {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(h.Get(name)))
	if err != nil {
		return -1
	}
	return n
}
