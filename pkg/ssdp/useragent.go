package ssdp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrNoUPnPToken = errors.New("no UPnP version token")

// ParseUserAgentUPnPVersion extracts the UPnP version from a USER-AGENT or
// SERVER header value, e.g. "Linux/5.10 UPnP/1.1 Player/2.0". UDA 1.0 style
// comma separated values are accepted as well.
func ParseUserAgentUPnPVersion(ua string) (major, minor int, err error) {
	tokens := strings.FieldsFunc(ua, func(r rune) bool {
		return r == ' ' || r == ','
	})
	for _, t := range tokens {
		if len(t) < 5 || !strings.EqualFold(t[:5], "UPnP/") {
			continue
		}
		v := t[5:]
		majStr, minStr, ok := strings.Cut(v, ".")
		if !ok {
			return 0, 0, fmt.Errorf("malformed UPnP version %q", v)
		}
		if major, err = strconv.Atoi(majStr); err != nil {
			return 0, 0, fmt.Errorf("malformed UPnP major version %q: %w", v, err)
		}
		if minor, err = strconv.Atoi(minStr); err != nil {
			return 0, 0, fmt.Errorf("malformed UPnP minor version %q: %w", v, err)
		}
		return major, minor, nil
	}
	return 0, 0, ErrNoUPnPToken
}

// checkUserAgent accepts any UPnP 1.x control point.
func checkUserAgent(ua string) error {
	major, minor, err := ParseUserAgentUPnPVersion(ua)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedUPnPVersion, err)
	}
	if major != 1 || minor < 0 {
		return fmt.Errorf("%w: UPnP/%d.%d", ErrUnsupportedUPnPVersion, major, minor)
	}
	return nil
}
