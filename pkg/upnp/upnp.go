// Package upnp describes the read-only view of a UPnP device tree that the
// discovery layer needs.
package upnp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	URN_RootDevice = "upnp:rootdevice"
	UUIDPrefix     = "uuid:"
	URNPrefix      = "urn:"

	deviceInfix  = ":device:"
	serviceInfix = ":service:"
)

// Server is the root of a hosted device tree.
type Server interface {
	RootDevices() []Device
}

// Device is a root or embedded UPnP device.
type Device interface {
	// UDN is the unique device name, including the "uuid:" prefix.
	UDN() string
	// DeviceTypeVersionURN is e.g. "urn:schemas-upnp-org:device:MediaServer:1".
	DeviceTypeVersionURN() string
	EmbeddedDevices() []Device
	Services() []Service
	// RootDevice returns the device itself for root devices.
	RootDevice() Device
	// ParentDevice is nil for root devices.
	ParentDevice() Device
}

type Service interface {
	ServiceTypeVersionURN() string
	ParentDevice() Device
}

var ErrMalformedURN = errors.New("malformed type/version urn")

// ParseTypeVersionURN splits a type URN into its type part and version,
// e.g. "urn:schemas-upnp-org:service:ContentDirectory:2" yields
// ("urn:schemas-upnp-org:service:ContentDirectory", 2).
func ParseTypeVersionURN(urn string) (string, int, error) {
	if !strings.HasPrefix(urn, URNPrefix) {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedURN, urn)
	}
	idx := strings.LastIndex(urn, ":")
	if idx <= len(URNPrefix) || idx == len(urn)-1 {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedURN, urn)
	}
	version, err := strconv.Atoi(urn[idx+1:])
	if err != nil || version < 1 {
		return "", 0, fmt.Errorf("%w: invalid version in %q", ErrMalformedURN, urn)
	}
	return urn[:idx], version, nil
}

func IsDeviceURN(urn string) bool {
	return strings.HasPrefix(urn, URNPrefix) && strings.Contains(urn, deviceInfix)
}

func IsServiceURN(urn string) bool {
	return strings.HasPrefix(urn, URNPrefix) && strings.Contains(urn, serviceInfix)
}

// FindDeviceByUDN searches all trees depth-first. It returns nil if no device
// carries the given UDN.
func FindDeviceByUDN(s Server, udn string) Device {
	for _, root := range s.RootDevices() {
		if d := findDeviceByUDN(root, udn); d != nil {
			return d
		}
	}
	return nil
}

func findDeviceByUDN(d Device, udn string) Device {
	if d.UDN() == udn {
		return d
	}
	for _, ed := range d.EmbeddedDevices() {
		if found := findDeviceByUDN(ed, udn); found != nil {
			return found
		}
	}
	return nil
}

// FindDevicesByTypeAndVersion returns every device of the given type whose
// version equals version, or is greater when compatible is set.
func FindDevicesByTypeAndVersion(s Server, typ string, version int, compatible bool) []Device {
	var result []Device
	for _, root := range s.RootDevices() {
		result = appendMatchingDevices(result, root, typ, version, compatible)
	}
	return result
}

func appendMatchingDevices(result []Device, d Device, typ string, version int, compatible bool) []Device {
	if versionMatches(d.DeviceTypeVersionURN(), typ, version, compatible) {
		result = append(result, d)
	}
	for _, ed := range d.EmbeddedDevices() {
		result = appendMatchingDevices(result, ed, typ, version, compatible)
	}
	return result
}

// FindServicesByTypeAndVersion searches the tree below (and including) d.
func FindServicesByTypeAndVersion(d Device, typ string, version int, compatible bool) []Service {
	var result []Service
	for _, s := range d.Services() {
		if versionMatches(s.ServiceTypeVersionURN(), typ, version, compatible) {
			result = append(result, s)
		}
	}
	for _, ed := range d.EmbeddedDevices() {
		result = append(result, FindServicesByTypeAndVersion(ed, typ, version, compatible)...)
	}
	return result
}

// ServiceTypeVersionURNs returns the distinct service type URNs of d in
// declaration order. Several service instances of the same type are
// announced only once.
func ServiceTypeVersionURNs(d Device) []string {
	var (
		seen   = make(map[string]struct{})
		result []string
	)
	for _, s := range d.Services() {
		urn := s.ServiceTypeVersionURN()
		if _, ok := seen[urn]; ok {
			continue
		}
		seen[urn] = struct{}{}
		result = append(result, urn)
	}
	return result
}

func versionMatches(urn, typ string, version int, compatible bool) bool {
	t, v, err := ParseTypeVersionURN(urn)
	if err != nil || t != typ {
		return false
	}
	return v == version || (compatible && v > version)
}
