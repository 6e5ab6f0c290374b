// Package devicetree provides a static, read-only UPnP device tree that is
// loaded from a YAML document.
package devicetree

import (
	"github.com/forestnode-io/ssdpd/pkg/upnp"
)

type Tree struct {
	roots    []*Device
	configID int
}

func (t *Tree) RootDevices() []upnp.Device {
	ds := make([]upnp.Device, len(t.roots))
	for i, d := range t.roots {
		ds[i] = d
	}
	return ds
}

// ConfigID identifies this revision of the tree. It is stable for as long
// as the tree's contents do not change and lies in [0, 2^24).
func (t *Tree) ConfigID() int {
	return t.configID
}

type Device struct {
	udn          string
	friendlyName string
	deviceType   string
	services     []*Service
	devices      []*Device
	parent       *Device
}

func (d *Device) UDN() string                  { return d.udn }
func (d *Device) FriendlyName() string         { return d.friendlyName }
func (d *Device) DeviceTypeVersionURN() string { return d.deviceType }

func (d *Device) EmbeddedDevices() []upnp.Device {
	ds := make([]upnp.Device, len(d.devices))
	for i, ed := range d.devices {
		ds[i] = ed
	}
	return ds
}

func (d *Device) Services() []upnp.Service {
	ss := make([]upnp.Service, len(d.services))
	for i, s := range d.services {
		ss[i] = s
	}
	return ss
}

func (d *Device) RootDevice() upnp.Device {
	root := d
	for root.parent != nil {
		root = root.parent
	}
	return root
}

func (d *Device) ParentDevice() upnp.Device {
	// avoid returning a typed nil inside the interface
	if d.parent == nil {
		return nil
	}
	return d.parent
}

type Service struct {
	serviceType string
	serviceID   string
	parent      *Device
}

func (s *Service) ServiceTypeVersionURN() string { return s.serviceType }
func (s *Service) ServiceID() string             { return s.serviceID }
func (s *Service) ParentDevice() upnp.Device     { return s.parent }
