package upnp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type device struct {
	udn      string
	typ      string
	services []Service
	devices  []Device
	parent   Device
}

func (d *device) UDN() string                  { return d.udn }
func (d *device) DeviceTypeVersionURN() string { return d.typ }
func (d *device) EmbeddedDevices() []Device    { return d.devices }
func (d *device) Services() []Service          { return d.services }
func (d *device) ParentDevice() Device         { return d.parent }

func (d *device) RootDevice() Device {
	if d.parent == nil {
		return d
	}
	return d.parent.RootDevice()
}

type service struct {
	typ    string
	parent Device
}

func (s *service) ServiceTypeVersionURN() string { return s.typ }
func (s *service) ParentDevice() Device          { return s.parent }

type server []Device

func (s server) RootDevices() []Device { return s }

func testServer() (server, *device, *device) {
	root := &device{udn: "uuid:root", typ: "urn:schemas-upnp-org:device:MediaServer:2"}
	root.services = []Service{
		&service{typ: "urn:schemas-upnp-org:service:ContentDirectory:2", parent: root},
		&service{typ: "urn:schemas-upnp-org:service:ConnectionManager:1", parent: root},
		&service{typ: "urn:schemas-upnp-org:service:ContentDirectory:2", parent: root},
	}
	embedded := &device{udn: "uuid:embedded", typ: "urn:schemas-upnp-org:device:MediaServer:1", parent: root}
	embedded.services = []Service{
		&service{typ: "urn:schemas-upnp-org:service:ContentDirectory:1", parent: embedded},
	}
	root.devices = []Device{embedded}
	return server{root}, root, embedded
}

func TestParseTypeVersionURN(t *testing.T) {
	typ, v, err := ParseTypeVersionURN("urn:schemas-upnp-org:service:ContentDirectory:2")
	require.NoError(t, err)
	assert.Equal(t, "urn:schemas-upnp-org:service:ContentDirectory", typ)
	assert.Equal(t, 2, v)

	for _, bad := range []string{
		"",
		"uuid:1234",
		"urn:",
		"urn:schemas-upnp-org:device:Basic:",
		"urn:schemas-upnp-org:device:Basic:x",
		"urn:schemas-upnp-org:device:Basic:0",
	} {
		_, _, err := ParseTypeVersionURN(bad)
		assert.ErrorIs(t, err, ErrMalformedURN, bad)
	}
}

func TestURNKinds(t *testing.T) {
	assert.True(t, IsDeviceURN("urn:schemas-upnp-org:device:Basic:1"))
	assert.False(t, IsDeviceURN("urn:schemas-upnp-org:service:Dummy:1"))
	assert.True(t, IsServiceURN("urn:schemas-upnp-org:service:Dummy:1"))
	assert.False(t, IsServiceURN("uuid:service"))
}

func TestFindDeviceByUDN(t *testing.T) {
	s, root, embedded := testServer()
	assert.Equal(t, Device(root), FindDeviceByUDN(s, "uuid:root"))
	assert.Equal(t, Device(embedded), FindDeviceByUDN(s, "uuid:embedded"))
	assert.Nil(t, FindDeviceByUDN(s, "uuid:missing"))
}

func TestFindDevicesByTypeAndVersion(t *testing.T) {
	s, root, embedded := testServer()
	const typ = "urn:schemas-upnp-org:device:MediaServer"

	assert.Equal(t, []Device{embedded}, FindDevicesByTypeAndVersion(s, typ, 1, false))
	assert.Equal(t, []Device{root, embedded}, FindDevicesByTypeAndVersion(s, typ, 1, true))
	assert.Equal(t, []Device{root}, FindDevicesByTypeAndVersion(s, typ, 2, true))
	assert.Empty(t, FindDevicesByTypeAndVersion(s, typ, 3, true))
}

func TestFindServicesByTypeAndVersion(t *testing.T) {
	_, root, _ := testServer()
	const typ = "urn:schemas-upnp-org:service:ContentDirectory"

	assert.Len(t, FindServicesByTypeAndVersion(root, typ, 2, false), 2)
	assert.Len(t, FindServicesByTypeAndVersion(root, typ, 1, true), 3)
	assert.Len(t, FindServicesByTypeAndVersion(root, typ, 1, false), 1)
}

func TestServiceTypeVersionURNs(t *testing.T) {
	_, root, _ := testServer()
	assert.Equal(t, []string{
		"urn:schemas-upnp-org:service:ContentDirectory:2",
		"urn:schemas-upnp-org:service:ConnectionManager:1",
	}, ServiceTypeVersionURNs(root))
}
