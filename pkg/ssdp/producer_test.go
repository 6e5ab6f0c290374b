package ssdp

import (
	"testing"

	"github.com/forestnode-io/ssdpd/pkg/devicetree"
	"github.com/forestnode-io/ssdpd/pkg/upnp"
	"github.com/stretchr/testify/require"
)

type notification struct {
	nt, usn, root string
}

type recordingSender struct {
	sent []notification
}

func (r *recordingSender) SendMessage(nt, usn string, rootDevice upnp.Device) {
	r.sent = append(r.sent, notification{nt: nt, usn: usn, root: rootDevice.UDN()})
}

func buildTree(t *testing.T, roots ...devicetree.DeviceSpec) *devicetree.Tree {
	t.Helper()
	tree, err := devicetree.Build(&devicetree.Spec{RootDevices: roots})
	require.NoError(t, err)
	return tree
}

var scenarioRoot = devicetree.DeviceSpec{
	UDN:          "uuid:A",
	FriendlyName: "Test Device",
	DeviceType:   "urn:schemas:device:TestDevice:1",
}

// mediaRoot has two services, an embedded renderer with one service and a
// nested embedded device without services.
var mediaRoot = devicetree.DeviceSpec{
	UDN:          "uuid:M",
	FriendlyName: "Media Server",
	DeviceType:   "urn:schemas-upnp-org:device:MediaServer:1",
	Services: []devicetree.ServiceSpec{
		{ServiceType: "urn:schemas-upnp-org:service:ContentDirectory:1", ServiceID: "urn:upnp-org:serviceId:ContentDirectory"},
		{ServiceType: "urn:schemas-upnp-org:service:ConnectionManager:1", ServiceID: "urn:upnp-org:serviceId:ConnectionManager"},
	},
	Devices: []devicetree.DeviceSpec{
		{
			UDN:          "uuid:R",
			FriendlyName: "Renderer",
			DeviceType:   "urn:schemas-upnp-org:device:MediaRenderer:2",
			Services: []devicetree.ServiceSpec{
				{ServiceType: "urn:schemas-upnp-org:service:RenderingControl:1", ServiceID: "urn:upnp-org:serviceId:RenderingControl"},
			},
			Devices: []devicetree.DeviceSpec{
				{
					UDN:          "uuid:N",
					FriendlyName: "Nested",
					DeviceType:   "urn:schemas-upnp-org:device:Basic:1",
				},
			},
		},
	},
}

func TestSendMessagesServer_SingleRoot(t *testing.T) {
	tree := buildTree(t, scenarioRoot)
	r := &recordingSender{}

	SendMessagesServer(tree, r)

	require.Equal(t, []notification{
		{nt: "upnp:rootdevice", usn: "uuid:A::upnp:rootdevice", root: "uuid:A"},
		{nt: "uuid:A", usn: "uuid:A", root: "uuid:A"},
		{nt: "urn:schemas:device:TestDevice:1", usn: "uuid:A::urn:schemas:device:TestDevice:1", root: "uuid:A"},
	}, r.sent)
}

func TestSendMessagesServer_EmbeddedDevices(t *testing.T) {
	tree := buildTree(t, mediaRoot)
	r := &recordingSender{}

	SendMessagesServer(tree, r)

	// 3 + 2 for the root, 2 + 1 for the renderer, 2 for the nested device
	require.Len(t, r.sent, 10)
	require.Equal(t, []notification{
		{nt: "upnp:rootdevice", usn: "uuid:M::upnp:rootdevice", root: "uuid:M"},
		{nt: "uuid:M", usn: "uuid:M", root: "uuid:M"},
		{nt: "urn:schemas-upnp-org:device:MediaServer:1", usn: "uuid:M::urn:schemas-upnp-org:device:MediaServer:1", root: "uuid:M"},
		{nt: "urn:schemas-upnp-org:service:ContentDirectory:1", usn: "uuid:M::urn:schemas-upnp-org:service:ContentDirectory:1", root: "uuid:M"},
		{nt: "urn:schemas-upnp-org:service:ConnectionManager:1", usn: "uuid:M::urn:schemas-upnp-org:service:ConnectionManager:1", root: "uuid:M"},
		{nt: "uuid:R", usn: "uuid:R", root: "uuid:M"},
		{nt: "urn:schemas-upnp-org:device:MediaRenderer:2", usn: "uuid:R::urn:schemas-upnp-org:device:MediaRenderer:2", root: "uuid:M"},
		{nt: "urn:schemas-upnp-org:service:RenderingControl:1", usn: "uuid:R::urn:schemas-upnp-org:service:RenderingControl:1", root: "uuid:M"},
		{nt: "uuid:N", usn: "uuid:N", root: "uuid:M"},
		{nt: "urn:schemas-upnp-org:device:Basic:1", usn: "uuid:N::urn:schemas-upnp-org:device:Basic:1", root: "uuid:M"},
	}, r.sent)
}

func TestSendMessagesServer_MultipleRoots(t *testing.T) {
	tree := buildTree(t, scenarioRoot, mediaRoot)
	r := &recordingSender{}

	SendMessagesServer(tree, r)

	require.Len(t, r.sent, 3+10)
	rootDevices := 0
	for _, n := range r.sent {
		if n.nt == upnp.URN_RootDevice {
			rootDevices++
		}
	}
	require.Equal(t, 2, rootDevices)
}

func TestSendMessagesRootDevice_DuplicateServiceTypes(t *testing.T) {
	root := scenarioRoot
	root.Services = []devicetree.ServiceSpec{
		{ServiceType: "urn:schemas-upnp-org:service:SwitchPower:1", ServiceID: "urn:upnp-org:serviceId:SwitchPower.1"},
		{ServiceType: "urn:schemas-upnp-org:service:SwitchPower:1", ServiceID: "urn:upnp-org:serviceId:SwitchPower.2"},
	}
	tree := buildTree(t, root)
	r := &recordingSender{}

	SendMessagesRootDevice(tree.RootDevices()[0], r)

	require.Len(t, r.sent, 4)
}
