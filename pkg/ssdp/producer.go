package ssdp

import "github.com/forestnode-io/ssdpd/pkg/upnp"

// SendMessagesServer emits the discovery sequence of every root device of s.
func SendMessagesServer(s upnp.Server, sender MessageSender) {
	for _, root := range s.RootDevices() {
		SendMessagesRootDevice(root, sender)
	}
}

// SendMessagesRootDevice emits three messages for the root device, one per
// service type of the root device, and then recurses into the embedded
// devices, which get two messages each plus one per service type.
func SendMessagesRootDevice(root upnp.Device, sender MessageSender) {
	udn := root.UDN()
	sender.SendMessage(upnp.URN_RootDevice, udn+"::"+upnp.URN_RootDevice, root)
	sendMessagesDevice(root, root, sender)
}

func sendMessagesDevice(d, root upnp.Device, sender MessageSender) {
	udn := d.UDN()
	deviceType := d.DeviceTypeVersionURN()
	sender.SendMessage(udn, udn, root)
	sender.SendMessage(deviceType, udn+"::"+deviceType, root)
	for _, serviceType := range upnp.ServiceTypeVersionURNs(d) {
		sender.SendMessage(serviceType, udn+"::"+serviceType, root)
	}
	for _, ed := range d.EmbeddedDevices() {
		sendMessagesDevice(ed, root, sender)
	}
}
