package devicetree

import (
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"strings"

	"github.com/forestnode-io/ssdpd/pkg/upnp"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Spec is the on-disk representation of a device tree.
type Spec struct {
	RootDevices []DeviceSpec `yaml:"rootDevices" json:"rootDevices"`
}

type DeviceSpec struct {
	UDN          string        `yaml:"udn,omitempty" json:"udn,omitempty"`
	FriendlyName string        `yaml:"friendlyName" json:"friendlyName"`
	DeviceType   string        `yaml:"deviceType" json:"deviceType"`
	Services     []ServiceSpec `yaml:"services,omitempty" json:"services,omitempty"`
	Devices      []DeviceSpec  `yaml:"devices,omitempty" json:"devices,omitempty"`
}

type ServiceSpec struct {
	ServiceType string `yaml:"serviceType" json:"serviceType"`
	ServiceID   string `yaml:"serviceId,omitempty" json:"serviceId,omitempty"`
}

// ErrEmptyTree is returned when a spec declares no root devices.
var ErrEmptyTree = errors.New("device tree has no root devices")

func LoadFile(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open device tree file: %w", err)
	}
	defer f.Close()

	t, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("unable to load device tree from %s: %w", path, err)
	}
	return t, nil
}

func Load(r io.Reader) (*Tree, error) {
	var spec Spec
	if err := yaml.NewDecoder(r).Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyTree
		}
		return nil, fmt.Errorf("unable to decode device tree: %w", err)
	}
	return Build(&spec)
}

// Build validates spec and turns it into a tree. Devices without a UDN get
// a name based UUID derived from the host name and their position in the
// tree, so they keep their identity across restarts.
func Build(spec *Spec) (*Tree, error) {
	if len(spec.RootDevices) == 0 {
		return nil, ErrEmptyTree
	}

	host, _ := os.Hostname()
	b := builder{
		namespace: uuid.NewSHA1(uuid.NameSpaceDNS, []byte(host)),
		seen:      make(map[string]struct{}),
	}

	t := Tree{}
	for i := range spec.RootDevices {
		d, err := b.device(&spec.RootDevices[i], nil, fmt.Sprintf("/%d", i))
		if err != nil {
			return nil, err
		}
		t.roots = append(t.roots, d)
	}
	t.configID = configID(&t)

	return &t, nil
}

type builder struct {
	namespace uuid.UUID
	seen      map[string]struct{}
}

func (b *builder) device(ds *DeviceSpec, parent *Device, path string) (*Device, error) {
	if !upnp.IsDeviceURN(ds.DeviceType) {
		return nil, fmt.Errorf("device %s: invalid device type %q", path, ds.DeviceType)
	}
	if _, _, err := upnp.ParseTypeVersionURN(ds.DeviceType); err != nil {
		return nil, fmt.Errorf("device %s: %w", path, err)
	}

	udn := ds.UDN
	switch {
	case udn == "":
		id := uuid.NewSHA1(b.namespace, []byte(path+"|"+ds.DeviceType+"|"+ds.FriendlyName))
		udn = upnp.UUIDPrefix + id.String()
	case !strings.HasPrefix(udn, upnp.UUIDPrefix):
		if _, err := uuid.Parse(udn); err != nil {
			return nil, fmt.Errorf("device %s: invalid udn %q: %w", path, udn, err)
		}
		udn = upnp.UUIDPrefix + udn
	}
	if _, dup := b.seen[udn]; dup {
		return nil, fmt.Errorf("device %s: duplicate udn %q", path, udn)
	}
	b.seen[udn] = struct{}{}

	d := Device{
		udn:          udn,
		friendlyName: ds.FriendlyName,
		deviceType:   ds.DeviceType,
		parent:       parent,
	}

	for i, ss := range ds.Services {
		if !upnp.IsServiceURN(ss.ServiceType) {
			return nil, fmt.Errorf("device %s: service %d: invalid service type %q", path, i, ss.ServiceType)
		}
		if _, _, err := upnp.ParseTypeVersionURN(ss.ServiceType); err != nil {
			return nil, fmt.Errorf("device %s: service %d: %w", path, i, err)
		}
		d.services = append(d.services, &Service{
			serviceType: ss.ServiceType,
			serviceID:   ss.ServiceID,
			parent:      &d,
		})
	}

	for i := range ds.Devices {
		ed, err := b.device(&ds.Devices[i], &d, fmt.Sprintf("%s/%d", path, i))
		if err != nil {
			return nil, err
		}
		d.devices = append(d.devices, ed)
	}

	return &d, nil
}

// configID hashes everything a control point can observe through discovery
// and description. UPnP 1.1 limits CONFIGID.UPNP.ORG to 24 bits.
func configID(t *Tree) int {
	h := fnv.New32a()
	var walk func(d *Device)
	walk = func(d *Device) {
		io.WriteString(h, d.udn+"\n"+d.deviceType+"\n"+d.friendlyName+"\n")
		for _, s := range d.services {
			io.WriteString(h, s.serviceType+"\n"+s.serviceID+"\n")
		}
		for _, ed := range d.devices {
			walk(ed)
		}
		io.WriteString(h, "\n")
	}
	for _, root := range t.roots {
		walk(root)
	}
	return int(h.Sum32() & 0xFFFFFF)
}
