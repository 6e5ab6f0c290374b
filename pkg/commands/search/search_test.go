package search

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"

	"github.com/forestnode-io/ssdpd/pkg/configuration"
	network "github.com/forestnode-io/ssdpd/pkg/net"
	"github.com/forestnode-io/ssdpd/pkg/ssdp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const answer = "HTTP/1.1 200 OK\r\n" +
	"CACHE-CONTROL: max-age=1800\r\n" +
	"EXT:\r\n" +
	"LOCATION: http://192.168.1.20:8200/description/A.xml\r\n" +
	"SERVER: Linux/6.1 UPnP/1.1 ssdpd/1.0\r\n" +
	"ST: upnp:rootdevice\r\n" +
	"USN: uuid:A::upnp:rootdevice\r\n" +
	"BOOTID.UPNP.ORG: 5\r\n" +
	"CONFIGID.UPNP.ORG: 6\r\n" +
	"\r\n"

// conn answers the first request and then waits to be closed.
type conn struct {
	sent   chan *ssdp.Message
	in     chan []byte
	closed chan struct{}
}

func (c *conn) ReadFrom(b []byte) (int, ssdp.PacketInfo, error) {
	select {
	case p := <-c.in:
		return copy(b, p), ssdp.PacketInfo{Src: &net.UDPAddr{IP: net.ParseIP("192.168.1.20"), Port: 1900}}, nil
	case <-c.closed:
		return 0, ssdp.PacketInfo{}, net.ErrClosed
	}
}

func (c *conn) WriteTo(b []byte, _ *net.UDPAddr) (int, error) {
	m, err := ssdp.ParseMessage(b)
	if err != nil {
		return 0, err
	}
	c.sent <- m
	c.in <- []byte(answer)
	return len(b), nil
}

func (c *conn) LocalAddr() net.Addr { return &net.UDPAddr{} }
func (c *conn) LeaveGroup() error   { return nil }
func (c *conn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	return nil
}

type listener struct {
	c *conn
}

func (l *listener) ListenMulticast(context.Context, *ssdp.EndpointConfiguration) (ssdp.PacketConn, error) {
	return l.c, nil
}

func (l *listener) ListenUnicast(context.Context, *ssdp.EndpointConfiguration, int) (ssdp.PacketConn, error) {
	return l.c, nil
}

func newTestCmd(t *testing.T) (*Cmd, *conn, *bytes.Buffer) {
	t.Helper()

	c := &conn{
		sent:   make(chan *ssdp.Message, 1),
		in:     make(chan []byte, 1),
		closed: make(chan struct{}),
	}
	cmd := New(configuration.EmptyRoot())
	cmd.listener = &listener{c: c}
	cmd.addresses = func(opts network.AddressOptions) ([]network.Address, error) {
		require.True(t, opts.IPv4)
		return []network.Address{{IP: net.ParseIP("192.168.1.10"), Interface: net.Interface{Index: 2, Name: "eth0"}}}, nil
	}

	var out bytes.Buffer
	cc := cmd.Cobra()
	cc.SetOut(&out)
	cc.SetErr(&out)
	cc.SetContext(context.Background())
	return cmd, c, &out
}

func TestSearch_Table(t *testing.T) {
	cmd, c, out := newTestCmd(t)
	cc := cmd.Cobra()
	cc.SetArgs([]string{"upnp:rootdevice", "--mx", "1", "--no-color"})
	require.NoError(t, cc.Execute())

	req := <-c.sent
	assert.Equal(t, "upnp:rootdevice", req.Header.Get("ST"))
	assert.Equal(t, "1", req.Header.Get("MX"))
	assert.Contains(t, req.Header.Get("USER-AGENT"), " UPnP/1.1 ssdpd/")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "USN"))
	assert.Equal(t, []string{
		"uuid:A::upnp:rootdevice",
		"http://192.168.1.20:8200/description/A.xml",
		"192.168.1.20%eth0",
		"5",
		"6",
	}, strings.Fields(lines[1]))
}

func TestSearch_JSON(t *testing.T) {
	cmd, c, out := newTestCmd(t)
	cc := cmd.Cobra()
	cc.SetArgs([]string{"--mx", "1", "--json"})
	require.NoError(t, cc.Execute())

	req := <-c.sent
	assert.Equal(t, ssdp.ST_All, req.Header.Get("ST"))

	var ds []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &ds))
	require.Len(t, ds, 1)
	assert.Equal(t, "uuid:A::upnp:rootdevice", ds[0]["usn"])
	assert.Equal(t, "eth0", ds[0]["interface"])
	assert.EqualValues(t, 5, ds[0]["bootID"])
}

func TestSearch_BadMX(t *testing.T) {
	cmd, _, _ := newTestCmd(t)
	cc := cmd.Cobra()
	cc.SetArgs([]string{"--mx", "9"})
	require.ErrorContains(t, cc.Execute(), "mx must be between 1 and 5")
}
