package search

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/forestnode-io/ssdpd/pkg/configuration"
	"github.com/forestnode-io/ssdpd/pkg/discover"
	network "github.com/forestnode-io/ssdpd/pkg/net"
	"github.com/forestnode-io/ssdpd/pkg/output"
	"github.com/forestnode-io/ssdpd/pkg/server"
	"github.com/forestnode-io/ssdpd/pkg/ssdp"
	"github.com/forestnode-io/ssdpd/pkg/version"
	"github.com/spf13/cobra"
)

func New(config *configuration.Root) *Cmd {
	return &Cmd{
		config:    config,
		addresses: network.UPnPEnabledAddresses,
	}
}

type Cmd struct {
	cobraCommand *cobra.Command
	config       *configuration.Root

	addresses server.AddressSource
	listener  ssdp.Listener
}

func (c *Cmd) Cobra() *cobra.Command {
	if c.cobraCommand != nil {
		return c.cobraCommand
	}

	c.cobraCommand = &cobra.Command{
		Use:   "search [search-target]",
		Short: "Search the network for UPnP devices",
		Long: `Send an M-SEARCH from every usable network address and list the devices that answer.
The search target defaults to ssdp:all. Use upnp:rootdevice, a uuid or a device or service type to narrow it down.
This is handy to check what a running ssdpd announces.`,
		Args: cobra.MaximumNArgs(1),
		RunE: c.run,
	}

	flags := c.cobraCommand.Flags()
	flags.Int("mx", 2, "Maximum number of seconds devices may wait before answering, between 1 and 5.")
	flags.Bool("json", false, "Print the answers as JSON.")
	flags.Bool("no-color", false, "Disable color output.")

	return c.cobraCommand
}

func (c *Cmd) run(cmd *cobra.Command, args []string) error {
	var (
		ctx    = cmd.Context()
		config = c.config
		flags  = cmd.Flags()
	)

	st := ssdp.ST_All
	if len(args) == 1 {
		st = args[0]
	}
	mx, _ := flags.GetInt("mx")
	if mx < 1 || ssdp.MaxSearchResponseDelay < mx {
		cmd.SilenceUsage = false
		return fmt.Errorf("mx must be between 1 and %d", ssdp.MaxSearchResponseDelay)
	}

	addrs, err := c.addresses(network.AddressOptions{
		IPv4:             config.Network.IPv4,
		IPv6:             config.Network.IPv6,
		Filter:           config.Network.Addresses,
		DefaultRouteOnly: config.Network.DefaultRouteOnly,
	})
	if err != nil {
		return fmt.Errorf("unable to list network addresses: %w", err)
	}

	listener := c.listener
	if listener == nil {
		listener = &ssdp.NetListener{
			TTL:      config.SSDP.TTL,
			HopLimit: config.SSDP.HopLimit,
		}
	}
	ch, err := discover.Search(ctx, addrs, discover.Options{
		ST:        st,
		MX:        mx,
		UserAgent: server.ServerHeader(config.SSDP.ServerName, version.Version),
		SiteLocal: config.SSDP.SiteLocal,
		Listener:  listener,
	})
	if err != nil {
		return err
	}

	var ds []discover.Device
	for d := range ch {
		ds = append(ds, d)
	}
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].USN != ds[j].USN {
			return ds[i].USN < ds[j].USN
		}
		return ds[i].From.String() < ds[j].From.String()
	})

	out := cmd.OutOrStdout()
	if asJSON, _ := flags.GetBool("json"); asJSON {
		if ds == nil {
			ds = []discover.Device{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ds)
	}

	noColor, _ := flags.GetBool("no-color")
	rows := make([]output.Device, 0, len(ds))
	for _, d := range ds {
		from := d.From.IP.String()
		if d.Interface != "" {
			from += "%" + d.Interface
		}
		rows = append(rows, output.Device{
			USN:      d.USN,
			Location: d.Location,
			From:     from,
			BootID:   d.BootID,
			ConfigID: d.ConfigID,
		})
	}
	return output.New(out, noColor).PrintDevices(rows)
}
