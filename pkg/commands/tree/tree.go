package tree

import (
	"fmt"

	"github.com/forestnode-io/ssdpd/pkg/configuration"
	"github.com/forestnode-io/ssdpd/pkg/devicetree"
	"github.com/forestnode-io/ssdpd/pkg/output"
	"github.com/forestnode-io/ssdpd/pkg/ssdp"
	"github.com/forestnode-io/ssdpd/pkg/upnp"
	"github.com/spf13/cobra"
)

func New(config *configuration.Root) *Cmd {
	return &Cmd{config: config}
}

type Cmd struct {
	cobraCommand *cobra.Command
	config       *configuration.Root
}

func (c *Cmd) Cobra() *cobra.Command {
	if c.cobraCommand != nil {
		return c.cobraCommand
	}

	c.cobraCommand = &cobra.Command{
		Use:   "tree [file]",
		Short: "Show the announcements for a device tree",
		Long: `Load a device tree and print the NT and USN of every message ssdpd would send for it, in the order they are sent.
The file defaults to the configured device tree.`,
		Args: cobra.MaximumNArgs(1),
		RunE: c.run,
	}
	c.cobraCommand.Flags().Bool("no-color", false, "Disable color output.")

	return c.cobraCommand
}

func (c *Cmd) run(cmd *cobra.Command, args []string) error {
	path := c.config.DeviceTree.Path
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		cmd.SilenceUsage = false
		return configuration.ErrNoDeviceTree
	}

	t, err := devicetree.LoadFile(path)
	if err != nil {
		return err
	}

	noColor, _ := cmd.Flags().GetBool("no-color")
	p := output.New(cmd.OutOrStdout(), noColor)

	fmt.Fprintf(cmd.OutOrStdout(), "config id %d\n\n", t.ConfigID())
	return p.PrintAnnouncements(Announcements(t))
}

// Announcements lists the messages sent for one advertisement of server.
func Announcements(server upnp.Server) []output.Announcement {
	var r recorder
	ssdp.SendMessagesServer(server, &r)
	return r.as
}

type recorder struct {
	as []output.Announcement
}

func (r *recorder) SendMessage(nt, usn string, rootDevice upnp.Device) {
	r.as = append(r.as, output.Announcement{
		RootDevice: rootDevice.UDN(),
		NT:         nt,
		USN:        usn,
	})
}
