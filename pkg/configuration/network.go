package configuration

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const defaultPollInterval = 30 * time.Second

type Network struct {
	IPv4 bool `yaml:"ipv4" json:"ipv4"`
	IPv6 bool `yaml:"ipv6" json:"ipv6"`
	// Addresses restricts SSDP to these local addresses when not empty.
	Addresses        []string      `yaml:"addresses" json:"addresses"`
	DefaultRouteOnly bool          `yaml:"defaultRouteOnly" json:"defaultRouteOnly"`
	PollInterval     time.Duration `yaml:"pollInterval" json:"pollInterval"`

	fs *pflag.FlagSet
}

func (c *Network) init() {
	c.fs = pflag.NewFlagSet("Network Flags", pflag.ExitOnError)

	c.fs.Bool("ipv4", true, "Announce on IPv4 addresses.")
	c.fs.Bool("ipv6", true, "Announce on IPv6 addresses.")
	c.fs.StringSlice("address", nil, `Comma separated list of local addresses to announce on.
IPv6 link-local addresses may carry a zone, e.g. fe80::1%eth0.
All usable addresses are used if not set.`)
	c.fs.Bool("default-route-only", false, "Only announce on the address used to reach the default gateway.")
	c.fs.Duration("poll-interval", defaultPollInterval, `How often to check the network interfaces for changes.
0 disables the check.`)

	cobra.AddTemplateFunc("networkFlags", func() *pflag.FlagSet {
		return c.fs
	})
}

func (c *Network) setFlags(cmd *cobra.Command, fs *pflag.FlagSet) {
	fs.AddFlagSet(c.fs)
	cmd.MarkFlagsMutuallyExclusive("address", "default-route-only")
}

func (c *Network) mergeFlags() {
	if c.fs.Changed("ipv4") {
		c.IPv4, _ = c.fs.GetBool("ipv4")
	}
	if c.fs.Changed("ipv6") {
		c.IPv6, _ = c.fs.GetBool("ipv6")
	}
	if c.fs.Changed("address") {
		c.Addresses, _ = c.fs.GetStringSlice("address")
	}
	if c.fs.Changed("default-route-only") {
		c.DefaultRouteOnly, _ = c.fs.GetBool("default-route-only")
	}
	if c.fs.Changed("poll-interval") {
		c.PollInterval, _ = c.fs.GetDuration("poll-interval")
	}
}

func (c *Network) validate() error {
	if !c.IPv4 && !c.IPv6 {
		return errors.New("at least one of ipv4 and ipv6 must be enabled")
	}
	if c.PollInterval < 0 {
		return errors.New("poll interval must not be negative")
	}
	for _, a := range c.Addresses {
		host, _, _ := strings.Cut(a, "%")
		if net.ParseIP(host) == nil {
			return fmt.Errorf("invalid address %q", a)
		}
	}
	return nil
}
