package configuration

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type SSDP struct {
	// AdvertisementExpiration in seconds.
	AdvertisementExpiration int    `yaml:"advertisementExpiration" json:"advertisementExpiration"`
	TTL                     int    `yaml:"ttl" json:"ttl"`
	HopLimit                int    `yaml:"hopLimit" json:"hopLimit"`
	SiteLocal               bool   `yaml:"siteLocal" json:"siteLocal"`
	ServerName              string `yaml:"serverName" json:"serverName"`

	fs *pflag.FlagSet
}

func (c *SSDP) init() {
	c.fs = pflag.NewFlagSet("SSDP Flags", pflag.ExitOnError)

	c.fs.Int("advertisement-expiration", 1800, `Seconds an advertisement stays valid (CACHE-CONTROL max-age).
Advertisements are repeated before half of this time has passed.`)
	c.fs.Int("ttl", 2, "IP TTL of multicast messages sent over IPv4.")
	c.fs.Int("hop-limit", 2, "Hop limit of multicast messages sent over IPv6.")
	c.fs.Bool("site-local", false, "Use the site-local multicast group (ff05::c) for global IPv6 addresses.")
	c.fs.String("server-name", "ssdpd", "Product name announced in the SERVER header.")

	cobra.AddTemplateFunc("ssdpFlags", func() *pflag.FlagSet {
		return c.fs
	})
}

func (c *SSDP) setFlags(cmd *cobra.Command, fs *pflag.FlagSet) {
	fs.AddFlagSet(c.fs)
}

func (c *SSDP) mergeFlags() {
	if c.fs.Changed("advertisement-expiration") {
		c.AdvertisementExpiration, _ = c.fs.GetInt("advertisement-expiration")
	}
	if c.fs.Changed("ttl") {
		c.TTL, _ = c.fs.GetInt("ttl")
	}
	if c.fs.Changed("hop-limit") {
		c.HopLimit, _ = c.fs.GetInt("hop-limit")
	}
	if c.fs.Changed("site-local") {
		c.SiteLocal, _ = c.fs.GetBool("site-local")
	}
	if c.fs.Changed("server-name") {
		c.ServerName, _ = c.fs.GetString("server-name")
	}
}

func (c *SSDP) validate() error {
	if c.AdvertisementExpiration < 1 {
		return errors.New("advertisement expiration must be at least one second")
	}
	if c.TTL < 1 || 255 < c.TTL {
		return errors.New("ttl must be between 1 and 255")
	}
	if c.HopLimit < 1 || 255 < c.HopLimit {
		return errors.New("hop limit must be between 1 and 255")
	}
	return nil
}
