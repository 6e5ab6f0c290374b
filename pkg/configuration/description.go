package configuration

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Description tells where the description documents are served. ssdpd only
// announces the URLs, serving them is up to another program.
type Description struct {
	Port       int    `yaml:"port" json:"port"`
	PathPrefix string `yaml:"pathPrefix" json:"pathPrefix"`

	fs *pflag.FlagSet
}

func (c *Description) init() {
	c.fs = pflag.NewFlagSet("Description Flags", pflag.ExitOnError)

	c.fs.Int("description-port", 8200, "HTTP port the device description documents are served on.")
	c.fs.String("description-path-prefix", "/description", `URL path the description documents are served under.
The document of a root device is expected at <prefix>/<uuid>.xml`)

	cobra.AddTemplateFunc("descriptionFlags", func() *pflag.FlagSet {
		return c.fs
	})
}

func (c *Description) setFlags(cmd *cobra.Command, fs *pflag.FlagSet) {
	fs.AddFlagSet(c.fs)
}

func (c *Description) mergeFlags() {
	if c.fs.Changed("description-port") {
		c.Port, _ = c.fs.GetInt("description-port")
	}
	if c.fs.Changed("description-path-prefix") {
		c.PathPrefix, _ = c.fs.GetString("description-path-prefix")
	}
}

func (c *Description) validate() error {
	if c.Port < 1 || 65535 < c.Port {
		return errors.New("port must be between 1 and 65535")
	}
	return nil
}
