package configuration

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type DeviceTree struct {
	Path string `yaml:"path" json:"path"`
	// Watch reloads the tree when the file changes.
	Watch bool `yaml:"watch" json:"watch"`

	fs *pflag.FlagSet
}

func (c *DeviceTree) init() {
	c.fs = pflag.NewFlagSet("Device Tree Flags", pflag.ExitOnError)

	c.fs.StringP("device-tree", "d", "", "YAML file describing the devices to announce.")
	c.fs.Bool("watch", false, "Reload the device tree when its file changes.")

	cobra.AddTemplateFunc("deviceTreeFlags", func() *pflag.FlagSet {
		return c.fs
	})
}

func (c *DeviceTree) setFlags(cmd *cobra.Command, fs *pflag.FlagSet) {
	fs.AddFlagSet(c.fs)
	_ = cobra.MarkFlagFilename(fs, "device-tree", "yaml", "yml")
}

func (c *DeviceTree) mergeFlags() {
	if c.fs.Changed("device-tree") {
		c.Path, _ = c.fs.GetString("device-tree")
	}
	if c.fs.Changed("watch") {
		c.Watch, _ = c.fs.GetBool("watch")
	}
}

func (c *DeviceTree) validate() error {
	if c.Path == "" {
		return ErrNoDeviceTree
	}
	return nil
}
