package configuration

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type Root struct {
	Log         Log         `yaml:"log" json:"log"`
	SSDP        SSDP        `yaml:"ssdp" json:"ssdp"`
	Network     Network     `yaml:"network" json:"network"`
	Description Description `yaml:"description" json:"description"`
	DeviceTree  DeviceTree  `yaml:"deviceTree" json:"deviceTree"`

	files []string
}

// EmptyRoot returns a configuration filled with the defaults.
func EmptyRoot() *Root {
	return &Root{
		Log: Log{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		SSDP: SSDP{
			AdvertisementExpiration: 1800,
			TTL:                     2,
			HopLimit:                2,
			ServerName:              "ssdpd",
		},
		Network: Network{
			IPv4:         true,
			IPv6:         true,
			PollInterval: defaultPollInterval,
		},
		Description: Description{
			Port:       8200,
			PathPrefix: "/description",
		},
	}
}

func (c *Root) Init() {
	c.Log.init()
	c.SSDP.init()
	c.Network.init()
	c.Description.init()
	c.DeviceTree.init()
}

func (c *Root) SetFlags(cmd *cobra.Command, fs *pflag.FlagSet) {
	c.Log.setFlags(cmd, fs)
	c.SSDP.setFlags(cmd, fs)
	c.Network.setFlags(cmd, fs)
	c.Description.setFlags(cmd, fs)
	c.DeviceTree.setFlags(cmd, fs)
}

func (c *Root) MergeFlags() {
	c.Log.mergeFlags()
	c.SSDP.mergeFlags()
	c.Network.mergeFlags()
	c.Description.mergeFlags()
	c.DeviceTree.mergeFlags()
}

func (c *Root) Validate() error {
	if err := c.Log.validate(); err != nil {
		return fmt.Errorf("invalid log configuration: %w", err)
	}
	if err := c.SSDP.validate(); err != nil {
		return fmt.Errorf("invalid ssdp configuration: %w", err)
	}
	if err := c.Network.validate(); err != nil {
		return fmt.Errorf("invalid network configuration: %w", err)
	}
	if err := c.Description.validate(); err != nil {
		return fmt.Errorf("invalid description configuration: %w", err)
	}
	if err := c.DeviceTree.validate(); err != nil {
		return fmt.Errorf("invalid device tree configuration: %w", err)
	}

	return nil
}
