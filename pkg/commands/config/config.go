package config

import (
	"github.com/forestnode-io/ssdpd/pkg/commands/config/get"
	"github.com/forestnode-io/ssdpd/pkg/commands/config/path"
	"github.com/forestnode-io/ssdpd/pkg/configuration"
	"github.com/spf13/cobra"
)

func New(config *configuration.Root) *Cmd {
	return &Cmd{
		config: config,
	}
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
		Use:     "config",
		Aliases: []string{"conf", "configuration"},
		Short:   "Inspect the ssdpd configuration",
		Long:    "Inspect the configuration ssdpd ends up with after merging the config files and the flags.",
	}

	c.cobraCommand.AddCommand(subCommands(c.config)...)

	return c.cobraCommand
}

func subCommands(config *configuration.Root) []*cobra.Command {
	return []*cobra.Command{
		get.New(config).Cobra(),
		path.New(config).Cobra(),
	}
}
