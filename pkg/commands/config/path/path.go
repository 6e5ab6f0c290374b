package path

import (
	"errors"
	"fmt"

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
		Use:     "path",
		Aliases: []string{"location", "file"},
		Short:   "Print the config files in use",
		Long:    "Print the config files in use, one per line, in the order they are merged.",
		RunE:    c.run,
		Args:    cobra.NoArgs,
	}

	return c.cobraCommand
}

func (c *Cmd) run(cmd *cobra.Command, args []string) error {
	files := c.config.Files()
	if len(files) == 0 {
		return errors.New("no configuration file in use")
	}
	for _, f := range files {
		fmt.Fprintln(cmd.OutOrStdout(), f)
	}
	return nil
}
