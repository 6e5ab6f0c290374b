package get

import (
	"fmt"

	"github.com/forestnode-io/ssdpd/pkg/configuration"
	"github.com/spf13/cobra"
	"github.com/vmware-labs/yaml-jsonpath/pkg/yamlpath"
	"gopkg.in/yaml.v3"
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
		Use:   "get [path]",
		Short: "Print a value of the effective configuration",
		Long: `Print a value of the effective configuration, selected with a YAML path such as $.ssdp.ttl.
Without a path the whole configuration is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: c.run,
	}

	return c.cobraCommand
}

func (c *Cmd) run(cmd *cobra.Command, args []string) error {
	var node yaml.Node
	if err := node.Encode(c.config); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	selected := &node
	if len(args) == 1 {
		path, err := yamlpath.NewPath(args[0])
		if err != nil {
			cmd.SilenceUsage = false
			return fmt.Errorf("failed to parse path: %w", err)
		}

		doc := yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{&node}}
		found, err := path.Find(&doc)
		if err != nil {
			return fmt.Errorf("failed to find path in configuration: %w", err)
		}
		if len(found) == 0 {
			return fmt.Errorf("no value found for %s", args[0])
		}
		selected = found[0]
	}

	out := cmd.OutOrStdout()
	if selected.Kind == yaml.ScalarNode {
		_, err := fmt.Fprintln(out, selected.Value)
		return err
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(selected); err != nil {
		return err
	}
	return enc.Close()
}
