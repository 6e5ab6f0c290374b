package version

import (
	"encoding/json"
	"fmt"

	"github.com/forestnode-io/ssdpd/pkg/version"
	"github.com/spf13/cobra"
)

func New() *Cmd {
	return &Cmd{}
}

type Cmd struct {
	cobraCommand *cobra.Command
}

func (c *Cmd) Cobra() *cobra.Command {
	if c.cobraCommand != nil {
		return c.cobraCommand
	}
	c.cobraCommand = &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				payload := map[string]string{}
				if ver := version.Version; ver != "" {
					payload["version"] = ver
				}
				if license := version.License; license != "" {
					payload["license"] = license
				}
				if credit := version.Credit; credit != "" {
					payload["credit"] = credit
				}

				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(payload)
			}

			if ver := version.Version; ver != "" {
				fmt.Fprintf(out, "version: %s\n", ver)
			}
			if license := version.License; license != "" {
				fmt.Fprintf(out, "license: %s\n", license)
			}
			if credit := version.Credit; credit != "" {
				fmt.Fprintf(out, "credit: %s\n", credit)
			}
			return nil
		},
	}
	c.cobraCommand.Flags().Bool("json", false, "Print the version information as JSON.")

	return c.cobraCommand
}
