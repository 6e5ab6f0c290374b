package serve

import (
	"fmt"
	"os"
	"sync"

	"github.com/forestnode-io/ssdpd/pkg/configuration"
	"github.com/forestnode-io/ssdpd/pkg/devicetree"
	"github.com/forestnode-io/ssdpd/pkg/events"
	network "github.com/forestnode-io/ssdpd/pkg/net"
	"github.com/forestnode-io/ssdpd/pkg/output"
	"github.com/forestnode-io/ssdpd/pkg/server"
	"github.com/forestnode-io/ssdpd/pkg/version"
	"github.com/rs/zerolog"
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
		Use:   "serve",
		Short: "Announce the device tree until interrupted",
		Long: `Announce the device tree on every usable network address and answer searches until interrupted.
On exit the devices are revoked with ssdp:byebye.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.config.Validate(); err != nil {
				events.SetExitCode(cmd.Context(), events.ExitCodeConfigFailure)
				cmd.SilenceUsage = false
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return nil
		},
		RunE: c.run,
	}
	c.cobraCommand.Flags().Bool("no-color", false, "Disable color output.")

	return c.cobraCommand
}

func (c *Cmd) run(cmd *cobra.Command, args []string) error {
	var (
		ctx    = cmd.Context()
		log    = zerolog.Ctx(ctx)
		config = c.config
	)

	tree, err := devicetree.LoadFile(config.DeviceTree.Path)
	if err != nil {
		events.SetExitCode(ctx, events.ExitCodeConfigFailure)
		return err
	}

	noColor, _ := cmd.Flags().GetBool("no-color")
	printer := output.New(os.Stdout, noColor)
	events.RegisterEventListener(ctx, printer.Listen)

	srv := server.New(ctx, tree, ServerConfig(config))
	if err := srv.Bind(ctx); err != nil {
		srv.Close()
		return fmt.Errorf("unable to start ssdp server: %w", err)
	}

	var wg sync.WaitGroup
	if config.DeviceTree.Watch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := devicetree.Watch(ctx, config.DeviceTree.Path, func(t *devicetree.Tree) {
				srv.UpdateConfiguration(ctx, t)
			})
			if err != nil {
				log.Error().Err(err).
					Msg("device tree watcher stopped")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	wg.Wait()
	err = srv.Close()

	// let the printer drain
	events.Stop(ctx)
	printer.Wait()

	if err != nil {
		return fmt.Errorf("unable to shut down cleanly: %w", err)
	}
	events.SetExitCode(ctx, events.ExitCodeSuccess)
	return nil
}

// ServerConfig maps the configuration onto the server's settings.
func ServerConfig(config *configuration.Root) server.Config {
	return server.Config{
		AdvertisementExpiration: config.SSDP.AdvertisementExpiration,
		TTL:                     config.SSDP.TTL,
		HopLimit:                config.SSDP.HopLimit,
		SiteLocal:               config.SSDP.SiteLocal,
		ServerHeader:            server.ServerHeader(config.SSDP.ServerName, version.Version),
		Addresses: network.AddressOptions{
			IPv4:             config.Network.IPv4,
			IPv6:             config.Network.IPv6,
			Filter:           config.Network.Addresses,
			DefaultRouteOnly: config.Network.DefaultRouteOnly,
		},
		PollInterval:          config.Network.PollInterval,
		DescriptionPort:       config.Description.Port,
		DescriptionPathPrefix: config.Description.PathPrefix,
	}
}

