package root

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/forestnode-io/ssdpd/pkg/commands/config"
	"github.com/forestnode-io/ssdpd/pkg/commands/search"
	"github.com/forestnode-io/ssdpd/pkg/commands/serve"
	"github.com/forestnode-io/ssdpd/pkg/commands/tree"
	"github.com/forestnode-io/ssdpd/pkg/commands/version"
	"github.com/forestnode-io/ssdpd/pkg/configuration"
	"github.com/forestnode-io/ssdpd/pkg/events"
	"github.com/forestnode-io/ssdpd/pkg/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

type rootCommand struct {
	cobra.Command

	config      *configuration.Root
	configPaths []string
	closeLog    func()
}

func ExecuteContext(ctx context.Context) error {
	root := newRootCommand()
	err := root.ExecuteContext(ctx)
	if err != nil {
		log.Logger().Error().Err(err).
			Msg("failed to execute root command")
		if events.GetExitCode(ctx) < 0 {
			events.SetExitCode(ctx, events.ExitCodeGenericFailure)
		}
	}
	if root.closeLog != nil {
		root.closeLog()
	}

	return err
}

// CobraCommand builds the command tree without running it, e.g. to render
// documentation.
func CobraCommand() *cobra.Command {
	return &newRootCommand().Command
}

func newRootCommand() *rootCommand {
	// template funcs need to be added before the usage templates are
	// rendered
	cobra.AddTemplateFunc("wrappedFlagUsages", wrappedFlagUsages)
	cobra.AddTemplateFunc("indent", func(p int, s string) string {
		padding := strings.Repeat(" ", p)
		return padding + strings.ReplaceAll(s, "\n", "\n"+padding)
	})

	root := rootCommand{
		config: configuration.EmptyRoot(),
	}
	root.Use = "ssdpd"
	root.Short = "Announce UPnP devices on the local network"
	root.Long = `ssdpd announces a set of UPnP devices with SSDP and answers the searches of control points.
The devices are described by a YAML device tree. Serving the description documents is left to another program,
ssdpd only announces where to find them.`
	root.SilenceUsage = true
	root.PersistentPreRunE = root.init

	root.config.Init()
	pflags := root.PersistentFlags()
	pflags.StringArrayVarP(&root.configPaths, "config", "c", nil, `Config file to read, may be given several times.
Later files override earlier ones. Defaults to $SSDPD_CONFIG or <user config dir>/ssdpd/config.yaml`)
	_ = cobra.MarkFlagFilename(pflags, "config", "yaml", "yml", "json")
	root.config.SetFlags(&root.Command, pflags)

	for _, sc := range subCommands(root.config) {
		sc.Flags().BoolP("help", "h", false, "Show this help message.")
		root.AddCommand(sc)
	}

	root.SetHelpTemplate(helpTemplate)
	root.SetUsageTemplate(usageTemplate)

	return &root
}

func subCommands(conf *configuration.Root) []*cobra.Command {
	return []*cobra.Command{
		config.New(conf).Cobra(),
		serve.New(conf).Cobra(),
		search.New(conf).Cobra(),
		tree.New(conf).Cobra(),
		version.New().Cobra(),
	}
}

// init reads the config files, applies the flags on top and sets up logging.
// Validation is left to the subcommands since not all of them need a
// complete configuration.
func (r *rootCommand) init(cmd *cobra.Command, _ []string) error {
	paths := r.configPaths
	if len(paths) == 0 {
		paths = configuration.DefaultConfigPaths()
	}
	if err := r.config.Load(paths...); err != nil {
		events.SetExitCode(cmd.Context(), events.ExitCodeConfigFailure)
		return err
	}
	r.config.MergeFlags()

	ctx, closeLog, err := log.Logging(cmd.Context(), r.config.Log.Options())
	if err != nil {
		events.SetExitCode(cmd.Context(), events.ExitCodeConfigFailure)
		return fmt.Errorf("unable to set up logging: %w", err)
	}
	r.closeLog = closeLog
	cmd.SetContext(ctx)

	zerolog.Ctx(ctx).Debug().
		Strs("configFiles", paths).
		Str("command", cmd.Name()).
		Msg("configuration loaded")

	return nil
}

func wrappedFlagUsages(fs *pflag.FlagSet) string {
	return fs.FlagUsagesWrapped(terminalWidth())
}

// termSize is replaced in tests.
var termSize = term.GetSize

func terminalWidth() int {
	if w, _, err := termSize(int(os.Stdout.Fd())); err == nil && 40 < w {
		return w
	}
	return 100
}
