package configuration

import (
	"fmt"

	"github.com/forestnode-io/ssdpd/pkg/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type Log struct {
	Level      string `yaml:"level" json:"level"`
	Dir        string `yaml:"dir" json:"dir"`
	Stderr     bool   `yaml:"stderr" json:"stderr"`
	MaxSizeMB  int    `yaml:"maxSizeMB" json:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups" json:"maxBackups"`

	fs *pflag.FlagSet
}

func (c *Log) init() {
	c.fs = pflag.NewFlagSet("Log Flags", pflag.ExitOnError)

	c.fs.String("log-level", "info", `Log level, one of trace, debug, info, warn, error.
SSDPD_LOG_LEVEL takes precedence.`)
	c.fs.String("log-dir", "", `Directory to write ssdpd.log to.
Defaults to the user cache directory, SSDPD_LOG_DIR takes precedence.`)
	c.fs.Bool("log-stderr", false, "Log to stderr instead of the log file.")

	cobra.AddTemplateFunc("logFlags", func() *pflag.FlagSet {
		return c.fs
	})
}

func (c *Log) setFlags(cmd *cobra.Command, fs *pflag.FlagSet) {
	fs.AddFlagSet(c.fs)
	_ = cobra.MarkFlagDirname(fs, "log-dir")
}

func (c *Log) mergeFlags() {
	if c.fs.Changed("log-level") {
		c.Level, _ = c.fs.GetString("log-level")
	}
	if c.fs.Changed("log-dir") {
		c.Dir, _ = c.fs.GetString("log-dir")
	}
	if c.fs.Changed("log-stderr") {
		c.Stderr, _ = c.fs.GetBool("log-stderr")
	}
}

func (c *Log) validate() error {
	if c.Level != "" {
		if _, err := zerolog.ParseLevel(c.Level); err != nil {
			return fmt.Errorf("invalid level %q: %w", c.Level, err)
		}
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 {
		return fmt.Errorf("log rotation limits must not be negative")
	}
	return nil
}

// Options converts the section for log.Logging.
func (c *Log) Options() *log.Options {
	return &log.Options{
		Level:      c.Level,
		Dir:        c.Dir,
		Stderr:     c.Stderr,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
	}
}
