package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	log = zerolog.New(io.Discard)
)

type Options struct {
	// Level is a zerolog level name, SSDPD_LOG_LEVEL takes precedence.
	Level string
	// Dir holds ssdpd.log, SSDPD_LOG_DIR takes precedence. Defaults to the
	// user cache directory.
	Dir string
	// Stderr sends logs to stderr instead of the log file.
	Stderr     bool
	MaxSizeMB  int
	MaxBackups int
}

// Logging builds the process logger and stores it in ctx.
// The returned func closes the log file.
func Logging(ctx context.Context, opts *Options) (context.Context, func(), error) {
	cleanup := func() {}
	if opts == nil {
		opts = &Options{}
	}

	logDir := os.Getenv("SSDPD_LOG_DIR")
	if logDir == "" {
		logDir = opts.Dir
	}
	if logDir == "" {
		if cacheDir, _ := os.UserCacheDir(); cacheDir != "" {
			logDir = filepath.Join(cacheDir, "ssdpd")
			if err := os.Mkdir(logDir, os.ModeDir|0700); err != nil {
				if !os.IsExist(err) {
					logDir = ""
				}
			}
		}
	}

	var output io.Writer = io.Discard
	if logDir != "" {
		lj := &lumberjack.Logger{
			Filename:   filepath.Join(logDir, "ssdpd.log"),
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		output = lj
		cleanup = func() {
			lj.Close()
		}
	}

	if opts.Stderr || os.Getenv("SSDPD_LOG_STDERR") != "" {
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			output = zerolog.ConsoleWriter{Out: os.Stderr}
		} else {
			output = os.Stderr
		}
	}

	levelString := os.Getenv("SSDPD_LOG_LEVEL")
	if levelString == "" {
		levelString = opts.Level
	}
	level := zerolog.InfoLevel
	if levelString != "" {
		var err error
		level, err = zerolog.ParseLevel(levelString)
		if err != nil {
			return ctx, cleanup, fmt.Errorf("unable to parse log level %q: %w", levelString, err)
		}
	}

	logContext := zerolog.New(output).
		Level(level).
		With().
		Timestamp()
	if level <= zerolog.DebugLevel {
		logContext = logContext.
			Caller()
	}

	log = logContext.Logger()

	ctx = log.WithContext(ctx)
	return ctx, cleanup, nil
}

func Logger() *zerolog.Logger {
	return &log
}
