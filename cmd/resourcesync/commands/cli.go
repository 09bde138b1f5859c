// Package commands defines the resourcesync command line.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/resourcesync/internal/config"
	rserrors "git.home.luguber.info/inful/resourcesync/internal/errors"
	"git.home.luguber.info/inful/resourcesync/internal/generator"
	"git.home.luguber.info/inful/resourcesync/internal/version"
)

// LogLevelEnv overrides the log level chosen by --verbose.
const LogLevelEnv = "RESOURCESYNC_LOG_LEVEL"

// CLI definition & global flags. Exactly one mode flag selects what runs.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path (.cfg, .properties or .yaml)" default:"resourcesync.cfg" type:"path"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log output format (text|json)" enum:"text,json" default:"text"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init   bool `short:"i" xor:"mode" help:"Create the ResourceSync documents from scratch, replacing the output directory contents"`
	Update bool `short:"u" xor:"mode" help:"Publish a change list covering everything modified since the last run"`
	Rebase bool `short:"r" xor:"mode" help:"Rebuild the resource list, then publish a change list like --update"`
	Serve  bool `xor:"mode" help:"Serve the output directory and run scheduled updates"`
}

// Options returns the kong options shared by main and tests.
func Options() []kong.Option {
	return []kong.Option{
		kong.Name("resourcesync"),
		kong.Description("Generate ResourceSync documents for a digital object repository."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	}
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply(kctx *kong.Context) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	if raw, ok := os.LookupEnv(LogLevelEnv); ok {
		level = config.ParseLogLevel(raw)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch config.NormalizeLogFormat(c.LogFormat) {
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(kctx.Stderr, opts)
	default:
		handler = slog.NewTextHandler(kctx.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// Mode returns the generator mode selected on the command line, if any.
func (c *CLI) Mode() (generator.Mode, bool) {
	switch {
	case c.Init:
		return generator.ModeInit, true
	case c.Update:
		return generator.ModeUpdate, true
	case c.Rebase:
		return generator.ModeRebase, true
	default:
		return "", false
	}
}

// Execute runs the selected mode and returns the process exit code. Without
// a mode the usage text is printed and nothing else happens.
func (c *CLI) Execute(ctx context.Context, kctx *kong.Context) int {
	code := 0
	adapter := rserrors.NewCLIErrorAdapter(c.Verbose, slog.Default()).
		WithOutput(kctx.Stderr, func(exit int) { code = exit })

	if c.Serve {
		adapter.HandleError(runServe(ctx, c.Config))
		return code
	}
	if mode, ok := c.Mode(); ok {
		adapter.HandleError(runOnce(ctx, c.Config, mode))
		return code
	}
	if err := kctx.PrintUsage(false); err != nil {
		return 1
	}
	return 0
}
