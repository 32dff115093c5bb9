// peekerguard watches the front camera (or the display, or a synthetic
// device) for someone looking over the user's shoulder and raises a short
// on-screen alert when it sees a likely onlooker.
//
// By default it opens a small Tk control window with a Start/Stop toggle.
// With --headless it starts monitoring immediately and runs until
// interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/soocke/peekerguard-go/app"
	"github.com/soocke/peekerguard-go/config"
	"github.com/soocke/peekerguard-go/debug"
)

const defaultConfigPath = "peekerguard.yaml"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	configPath string
	backend    string
	logLevel   string
	logFormat  string
	headless   bool
	debug      bool
}

func newFlagSet(f *flags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("peekerguard", pflag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", defaultConfigPath, "configuration file (.yaml, .yml or .json); missing file means defaults")
	fs.StringVar(&f.backend, "backend", "", "capture backend: screen or synthetic")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: json or text")
	fs.BoolVar(&f.headless, "headless", false, "run without the control window and start monitoring immediately")
	fs.BoolVar(&f.debug, "debug", false, "enable debug logging and periodic runtime stats")
	fs.BoolP("help", "h", false, "show help")
	return fs
}

// applyFlags overrides file values with flags the user actually set.
func applyFlags(fs *pflag.FlagSet, f *flags, cfg *config.Config) {
	if fs.Changed("backend") {
		cfg.Backend = f.backend
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if fs.Changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if fs.Changed("headless") {
		cfg.Headless = f.headless
	}
	if fs.Changed("debug") {
		cfg.Debug = f.debug
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
}

func run(args []string) error {
	var f flags
	fs := newFlagSet(&f)
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(fs)
			return nil
		}
		return err
	}
	if help, _ := fs.GetBool("help"); help {
		printHelp(fs)
		return nil
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(fs, &f, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := NewLogger(parseLevel(cfg.LogLevel), cfg.LogFormat)
	logger.Info("starting", "config", f.configPath, "backend", cfg.Backend, "headless", cfg.Headless)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Debug {
		debug.StartRuntimeLogger(ctx, 5*time.Second, logger.With("component", "runtime"))
	}

	if cfg.Headless {
		c, err := app.BuildContainer(cfg, logger, app.Host{})
		if err != nil {
			return err
		}
		return app.RunHeadless(ctx, c)
	}
	a, err := app.NewApp("PeekerGuard", 460, 260, cfg, logger)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		logger.Info("signal received, closing window")
		a.Quit()
	}()
	a.Start()
	return nil
}

func printHelp(fs *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: peekerguard [flags]\n\n")
	fmt.Fprintf(os.Stderr, "Watches for onlookers and shows a privacy alert.\n\nFlags:\n")
	fs.PrintDefaults()
}
