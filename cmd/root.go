// Package cmd wires the minigraph packages into a cobra command tree: the
// interactive card, one-shot target resolution, graph inspection, a
// reference host, and the HTTP API.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"gitlab.com/tinyland/lab/minigraph/pkg/config"
)

// Exit codes returned by Execute.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	// ExitCodeConfig is returned when the configuration cannot be loaded or
	// fails validation.
	ExitCodeConfig = 2
)

var version = "dev"

// SetVersion sets the version reported by --version and the version command.
func SetVersion(v string) {
	version = v
}

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	verbose    bool
	output     string
	noColor    bool
}

type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "minigraph",
		Short: "Resolve mini graph card taps into navigation targets",
		Long: `minigraph renders a compact dependency graph for one resource and turns
taps on its elements into deterministic navigation targets: details pages,
the full namespace graph, or the node graph. Targets are pushed onto a local
history or posted to an embedding host over a unix socket or websocket.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor || !isatty.IsTerminal(os.Stdout.Fd()) {
				color.NoColor = true
			}
		},
	}
	root.SetVersionTemplate(`{{printf "minigraph version %s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/minigraph/config.toml)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVarP(&opts.output, "output", "o", "table", "output format: table, json, yaml")
	pf.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newTUICmd(opts),
		newResolveCmd(opts),
		newFullGraphCmd(opts),
		newNodeGraphCmd(opts),
		newGraphCmd(opts),
		newHostCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command tree and exits with a code derived from the
// returned error.
func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		return ExitCodeConfig
	}
	return ExitCodeError
}

// loadConfig reads the file named by --config or searches the XDG paths,
// then validates the result.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, &configError{fmt.Errorf("load config: %w", err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &configError{fmt.Errorf("invalid config: %w", err)}
	}
	return cfg, nil
}

// resolvedConfigPath returns the file a watcher should follow, or "" when
// running on defaults.
func (o *rootOptions) resolvedConfigPath() string {
	if o.configPath != "" {
		return o.configPath
	}
	for _, p := range config.SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// newLogger builds a text logger at the configured level, or debug when
// --verbose is set.
func (o *rootOptions) newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, err := config.ParseLogLevel(cfg.General.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openLogFile opens the TUI log file, creating its directory.
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of minigraph",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "minigraph version %s\n", version)
		},
	}
}
