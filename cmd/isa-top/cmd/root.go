// Package cmd contains the isa-top command line interface implementation.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vladimirazarov/isa-top/internal/csvlog"
	"github.com/vladimirazarov/isa-top/internal/flow"
	"github.com/vladimirazarov/isa-top/internal/jsonsnap"
	"github.com/vladimirazarov/isa-top/internal/monitor"
	"github.com/vladimirazarov/isa-top/internal/render"
	"github.com/vladimirazarov/isa-top/pkg/logging"
)

// ExitConfigError and ExitCaptureError are the process exit codes used for
// the two classes of startup failure the CLI distinguishes; a clean
// shutdown, help or version invocation exits 0.
const (
	ExitConfigError  = 1
	ExitCaptureError = 2
)

type cliConfig struct {
	iface        string
	sortBy       string
	logPath      string
	promisc      bool
	logLevel     string
	debugJSONOut string
}

// newRootCmd builds the isa-top root command. Neither SilenceUsage nor
// SilenceErrors is set: a missing or unknown flag, or an error returned
// from run, gets cobra's default treatment of printing the error
// followed by the usage synopsis to stderr, the same default behavior
// the teacher's own root command relies on.
func newRootCmd(cfg *cliConfig) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "isa-top",
		Short: "isa-top shows live per-connection network bandwidth usage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	rootCmd.Flags().StringVarP(&cfg.iface, "interface", "i", "", "interface to monitor (required)")
	rootCmd.Flags().StringVarP(&cfg.sortBy, "sort", "s", "b", "sort key: b (bytes) or p (packets)")
	rootCmd.Flags().StringVarP(&cfg.logPath, "log", "l", "", "write a CSV flow log to this path")
	rootCmd.Flags().BoolVar(&cfg.promisc, "promisc", false, "enable promiscuous mode on the capture interface")
	rootCmd.Flags().StringVar(&cfg.logLevel, "log-level", "info", "diagnostic log level: debug, info, warn, error")
	rootCmd.Flags().StringVar(&cfg.debugJSONOut, "debug-json-snapshot", "", "write a machine-readable JSON snapshot to this path every tick")
	_ = rootCmd.Flags().MarkHidden("debug-json-snapshot")
	_ = rootCmd.MarkFlagRequired("interface")

	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the isa-top root command and returns its exit code.
func Execute() int {
	rootCmd := newRootCmd(&cliConfig{})

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(exitCoder); ok {
			return exitErr.ExitCode()
		}
		return ExitConfigError
	}
	return 0
}

type exitCoder interface {
	error
	ExitCode() int
}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) ExitCode() int { return e.code }
func (e *exitError) Unwrap() error { return e.err }

func run(baseCtx context.Context, cfg *cliConfig) error {
	level := logging.LevelFromString(cfg.logLevel)
	if level == logging.LevelUnknown {
		return &exitError{ExitConfigError, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", cfg.logLevel)}
	}
	if err := logging.Init(level, logging.EncodingLogfmt, logging.WithOutput(os.Stderr)); err != nil {
		return &exitError{ExitConfigError, fmt.Errorf("failed to initialize logging: %w", err)}
	}

	var sortBy flow.SortBy
	switch cfg.sortBy {
	case "b", "":
		sortBy = flow.ByBytes
	case "p":
		sortBy = flow.ByPackets
	default:
		return &exitError{ExitConfigError, fmt.Errorf("invalid sort key %q: must be \"b\" or \"p\"", cfg.sortBy)}
	}

	ctx, stop := signal.NotifyContext(baseCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.FromContext(ctx)

	session, err := monitor.Open(monitor.Config{
		Interface: cfg.iface,
		SortBy:    sortBy,
		Promisc:   cfg.promisc,
	})
	if err != nil {
		return &exitError{ExitCaptureError, fmt.Errorf("failed to open capture on %q: %w", cfg.iface, err)}
	}

	session.AddConsumer(render.New(os.Stdout))

	if cfg.logPath != "" {
		csvLogger, err := csvlog.Open(cfg.logPath)
		if err != nil {
			return &exitError{ExitConfigError, fmt.Errorf("failed to open CSV log %q: %w", cfg.logPath, err)}
		}
		defer csvLogger.Close()
		session.AddConsumer(csvLogger)
	}

	if cfg.debugJSONOut != "" {
		jsonLogger, err := jsonsnap.Open(cfg.debugJSONOut)
		if err != nil {
			return &exitError{ExitConfigError, fmt.Errorf("failed to open JSON snapshot %q: %w", cfg.debugJSONOut, err)}
		}
		defer jsonLogger.Close()
		session.AddConsumer(jsonLogger)
	}

	logger.Info("starting capture", "interface", cfg.iface)
	if err := session.Run(ctx); err != nil {
		return &exitError{ExitCaptureError, fmt.Errorf("capture on %q terminated: %w", cfg.iface, err)}
	}
	return nil
}
