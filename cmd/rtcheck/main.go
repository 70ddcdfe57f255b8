// Command rtcheck decides whether real-time task sets are schedulable and
// designs the resource interfaces that make them so.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/fentz26/rtcheck/internal/audit"
	"github.com/fentz26/rtcheck/internal/config"
	"github.com/fentz26/rtcheck/internal/logger"
	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/taskset"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// options is the state shared by every command of one invocation.
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	unit       string
	format     string
	output     string
	auditPath  string
	quiet      bool

	stdout io.Writer
	stderr io.Writer

	cfg      *config.Config
	logger   *slog.Logger
	audit    *audit.Log
	exitCode int
}

func newRootCmd(o *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rtcheck",
		Short: "rtcheck - schedulability analysis for real-time task sets",
		Long: `rtcheck runs published schedulability tests on sporadic task sets and synthesizes
periodic and multiprocessor periodic resource interfaces.

Exit status: 0 schedulable, 1 not schedulable (or no interface exists), 2 error.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup(cmd)
		},
		// No RunE - defaults to showing help when no subcommand is provided
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&o.configPath, "config", "", "Run profile (default ~/.rtcheck/profile.yaml)")
	flags.StringVar(&o.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&o.logFormat, "log-format", "", "Log format (text, json)")
	flags.BoolVarP(&o.quiet, "quiet", "q", false, "Print nothing; report through the exit status only")
	flags.StringVar(&o.unit, "unit", "", "Unit of bare numbers (s, ms, us, ns)")
	flags.StringVar(&o.format, "format", "", "Task set format (auto, plain, json, yaml)")
	flags.StringVarP(&o.output, "output", "o", outputText, "Output format (text, json)")
	flags.StringVar(&o.auditPath, "audit", "", "Append decision records as JSON lines to this file")

	rootCmd.AddCommand(newCheckCmd(o))
	rootCmd.AddCommand(newDesignCmd(o))
	rootCmd.AddCommand(newListCmd(o))
	rootCmd.AddCommand(newTUICmd(o))
	rootCmd.AddCommand(newProfileCmd(o))
	return rootCmd
}

// setup loads .env and the profile, applies the global flags and builds
// the logger.
func (o *options) setup(cmd *cobra.Command) error {
	if err := config.LoadEnv(); err != nil {
		return err
	}

	path := o.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = o.logFormat
	}
	if flags.Changed("unit") {
		cfg.Analysis.TimeUnit = o.unit
	}
	if flags.Changed("format") {
		cfg.Analysis.Format = o.format
	}
	if o.output != outputText && o.output != outputJSON {
		return fmt.Errorf("unknown output format %q", o.output)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg

	if o.quiet {
		o.logger = logger.Discard()
	} else {
		o.logger = logger.Init(logger.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Writer: o.stderr,
		})
	}
	o.audit = audit.NewLog()
	return nil
}

// out is where results go; quiet runs discard them.
func (o *options) out() io.Writer {
	if o.quiet {
		return io.Discard
	}
	return o.stdout
}

// loadTaskSet reads the task set named on the command line.
func (o *options) loadTaskSet(path string) (models.TaskSet, taskset.Options, error) {
	opts, err := o.cfg.TaskSetOptions()
	if err != nil {
		return nil, opts, err
	}
	ts, err := taskset.Load(path, opts)
	if err != nil {
		return nil, opts, err
	}
	o.logger.Debug("task set loaded", "path", path, "tasks", len(ts), "run_id", o.audit.RunID())
	return ts, opts, nil
}

// flushAudit appends the decision records of the run to --audit.
func (o *options) flushAudit() error {
	if o.auditPath == "" {
		return nil
	}
	f, err := os.OpenFile(o.auditPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit file: %w", err)
	}
	defer f.Close()
	return o.audit.WriteJSON(f)
}

// run executes rtcheck with args and returns the exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o := &options{stdout: stdout, stderr: stderr}
	rootCmd := newRootCmd(o)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !o.quiet {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return 2
	}
	return o.exitCode
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
