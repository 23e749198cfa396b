package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harrison/nbcheck/internal/config"
	"github.com/harrison/nbcheck/internal/history"
	"github.com/harrison/nbcheck/internal/logger"
	"github.com/harrison/nbcheck/internal/runner"
	"github.com/harrison/nbcheck/internal/suite"
	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [notebook...]",
		Short: "Execute notebooks and report the outcome of each",
		Long: `Execute notebooks one after another, each in a fresh kernel.

Without arguments the notebooks are discovered from the configuration:
every file in notebooks_dir matching one of the patterns, followed by the
explicitly listed notebooks.

Each notebook's kernelspec is set to the kernel being used before it runs.
A cell error whose traceback contains the skip marker skips the notebook;
any other error fails it and no later cell runs.

Exit code: 0 if every notebook passed or was skipped, 1 otherwise.

Examples:
  nbcheck run                              # Run the configured notebooks
  nbcheck run notebooks/intro.ipynb        # Run one notebook
  nbcheck run --kernel python3 --timeout 5m
  nbcheck run --output-dir build/executed  # Keep executed notebooks
  nbcheck run --fail-fast --log-level debug`,
		RunE: runCommand,
	}

	cmd.Flags().String("kernel", "", "Kernel name (default: python<major> of the interpreter)")
	cmd.Flags().String("timeout", "", "Per-cell timeout (e.g., 30s, 20m); 0 uses the default")
	cmd.Flags().String("work-dir", "", "Kernel working directory (default: project root)")
	cmd.Flags().String("output-dir", "", "Directory to write executed notebooks to")
	cmd.Flags().String("log-dir", "", "Directory for log files")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.Flags().Bool("fail-fast", false, "Stop after the first failing notebook")
	cmd.Flags().Bool("allow-errors", false, "Record cell errors and keep executing")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")

	return cmd
}

// overridesFromFlags collects the flags the user actually set.
func overridesFromFlags(cmd *cobra.Command) (config.Overrides, error) {
	var o config.Overrides
	flags := cmd.Flags()

	stringFlag := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetString(name)
		return &v
	}
	boolFlag := func(name string) *bool {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetBool(name)
		return &v
	}

	o.KernelName = stringFlag("kernel")
	o.WorkDir = stringFlag("work-dir")
	o.OutputDir = stringFlag("output-dir")
	o.LogDir = stringFlag("log-dir")
	o.LogLevel = stringFlag("log-level")
	o.FailFast = boolFlag("fail-fast")
	o.AllowErrors = boolFlag("allow-errors")
	o.NoHistory = boolFlag("no-history")

	if s := stringFlag("timeout"); s != nil {
		timeout, err := time.ParseDuration(*s)
		if err != nil {
			return o, fmt.Errorf("invalid timeout format: %w", err)
		}
		o.Timeout = &timeout
	}

	return o, nil
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}

	overrides, err := overridesFromFlags(cmd)
	if err != nil {
		return err
	}
	p.cfg.MergeWithFlags(overrides)
	if err := p.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg := p.cfg

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	loggers := []logger.Logger{console}
	if cfg.LogDir != "" {
		fileLogger, err := logger.NewFileLogger(p.path(cfg.LogDir), cfg.LogLevel)
		if err != nil {
			console.LogWarn(fmt.Sprintf("file logging disabled: %v", err))
		} else {
			defer fileLogger.Close()
			loggers = append(loggers, fileLogger)
		}
	}
	log := logger.NewMultiLogger(loggers...)

	found, err := p.notebooks(args)
	if err != nil {
		return err
	}
	if len(found.Notebooks) == 0 {
		return fmt.Errorf("no notebooks found")
	}
	for _, missing := range found.Missing {
		log.LogWarn(fmt.Sprintf("notebook not found: %s", missing))
	}

	kernelName, executable, err := p.kernel(ctx)
	if err != nil {
		return fmt.Errorf("failed to determine kernel: %w", err)
	}
	log.LogDebug(fmt.Sprintf("kernel %s, project root %s", kernelName, p.root))

	r, err := runner.New(newLauncher(), runner.Config{
		KernelName:  kernelName,
		Executable:  executable,
		Timeout:     cfg.Kernel.Timeout,
		WorkDir:     p.workDir(),
		AllowErrors: cfg.Kernel.AllowErrors,
		SkipMarker:  cfg.SkipMarker,
		Stdout:      cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	s := suite.New(r, suite.Config{
		FailFast:  cfg.FailFast,
		OutputDir: p.path(cfg.OutputDir),
	})
	s.SetLogger(log)

	if cfg.History.Enabled {
		store, err := history.NewStore(p.path(cfg.History.DBPath))
		if err != nil {
			log.LogWarn(fmt.Sprintf("run history disabled: %v", err))
		} else {
			defer store.Close()
			s.SetRecorder(store)
		}
	}

	result, err := s.Run(ctx, found.Notebooks)
	if err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}
	if !result.OK() {
		return fmt.Errorf("%d of %d notebook(s) failed", result.Failed+result.Errored, result.Total)
	}
	return nil
}
