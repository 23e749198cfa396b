package cmd

import (
	"context"
	"fmt"

	"github.com/harrison/nbcheck/internal/config"
	"github.com/harrison/nbcheck/internal/discovery"
	"github.com/harrison/nbcheck/internal/kernel"
	"github.com/spf13/cobra"
)

// defaultInterpreter is probed for its major version when neither a kernel
// name nor an interpreter major version is configured.
const defaultInterpreter = "python3"

// newLauncher starts real kernels; tests replace it with a scripted one.
var newLauncher = func() kernel.Launcher {
	return kernel.NewSubprocessLauncher()
}

// detectMajor is swapped out in tests that must not depend on an interpreter.
var detectMajor = kernel.DetectMajor

// project is the configuration of one nbcheck project and the directory
// relative paths resolve against.
type project struct {
	root string
	cfg  *config.Config
}

// loadProject finds the project root and loads its configuration, or the
// file named by --config.
func loadProject(cmd *cobra.Command) (*project, error) {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		return nil, fmt.Errorf("failed to locate project root: %w", err)
	}

	var cfg *config.Config
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(root)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	return &project{root: root, cfg: cfg}, nil
}

func (p *project) path(rel string) string {
	return config.Resolve(p.root, rel)
}

// notebooks returns the notebooks named on the command line, or the
// configured discovery set when there are none.
func (p *project) notebooks(args []string) (*discovery.Result, error) {
	if len(args) > 0 {
		return discovery.Discover(discovery.Options{Dir: ".", Notebooks: args})
	}
	return discovery.Discover(discovery.Options{
		Dir:       p.path(p.cfg.NotebooksDir),
		Patterns:  p.cfg.Patterns,
		Notebooks: p.cfg.Notebooks,
	})
}

// kernel resolves the kernel name and interpreter. An explicit name wins,
// then python<interpreter_major>, then the major version reported by the
// configured executable (or python3).
func (p *project) kernel(ctx context.Context) (name, executable string, err error) {
	k := p.cfg.Kernel
	executable = k.Executable

	switch {
	case k.Name != "":
		return k.Name, executable, nil
	case k.InterpreterMajor > 0:
		return kernel.NameForMajor(k.InterpreterMajor), executable, nil
	}

	if executable == "" {
		executable = defaultInterpreter
	}
	major, err := detectMajor(ctx, executable)
	if err != nil {
		return "", "", err
	}
	return kernel.NameForMajor(major), executable, nil
}

// workDir is the kernel working directory: the configured one, else the
// project root.
func (p *project) workDir() string {
	if p.cfg.Kernel.WorkDir == "" {
		return p.root
	}
	return p.path(p.cfg.Kernel.WorkDir)
}
