package builder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/esphen/keg/internal/codes"
	"github.com/esphen/keg/internal/formula"
)

// Commander interface for testing
type Commander interface {
	Run() error
}

// Options control how build steps are run
type Options struct {
	// Dir is the source root every step runs in
	Dir string

	// Env is appended to the inherited environment
	Env []string

	// Silent suppresses step output on the console
	Silent bool

	// Log, when set, receives a copy of all step output
	Log io.Writer
}

// StepRunner executes formula build steps
type StepRunner struct {
	execCommand func(name string, args ...string) Commander
	log         *slog.Logger
}

// NewStepRunner creates a new step runner
func NewStepRunner(log *slog.Logger) *StepRunner {
	if log == nil {
		log = slog.Default()
	}

	return &StepRunner{
		execCommand: func(name string, args ...string) Commander {
			return exec.Command(name, args...)
		},
		log: log,
	}
}

// Run executes steps strictly in order. The first failing step aborts the
// run with *codes.BuildStepFailedError; later steps are never started.
func (sr *StepRunner) Run(steps []formula.Step, opts Options) error {
	for i, step := range steps {
		sr.log.Info("build step", "index", i, "command", step.String())
		start := time.Now()

		if err := sr.runStep(step, opts); err != nil {
			exitCode := -1

			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				exitCode = exitErr.ExitCode()
			}

			return &codes.BuildStepFailedError{
				Index:    i,
				ExitCode: exitCode,
				Step:     step.String(),
				Err:      err,
			}
		}

		sr.log.Debug("build step finished", "index", i, "duration", time.Since(start))
	}

	return nil
}

func (sr *StepRunner) runStep(step formula.Step, opts Options) error {
	c := sr.execCommand(step.Args[0], step.Args[1:]...)

	if cmd, ok := c.(*exec.Cmd); ok {
		cmd.Dir = opts.Dir
		cmd.Env = append(os.Environ(), opts.Env...)

		var stdout, stderr []io.Writer
		if !opts.Silent {
			stdout = append(stdout, os.Stdout)
			stderr = append(stderr, os.Stderr)
		}

		if opts.Log != nil {
			fmt.Fprintf(opts.Log, "==> %s\n", step.String())
			stdout = append(stdout, opts.Log)
			stderr = append(stderr, opts.Log)
		}

		if len(stdout) > 0 {
			cmd.Stdout = io.MultiWriter(stdout...)
			cmd.Stderr = io.MultiWriter(stderr...)
		}
	}

	return c.Run()
}
