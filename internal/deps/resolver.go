// Package deps checks that a formula's dependencies are present and, when a
// dependency installer is configured, installs the missing ones.
package deps

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/esphen/keg/internal/codes"
	"github.com/esphen/keg/internal/formula"
)

// Commander interface for testing
type Commander interface {
	Run() error
}

// Resolver confirms dependency presence
type Resolver struct {
	// probes maps a dependency name to the command whose success means present
	probes map[string][]string

	// installer is the command prefix used to install a missing dependency
	installer []string

	silent bool
	log    *slog.Logger

	lookPath    func(name string) (string, error)
	execCommand func(name string, args ...string) Commander
}

// Option configures a Resolver
type Option func(*Resolver)

// WithProbes sets per-dependency probe commands
func WithProbes(probes map[string][]string) Option {
	return func(r *Resolver) { r.probes = probes }
}

// WithInstaller sets the command used to install missing dependencies,
// e.g. ["brew", "install"]
func WithInstaller(argv []string) Option {
	return func(r *Resolver) { r.installer = argv }
}

// WithSilent hides installer output
func WithSilent(silent bool) Option {
	return func(r *Resolver) { r.silent = silent }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// NewResolver creates a resolver that probes with exec.LookPath by default
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		log:      slog.Default(),
		lookPath: exec.LookPath,
		execCommand: func(name string, args ...string) Commander {
			return exec.Command(name, args...)
		},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve makes sure every dependency is present, installing missing ones
// when possible. Build-time and run-time dependencies are both required
// before anything is built.
func (r *Resolver) Resolve(deps []formula.Dependency) error {
	for _, d := range deps {
		if r.Present(d.Name) {
			r.log.Debug("dependency present", "dependency", d.Name, "scope", d.Scope)
			continue
		}

		if len(r.installer) == 0 {
			return &codes.DependencyUnavailableError{Name: d.Name, Scope: string(d.Scope)}
		}

		r.log.Info("installing dependency", "dependency", d.Name, "scope", d.Scope)

		if err := r.install(d.Name); err != nil {
			return &codes.DependencyUnavailableError{Name: d.Name, Scope: string(d.Scope), Err: err}
		}

		if !r.Present(d.Name) {
			return &codes.DependencyUnavailableError{
				Name:  d.Name,
				Scope: string(d.Scope),
				Err:   errors.New("still missing after install"),
			}
		}
	}

	return nil
}

// CheckRuntime reports the run-time dependencies that are missing now.
// Build-time-only dependencies are ignored: they may be gone after install.
func (r *Resolver) CheckRuntime(deps []formula.Dependency) []formula.Dependency {
	var missing []formula.Dependency
	for _, d := range deps {
		if d.Scope != formula.ScopeRuntime {
			continue
		}

		if !r.Present(d.Name) {
			missing = append(missing, d)
		}
	}

	return missing
}

// Present probes a single dependency
func (r *Resolver) Present(name string) bool {
	if probe, ok := r.probes[name]; ok && len(probe) > 0 {
		return r.execCommand(probe[0], probe[1:]...).Run() == nil
	}

	_, err := r.lookPath(name)
	return err == nil
}

func (r *Resolver) install(name string) error {
	args := append(append([]string(nil), r.installer[1:]...), name)

	c := r.execCommand(r.installer[0], args...)
	if cmd, ok := c.(*exec.Cmd); ok && !r.silent {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := c.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", r.installer[0], strings.Join(args, " "), err)
	}

	return nil
}
