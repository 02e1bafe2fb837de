package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/esphen/keg/internal/builder"
	"github.com/esphen/keg/internal/cache"
	"github.com/esphen/keg/internal/config"
	"github.com/esphen/keg/internal/deps"
	"github.com/esphen/keg/internal/fetch"
	"github.com/esphen/keg/internal/formula"
	"github.com/esphen/keg/internal/installer"
	"github.com/esphen/keg/internal/logger"
)

// app holds everything a command needs, built from the loaded config
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	store   *cache.Cache
	catalog *formula.Catalog
	out     io.Writer

	closers []io.Closer
}

func newApp(cmd *cobra.Command, args []string) (*app, error) {
	cfg, err := config.NewLoader().LoadForCommand(cmd, args)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := "warn"
	if cfg.Verbose {
		level = "debug"
	}

	log, logCloser, err := logger.New(logger.Config{Level: level, Format: cfg.LogFormat, Output: "stderr"})
	if err != nil {
		return nil, err
	}

	log.Debug("configuration loaded",
		"prefix", cfg.Prefix,
		"home", cfg.Home,
		"no_cache", cfg.NoCache,
		"keep_build", cfg.KeepBuild,
	)

	catalog, err := formula.LoadCatalog(cfg.FormulaSearchPath()...)
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("failed to load formulas: %w", err)
	}

	store, err := cache.New(cfg.Home)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		log:     log,
		store:   store,
		catalog: catalog,
		out:     cmd.OutOrStdout(),
		closers: []io.Closer{store, logCloser},
	}, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}

// installer wires the resolver, fetcher and step runner to the store
func (a *app) installer() (*installer.Installer, error) {
	resolver := deps.NewResolver(
		deps.WithProbes(a.cfg.Probes),
		deps.WithInstaller(a.cfg.DependencyInstaller),
		deps.WithSilent(a.cfg.Silent),
		deps.WithLogger(a.log),
	)

	var fetchOpts []fetch.Option
	if !a.cfg.Silent {
		fetchOpts = append(fetchOpts, fetch.WithProgress(os.Stderr))
	}

	var buildLog io.Writer
	if a.cfg.OutputFile != "" {
		f, err := os.OpenFile(a.cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open build log: %w", err)
		}

		a.closers = append(a.closers, f)
		buildLog = f
	}

	return installer.New(a.store, resolver, fetch.New(fetchOpts...), builder.NewStepRunner(a.log), installer.Options{
		Prefix:      a.cfg.Prefix,
		KeepBuild:   a.cfg.KeepBuild,
		NoCache:     a.cfg.NoCache,
		Silent:      a.cfg.Silent,
		BuildLog:    buildLog,
		LockTimeout: a.cfg.LockTimeout,
		Out:         a.out,
		Log:         a.log,
	}), nil
}

// resolveFormula turns a command argument into a formula. The argument is a
// formula file path, a name or name@version; checksum narrows the revision.
func resolveFormula(catalog *formula.Catalog, arg, checksum string) (formula.Formula, error) {
	if strings.HasSuffix(arg, ".toml") {
		f, err := formula.ParseFile(arg)
		if err != nil {
			return formula.Formula{}, err
		}

		if checksum != "" && !strings.HasPrefix(f.Source().SHA256, strings.ToLower(checksum)) {
			return formula.Formula{}, fmt.Errorf("%w: %s does not match checksum %s", formula.ErrNotFound, arg, checksum)
		}

		return f, nil
	}

	name, version := formula.ParseRef(arg)
	if name == "" {
		return formula.Formula{}, errors.New("formula name is required")
	}

	if version == "" && checksum == "" {
		return catalog.Latest(name)
	}

	return catalog.Find(name, version, checksum)
}
