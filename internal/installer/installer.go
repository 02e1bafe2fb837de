// Package installer turns a formula into installed files.
//
// An install is a strict linear pipeline:
//
//	Resolve -> Fetch+Verify -> Extract -> Build -> Install
//
// Each stage only starts when the previous one succeeded. Nothing is retried
// and nothing is rolled back: artifacts already copied by a failed install
// stay where they are.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/esphen/keg/internal/archive"
	"github.com/esphen/keg/internal/builder"
	"github.com/esphen/keg/internal/cache"
	"github.com/esphen/keg/internal/codes"
	"github.com/esphen/keg/internal/fetch"
	"github.com/esphen/keg/internal/formula"
	"github.com/esphen/keg/internal/style"
)

// Resolver confirms dependencies are present
type Resolver interface {
	Resolve(deps []formula.Dependency) error
	CheckRuntime(deps []formula.Dependency) []formula.Dependency
}

// Fetcher downloads and verifies a source archive into a directory
type Fetcher interface {
	Fetch(ctx context.Context, src formula.Source, dir string) (string, error)
}

// Runner executes build steps in order
type Runner interface {
	Run(steps []formula.Step, opts builder.Options) error
}

// Options control an install
type Options struct {
	// Prefix is the root for named destinations (bin, share/man/man1, ...)
	Prefix string

	// KeepBuild keeps the staging directory after the install
	KeepBuild bool

	// NoCache skips the download cache for reads and writes
	NoCache bool

	// Silent suppresses build step output
	Silent bool

	// BuildLog receives a copy of build step output
	BuildLog io.Writer

	// LockTimeout bounds the wait for another install to finish
	LockTimeout time.Duration

	// Out receives user-facing progress lines
	Out io.Writer

	Log *slog.Logger
}

// Installer runs the install pipeline
type Installer struct {
	store    *cache.Cache
	resolver Resolver
	fetcher  Fetcher
	runner   Runner
	opts     Options
}

// New creates an installer backed by store
func New(store *cache.Cache, resolver Resolver, fetcher Fetcher, runner Runner, opts Options) *Installer {
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}

	return &Installer{
		store:    store,
		resolver: resolver,
		fetcher:  fetcher,
		runner:   runner,
		opts:     opts,
	}
}

// Install runs the whole pipeline for f and records a receipt on success
func (i *Installer) Install(ctx context.Context, f formula.Formula) (*cache.Receipt, error) {
	lock, err := acquireLock(ctx, i.store.Root(), i.opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	log := i.opts.Log.With("formula", f.Key())
	start := time.Now()

	style.Stage(i.opts.Out, "Resolving dependencies for %s", f.Key())
	if err := i.resolver.Resolve(f.Dependencies()); err != nil {
		return nil, err
	}

	staging := filepath.Join(i.store.Root(), "build", f.Name()+"-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	if i.opts.KeepBuild {
		log.Info("keeping build directory", "dir", staging)
	} else {
		defer os.RemoveAll(staging)
	}

	style.Stage(i.opts.Out, "Fetching %s", f.Source().URL)
	archivePath, err := i.fetchArchive(ctx, f, filepath.Join(staging, "download"), !i.opts.NoCache)
	if err != nil {
		return nil, err
	}

	srcDir := filepath.Join(staging, "src")
	if err := archive.Extract(archivePath, srcDir); err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", filepath.Base(archivePath), err)
	}

	root, err := archive.SourceRoot(srcDir)
	if err != nil {
		return nil, fmt.Errorf("failed to locate source root: %w", err)
	}

	log.Debug("extracted", "root", root)

	style.Stage(i.opts.Out, "Building %s", f.Key())
	err = i.runner.Run(f.Steps(), builder.Options{
		Dir: root,
		Env: []string{
			"KEG_PREFIX=" + i.opts.Prefix,
			"KEG_BUILD_DIR=" + root,
			"KEG_FORMULA=" + f.Key(),
		},
		Silent: i.opts.Silent,
		Log:    i.opts.BuildLog,
	})
	if err != nil {
		return nil, err
	}

	style.Stage(i.opts.Out, "Installing into %s", i.opts.Prefix)
	files, err := i.installArtifacts(f, root)
	if err != nil {
		return nil, err
	}

	receipt := &cache.Receipt{
		ID:          uuid.NewString(),
		Name:        f.Name(),
		Version:     f.Version(),
		SHA256:      f.Source().SHA256,
		URL:         f.Source().URL,
		Prefix:      i.opts.Prefix,
		Files:       files,
		RuntimeDeps: names(f.DependenciesIn(formula.ScopeRuntime)),
		BuildDeps:   names(f.DependenciesIn(formula.ScopeBuild)),
		InstalledAt: time.Now().UTC(),
	}

	if err := i.store.PutReceipt(receipt); err != nil {
		return nil, err
	}

	log.Info("installed", "files", len(files), "duration", time.Since(start))
	style.Done(i.opts.Out, "%s installed", f.Key())
	for _, file := range files {
		style.Detail(i.opts.Out, "%s", file.Path)
	}

	return receipt, nil
}

// Fetch downloads and verifies the archive of f without building anything.
// The archive is kept in the download cache, or written to dir when the
// cache is disabled.
func (i *Installer) Fetch(ctx context.Context, f formula.Formula, dir string) (string, error) {
	src := f.Source()

	if i.opts.NoCache {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create download directory: %w", err)
		}

		return i.fetcher.Fetch(ctx, src, dir)
	}

	if path := i.cachedArchive(f); path != "" {
		return path, nil
	}

	scratch, err := os.MkdirTemp(i.store.Root(), "fetch-")
	if err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	path, err := i.fetcher.Fetch(ctx, src, scratch)
	if err != nil {
		return "", err
	}

	// the scratch copy is about to go, so the cache copy is the result
	entry, err := i.store.StoreArchive(src.SHA256, src.URL, path)
	if err != nil {
		return "", fmt.Errorf("failed to cache archive: %w", err)
	}

	return entry.Path, nil
}

// ClearCache removes cached archives once no install is running
func (i *Installer) ClearCache(ctx context.Context) error {
	lock, err := acquireLock(ctx, i.store.Root(), i.opts.LockTimeout)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	return i.store.Clear()
}

// cachedArchive returns the path of a cached archive that still verifies,
// dropping entries that do not
func (i *Installer) cachedArchive(f formula.Formula) string {
	src := f.Source()
	log := i.opts.Log.With("formula", f.Key())

	entry, err := i.store.GetArchive(src.SHA256)
	if err != nil {
		log.Warn("cache lookup failed", "error", err)
	}

	if entry == nil {
		return ""
	}

	if err := fetch.Verify(entry.Path, src); err != nil {
		log.Warn("cached archive failed verification, fetching again", "error", err)
		if err := i.store.RemoveArchive(src.SHA256); err != nil {
			log.Warn("failed to drop cached archive", "error", err)
		}

		return ""
	}

	log.Debug("using cached archive", "path", entry.Path)

	return entry.Path
}

// fetchArchive returns a verified archive path, preferring the cache
func (i *Installer) fetchArchive(ctx context.Context, f formula.Formula, dir string, useCache bool) (string, error) {
	src := f.Source()

	if useCache {
		if path := i.cachedArchive(f); path != "" {
			return path, nil
		}
	}

	path, err := i.fetcher.Fetch(ctx, src, dir)
	if err != nil {
		return "", err
	}

	if !useCache {
		return path, nil
	}

	entry, err := i.store.StoreArchive(src.SHA256, src.URL, path)
	if err != nil {
		// the verified download in the staging directory is still usable
		style.Warn(i.opts.Out, "Failed to cache archive: %v", err)
		return path, nil
	}

	return entry.Path, nil
}

// installArtifacts copies every mapped artifact into its destination.
// All sources are checked first so a missing artifact writes nothing.
func (i *Installer) installArtifacts(f formula.Formula, root string) ([]cache.InstalledFile, error) {
	artifacts := f.Artifacts()

	for _, a := range artifacts {
		src := filepath.Join(root, filepath.FromSlash(a.Src))

		info, err := os.Stat(src)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				err = fmt.Errorf("%s was not produced by the build", a.Src)
			}

			return nil, &codes.InstallError{Src: a.Src, Dest: a.Dest, Err: err}
		}

		if info.IsDir() {
			return nil, &codes.InstallError{Src: a.Src, Dest: a.Dest, Err: fmt.Errorf("%s is a directory", a.Src)}
		}
	}

	var files []cache.InstalledFile
	for _, a := range artifacts {
		src := filepath.Join(root, filepath.FromSlash(a.Src))

		destDir, err := formula.DestDir(i.opts.Prefix, a.Dest, f.Name())
		if err != nil {
			return nil, &codes.InstallError{Src: a.Src, Dest: a.Dest, Err: err}
		}

		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return nil, &codes.InstallError{Src: a.Src, Dest: destDir, Err: err}
		}

		dst := filepath.Join(destDir, filepath.Base(src))
		if err := cache.CopyArtifact(src, dst); err != nil {
			return nil, &codes.InstallError{Src: a.Src, Dest: destDir, Err: err}
		}

		sum, err := cache.HashFile(dst)
		if err != nil {
			return nil, &codes.InstallError{Src: a.Src, Dest: destDir, Err: err}
		}

		files = append(files, cache.InstalledFile{Path: dst, SHA256: sum})
	}

	return files, nil
}

func names(deps []formula.Dependency) []string {
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		out = append(out, d.Name)
	}

	return out
}
