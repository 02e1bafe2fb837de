// Package formula models package-build recipes.
//
// A Formula is an immutable value: it is constructed once from its
// declaration and every accessor hands out copies. Each revision of a
// package is its own Formula, identified by its source checksum rather than
// by its version string alone, since upstream archives are occasionally
// re-published under an unchanged version.
package formula

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Scope says how long a dependency has to stay around
type Scope string

const (
	// ScopeBuild dependencies are only needed while building
	ScopeBuild Scope = "build"

	// ScopeRuntime dependencies must remain available after install
	ScopeRuntime Scope = "runtime"
)

// Dependency is a named package the formula needs
type Dependency struct {
	Name  string
	Scope Scope
}

// Source is the pinned upstream archive
type Source struct {
	URL    string
	SHA256 string
}

// Step is a single build command, run without a shell
type Step struct {
	Args []string
}

// String renders the step for logs
func (s Step) String() string {
	return strings.Join(s.Args, " ")
}

// Artifact maps a path in the build tree to a named destination directory
type Artifact struct {
	Src  string
	Dest string
}

// Formula is one immutable revision of a package recipe
type Formula struct {
	name      string
	desc      string
	homepage  string
	version   string
	source    Source
	deps      []Dependency
	steps     []Step
	artifacts []Artifact
}

// Spec carries the literal fields of a formula declaration
type Spec struct {
	Name         string
	Desc         string
	Homepage     string
	Version      string
	Source       Source
	Dependencies []Dependency
	Steps        []Step
	Artifacts    []Artifact
}

var sha256Pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// New validates spec and freezes it into a Formula
func New(spec Spec) (Formula, error) {
	f := Formula{
		name:     strings.TrimSpace(spec.Name),
		desc:     spec.Desc,
		homepage: spec.Homepage,
		version:  strings.TrimSpace(spec.Version),
		source: Source{
			URL:    strings.TrimSpace(spec.Source.URL),
			SHA256: strings.ToLower(strings.TrimSpace(spec.Source.SHA256)),
		},
		deps:      append([]Dependency(nil), spec.Dependencies...),
		artifacts: append([]Artifact(nil), spec.Artifacts...),
	}

	for _, s := range spec.Steps {
		f.steps = append(f.steps, Step{Args: append([]string(nil), s.Args...)})
	}

	for i, d := range f.deps {
		if d.Scope == "" {
			f.deps[i].Scope = ScopeRuntime
		}
	}

	if f.version == "" {
		f.version = VersionFromURL(f.source.URL)
	}

	if err := f.validate(); err != nil {
		return Formula{}, err
	}

	return f, nil
}

func (f Formula) validate() error {
	if f.name == "" {
		return fmt.Errorf("formula name is required")
	}

	if f.source.URL == "" {
		return fmt.Errorf("formula %s: source url is required", f.name)
	}

	if !sha256Pattern.MatchString(f.source.SHA256) {
		return fmt.Errorf("formula %s: checksum is not a sha256 hex digest", f.name)
	}

	if f.version == "" {
		return fmt.Errorf("formula %s: cannot determine version from %s", f.name, f.source.URL)
	}

	if _, err := semver.NewVersion(f.version); err != nil {
		return fmt.Errorf("formula %s: invalid version %q: %w", f.name, f.version, err)
	}

	seen := make(map[string]bool)
	for _, d := range f.deps {
		if d.Name == "" {
			return fmt.Errorf("formula %s: dependency without a name", f.name)
		}

		if d.Scope != ScopeBuild && d.Scope != ScopeRuntime {
			return fmt.Errorf("formula %s: dependency %s has unknown scope %q", f.name, d.Name, d.Scope)
		}

		if seen[d.Name] {
			return fmt.Errorf("formula %s: dependency %s declared twice", f.name, d.Name)
		}

		seen[d.Name] = true
	}

	for i, s := range f.steps {
		if len(s.Args) == 0 || s.Args[0] == "" {
			return fmt.Errorf("formula %s: build step %d is empty", f.name, i)
		}
	}

	installed := make(map[string]string)
	for _, a := range f.artifacts {
		dir, err := DestDir("", a.Dest, f.name)
		if err != nil {
			return fmt.Errorf("formula %s: %w", f.name, err)
		}

		if a.Src == "" || filepath.IsAbs(a.Src) || path.IsAbs(a.Src) {
			return fmt.Errorf("formula %s: artifact source %q must be a relative path", f.name, a.Src)
		}

		clean := path.Clean(filepath.ToSlash(a.Src))
		if clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("formula %s: artifact source %q escapes the build tree", f.name, a.Src)
		}

		// artifacts land flat in their destination, keyed by basename
		target := filepath.Join(dir, path.Base(clean))
		if prev, ok := installed[target]; ok {
			return fmt.Errorf("formula %s: artifacts %q and %q both install to %s", f.name, prev, a.Src, target)
		}

		installed[target] = a.Src
	}

	return nil
}

// Name is the formula name, e.g. wsta
func (f Formula) Name() string { return f.name }

// Desc is the one-line description
func (f Formula) Desc() string { return f.desc }

// Homepage is the upstream project URL
func (f Formula) Homepage() string { return f.homepage }

// Version is the declared or URL-derived version
func (f Formula) Version() string { return f.version }

// Source is the pinned archive URL and checksum
func (f Formula) Source() Source { return f.source }

// Key identifies this revision: name@version#shortsum
func (f Formula) Key() string {
	return fmt.Sprintf("%s@%s#%s", f.name, f.version, f.source.SHA256[:12])
}

// Dependencies returns a copy of the declared dependencies
func (f Formula) Dependencies() []Dependency {
	return append([]Dependency(nil), f.deps...)
}

// DependenciesIn returns the dependencies declared with the given scope
func (f Formula) DependenciesIn(scope Scope) []Dependency {
	var out []Dependency
	for _, d := range f.deps {
		if d.Scope == scope {
			out = append(out, d)
		}
	}

	return out
}

// Steps returns a deep copy of the build steps
func (f Formula) Steps() []Step {
	out := make([]Step, len(f.steps))
	for i, s := range f.steps {
		out[i] = Step{Args: append([]string(nil), s.Args...)}
	}

	return out
}

// Artifacts returns a copy of the install mapping
func (f Formula) Artifacts() []Artifact {
	return append([]Artifact(nil), f.artifacts...)
}

// SemVer returns the parsed version; New guarantees it parses
func (f Formula) SemVer() *semver.Version {
	v, err := semver.NewVersion(f.version)
	if err != nil {
		return nil
	}

	return v
}

var versionPattern = regexp.MustCompile(`v?(\d+(?:\.\d+)+(?:-[0-9A-Za-z.]+)?)`)

var archiveSuffixes = []string{".tar.gz", ".tgz", ".tar.xz", ".txz", ".tar", ".zip"}

// VersionFromURL derives a version from an archive URL such as
// https://github.com/esphen/wsta/archive/0.5.0.tar.gz
func VersionFromURL(rawURL string) string {
	base := path.Base(rawURL)
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(base, suffix) {
			base = strings.TrimSuffix(base, suffix)
			break
		}
	}

	matches := versionPattern.FindAllStringSubmatch(base, -1)
	if len(matches) == 0 {
		return ""
	}

	return matches[len(matches)-1][1]
}
