package formula

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

//go:embed formulas/*.toml
var builtin embed.FS

var (
	// ErrNotFound is returned when no revision matches a lookup
	ErrNotFound = errors.New("formula not found")

	// ErrAmbiguous is returned when a version has several revisions and
	// nothing selects between them
	ErrAmbiguous = errors.New("formula revision is ambiguous")
)

// Catalog holds every known formula revision, in declaration order
type Catalog struct {
	formulas []Formula
}

// NewCatalog creates a catalog from the given revisions
func NewCatalog(formulas ...Formula) (*Catalog, error) {
	c := &Catalog{}
	for _, f := range formulas {
		if err := c.Add(f); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// LoadCatalog loads the built-in revisions followed by any *.toml files in dirs.
// Missing directories are skipped.
func LoadCatalog(dirs ...string) (*Catalog, error) {
	c := &Catalog{}

	if err := c.addFS(builtin, "formulas"); err != nil {
		return nil, fmt.Errorf("failed to load built-in formulas: %w", err)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}

		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}

		if err := c.addFS(os.DirFS(dir), "."); err != nil {
			return nil, fmt.Errorf("failed to load formulas from %s: %w", dir, err)
		}
	}

	return c, nil
}

func (c *Catalog) addFS(fsys fs.FS, root string) error {
	paths, err := fs.Glob(fsys, filepath.ToSlash(filepath.Join(root, "*.toml")))
	if err != nil {
		return err
	}

	// file names carry the version, so lexical order is declaration order
	sort.Strings(paths)

	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}

		f, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}

		if err := c.Add(f); err != nil {
			return err
		}
	}

	return nil
}

// Add appends a revision. The same name and checksum may only appear once.
func (c *Catalog) Add(f Formula) error {
	for _, existing := range c.formulas {
		if existing.name == f.name && existing.source.SHA256 == f.source.SHA256 {
			return fmt.Errorf("duplicate formula revision %s", f.Key())
		}
	}

	c.formulas = append(c.formulas, f)
	return nil
}

// All returns every revision in declaration order
func (c *Catalog) All() []Formula {
	return append([]Formula(nil), c.formulas...)
}

// Names returns the sorted distinct formula names
func (c *Catalog) Names() []string {
	seen := make(map[string]bool)
	var names []string

	for _, f := range c.formulas {
		if !seen[f.name] {
			seen[f.name] = true
			names = append(names, f.name)
		}
	}

	sort.Strings(names)
	return names
}

// Revisions returns the revisions of name ordered by version. Revisions that
// share a version keep their declaration order.
func (c *Catalog) Revisions(name string) []Formula {
	var out []Formula
	for _, f := range c.formulas {
		if f.name == name {
			out = append(out, f)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SemVer().LessThan(out[j].SemVer())
	})

	return out
}

// Latest returns the highest version of name; the last declared revision
// wins when a version was re-published
func (c *Catalog) Latest(name string) (Formula, error) {
	revs := c.Revisions(name)
	if len(revs) == 0 {
		return Formula{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return revs[len(revs)-1], nil
}

// Find looks up a revision by name, optional version and optional checksum
// prefix. With no version, the latest revision matching the checksum is used.
func (c *Catalog) Find(name, version, checksum string) (Formula, error) {
	checksum = strings.ToLower(checksum)
	want, _ := semver.NewVersion(version)

	var matches []Formula
	for _, f := range c.Revisions(name) {
		if version != "" && f.version != version && (want == nil || !f.SemVer().Equal(want)) {
			continue
		}

		if checksum != "" && !strings.HasPrefix(f.source.SHA256, checksum) {
			continue
		}

		matches = append(matches, f)
	}

	if len(matches) == 0 {
		return Formula{}, fmt.Errorf("%w: %s", ErrNotFound, describe(name, version, checksum))
	}

	if version == "" {
		return matches[len(matches)-1], nil
	}

	if len(matches) > 1 {
		sums := make([]string, len(matches))
		for i, m := range matches {
			sums[i] = m.source.SHA256[:12]
		}

		return Formula{}, fmt.Errorf("%w: %s has revisions %s, select one by checksum",
			ErrAmbiguous, describe(name, version, ""), strings.Join(sums, ", "))
	}

	return matches[0], nil
}

// ParseRef splits "name@version" into its parts
func ParseRef(ref string) (name, version string) {
	name, version, _ = strings.Cut(ref, "@")
	return name, version
}

func describe(name, version, checksum string) string {
	s := name
	if version != "" {
		s += "@" + version
	}

	if checksum != "" {
		s += "#" + checksum
	}

	return s
}
