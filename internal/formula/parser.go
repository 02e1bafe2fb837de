package formula

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// declaration is the TOML shape of a formula file
type declaration struct {
	Name     string `toml:"name"`
	Desc     string `toml:"desc"`
	Homepage string `toml:"homepage"`
	Version  string `toml:"version"`

	Source struct {
		URL    string `toml:"url"`
		SHA256 string `toml:"sha256"`
	} `toml:"source"`

	DependsOn []struct {
		Name  string `toml:"name"`
		Scope string `toml:"scope"`
	} `toml:"depends_on"`

	Steps []struct {
		Run []string `toml:"run"`
	} `toml:"steps"`

	Install []struct {
		Src  string `toml:"src"`
		Dest string `toml:"dest"`
	} `toml:"install"`
}

// Parse decodes a TOML formula declaration
func Parse(data []byte) (Formula, error) {
	var decl declaration
	md, err := toml.Decode(string(data), &decl)
	if err != nil {
		return Formula{}, fmt.Errorf("failed to parse formula: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		sort.Strings(keys)
		return Formula{}, fmt.Errorf("unknown formula keys: %s", strings.Join(keys, ", "))
	}

	spec := Spec{
		Name:     decl.Name,
		Desc:     decl.Desc,
		Homepage: decl.Homepage,
		Version:  decl.Version,
		Source: Source{
			URL:    decl.Source.URL,
			SHA256: decl.Source.SHA256,
		},
	}

	for _, d := range decl.DependsOn {
		spec.Dependencies = append(spec.Dependencies, Dependency{Name: d.Name, Scope: Scope(d.Scope)})
	}

	for _, s := range decl.Steps {
		spec.Steps = append(spec.Steps, Step{Args: s.Run})
	}

	for _, a := range decl.Install {
		spec.Artifacts = append(spec.Artifacts, Artifact{Src: a.Src, Dest: a.Dest})
	}

	return New(spec)
}

// ParseFile reads and decodes a formula file
func ParseFile(path string) (Formula, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Formula{}, fmt.Errorf("failed to read formula: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return Formula{}, fmt.Errorf("%s: %w", path, err)
	}

	return f, nil
}
