package formula

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sum020 = "205a90215f5413a520f7d6ba7507c66e4273796751a6d8053ce9f2216127f1d9"
	sumA   = "63139d9a1833e237ddcc1ae585c1d3a25cce9505f8c83803ad4c3c70d2c2cdb7"
	sumB   = "1111111111111111111111111111111111111111111111111111111111111111"
)

func testSpec(version, sum string) Spec {
	return Spec{
		Name:     "wsta",
		Homepage: "https://github.com/esphen/wsta",
		Source: Source{
			URL:    "https://github.com/esphen/wsta/archive/" + version + ".tar.gz",
			SHA256: sum,
		},
		Dependencies: []Dependency{
			{Name: "gpg", Scope: ScopeBuild},
			{Name: "rust", Scope: ScopeBuild},
			{Name: "openssl"},
		},
		Steps: []Step{
			{Args: []string{"cargo", "build", "--release"}},
		},
		Artifacts: []Artifact{
			{Src: "target/release/wsta", Dest: "bin"},
			{Src: "wsta.1", Dest: "man1"},
		},
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Spec)
		wantErr     bool
		errContains string
	}{
		{name: "valid formula", mutate: func(*Spec) {}},
		{
			name:        "missing name",
			mutate:      func(s *Spec) { s.Name = " " },
			wantErr:     true,
			errContains: "name is required",
		},
		{
			name:        "missing url",
			mutate:      func(s *Spec) { s.Source.URL = "" },
			wantErr:     true,
			errContains: "source url is required",
		},
		{
			name:        "short checksum",
			mutate:      func(s *Spec) { s.Source.SHA256 = "97d277" },
			wantErr:     true,
			errContains: "not a sha256",
		},
		{
			name:   "upper case checksum is normalised",
			mutate: func(s *Spec) { s.Source.SHA256 = strings.ToUpper(sumA) },
		},
		{
			name:        "unknown scope",
			mutate:      func(s *Spec) { s.Dependencies[0].Scope = "test" },
			wantErr:     true,
			errContains: "unknown scope",
		},
		{
			name: "duplicate dependency",
			mutate: func(s *Spec) {
				s.Dependencies = append(s.Dependencies, Dependency{Name: "gpg", Scope: ScopeBuild})
			},
			wantErr:     true,
			errContains: "declared twice",
		},
		{
			name:        "empty step",
			mutate:      func(s *Spec) { s.Steps = append(s.Steps, Step{}) },
			wantErr:     true,
			errContains: "build step 1 is empty",
		},
		{
			name:        "unknown destination",
			mutate:      func(s *Spec) { s.Artifacts[0].Dest = "opt" },
			wantErr:     true,
			errContains: "unknown install destination",
		},
		{
			name:        "absolute artifact",
			mutate:      func(s *Spec) { s.Artifacts[0].Src = "/usr/bin/wsta" },
			wantErr:     true,
			errContains: "must be a relative path",
		},
		{
			name:        "escaping artifact",
			mutate:      func(s *Spec) { s.Artifacts[0].Src = "target/../../wsta" },
			wantErr:     true,
			errContains: "escapes the build tree",
		},
		{
			name: "duplicate artifact destination",
			mutate: func(s *Spec) {
				s.Artifacts = append(s.Artifacts, Artifact{Src: "target/debug/wsta", Dest: "bin"})
			},
			wantErr:     true,
			errContains: "both install to",
		},
		{
			name: "same basename in different destinations",
			mutate: func(s *Spec) {
				s.Artifacts = append(s.Artifacts, Artifact{Src: "doc/wsta.1", Dest: "doc"})
			},
		},
		{
			name:        "no version in url",
			mutate:      func(s *Spec) { s.Source.URL = "https://example.com/download" },
			wantErr:     true,
			errContains: "cannot determine version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := testSpec("0.5.0", sumA)
			tt.mutate(&spec)

			f, err := New(spec)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "wsta", f.Name())
			assert.Equal(t, "0.5.0", f.Version())
			assert.Equal(t, sumA, f.Source().SHA256)
		})
	}
}

func TestFormula_DefaultScopeIsRuntime(t *testing.T) {
	f, err := New(testSpec("0.5.0", sumA))
	require.NoError(t, err)

	runtime := f.DependenciesIn(ScopeRuntime)
	require.Len(t, runtime, 1)
	assert.Equal(t, "openssl", runtime[0].Name)

	build := f.DependenciesIn(ScopeBuild)
	assert.Len(t, build, 2)
}

func TestFormula_Immutable(t *testing.T) {
	spec := testSpec("0.5.0", sumA)
	f, err := New(spec)
	require.NoError(t, err)

	// mutating the Spec input after construction must not leak in
	spec.Steps[0].Args[0] = "make"
	spec.Artifacts[0].Dest = "lib"
	assert.Equal(t, "cargo", f.Steps()[0].Args[0])
	assert.Equal(t, "bin", f.Artifacts()[0].Dest)

	// nor may mutating returned copies
	steps := f.Steps()
	steps[0].Args[0] = "rm"
	deps := f.Dependencies()
	deps[0].Name = "nothing"
	assert.Equal(t, "cargo", f.Steps()[0].Args[0])
	assert.Equal(t, "gpg", f.Dependencies()[0].Name)
}

func TestFormula_Key(t *testing.T) {
	f, err := New(testSpec("0.4.0", sumA))
	require.NoError(t, err)
	assert.Equal(t, "wsta@0.4.0#63139d9a1833", f.Key())
}

func TestVersionFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/esphen/wsta/archive/0.5.0.tar.gz", "0.5.0"},
		{"https://github.com/esphen/wsta/archive/v0.3.1.tar.gz", "0.3.1"},
		{"https://example.com/wsta-0.2.1.tgz", "0.2.1"},
		{"https://example.com/tool-2.0.0-beta.1.tar.xz", "2.0.0-beta.1"},
		{"file:///tmp/fixtures/1.2.tar", "1.2"},
		{"https://example.com/latest.tar.gz", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, VersionFromURL(tt.url))
		})
	}
}

func TestDestDir(t *testing.T) {
	prefix := filepath.Join("opt", "keg")

	dir, err := DestDir(prefix, "bin", "wsta")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(prefix, "bin"), dir)

	dir, err = DestDir(prefix, "man1", "wsta")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(prefix, "share", "man", "man1"), dir)

	dir, err = DestDir(prefix, "doc", "wsta")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(prefix, "share", "doc", "wsta"), dir)

	_, err = DestDir(prefix, "nowhere", "wsta")
	assert.Error(t, err)

	assert.Contains(t, Destinations(), "man8")
}

func TestParse(t *testing.T) {
	data := `
name = "wsta"
desc = "WebSocket client"
homepage = "https://github.com/esphen/wsta"

[source]
url = "https://github.com/esphen/wsta/archive/0.5.0.tar.gz"
sha256 = "` + sumA + `"

[[depends_on]]
name = "rust"
scope = "build"

[[depends_on]]
name = "openssl"

[[steps]]
run = ["cargo", "build", "--release"]

[[install]]
src = "target/release/wsta"
dest = "bin"

[[install]]
src = "wsta.1"
dest = "man1"
`

	f, err := Parse([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, "0.5.0", f.Version())
	assert.Equal(t, "WebSocket client", f.Desc())
	assert.Equal(t, []Step{{Args: []string{"cargo", "build", "--release"}}}, f.Steps())
	assert.Equal(t, []Artifact{
		{Src: "target/release/wsta", Dest: "bin"},
		{Src: "wsta.1", Dest: "man1"},
	}, f.Artifacts())
	assert.Equal(t, []Dependency{
		{Name: "rust", Scope: ScopeBuild},
		{Name: "openssl", Scope: ScopeRuntime},
	}, f.Dependencies())
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(`name = `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse formula")

	_, err = Parse([]byte(`
name = "wsta"
sha = "abc"
[source]
url = "https://github.com/esphen/wsta/archive/0.5.0.tar.gz"
sha256 = "` + sumA + `"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown formula keys: sha")
}

func TestParseFile(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "wsta.toml")
	content := "name = \"wsta\"\n[source]\nurl = \"https://x/0.3.0.tar.gz\"\nsha256 = \"" + sumB + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	f, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0.3.0", f.Version())
}
