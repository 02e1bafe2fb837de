package deps

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esphen/keg/internal/codes"
	"github.com/esphen/keg/internal/formula"
)

// mockCommander implements Commander interface for testing
type mockCommander struct {
	runFunc func() error
}

func (m *mockCommander) Run() error {
	return m.runFunc()
}

// fakeSystem tracks which tools are "installed"
type fakeSystem struct {
	present map[string]bool
	ran     []string
}

func (s *fakeSystem) lookPath(name string) (string, error) {
	if s.present[name] {
		return "/usr/bin/" + name, nil
	}

	return "", errors.New("not found")
}

func newTestResolver(sys *fakeSystem, opts ...Option) *Resolver {
	r := NewResolver(opts...)
	r.lookPath = sys.lookPath
	r.execCommand = func(name string, args ...string) Commander {
		return &mockCommander{runFunc: func() error {
			line := strings.TrimSpace(name + " " + strings.Join(args, " "))
			sys.ran = append(sys.ran, line)

			switch {
			case name == "brew" && args[0] == "install":
				if args[1] == "broken" {
					return errors.New("exit status 1")
				}

				if args[1] != "ghost" {
					sys.present[args[1]] = true
				}

				return nil
			case name == "pkg-config":
				if sys.present[args[len(args)-1]] {
					return nil
				}

				return errors.New("exit status 1")
			}

			return nil
		}}
	}

	return r
}

var wstaDeps = []formula.Dependency{
	{Name: "gpg", Scope: formula.ScopeBuild},
	{Name: "rust", Scope: formula.ScopeBuild},
	{Name: "openssl", Scope: formula.ScopeRuntime},
}

func TestResolve_AllPresent(t *testing.T) {
	sys := &fakeSystem{present: map[string]bool{"gpg": true, "rust": true, "openssl": true}}
	r := newTestResolver(sys)

	require.NoError(t, r.Resolve(wstaDeps))
	assert.Empty(t, sys.ran)
}

func TestResolve_MissingBuildDependency(t *testing.T) {
	sys := &fakeSystem{present: map[string]bool{"rust": true, "openssl": true}}
	r := newTestResolver(sys)

	err := r.Resolve(wstaDeps)
	require.Error(t, err)

	var depErr *codes.DependencyUnavailableError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, "gpg", depErr.Name)
	assert.Equal(t, "build", depErr.Scope)
	assert.Equal(t, codes.DependencyUnavailable, codes.ExitCode(err))
}

func TestResolve_InstallsMissing(t *testing.T) {
	sys := &fakeSystem{present: map[string]bool{"rust": true}}
	r := newTestResolver(sys, WithInstaller([]string{"brew", "install"}))

	require.NoError(t, r.Resolve(wstaDeps))
	assert.Equal(t, []string{"brew install gpg", "brew install openssl"}, sys.ran)
	assert.True(t, sys.present["gpg"])
}

func TestResolve_InstallerFailures(t *testing.T) {
	tests := []struct {
		name        string
		dep         string
		errContains string
	}{
		{name: "installer exits non-zero", dep: "broken", errContains: "brew install broken"},
		{name: "still missing afterwards", dep: "ghost", errContains: "still missing after install"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := &fakeSystem{present: map[string]bool{}}
			r := newTestResolver(sys, WithInstaller([]string{"brew", "install"}), WithSilent(true))

			err := r.Resolve([]formula.Dependency{{Name: tt.dep, Scope: formula.ScopeRuntime}})

			var depErr *codes.DependencyUnavailableError
			require.ErrorAs(t, err, &depErr)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestResolve_Probes(t *testing.T) {
	sys := &fakeSystem{present: map[string]bool{"gpg": true, "rust": true}}
	r := newTestResolver(sys, WithProbes(map[string][]string{
		"openssl": {"pkg-config", "--exists", "openssl"},
	}))

	err := r.Resolve(wstaDeps)
	require.Error(t, err)
	assert.Equal(t, []string{"pkg-config --exists openssl"}, sys.ran)

	sys.present["openssl"] = true
	assert.NoError(t, r.Resolve(wstaDeps))
}

func TestCheckRuntime_IgnoresBuildDependencies(t *testing.T) {
	// after a successful install the build-only tools were removed
	sys := &fakeSystem{present: map[string]bool{"openssl": true}}
	r := newTestResolver(sys)

	assert.Empty(t, r.CheckRuntime(wstaDeps))

	sys.present["openssl"] = false
	missing := r.CheckRuntime(wstaDeps)
	require.Len(t, missing, 1)
	assert.Equal(t, "openssl", missing[0].Name)
}

func TestNewResolver(t *testing.T) {
	r := NewResolver()
	assert.NotNil(t, r.lookPath)
	assert.NotNil(t, r.execCommand)
	assert.NotNil(t, r.log)

	// "sh" is on every system the tests run on
	assert.True(t, r.Present("sh"))
	assert.False(t, r.Present("keg-definitely-not-a-command"))
}
