package codes

import "fmt"

// DependencyUnavailableError reports a declared dependency that is neither
// present nor installable.
type DependencyUnavailableError struct {
	Name  string
	Scope string
	Err   error
}

func (e *DependencyUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dependency %s (%s) unavailable: %v", e.Name, e.Scope, e.Err)
	}

	return fmt.Sprintf("dependency %s (%s) unavailable", e.Name, e.Scope)
}

func (e *DependencyUnavailableError) Unwrap() error { return e.Err }
func (e *DependencyUnavailableError) Code() int     { return DependencyUnavailable }

// FetchError reports a network or storage failure while fetching a source archive.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
func (e *FetchError) Code() int     { return FetchFailed }

// IntegrityMismatchError reports a fetched archive whose digest differs from
// the declared checksum.
type IntegrityMismatchError struct {
	URL  string
	Want string
	Got  string
}

func (e *IntegrityMismatchError) Error() string {
	return fmt.Sprintf("incorrect sha256 for %s, want %s, got %s", e.URL, e.Want, e.Got)
}

func (e *IntegrityMismatchError) Code() int { return IntegrityMismatch }

// BuildStepFailedError reports the first build step that did not exit cleanly.
// ExitCode is -1 when the step could not be started at all.
type BuildStepFailedError struct {
	Index    int
	ExitCode int
	Step     string
	Err      error
}

func (e *BuildStepFailedError) Error() string {
	return fmt.Sprintf("build step %d (%s) failed with exit code %d", e.Index, e.Step, e.ExitCode)
}

func (e *BuildStepFailedError) Unwrap() error { return e.Err }
func (e *BuildStepFailedError) Code() int     { return BuildStepFailed }

// InstallError reports an artifact that could not be put into place.
type InstallError struct {
	Src  string
	Dest string
	Err  error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("failed to install %s into %s: %v", e.Src, e.Dest, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }
func (e *InstallError) Code() int     { return InstallFailed }
