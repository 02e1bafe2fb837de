package installer

import (
	"errors"
	"fmt"
	"os"

	"github.com/esphen/keg/internal/cache"
	"github.com/esphen/keg/internal/formula"
)

// ErrNotInstalled is returned by Check for a formula without a receipt
var ErrNotInstalled = errors.New("formula is not installed")

// Report is the outcome of checking an installed formula
type Report struct {
	Receipt *cache.Receipt

	// Missing files were removed since the install
	Missing []string

	// Modified files no longer match the installed content
	Modified []string

	// MissingDeps are run-time dependencies that are no longer available
	MissingDeps []string
}

// OK reports whether the install is intact
func (r *Report) OK() bool {
	return len(r.Missing) == 0 && len(r.Modified) == 0 && len(r.MissingDeps) == 0
}

// Check verifies the installed files of name and its run-time dependencies.
// Build-time-only dependencies are not checked.
func (i *Installer) Check(name string) (*Report, error) {
	receipt, err := i.store.GetReceipt(name)
	if err != nil {
		return nil, err
	}

	if receipt == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInstalled, name)
	}

	report := &Report{Receipt: receipt}

	for _, f := range receipt.Files {
		sum, err := cache.HashFile(f.Path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				report.Missing = append(report.Missing, f.Path)
				continue
			}

			return nil, fmt.Errorf("failed to hash %s: %w", f.Path, err)
		}

		if sum != f.SHA256 {
			report.Modified = append(report.Modified, f.Path)
		}
	}

	var runtime []formula.Dependency
	for _, d := range receipt.RuntimeDeps {
		runtime = append(runtime, formula.Dependency{Name: d, Scope: formula.ScopeRuntime})
	}

	for _, d := range i.resolver.CheckRuntime(runtime) {
		report.MissingDeps = append(report.MissingDeps, d.Name)
	}

	return report, nil
}

// Receipts lists every installed formula
func (i *Installer) Receipts() ([]*cache.Receipt, error) {
	return i.store.Receipts()
}
