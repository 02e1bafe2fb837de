package formula

import (
	"fmt"
	"path/filepath"
	"sort"
)

// destinations maps named install locations to paths under the prefix.
// "doc" is further qualified by the formula name.
var destinations = map[string]string{
	"bin":     "bin",
	"sbin":    "sbin",
	"lib":     "lib",
	"libexec": "libexec",
	"include": "include",
	"share":   "share",
	"etc":     "etc",
	"doc":     filepath.Join("share", "doc"),
	"man":     filepath.Join("share", "man"),
	"man1":    filepath.Join("share", "man", "man1"),
	"man2":    filepath.Join("share", "man", "man2"),
	"man3":    filepath.Join("share", "man", "man3"),
	"man4":    filepath.Join("share", "man", "man4"),
	"man5":    filepath.Join("share", "man", "man5"),
	"man6":    filepath.Join("share", "man", "man6"),
	"man7":    filepath.Join("share", "man", "man7"),
	"man8":    filepath.Join("share", "man", "man8"),
}

// DestDir resolves a named destination for formula name under prefix
func DestDir(prefix, dest, name string) (string, error) {
	rel, ok := destinations[dest]
	if !ok {
		return "", fmt.Errorf("unknown install destination %q", dest)
	}

	if dest == "doc" {
		rel = filepath.Join(rel, name)
	}

	return filepath.Join(prefix, rel), nil
}

// Destinations lists the accepted destination names
func Destinations() []string {
	names := make([]string, 0, len(destinations))
	for n := range destinations {
		names = append(names, n)
	}

	sort.Strings(names)
	return names
}
