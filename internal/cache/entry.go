package cache

import "time"

// ArchiveEntry represents a downloaded, verified source archive
type ArchiveEntry struct {
	// SHA256 is the content digest and the cache key
	SHA256 string `json:"sha256"`

	// URL the archive was fetched from
	URL string `json:"url"`

	// Path is the absolute path of the cached archive file
	Path string `json:"path"`

	// Size in bytes
	Size int64 `json:"size"`

	// FetchedAt is when the archive entered the cache
	FetchedAt time.Time `json:"fetched_at"`
}

// InstalledFile is one artifact placed by an install
type InstalledFile struct {
	// Path is the absolute destination path
	Path string `json:"path"`

	// SHA256 of the installed content
	SHA256 string `json:"sha256"`
}

// Receipt records a successful install of one formula revision
type Receipt struct {
	// ID is unique per install run
	ID string `json:"id"`

	Name    string `json:"name"`
	Version string `json:"version"`
	SHA256  string `json:"sha256"`
	URL     string `json:"url"`

	// Prefix the artifacts were installed under
	Prefix string `json:"prefix"`

	Files []InstalledFile `json:"files"`

	// RuntimeDeps must stay available; BuildDeps are informational only
	RuntimeDeps []string `json:"runtime_deps"`
	BuildDeps   []string `json:"build_deps"`

	InstalledAt time.Time `json:"installed_at"`
}
