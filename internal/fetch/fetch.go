// Package fetch downloads source archives and verifies their sha256.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/esphen/keg/internal/codes"
	"github.com/esphen/keg/internal/formula"
)

// Fetcher retrieves archives over http(s), file:// or from a local path
type Fetcher struct {
	client *http.Client

	// progress, when non-nil, receives a download progress bar
	progress io.Writer
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithClient replaces the default HTTP client
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithProgress renders a progress bar to w while downloading
func WithProgress(w io.Writer) Option {
	return func(f *Fetcher) { f.progress = w }
}

// New creates a fetcher
func New(opts ...Option) *Fetcher {
	f := &Fetcher{client: http.DefaultClient}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch downloads src into dir and verifies it against the declared checksum.
// The returned path is only valid when err is nil; a mismatching download is
// removed before returning *codes.IntegrityMismatchError.
func (f *Fetcher) Fetch(ctx context.Context, src formula.Source, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &codes.FetchError{URL: src.URL, Err: err}
	}

	body, size, err := f.open(ctx, src.URL)
	if err != nil {
		return "", &codes.FetchError{URL: src.URL, Err: err}
	}
	defer body.Close()

	var r io.Reader = body
	if f.progress != nil {
		bar := progressbar.NewOptions64(size,
			progressbar.OptionSetWriter(f.progress),
			progressbar.OptionSetDescription("downloading "+ArchiveName(src.URL)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Close()

		r = io.TeeReader(body, bar)
	}

	out := filepath.Join(dir, ArchiveName(src.URL))
	sum, err := downloadToFile(out, r)
	if err != nil {
		os.Remove(out)
		return "", &codes.FetchError{URL: src.URL, Err: err}
	}

	if !strings.EqualFold(sum, src.SHA256) {
		os.Remove(out)
		return "", &codes.IntegrityMismatchError{URL: src.URL, Want: src.SHA256, Got: sum}
	}

	return out, nil
}

// Verify re-hashes an archive that is already on disk
func Verify(path string, src formula.Source) error {
	f, err := os.Open(path)
	if err != nil {
		return &codes.FetchError{URL: src.URL, Err: err}
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return &codes.FetchError{URL: src.URL, Err: err}
	}

	sum := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(sum, src.SHA256) {
		return &codes.IntegrityMismatchError{URL: src.URL, Want: src.SHA256, Got: sum}
	}

	return nil
}

// ArchiveName is the file name an archive is saved under
func ArchiveName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		if base := path.Base(u.Path); base != "." && base != "/" {
			return base
		}
	}

	return "source.tar.gz"
}

// open returns the archive body and its size, or -1 if unknown
func (f *Fetcher) open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, 0, err
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, 0, err
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, 0, fmt.Errorf("unexpected status %s", resp.Status)
		}

		return resp.Body, resp.ContentLength, nil

	case "file", "":
		p := u.Path
		if u.Scheme == "" {
			p = rawURL
		}

		file, err := os.Open(p)
		if err != nil {
			return nil, 0, err
		}

		size := int64(-1)
		if info, err := file.Stat(); err == nil {
			size = info.Size()
		}

		return file, size, nil

	default:
		return nil, 0, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
}

// downloadToFile writes r to f and returns the hex sha256 of what was written
func downloadToFile(f string, r io.Reader) (string, error) {
	out, err := os.Create(f)
	if err != nil {
		return "", fmt.Errorf("create: %w", err)
	}
	defer out.Close()

	h := sha256.New()
	mw := io.MultiWriter(h, out)

	if _, err := io.Copy(mw, r); err != nil {
		return "", fmt.Errorf("download: %w", err)
	}

	if err := out.Sync(); err != nil {
		return "", fmt.Errorf("filesystem sync: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
