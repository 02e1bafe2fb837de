// Package cache keeps keg's persistent state.
//
// Two kinds of records live in a single BoltDB file under the keg home:
//
//  1. Downloaded source archives, keyed by their sha256. The archive bytes
//     are stored in the filesystem (archives/<sha256>/<name>) and only the
//     metadata goes into BoltDB.
//  2. Install receipts, keyed by formula name, describing what was installed
//     and from which revision.
//
// A cached archive is only a hint: callers re-hash it before trusting it.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// DefaultDBName is the BoltDB file name inside the keg home
	DefaultDBName = "keg.db"

	archivesBucket = "archives"
	receiptsBucket = "receipts"
)

// Cache manages downloaded archives and install receipts using BoltDB
type Cache struct {
	db   *bbolt.DB
	root string // keg home
}

// New opens (or creates) the cache under root
func New(root string) (*Cache, error) {
	if root == "" {
		return nil, fmt.Errorf("cache directory not specified")
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dbPath := filepath.Join(root, DefaultDBName)
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{archivesBucket, receiptsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache buckets: %w", err)
	}

	return &Cache{
		db:   db,
		root: root,
	}, nil
}

// Close closes the cache database
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}

	return nil
}

// Root returns the keg home the cache lives in
func (c *Cache) Root() string {
	return c.root
}

// GetArchive returns the cached archive for sha256, or nil on a miss.
// An entry whose file has disappeared counts as a miss.
func (c *Cache) GetArchive(sha256 string) (*ArchiveEntry, error) {
	var entry ArchiveEntry
	found, err := c.get(archivesBucket, sha256, &entry)
	if err != nil || !found {
		return nil, err
	}

	if _, err := os.Stat(entry.Path); err != nil {
		return nil, nil
	}

	return &entry, nil
}

// StoreArchive copies a verified archive into the cache and records it
func (c *Cache) StoreArchive(sha256, url, path string) (*ArchiveEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	dst := filepath.Join(c.archiveDir(sha256), filepath.Base(path))
	if err := CopyArtifact(path, dst); err != nil {
		return nil, fmt.Errorf("failed to copy archive into cache: %w", err)
	}

	entry := &ArchiveEntry{
		SHA256:    sha256,
		URL:       url,
		Path:      dst,
		Size:      info.Size(),
		FetchedAt: time.Now(),
	}

	if err := c.put(archivesBucket, sha256, entry); err != nil {
		return nil, fmt.Errorf("failed to store archive entry: %w", err)
	}

	return entry, nil
}

// RemoveArchive drops a single archive, e.g. after it failed re-verification
func (c *Cache) RemoveArchive(sha256 string) error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(archivesBucket)).Delete([]byte(sha256))
	})
	if err != nil {
		return err
	}

	return os.RemoveAll(c.archiveDir(sha256))
}

// PutReceipt records a successful install, replacing any earlier receipt
func (c *Cache) PutReceipt(r *Receipt) error {
	if err := c.put(receiptsBucket, r.Name, r); err != nil {
		return fmt.Errorf("failed to store receipt: %w", err)
	}

	return nil
}

// GetReceipt returns the receipt for name, or nil if it was never installed
func (c *Cache) GetReceipt(name string) (*Receipt, error) {
	var r Receipt
	found, err := c.get(receiptsBucket, name, &r)
	if err != nil || !found {
		return nil, err
	}

	return &r, nil
}

// Receipts returns all receipts sorted by name
func (c *Cache) Receipts() ([]*Receipt, error) {
	var out []*Receipt

	err := c.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptsBucket)).ForEach(func(k, v []byte) error {
			var r Receipt
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("corrupt receipt %s: %w", k, err)
			}

			out = append(out, &r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Clear removes all cached archives. Receipts are kept.
func (c *Cache) Clear() error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(archivesBucket)); err != nil {
			return err
		}

		_, err := tx.CreateBucket([]byte(archivesBucket))
		return err
	})
	if err != nil {
		return err
	}

	if err := os.RemoveAll(filepath.Join(c.root, "archives")); err != nil {
		return fmt.Errorf("failed to remove archives: %w", err)
	}

	return nil
}

// Stats returns the number of cached archives and their total size
func (c *Cache) Stats() (int, int64, error) {
	var count int
	var totalSize int64

	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(archivesBucket))

		count = b.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	archivesDir := filepath.Join(c.root, "archives")
	_ = filepath.Walk(archivesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		if !info.IsDir() {
			totalSize += info.Size()
		}

		return nil
	})

	return count, totalSize, nil
}

func (c *Cache) get(bucket, key string, v any) (bool, error) {
	var found bool

	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if data == nil {
			return nil
		}

		found = true
		return json.Unmarshal(data, v)
	})

	return found, err
}

func (c *Cache) put(bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
	})
}

// archiveDir returns the directory holding the archive with the given digest
func (c *Cache) archiveDir(sha256 string) string {
	return filepath.Join(c.root, "archives", sha256)
}
