// Package index persists the fingerprint to canonical path mapping across runs.
//
// The index is the single source of truth for duplicate state. Registration is
// first-seen-wins: once a fingerprint has a canonical path it is never
// overwritten, so whichever worker registers first stays canonical for every
// later duplicate of that content.
//
// Durability is batched: registrations land in an in-memory pending map and
// are written to BoltDB in one transaction every syncInterval registrations
// (and on Close). A crash loses at most syncInterval insertions, which is safe
// to lose because registration is idempotent on the next run.
package index

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketName = "fingerprints"

// Index is a durable fingerprint -> canonical path mapping.
// All methods are safe for concurrent use; one mutex serializes access.
type Index struct {
	db           *bolt.DB
	syncInterval int

	mu         sync.Mutex
	pending    map[string]string // Registered but not yet flushed
	sinceFlush int               // Registrations since the last successful flush
}

// Open opens (or creates) the index database at path.
// BoltDB's file lock prevents concurrent engine instances; Open fails within
// a second instead of blocking forever if another instance holds the lock.
func Open(path string, syncInterval int) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open index %s (locked by another instance?): %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create index bucket: %w", err)
	}

	if syncInterval < 1 {
		syncInterval = 1
	}

	return &Index{
		db:           db,
		syncInterval: syncInterval,
		pending:      make(map[string]string),
	}, nil
}

// Register inserts (fingerprint, path) if no canonical path exists yet.
//
// Returns the canonical path for the fingerprint and whether this call
// inserted it. When registered is false the fingerprint was already known and
// canonical names the earlier path.
//
// A non-nil error means the periodic flush failed; the registration itself
// still holds (it stays pending and is retried on a later flush or Close).
func (i *Index) Register(fingerprint, path string) (canonical string, registered bool, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if existing, ok := i.lookupLocked(fingerprint); ok {
		return existing, false, nil
	}

	i.pending[fingerprint] = path
	i.sinceFlush++

	if i.sinceFlush >= i.syncInterval {
		if err := i.flushLocked(); err != nil {
			return path, true, fmt.Errorf("flush index: %w", err)
		}
	}
	return path, true, nil
}

// Lookup returns the canonical path for a fingerprint, if any.
func (i *Index) Lookup(fingerprint string) (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lookupLocked(fingerprint)
}

// lookupLocked checks the pending batch first, then the database.
// Caller must hold i.mu.
func (i *Index) lookupLocked(fingerprint string) (string, bool) {
	if path, ok := i.pending[fingerprint]; ok {
		return path, true
	}

	var path string
	var found bool
	_ = i.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(bucketName)).Get([]byte(fingerprint)); v != nil {
			path = string(v)
			found = true
		}
		return nil
	})
	return path, found
}

// ForEach calls fn for every known fingerprint, pending and flushed.
// Iteration stops at the first error, which is returned.
func (i *Index) ForEach(fn func(fingerprint, path string) error) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	// Pending and flushed sets are disjoint: Register only adds absent
	// fingerprints and flushing clears pending.
	for fp, path := range i.pending {
		if err := fn(fp, path); err != nil {
			return err
		}
	}
	return i.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			return fn(string(k), string(v))
		})
	})
}

// Count returns the number of known fingerprints, pending included.
func (i *Index) Count() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	n := len(i.pending)
	_ = i.db.View(func(tx *bolt.Tx) error {
		n += tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})
	return n
}

// Flush writes all pending registrations to the database.
func (i *Index) Flush() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.flushLocked()
}

// flushLocked writes the pending batch in one transaction.
// Pending is cleared only on success so failed flushes are retried later.
// Caller must hold i.mu.
func (i *Index) flushLocked() error {
	if len(i.pending) == 0 {
		i.sinceFlush = 0
		return nil
	}

	err := i.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		for fp, path := range i.pending {
			if err := b.Put([]byte(fp), []byte(path)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	clear(i.pending)
	i.sinceFlush = 0
	return nil
}

// Close flushes pending registrations and closes the database.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	var errs []error
	if err := i.flushLocked(); err != nil {
		errs = append(errs, err)
	}
	if err := i.db.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
