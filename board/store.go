package board

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store is the file-backed persistent store for the whole board dataset.
//
// Concurrency control is the file lock, nothing else: reads take a shared
// lock, writes take an exclusive lock, and both block until the lock is
// available. No in-process mutex is layered on top, so the same discipline
// serializes concurrent goroutines and concurrent processes alike.
//
// Locks are taken on a sidecar lock file rather than the data file itself so
// the data file can be replaced atomically (write-temp-then-rename) without
// invalidating locks held on a stale inode.
type Store struct {
	dataPath string
	lockPath string
}

// Open initializes a store rooted at dir. If no data file exists yet, it is
// created with an empty dataset. An unreadable or corrupt data file is an
// error here; callers treat that as fatal rather than silently recovering.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	s := &Store{
		dataPath: filepath.Join(dir, "board.json"),
		lockPath: filepath.Join(dir, "board.json.lock"),
	}

	if _, err := os.Stat(s.dataPath); os.IsNotExist(err) {
		if err := s.writeLocked(NewDataset()); err != nil {
			return nil, fmt.Errorf("initialize data file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat data file: %w", err)
	}

	// Fail fast on a corrupt file instead of surfacing it on the first request.
	if _, err := s.Read(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the location of the backing data file.
func (s *Store) Path() string {
	return s.dataPath
}

// Read returns a full snapshot of the dataset, acquired under a shared lock.
// Concurrent readers do not block each other; a writer blocks all readers.
func (s *Store) Read() (*Dataset, error) {
	unlock, err := s.lock(lockShared)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.load()
}

// Update applies fn to the current dataset and persists the result, all under
// one exclusive lock. Holding the lock across the read-modify-write is what
// makes concurrent whole-document updates serializable; a crash between read
// and write loses only the in-flight change, never prior state, because the
// write replaces the file's bytes as a unit.
//
// If fn returns an error nothing is written and the error is returned as-is.
func (s *Store) Update(fn func(*Dataset) error) error {
	unlock, err := s.lock(lockExclusive)
	if err != nil {
		return err
	}
	defer unlock()

	ds, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(ds); err != nil {
		return err
	}
	return s.write(ds)
}

// load reads and decodes the data file. Caller holds the lock.
func (s *Store) load() (*Dataset, error) {
	data, err := os.ReadFile(s.dataPath)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}

	ds := NewDataset()
	if err := json.Unmarshal(data, ds); err != nil {
		return nil, fmt.Errorf("parse data file %s: %w", s.dataPath, err)
	}

	// Older files may predate a column; keep one order list per column.
	for _, col := range Columns() {
		if _, ok := ds.ColumnOrder[col]; !ok {
			ds.ColumnOrder[col] = []string{}
		}
	}
	return ds, nil
}

// write persists the dataset atomically. Caller holds the exclusive lock.
func (s *Store) write(ds *Dataset) error {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize dataset: %w", err)
	}

	tmp := s.dataPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	if err := os.Rename(tmp, s.dataPath); err != nil {
		return fmt.Errorf("rename data file: %w", err)
	}
	return nil
}

// writeLocked takes the exclusive lock and persists the dataset.
func (s *Store) writeLocked(ds *Dataset) error {
	unlock, err := s.lock(lockExclusive)
	if err != nil {
		return err
	}
	defer unlock()
	return s.write(ds)
}

type lockMode int

const (
	lockShared lockMode = iota
	lockExclusive
)

// lock acquires the requested lock on the sidecar lock file, blocking until
// it is available, and returns a release func.
func (s *Store) lock(mode lockMode) (func(), error) {
	f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := flock(f, mode); err != nil {
		f.Close()
		return nil, fmt.Errorf("acquire file lock: %w", err)
	}
	return func() {
		funlock(f)
		f.Close()
	}, nil
}
