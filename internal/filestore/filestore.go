// Package filestore keeps one JSON document per record in a flat directory.
//
// Records are addressed by identifier and stored as <dir>/<id>.json. Writes
// go through a temp file and a rename, and read-modify-write cycles on the
// same identifier are serialized inside the process.
package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const ext = ".json"

// ErrNotFound is returned when no record exists for an identifier.
var ErrNotFound = errors.New("record not found")

// ErrInvalidID is returned when an identifier cannot be used as a file name.
var ErrInvalidID = errors.New("invalid record id")

// CorruptError reports a record file that exists but cannot be decoded.
// It matches ErrNotFound under errors.Is, so callers that only care about
// presence treat it as missing while errors.As still tells them apart.
type CorruptError struct {
	ID   string
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt record %s (%s): %v", e.ID, e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Is makes a corrupt record look like a missing one to errors.Is.
func (e *CorruptError) Is(target error) bool { return target == ErrNotFound }

// Store is a directory of JSON records.
type Store struct {
	dir   string
	locks *keyedMutex
}

// Open creates the directory if needed and returns a Store rooted at it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create record directory %s: %w", dir, err)
	}
	return &Store{dir: dir, locks: newKeyedMutex()}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Get decodes the record with the given id into v.
func (s *Store) Get(id string, v any) error {
	if !validID(id) {
		return ErrNotFound
	}
	path := s.path(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read record %s: %w", id, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &CorruptError{ID: id, Path: path, Err: err}
	}
	return nil
}

// Put writes v as the record for id, replacing any previous content.
func (s *Store) Put(id string, v any) error {
	if !validID(id) {
		return ErrInvalidID
	}
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.write(id, v)
}

// Update loads the record for id into v, calls fn, and writes v back, all
// while holding the lock for id. If fn returns an error nothing is written.
func (s *Store) Update(id string, v any, fn func() error) error {
	if !validID(id) {
		return ErrNotFound
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.Get(id, v); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return s.write(id, v)
}

// IDs lists the identifiers of every record in the directory, sorted.
func (s *Store) IDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list records in %s: %w", s.dir, err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) write(id string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", id, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+id+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for record %s: %w", id, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write record %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close record %s: %w", id, err)
	}
	if err := os.Rename(tmpName, s.path(id)); err != nil {
		return fmt.Errorf("failed to replace record %s: %w", id, err)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+ext)
}

func validID(id string) bool {
	if id == "" || id == "." || id == ".." || strings.HasPrefix(id, ".") {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}
