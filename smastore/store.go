package smastore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/lychee-technology/smaq"
)

// Store persists Artifacts as individual files under a base directory, one file per
// PredicateKey. Writes are atomic: the artifact is written to a uniquely-named temp file
// in the same directory and renamed into place, so a concurrent reader never observes a
// partial write and a crash mid-write never corrupts the previous artifact.
type Store struct {
	baseDir string
}

// New constructs a Store rooted at baseDir, creating it if necessary.
func New(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create sma store directory %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) path(key smaq.PredicateKey) string {
	return filepath.Join(s.baseDir, string(key)+".sma")
}

// Lookup loads the Artifact for key, or (nil, nil) if no artifact has been built for it yet.
// A file that fails to decode (bad magic, truncated header, corrupt Arrow payload) is removed
// before Lookup returns its error, so a permanently unreadable artifact does not keep shadowing
// every future build attempt for the same key.
func (s *Store) Lookup(key smaq.PredicateKey) (*Artifact, error) {
	p := s.path(key)
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, smaq.NewStoreReadError(key, err)
	}
	artifact, err := decodeArtifact(data)
	if err != nil {
		_ = os.Remove(p)
		return nil, smaq.NewStoreReadError(key, err)
	}
	return artifact, nil
}

// Put writes artifact, replacing any existing artifact under the same key.
func (s *Store) Put(artifact *Artifact) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return smaq.NewStoreWriteError(artifact.Key, err)
	}

	final := s.path(artifact.Key)
	tmp := final + ".tmp-" + uuid.NewString()

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return smaq.NewStoreWriteError(artifact.Key, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return smaq.NewStoreWriteError(artifact.Key, err)
	}
	return nil
}

// Remove deletes the artifact for key, if one exists. Removing a key with no artifact is
// not an error.
func (s *Store) Remove(key smaq.PredicateKey) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return smaq.NewStoreWriteError(key, err)
	}
	return nil
}

// Exists reports whether an artifact is currently stored for key, without paying the cost
// of decoding it.
func (s *Store) Exists(key smaq.PredicateKey) bool {
	_, err := os.Stat(s.path(key))
	return err == nil
}
