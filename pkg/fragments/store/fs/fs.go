// Package fs provides a filesystem backend implementing both
// fragments.MetadataStore and fragments.DataStore. Each owner gets a
// directory under the base directory; a fragment is stored as a JSON
// metadata file and a raw data file sharing the fragment id.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fragsvc/fragments/pkg/fragments"
)

const (
	metadataExt = ".json"
	dataExt     = ".bin"
)

// Config options for the filesystem backend.
type Config struct {
	BaseDir string // base directory for all owners; created if missing
}

// Store is the filesystem backend. A single RWMutex serializes writers;
// the owner/fragment layout keeps enumeration scoped to one owner's
// directory.
type Store struct {
	mu      sync.RWMutex
	baseDir string
}

var (
	_ fragments.MetadataStore = (*Store)(nil)
	_ fragments.DataStore     = (*Store)(nil)
)

// New creates a filesystem store rooted at cfg.BaseDir.
func New(cfg Config) (*Store, error) {
	if cfg.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &Store{baseDir: cfg.BaseDir}, nil
}

// ownerDir sanitizes the owner id into a single path element. Owner ids
// are hex digests in practice; this guards against separator injection if
// a caller ever passes something else.
func (s *Store) ownerDir(ownerID string) string {
	return filepath.Join(s.baseDir, filepath.Base(ownerID))
}

func (s *Store) path(ownerID, fragmentID, ext string) string {
	return filepath.Join(s.ownerDir(ownerID), filepath.Base(fragmentID)+ext)
}

func (s *Store) PutFragment(ctx context.Context, fragment *fragments.Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.ownerDir(fragment.OwnerID), 0o755); err != nil {
		return fmt.Errorf("failed to create owner directory: %w", err)
	}
	encoded, err := json.Marshal(fragment)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.WriteFile(s.path(fragment.OwnerID, fragment.ID, metadataExt), encoded, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

func (s *Store) GetFragment(ctx context.Context, ownerID, fragmentID string) (*fragments.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	encoded, err := os.ReadFile(s.path(ownerID, fragmentID, metadataExt))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fragments.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	var fragment fragments.Fragment
	if err := json.Unmarshal(encoded, &fragment); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return &fragment, nil
}

func (s *Store) ListFragments(ctx context.Context, ownerID string) ([]*fragments.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.ownerDir(ownerID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*fragments.Fragment{}, nil
		}
		return nil, fmt.Errorf("failed to read owner directory: %w", err)
	}

	list := make([]*fragments.Fragment, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), metadataExt) {
			continue
		}
		encoded, err := os.ReadFile(filepath.Join(s.ownerDir(ownerID), entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read metadata: %w", err)
		}
		var fragment fragments.Fragment
		if err := json.Unmarshal(encoded, &fragment); err != nil {
			return nil, fmt.Errorf("failed to decode metadata %s: %w", entry.Name(), err)
		}
		list = append(list, &fragment)
	}
	return list, nil
}

func (s *Store) DeleteFragment(ctx context.Context, ownerID, fragmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(s.path(ownerID, fragmentID, metadataExt))
}

func (s *Store) PutData(ctx context.Context, ownerID, fragmentID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.ownerDir(ownerID), 0o755); err != nil {
		return fmt.Errorf("failed to create owner directory: %w", err)
	}
	if err := os.WriteFile(s.path(ownerID, fragmentID, dataExt), data, 0o644); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	return nil
}

func (s *Store) GetData(ctx context.Context, ownerID, fragmentID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(ownerID, fragmentID, dataExt))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fragments.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return data, nil
}

func (s *Store) DeleteData(ctx context.Context, ownerID, fragmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(s.path(ownerID, fragmentID, dataExt))
}

func (s *Store) remove(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fragments.ErrNotFound
		}
		return fmt.Errorf("failed to remove %s: %w", filepath.Base(path), err)
	}
	return nil
}
