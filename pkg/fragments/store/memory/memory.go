// Package memory provides an in-memory backend implementing both
// fragments.MetadataStore and fragments.DataStore. It is the reference and
// test backend: a production deployment swaps it for a durable backend
// without changing the service.
package memory

import (
	"context"
	"sync"

	"github.com/fragsvc/fragments/pkg/fragments"
)

// Store holds fragment metadata and data in owner-keyed maps. It is safe
// for concurrent use by multiple callers; a single RWMutex guards both
// maps. Records and blobs are copied on the way in and out so callers can
// never alias store-internal state.
type Store struct {
	mu       sync.RWMutex
	metadata map[string]map[string]*fragments.Fragment // ownerID -> fragmentID -> record
	order    map[string][]string                       // ownerID -> fragmentIDs in insertion order
	data     map[string]map[string][]byte              // ownerID -> fragmentID -> blob
}

var (
	_ fragments.MetadataStore = (*Store)(nil)
	_ fragments.DataStore     = (*Store)(nil)
)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		metadata: make(map[string]map[string]*fragments.Fragment),
		order:    make(map[string][]string),
		data:     make(map[string]map[string][]byte),
	}
}

func (s *Store) PutFragment(ctx context.Context, fragment *fragments.Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.metadata[fragment.OwnerID]
	if !ok {
		owner = make(map[string]*fragments.Fragment)
		s.metadata[fragment.OwnerID] = owner
	}
	if _, exists := owner[fragment.ID]; !exists {
		s.order[fragment.OwnerID] = append(s.order[fragment.OwnerID], fragment.ID)
	}

	record := *fragment
	owner[fragment.ID] = &record
	return nil
}

func (s *Store) GetFragment(ctx context.Context, ownerID, fragmentID string) (*fragments.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fragment, ok := s.metadata[ownerID][fragmentID]
	if !ok {
		return nil, fragments.ErrNotFound
	}
	record := *fragment
	return &record, nil
}

func (s *Store) ListFragments(ctx context.Context, ownerID string) ([]*fragments.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.order[ownerID]
	list := make([]*fragments.Fragment, 0, len(ids))
	for _, id := range ids {
		record := *s.metadata[ownerID][id]
		list = append(list, &record)
	}
	return list, nil
}

func (s *Store) DeleteFragment(ctx context.Context, ownerID, fragmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.metadata[ownerID][fragmentID]; !ok {
		return fragments.ErrNotFound
	}
	delete(s.metadata[ownerID], fragmentID)
	for i, id := range s.order[ownerID] {
		if id == fragmentID {
			s.order[ownerID] = append(s.order[ownerID][:i], s.order[ownerID][i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) PutData(ctx context.Context, ownerID, fragmentID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.data[ownerID]
	if !ok {
		owner = make(map[string][]byte)
		s.data[ownerID] = owner
	}
	blob := make([]byte, len(data))
	copy(blob, data)
	owner[fragmentID] = blob
	return nil
}

func (s *Store) GetData(ctx context.Context, ownerID, fragmentID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.data[ownerID][fragmentID]
	if !ok {
		return nil, fragments.ErrNotFound
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

func (s *Store) DeleteData(ctx context.Context, ownerID, fragmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[ownerID][fragmentID]; !ok {
		return fragments.ErrNotFound
	}
	delete(s.data[ownerID], fragmentID)
	return nil
}
