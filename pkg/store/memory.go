package store

import (
	"bytes"
	"sync"

	"github.com/google/btree"
)

type memoryEntry struct {
	key   []byte
	value []byte
}

func memoryEntryLess(a, b memoryEntry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// MemoryStore is a Store kept in an ordered in-memory tree.
type MemoryStore struct {
	m    *sync.RWMutex
	tree *btree.BTreeG[memoryEntry]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    new(sync.RWMutex),
		tree: btree.NewG(16, memoryEntryLess),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Get(key []byte) ([]byte, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	e, ok := s.tree.Get(memoryEntry{key: key})
	if !ok {
		return nil, ErrKeyNotFound
	}
	return bytes.Clone(e.value), nil
}

func (s *MemoryStore) Put(key, value []byte) error {
	s.m.Lock()
	defer s.m.Unlock()

	s.put(key, value)
	return nil
}

func (s *MemoryStore) PutBatch(entries map[string][]byte) error {
	s.m.Lock()
	defer s.m.Unlock()

	for k, v := range entries {
		s.put([]byte(k), v)
	}
	return nil
}

func (s *MemoryStore) put(key, value []byte) {
	s.tree.ReplaceOrInsert(memoryEntry{key: bytes.Clone(key), value: bytes.Clone(value)})
}

func (s *MemoryStore) Delete(key []byte) error {
	s.m.Lock()
	defer s.m.Unlock()

	s.tree.Delete(memoryEntry{key: key})
	return nil
}

func (s *MemoryStore) List(prefix []byte, fn func(key, value []byte) error) error {
	s.m.RLock()
	entries := []memoryEntry{}
	s.tree.AscendGreaterOrEqual(memoryEntry{key: prefix}, func(e memoryEntry) bool {
		if !bytes.HasPrefix(e.key, prefix) {
			return false
		}
		entries = append(entries, e)
		return true
	})
	s.m.RUnlock()

	// fn runs unlocked so it may write back into the store
	for _, e := range entries {
		if err := fn(bytes.Clone(e.key), bytes.Clone(e.value)); err != nil {
			return err
		}
	}
	return nil
}
