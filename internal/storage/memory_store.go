package storage

import (
	gocache "github.com/patrickmn/go-cache"
)

// memoryStore keeps routes in process with a per-entry TTL.
type memoryStore struct {
	cache *gocache.Cache
}

func newMemoryStore(opts Options) *memoryStore {
	return &memoryStore{cache: gocache.New(opts.RouteTTL, opts.CleanupInterval)}
}

func (m *memoryStore) Close() error {
	m.cache.Flush()
	return nil
}

func (m *memoryStore) Lookup(aid string) (string, bool, error) {
	v, ok := m.cache.Get(aid)
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	return s, ok, nil
}

func (m *memoryStore) Remember(aid, verifierURL string) error {
	m.cache.SetDefault(aid, verifierURL)
	return nil
}

func (m *memoryStore) Forget(aid string) error {
	m.cache.Delete(aid)
	return nil
}
