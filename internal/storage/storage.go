// Package storage provides the route cache backends for router-mode resolution.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Store caches resolved verifier URLs keyed by AID.
type Store interface {
	Close() error
	Lookup(aid string) (string, bool, error)
	Remember(aid, verifierURL string) error
	Forget(aid string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	RouteTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	TypeNone   = "none"
	TypeMemory = "memory"
	TypeBBolt  = "bbolt"

	defaultRouteTTL        = 5 * time.Minute
	defaultCleanupInterval = 10 * time.Minute
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", TypeNone, "disabled":
		return noopStore{}, nil
	case TypeMemory:
		return newMemoryStore(opts), nil
	case TypeBBolt:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// Enabled reports whether s actually retains anything.
func Enabled(s Store) bool {
	_, noop := s.(noopStore)
	return s != nil && !noop
}

func normalizeOptions(opts Options) Options {
	if opts.RouteTTL <= 0 {
		opts.RouteTTL = defaultRouteTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                        { return nil }
func (noopStore) Lookup(string) (string, bool, error) { return "", false, nil }
func (noopStore) Remember(string, string) error       { return nil }
func (noopStore) Forget(string) error                 { return nil }
