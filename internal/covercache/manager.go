// Package covercache holds the in-memory indexes the pipeline consults on
// every request: provisional (hint) URLs, resolved final descriptors, a
// flat negative cache of known-bad URLs, and a negative cache of known-
// bad ISBNs scoped per provider.
//
// Each index is bounded by a fixed capacity backed by
// hashicorp/golang-lru/v2. Unlike that package's native single-oldest-
// entry eviction, these indexes purge entirely once full: a cache that's
// at capacity and still filling is signaling churn the pipeline should
// re-derive fresh rather than evict piecemeal from.
package covercache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sashko-guz/book-covers/internal/coverid"
	"github.com/sashko-guz/book-covers/internal/logger"
)

const (
	defaultProvisionalCap = 1000
	defaultFinalCap       = 1000
	defaultBadURLCap      = 2000
	defaultBadISBNCap     = 2000
)

// boundedSet wraps a golang-lru Cache to implement "purge everything once
// full" instead of golang-lru's native LRU eviction.
type boundedSet[K comparable, V any] struct {
	mu  sync.Mutex
	lru *lru.Cache[K, V]
	cap int
}

func newBoundedSet[K comparable, V any](capacity int) *boundedSet[K, V] {
	c, err := lru.New[K, V](capacity)
	if err != nil {
		// golang-lru only errors on size <= 0; guard with a sane floor
		// rather than letting a misconfigured capacity panic at startup.
		c, _ = lru.New[K, V](1)
	}
	return &boundedSet[K, V]{lru: c, cap: capacity}
}

func (b *boundedSet[K, V]) Get(key K) (V, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lru.Get(key)
}

func (b *boundedSet[K, V]) Add(key K, value V) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lru.Len() >= b.cap {
		b.lru.Purge()
	}
	b.lru.Add(key, value)
}

func (b *boundedSet[K, V]) Remove(key K) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lru.Remove(key)
}

func (b *boundedSet[K, V]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lru.Len()
}

// Manager is the process-wide set of bounded indexes consulted by the
// pipeline.
type Manager struct {
	provisional *boundedSet[coverid.Fingerprint, string]
	final       *boundedSet[coverid.Fingerprint, coverid.ImageDescriptor]
	badURLs     *boundedSet[string, struct{}]
	badISBNs    *boundedSet[badISBNKey, struct{}]
}

type badISBNKey struct {
	provider coverid.ProviderId
	isbn     string
}

// Config sizes each index; zero values fall back to the package defaults.
type Config struct {
	ProvisionalCap int
	FinalCap       int
	BadURLCap      int
	BadISBNCap     int
}

// NewManager builds a Manager with the given index capacities.
func NewManager(cfg Config) *Manager {
	provisionalCap := orDefault(cfg.ProvisionalCap, defaultProvisionalCap)
	finalCap := orDefault(cfg.FinalCap, defaultFinalCap)
	badURLCap := orDefault(cfg.BadURLCap, defaultBadURLCap)
	badISBNCap := orDefault(cfg.BadISBNCap, defaultBadISBNCap)

	logger.Infof("covercache: initialized (provisional=%d final=%d badURLs=%d badISBNs=%d)",
		provisionalCap, finalCap, badURLCap, badISBNCap)

	return &Manager{
		provisional: newBoundedSet[coverid.Fingerprint, string](provisionalCap),
		final:       newBoundedSet[coverid.Fingerprint, coverid.ImageDescriptor](finalCap),
		badURLs:     newBoundedSet[string, struct{}](badURLCap),
		badISBNs:    newBoundedSet[badISBNKey, struct{}](badISBNCap),
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// ProvisionalURL returns the hint URL recorded for fp, if any.
func (m *Manager) ProvisionalURL(fp coverid.Fingerprint) (string, bool) {
	return m.provisional.Get(fp)
}

// SetProvisionalURL records a hint URL for fp, to be tried ahead of a full
// provider fan-out while convergence has not yet produced a final result.
func (m *Manager) SetProvisionalURL(fp coverid.Fingerprint, url string) {
	if fp == "" || url == "" {
		return
	}
	m.provisional.Add(fp, url)
}

// FinalDescriptor returns the converged descriptor for fp, if any.
func (m *Manager) FinalDescriptor(fp coverid.Fingerprint) (coverid.ImageDescriptor, bool) {
	return m.final.Get(fp)
}

// SetFinalDescriptor records the converged descriptor for fp and clears
// its provisional hint, since the final entry now supersedes it.
func (m *Manager) SetFinalDescriptor(fp coverid.Fingerprint, d coverid.ImageDescriptor) {
	if fp == "" {
		return
	}
	m.final.Add(fp, d)
	m.provisional.Remove(fp)
}

// IsBadURL reports whether url was previously observed to fail, for any
// reason, during a download attempt.
func (m *Manager) IsBadURL(url string) bool {
	_, ok := m.badURLs.Get(url)
	return ok
}

// MarkBadURL records url as known-bad so a later caller short-circuits
// without issuing a new request.
func (m *Manager) MarkBadURL(url string) {
	if url == "" {
		return
	}
	m.badURLs.Add(url, struct{}{})
}

// IsBadISBN reports whether isbn was previously observed to have no cover
// at provider (e.g. OpenLibrary or Longitood answered definitively not
// found).
func (m *Manager) IsBadISBN(provider coverid.ProviderId, isbn string) bool {
	_, ok := m.badISBNs.Get(badISBNKey{provider: provider, isbn: isbn})
	return ok
}

// MarkBadISBN records isbn as known to have no cover at provider.
func (m *Manager) MarkBadISBN(provider coverid.ProviderId, isbn string) {
	if isbn == "" {
		return
	}
	m.badISBNs.Add(badISBNKey{provider: provider, isbn: isbn}, struct{}{})
}
