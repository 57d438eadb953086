// Package coverfacade exposes the single synchronous entry point callers
// use to resolve a book's cover (initialCover) and owns the background
// convergence loop that promotes a provisional or provider-sourced image
// to a durable, final object-store entry.
package coverfacade

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sashko-guz/book-covers/internal/coverid"
	"github.com/sashko-guz/book-covers/internal/covercache"
	"github.com/sashko-guz/book-covers/internal/eventbus"
	"github.com/sashko-guz/book-covers/internal/imagenorm"
	"github.com/sashko-guz/book-covers/internal/logger"
	"github.com/sashko-guz/book-covers/internal/objectstore"
	"github.com/sashko-guz/book-covers/internal/pipeline"
	"github.com/sashko-guz/book-covers/internal/provenance"
)

// MaxBackgroundWorkers bounds the convergence worker pool so a burst of
// cold-path requests can't spawn unbounded goroutines against upstream
// providers and the object store.
const MaxBackgroundWorkers = 8

// CoverUrls is the synchronous response shape for initialCover.
type CoverUrls struct {
	Preferred string
	Fallback  string
	Provider  coverid.ProviderId
}

// Config carries the facade's tunables.
type Config struct {
	CacheEnabled    bool
	DebugProvenance bool
}

// Facade is the cover-management facade: the single synchronous entry
// point for resolving a book's cover, backed by a background
// convergence loop.
type Facade struct {
	cfg Config

	cache       *covercache.Manager
	pipeline    *pipeline.Pipeline
	objectStore *objectstore.Gateway
	normalizer  *imagenorm.Normalizer
	bus         eventbus.EventBus

	g      errgroup.Group
	cancel context.CancelFunc
	ctx    context.Context

	wg sync.WaitGroup
}

// New builds a Facade. It creates its own root context for background
// convergence work, independent of any single request's context so a
// client disconnect never aborts durable promotion; Shutdown cancels it.
func New(cfg Config, cache *covercache.Manager, pl *pipeline.Pipeline, store *objectstore.Gateway, norm *imagenorm.Normalizer, bus eventbus.EventBus) *Facade {
	f := &Facade{
		cfg:         cfg,
		cache:       cache,
		pipeline:    pl,
		objectStore: store,
		normalizer:  norm,
		bus:         bus,
	}
	f.g.SetLimit(MaxBackgroundWorkers)
	f.ctx, f.cancel = context.WithCancel(context.Background())
	return f
}

// InitialCover resolves book's cover synchronously and never fails; on
// any miss it enqueues background convergence and returns the best
// immediately-available answer.
func (f *Facade) InitialCover(book coverid.Book) CoverUrls {
	if !f.cfg.CacheEnabled {
		return placeholderURLs()
	}

	fp := book.Fingerprint()
	if fp == "" {
		return placeholderURLs()
	}

	if f.objectStore != nil {
		if desc, ok := f.objectStore.ProbeAny(f.ctx, book.CatalogID); ok {
			final := coverid.ImageDescriptor{
				Location:    desc.PublicURL,
				StorageKind: coverid.StorageObjectStore,
				Provider:    coverid.ProviderObjectStore,
				Tier:        coverid.TierLarge,
			}
			f.cache.SetFinalDescriptor(fp, final)
			return CoverUrls{
				Preferred: desc.PublicURL,
				Fallback:  fallbackOf(book),
				Provider:  coverid.ProviderObjectStore,
			}
		}
	}

	if final, ok := f.cache.FinalDescriptor(fp); ok {
		return CoverUrls{Preferred: final.Location, Fallback: fallbackOf(book), Provider: final.Provider}
	}

	if hint, ok := f.cache.ProvisionalURL(fp); ok {
		return CoverUrls{Preferred: hint, Fallback: fallbackOf(book), Provider: inferProviderFromURL(hint)}
	}

	preferred := coverid.PlaceholderPath
	if book.CoverImageURL != "" && book.CoverImageURL != coverid.PlaceholderPath {
		preferred = book.CoverImageURL
	}
	f.cache.SetProvisionalURL(fp, preferred)

	f.enqueueConverge(book, preferredHintOrEmpty(preferred))

	return CoverUrls{Preferred: preferred, Fallback: fallbackOf(book), Provider: inferProviderFromURL(preferred)}
}

func preferredHintOrEmpty(preferred string) string {
	if preferred == coverid.PlaceholderPath {
		return ""
	}
	return preferred
}

func fallbackOf(book coverid.Book) string {
	if book.CoverImageURL != "" {
		return book.CoverImageURL
	}
	return coverid.PlaceholderPath
}

func placeholderURLs() CoverUrls {
	return CoverUrls{Preferred: coverid.PlaceholderPath, Fallback: coverid.PlaceholderPath, Provider: coverid.ProviderPlaceholder}
}

func inferProviderFromURL(url string) coverid.ProviderId {
	switch {
	case strings.Contains(url, "googleapis.com/books"), strings.Contains(url, "books.google.com/books"):
		return coverid.ProviderGoogle
	case strings.Contains(url, "openlibrary.org"):
		return coverid.ProviderOpenLibraryL
	case strings.Contains(url, "longitood.com"):
		return coverid.ProviderLongitood
	case strings.Contains(url, "cdn-url"), strings.Contains(url, "public-cdn-url"),
		strings.Contains(url, "digitaloceanspaces.com"), strings.Contains(url, "s3.amazonaws.com"):
		return coverid.ProviderObjectStore
	case strings.HasPrefix(url, "/"):
		return coverid.ProviderLocalCache
	default:
		return coverid.ProviderOther
	}
}

// enqueueConverge schedules backgroundConverge on the bounded worker
// pool, dropping the request rather than blocking the caller if the pool
// is saturated — InitialCover must never block on convergence.
func (f *Facade) enqueueConverge(book coverid.Book, hint string) {
	if f.ctx.Err() != nil {
		// Shutdown has begun; no new background work is accepted.
		return
	}
	f.wg.Add(1)
	started := f.g.TryGo(func() error {
		defer f.wg.Done()
		f.backgroundConverge(book, hint)
		return nil
	})
	if !started {
		f.wg.Done()
		logger.Debugf("coverfacade: convergence pool saturated, dropping %s", book.CatalogID)
	}
}

// backgroundConverge runs the full resolution pipeline for book and
// promotes the result to a durable entry. Any panic is recovered so one
// bad response never kills the worker pool.
func (f *Facade) backgroundConverge(book coverid.Book, hint string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("coverfacade: recovered panic during convergence for %s: %v", book.CatalogID, r)
			f.finalizeAsPlaceholder(book)
		}
	}()

	fp := book.Fingerprint()
	if fp == "" {
		return
	}

	rec := provenance.New(fp)
	final := f.pipeline.Resolve(f.ctx, book, hint, rec)

	switch {
	case final.IsPlaceholder():
		f.writeFinal(fp, final)
		f.publish(fp, final)

	case final.StorageKind == coverid.StorageLocal:
		f.promoteLocalToObjectStore(book, fp, final, rec)

	default: // already StorageObjectStore
		f.writeFinal(fp, final)
		f.publish(fp, final)
	}
}

func (f *Facade) promoteLocalToObjectStore(book coverid.Book, fp coverid.Fingerprint, local coverid.ImageDescriptor, rec *provenance.Record) {
	if f.objectStore == nil {
		f.writeFinal(fp, local)
		f.publish(fp, local)
		return
	}

	raw, err := os.ReadFile(local.Location)
	if err != nil {
		logger.Warnf("coverfacade: read local cover %s: %v", local.Location, err)
		f.writeFinal(fp, local)
		f.publish(fp, local)
		return
	}

	normalized, err := f.normalizer.Normalize(raw)
	if err != nil {
		logger.Warnf("coverfacade: normalize local cover %s: %v", local.Location, err)
		f.writeFinal(fp, local)
		f.publish(fp, local)
		return
	}

	desc, err := f.objectStore.UploadProcessed(f.ctx, normalized.Bytes, ".jpg", "image/jpeg",
		normalized.Width, normalized.Height, book.CatalogID, local.Provider, f.cfg.DebugProvenance, rec)
	if err != nil {
		logger.Warnf("coverfacade: upload %s: %v", book.CatalogID, err)
		f.writeFinal(fp, local)
		f.publish(fp, local)
		return
	}

	final := coverid.ImageDescriptor{
		Location:    desc.PublicURL,
		StorageKind: coverid.StorageObjectStore,
		Provider:    coverid.ProviderObjectStore,
		Tier:        coverid.TierLarge,
		Width:       desc.Width,
		Height:      desc.Height,
		ContentHash: local.ContentHash,
	}
	f.writeFinal(fp, final)
	f.publish(fp, final)
}

func (f *Facade) finalizeAsPlaceholder(book coverid.Book) {
	fp := book.Fingerprint()
	if fp == "" {
		return
	}
	f.writeFinal(fp, coverid.Placeholder())
	f.publish(fp, coverid.Placeholder())
}

func (f *Facade) writeFinal(fp coverid.Fingerprint, d coverid.ImageDescriptor) {
	f.cache.SetFinalDescriptor(fp, d)
}

func (f *Facade) publish(fp coverid.Fingerprint, d coverid.ImageDescriptor) {
	if f.bus == nil {
		return
	}
	f.bus.Publish(eventbus.ChangeEvent{Fingerprint: fp, Descriptor: d})
}

// Shutdown stops accepting new background work and waits up to the
// context deadline for in-flight convergence to drain.
func (f *Facade) Shutdown(ctx context.Context) error {
	f.cancel()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("coverfacade: shutdown timed out waiting for convergence: %w", ctx.Err())
	}
}
