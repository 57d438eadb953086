// Package provider implements the four cover-source adapters: object
// store, Google Books, OpenLibrary, and Longitood. Every adapter shares
// the same shape: given an identifier (book tag, ISBN or volume id),
// produce an ImageDescriptor candidate or a placeholder, recording an
// AttemptedSource along the way, never returning an error to the
// pipeline.
package provider

import (
	"context"

	"github.com/sashko-guz/book-covers/internal/coverid"
	"github.com/sashko-guz/book-covers/internal/provenance"
)

// Adapter is the book-level provider shape. Fetch never returns a Go
// error: failures are represented as a placeholder ImageDescriptor plus
// an AttemptedSource appended to rec. The concrete adapters in this
// package do not implement it: their entry points take a book tag, an
// ISBN (and tier) or a volume id instead of a whole book.
type Adapter interface {
	Fetch(ctx context.Context, book coverid.Book, rec *provenance.Record) coverid.ImageDescriptor
}

// Downloader is the collaborator adapters use to turn a candidate URL
// into bytes and pixel dimensions, fronted by the local disk cache.
type Downloader interface {
	// Download fetches url (coalesced, URL-addressed, placeholder-
	// screened by the disk cache) and decodes it far enough to report
	// dimensions. ok is false for any failure; the adapter treats that
	// identically to a network error.
	Download(ctx context.Context, url string) (width, height int, localPath string, ok bool)
}
