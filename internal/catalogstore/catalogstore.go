// Package catalogstore defines the optional collaborator the facade can
// use to look up a book's catalog metadata (ISBNs, volume id, declared
// cover URL) when the caller only has a catalog id on hand.
package catalogstore

import (
	"context"

	"github.com/sashko-guz/book-covers/internal/coverid"
)

// CatalogStore resolves a catalog id to the book metadata the cover
// subsystem needs. Implementations typically wrap a relational store;
// none is required when callers already have a fully populated
// coverid.Book.
type CatalogStore interface {
	BookByID(ctx context.Context, catalogID string) (coverid.Book, error)
}
