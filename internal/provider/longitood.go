package provider

import (
	"context"
	"fmt"

	"github.com/sashko-guz/book-covers/internal/covercache"
	"github.com/sashko-guz/book-covers/internal/coverid"
	"github.com/sashko-guz/book-covers/internal/provenance"
)

// Longitood is the longitood.com covers adapter. It requires an ISBN;
// there is no volume-id entry point.
type Longitood struct {
	downloader Downloader
	cache      *covercache.Manager
}

// NewLongitood constructs a Longitood adapter.
func NewLongitood(downloader Downloader, cache *covercache.Manager) *Longitood {
	return &Longitood{downloader: downloader, cache: cache}
}

// Fetch downloads the Longitood cover for isbn, skipping known-bad ISBNs.
func (l *Longitood) Fetch(ctx context.Context, isbn string, rec *provenance.Record) coverid.ImageDescriptor {
	if isbn == "" {
		rec.Append(provenance.AttemptedSource{
			Provider: coverid.ProviderLongitood,
			Outcome:  provenance.OutcomeFailureInvalidDetails,
			Reason:   "no isbn",
		})
		return coverid.Placeholder()
	}

	if l.cache != nil && l.cache.IsBadISBN(coverid.ProviderLongitood, isbn) {
		rec.Append(provenance.AttemptedSource{
			Provider:   coverid.ProviderLongitood,
			URLOrQuery: isbn,
			Outcome:    provenance.OutcomeSkippedKnownBad,
		})
		return coverid.Placeholder()
	}

	url := fmt.Sprintf("https://api.longitood.com/v1/books/covers/%s", isbn)

	width, height, localPath, ok := l.downloader.Download(ctx, url)
	if !ok {
		if l.cache != nil {
			l.cache.MarkBadISBN(coverid.ProviderLongitood, isbn)
		}
		rec.Append(provenance.AttemptedSource{
			Provider:   coverid.ProviderLongitood,
			URLOrQuery: url,
			Outcome:    provenance.OutcomeFailureNotFound,
		})
		return coverid.Placeholder()
	}

	rec.Append(provenance.AttemptedSource{
		Provider:        coverid.ProviderLongitood,
		URLOrQuery:      url,
		Outcome:         provenance.OutcomeSuccess,
		FetchedLocation: localPath,
		Width:           width,
		Height:          height,
	})

	return coverid.ImageDescriptor{
		Location:    localPath,
		StorageKind: coverid.StorageLocal,
		Provider:    coverid.ProviderLongitood,
		Tier:        coverid.TierOriginal,
		Width:       width,
		Height:      height,
	}
}
