package provider

import (
	"context"
	"fmt"

	"github.com/sashko-guz/book-covers/internal/covercache"
	"github.com/sashko-guz/book-covers/internal/coverid"
	"github.com/sashko-guz/book-covers/internal/provenance"
)

// OpenLibrary is the OpenLibrary covers adapter. A single instance
// serves all three size variants; Fetch is parameterized by tier so the
// pipeline can fan out L/M/S concurrently from one adapter value.
type OpenLibrary struct {
	downloader Downloader
	cache      *covercache.Manager
}

// NewOpenLibrary constructs an OpenLibrary adapter.
func NewOpenLibrary(downloader Downloader, cache *covercache.Manager) *OpenLibrary {
	return &OpenLibrary{downloader: downloader, cache: cache}
}

var openLibrarySizeCode = map[coverid.ResolutionTier]string{
	coverid.TierLarge:  "L",
	coverid.TierMedium: "M",
	coverid.TierSmall:  "S",
}

var openLibraryProviderFor = map[coverid.ResolutionTier]coverid.ProviderId{
	coverid.TierLarge:  coverid.ProviderOpenLibraryL,
	coverid.TierMedium: coverid.ProviderOpenLibraryM,
	coverid.TierSmall:  coverid.ProviderOpenLibraryS,
}

// Fetch composes the covers.openlibrary.org URL for isbn at the given
// tier and downloads it, unless isbn is already known-bad for that
// provider (tracked per-tier, since a missing L cover says nothing about
// M or S).
func (o *OpenLibrary) Fetch(ctx context.Context, isbn string, tier coverid.ResolutionTier, rec *provenance.Record) coverid.ImageDescriptor {
	providerID := openLibraryProviderFor[tier]

	if isbn == "" {
		rec.Append(provenance.AttemptedSource{
			Provider: providerID,
			Outcome:  provenance.OutcomeFailureInvalidDetails,
			Reason:   "no isbn",
		})
		return coverid.Placeholder()
	}

	if o.cache != nil && o.cache.IsBadISBN(providerID, isbn) {
		rec.Append(provenance.AttemptedSource{
			Provider:   providerID,
			URLOrQuery: isbn,
			Outcome:    provenance.OutcomeSkippedKnownBad,
		})
		return coverid.Placeholder()
	}

	url := fmt.Sprintf("https://covers.openlibrary.org/b/isbn/%s-%s.jpg", isbn, openLibrarySizeCode[tier])

	width, height, localPath, ok := o.downloader.Download(ctx, url)
	if !ok {
		if o.cache != nil {
			o.cache.MarkBadISBN(providerID, isbn)
		}
		rec.Append(provenance.AttemptedSource{
			Provider:   providerID,
			URLOrQuery: url,
			Outcome:    provenance.OutcomeFailureNotFound,
		})
		return coverid.Placeholder()
	}

	rec.Append(provenance.AttemptedSource{
		Provider:        providerID,
		URLOrQuery:      url,
		Outcome:         provenance.OutcomeSuccess,
		FetchedLocation: localPath,
		Width:           width,
		Height:          height,
	})

	return coverid.ImageDescriptor{
		Location:    localPath,
		StorageKind: coverid.StorageLocal,
		Provider:    providerID,
		Tier:        tier,
		Width:       width,
		Height:      height,
	}
}
