package provider

import (
	"context"
	"fmt"

	"github.com/sashko-guz/book-covers/internal/coverid"
	"github.com/sashko-guz/book-covers/internal/provenance"
)

// GoogleVolumeAPIBase is the endpoint used to resolve a book's cover
// image link by ISBN or volume id before the link is rewritten and
// downloaded.
const GoogleVolumeAPIBase = "https://www.googleapis.com/books/v1/volumes"

// VolumeLookup resolves a Google Books identifier (ISBN or volume id) to
// a raw thumbnail URL, or "" if none is found. Separated from Google so
// it can be swapped for a test double without faking HTTP.
type VolumeLookup interface {
	LookupByISBN(ctx context.Context, isbn string) (imageURL string, ok bool)
	LookupByVolumeID(ctx context.Context, volumeID string) (imageURL string, ok bool)
}

// Google is the Google Books adapter. It has two entry points (by ISBN,
// by volume id); each rewrites the resolved link and downloads up to two
// URL variants that pass the "likely cover" filter, one after the other
// (the variants are not downloaded in parallel), keeping the larger.
type Google struct {
	lookup     VolumeLookup
	downloader Downloader
}

// NewGoogle constructs a Google adapter.
func NewGoogle(lookup VolumeLookup, downloader Downloader) *Google {
	return &Google{lookup: lookup, downloader: downloader}
}

// FetchByISBN resolves and downloads a cover for isbn.
func (g *Google) FetchByISBN(ctx context.Context, isbn string, rec *provenance.Record) coverid.ImageDescriptor {
	url, ok := g.lookup.LookupByISBN(ctx, isbn)
	if !ok || url == "" {
		rec.Append(provenance.AttemptedSource{
			Provider:   coverid.ProviderGoogle,
			URLOrQuery: isbn,
			Outcome:    provenance.OutcomeFailureNotFound,
			Reason:     "no volume found for isbn",
		})
		return coverid.Placeholder()
	}
	return g.fetchVariants(ctx, url, isbn, rec)
}

// FetchByVolumeID resolves and downloads a cover for a catalog volume id.
func (g *Google) FetchByVolumeID(ctx context.Context, volumeID string, rec *provenance.Record) coverid.ImageDescriptor {
	url, ok := g.lookup.LookupByVolumeID(ctx, volumeID)
	if !ok || url == "" {
		rec.Append(provenance.AttemptedSource{
			Provider:   coverid.ProviderGoogle,
			URLOrQuery: volumeID,
			Outcome:    provenance.OutcomeFailureNotFound,
			Reason:     "no volume found for volume id",
		})
		return coverid.Placeholder()
	}
	return g.fetchVariants(ctx, url, volumeID, rec)
}

// fetchVariants is shared by both entry points, and is also reused for a
// raw Google hint URL via FetchVariantsFromURL.
func (g *Google) fetchVariants(ctx context.Context, rawURL, query string, rec *provenance.Record) coverid.ImageDescriptor {
	best := coverid.Placeholder()

	for _, variant := range googleVariants(rawURL) {
		if !isLikelyGoogleCover(variant) {
			rec.Append(provenance.AttemptedSource{
				Provider:   coverid.ProviderGoogle,
				URLOrQuery: variant,
				Outcome:    provenance.OutcomeSkippedKnownBad,
				Reason:     "fails likely-cover filter",
			})
			continue
		}

		width, height, localPath, ok := g.downloader.Download(ctx, variant)
		if !ok {
			rec.Append(provenance.AttemptedSource{
				Provider:   coverid.ProviderGoogle,
				URLOrQuery: variant,
				Outcome:    provenance.OutcomeFailureIO,
			})
			continue
		}

		rec.Append(provenance.AttemptedSource{
			Provider:        coverid.ProviderGoogle,
			URLOrQuery:      variant,
			Outcome:         provenance.OutcomeSuccess,
			FetchedLocation: localPath,
			Width:           width,
			Height:          height,
		})

		candidate := coverid.ImageDescriptor{
			Location:    localPath,
			StorageKind: coverid.StorageLocal,
			Provider:    coverid.ProviderGoogle,
			Tier:        coverid.TierOriginal,
			Width:       width,
			Height:      height,
		}
		if candidate.Area() > best.Area() {
			best = candidate
		}
	}

	return best
}

// FetchVariantsFromURL exposes fetchVariants for callers that already
// have a raw candidate URL rather than an ISBN or volume id.
func (g *Google) FetchVariantsFromURL(ctx context.Context, rawURL string, rec *provenance.Record) coverid.ImageDescriptor {
	return g.fetchVariants(ctx, rawURL, fmt.Sprintf("hint:%s", rawURL), rec)
}
