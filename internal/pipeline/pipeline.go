// Package pipeline runs the tiered source-fetching algorithm: a hint
// stage, an object-store probe, a parallel fan-out across the remaining
// providers, and a deterministic selection among whatever candidates
// came back.
package pipeline

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sashko-guz/book-covers/internal/coverid"
	"github.com/sashko-guz/book-covers/internal/covercache"
	"github.com/sashko-guz/book-covers/internal/provenance"
	"github.com/sashko-guz/book-covers/internal/provider"
)

// MaxFanOut bounds concurrent provider calls during the fan-out stage.
const MaxFanOut = 5

// minNonGoogleHintDimension is the per-axis minimum a non-Google hint
// download must clear to be kept as a candidate. The provider fan-out
// runs either way.
const minNonGoogleHintDimension = 200

// objectStorePreferredDimension is the per-axis minimum an ObjectStore
// candidate must exceed to win tie-break class 0.
const objectStorePreferredDimension = 150

// Downloader is the shared collaborator used both directly (non-Google
// hints) and by the provider adapters.
type Downloader = provider.Downloader

// Pipeline wires together the object-store adapter and the three
// remaining candidate providers (Google, OpenLibrary, Longitood).
type Pipeline struct {
	objectStore *provider.ObjectStore
	google      *provider.Google
	openLibrary *provider.OpenLibrary
	longitood   *provider.Longitood
	downloader  Downloader
	cache       *covercache.Manager
}

// New constructs a Pipeline from its provider collaborators.
func New(objectStore *provider.ObjectStore, google *provider.Google, openLibrary *provider.OpenLibrary, longitood *provider.Longitood, downloader Downloader, cache *covercache.Manager) *Pipeline {
	return &Pipeline{
		objectStore: objectStore,
		google:      google,
		openLibrary: openLibrary,
		longitood:   longitood,
		downloader:  downloader,
		cache:       cache,
	}
}

// Resolve runs the full source-fetching algorithm for book, given an
// optional provisional hint URL, and records every attempt in rec.
func (p *Pipeline) Resolve(ctx context.Context, book coverid.Book, provisionalHint string, rec *provenance.Record) coverid.ImageDescriptor {
	var candidates []coverid.ImageDescriptor

	if hint := p.hintCandidates(ctx, provisionalHint, rec); len(hint) > 0 {
		candidates = append(candidates, hint...)
	}

	if p.objectStore != nil {
		if c := p.objectStore.Fetch(ctx, book.CatalogID, rec); c.Valid() {
			candidates = append(candidates, c)
		}
	}

	candidates = append(candidates, p.fanOutRemaining(ctx, book, rec)...)

	winner := selectWinner(candidates)
	recordSelection(rec, winner)
	return winner
}

// hintCandidates tries the provisional hint URL first, ahead of a full
// provider fan-out.
func (p *Pipeline) hintCandidates(ctx context.Context, hint string, rec *provenance.Record) []coverid.ImageDescriptor {
	if hint == "" || hint == coverid.PlaceholderPath || isLocalCachePath(hint) {
		return nil
	}

	switch classifySourceByURL(hint) {
	case coverid.ProviderGoogle:
		d := p.google.FetchVariantsFromURL(ctx, hint, rec)
		if d.Valid() {
			return []coverid.ImageDescriptor{d}
		}
		return nil
	default:
		width, height, localPath, ok := p.downloader.Download(ctx, hint)
		if !ok {
			rec.Append(provenance.AttemptedSource{
				Provider:   coverid.ProviderProvisionalHint,
				URLOrQuery: hint,
				Outcome:    provenance.OutcomeFailureIO,
			})
			return nil
		}
		rec.Append(provenance.AttemptedSource{
			Provider:        coverid.ProviderProvisionalHint,
			URLOrQuery:      hint,
			Outcome:         provenance.OutcomeSuccess,
			FetchedLocation: localPath,
			Width:           width,
			Height:          height,
		})
		if width < minNonGoogleHintDimension || height < minNonGoogleHintDimension {
			return nil
		}
		return []coverid.ImageDescriptor{{
			Location:    localPath,
			StorageKind: coverid.StorageLocal,
			Provider:    coverid.ProviderProvisionalHint,
			Tier:        coverid.TierOriginal,
			Width:       width,
			Height:      height,
		}}
	}
}

// fanOutRemaining runs the remaining providers in parallel, bounded by
// errgroup.SetLimit, each contributing at most one candidate.
func (p *Pipeline) fanOutRemaining(ctx context.Context, book coverid.Book, rec *provenance.Record) []coverid.ImageDescriptor {
	isbn := book.ISBN()

	var jobs []func() coverid.ImageDescriptor
	switch {
	case isbn != "":
		jobs = []func() coverid.ImageDescriptor{
			func() coverid.ImageDescriptor { return p.google.FetchByISBN(ctx, isbn, rec) },
			func() coverid.ImageDescriptor { return p.openLibrary.Fetch(ctx, isbn, coverid.TierLarge, rec) },
			func() coverid.ImageDescriptor { return p.openLibrary.Fetch(ctx, isbn, coverid.TierMedium, rec) },
			func() coverid.ImageDescriptor { return p.openLibrary.Fetch(ctx, isbn, coverid.TierSmall, rec) },
			func() coverid.ImageDescriptor { return p.longitood.Fetch(ctx, isbn, rec) },
		}
	case book.VolumeID != "":
		jobs = []func() coverid.ImageDescriptor{
			func() coverid.ImageDescriptor { return p.google.FetchByVolumeID(ctx, book.VolumeID, rec) },
		}
	default:
		return nil
	}

	results := make([]coverid.ImageDescriptor, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxFanOut)
	_ = gctx

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			// Each adapter already swallows its own errors into a
			// placeholder descriptor, so the group itself never fails;
			// this wrapper exists purely to fan out under SetLimit.
			results[i] = job()
			return nil
		})
	}
	_ = g.Wait()

	var valid []coverid.ImageDescriptor
	for _, d := range results {
		if d.Valid() {
			valid = append(valid, d)
		}
	}
	return valid
}

// sourcePreferenceRank breaks ties among equally-sized candidates.
var sourcePreferenceRank = map[coverid.ProviderId]int{
	coverid.ProviderObjectStore:     0,
	coverid.ProviderGoogle:          1,
	coverid.ProviderOpenLibraryL:    2,
	coverid.ProviderOpenLibraryM:    2,
	coverid.ProviderOpenLibraryS:    2,
	coverid.ProviderLongitood:       3,
	coverid.ProviderProvisionalHint: 4,
	coverid.ProviderLocalCache:      4,
}

func sourceRank(p coverid.ProviderId) int {
	if r, ok := sourcePreferenceRank[p]; ok {
		return r
	}
	return 5
}

// selectWinner picks among candidates: tie-break class by preferred-
// ObjectStore dimension threshold, then larger area, then source
// preference order.
func selectWinner(candidates []coverid.ImageDescriptor) coverid.ImageDescriptor {
	if len(candidates) == 0 {
		return coverid.Placeholder()
	}

	class := func(d coverid.ImageDescriptor) int {
		if d.StorageKind == coverid.StorageObjectStore && d.Width > objectStorePreferredDimension && d.Height > objectStorePreferredDimension {
			return 0
		}
		return 1
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := class(candidates[i]), class(candidates[j])
		if ci != cj {
			return ci < cj
		}
		ai, aj := candidates[i].Area(), candidates[j].Area()
		if ai != aj {
			return ai > aj
		}
		return sourceRank(candidates[i].Provider) < sourceRank(candidates[j].Provider)
	})

	winner := candidates[0]
	if !winner.Valid() {
		return coverid.Placeholder()
	}
	return winner
}

func recordSelection(rec *provenance.Record, winner coverid.ImageDescriptor) {
	label := "local"
	switch winner.StorageKind {
	case coverid.StorageObjectStore:
		label = "object-store"
	case coverid.StoragePlaceholder:
		label = "placeholder"
	case coverid.StorageRemote:
		label = "remote"
	}
	rec.Select(provenance.SelectedImage{
		Provider:     winner.Provider,
		Location:     winner.Location,
		Width:        winner.Width,
		Height:       winner.Height,
		StorageLabel: label,
	})
}

// isLocalCachePath reports whether hint already points into the local
// disk cache rather than an external provider.
func isLocalCachePath(hint string) bool {
	return !strings.Contains(hint, "://")
}

// classifySourceByURL infers a provider from a raw URL via substring
// matching, reused here to detect a Google hint URL.
func classifySourceByURL(url string) coverid.ProviderId {
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
	default:
		return coverid.ProviderOther
	}
}
