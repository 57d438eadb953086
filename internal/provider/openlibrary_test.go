package provider

import (
	"context"
	"testing"

	"github.com/sashko-guz/book-covers/internal/covercache"
	"github.com/sashko-guz/book-covers/internal/coverid"
)

func TestOpenLibraryFetchComposesURLPerTier(t *testing.T) {
	const url = "https://covers.openlibrary.org/b/isbn/9780000000002-L.jpg"
	dl := &fakeDownloader{results: map[string]fakeDownloadResult{
		url: {width: 500, height: 700, localPath: "/cache/ol.jpg", ok: true},
	}}
	o := NewOpenLibrary(dl, covercache.NewManager(covercache.Config{}))
	rec := newRecord()

	got := o.Fetch(context.Background(), "9780000000002", coverid.TierLarge, rec)
	if got.Location != "/cache/ol.jpg" {
		t.Errorf("expected the composed url to be downloaded, got %+v", got)
	}
	if got.Provider != coverid.ProviderOpenLibraryL {
		t.Errorf("expected ProviderOpenLibraryL, got %v", got.Provider)
	}
}

func TestOpenLibraryFetchEmptyISBNReturnsPlaceholder(t *testing.T) {
	o := NewOpenLibrary(&fakeDownloader{}, covercache.NewManager(covercache.Config{}))
	rec := newRecord()

	got := o.Fetch(context.Background(), "", coverid.TierMedium, rec)
	if !got.IsPlaceholder() {
		t.Fatalf("expected placeholder for empty isbn, got %+v", got)
	}
}

func TestOpenLibraryFetchMarksAndSkipsKnownBadISBNPerTier(t *testing.T) {
	cache := covercache.NewManager(covercache.Config{})
	dl := &fakeDownloader{results: map[string]fakeDownloadResult{}}
	o := NewOpenLibrary(dl, cache)
	rec := newRecord()

	// First call fails and marks the ISBN bad for TierLarge only.
	first := o.Fetch(context.Background(), "9780000000002", coverid.TierLarge, rec)
	if !first.IsPlaceholder() {
		t.Fatalf("expected placeholder on download failure, got %+v", first)
	}
	if !cache.IsBadISBN(coverid.ProviderOpenLibraryL, "9780000000002") {
		t.Fatal("expected isbn to be marked bad for OpenLibraryL")
	}

	// Second call for the same tier should be skipped without a new download attempt.
	callsBefore := len(dl.calls)
	second := o.Fetch(context.Background(), "9780000000002", coverid.TierLarge, rec)
	if !second.IsPlaceholder() {
		t.Fatalf("expected placeholder for known-bad isbn, got %+v", second)
	}
	if len(dl.calls) != callsBefore {
		t.Error("expected no new download attempt for a known-bad isbn/tier pair")
	}

	// A different tier is not affected by the TierLarge bad mark.
	if cache.IsBadISBN(coverid.ProviderOpenLibraryM, "9780000000002") {
		t.Error("known-bad status must not leak across tiers")
	}
}
