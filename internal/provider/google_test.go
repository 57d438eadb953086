package provider

import (
	"context"
	"testing"

	"github.com/sashko-guz/book-covers/internal/coverid"
)

func TestGoogleFetchByISBNReturnsPlaceholderWhenVolumeNotFound(t *testing.T) {
	lookup := &fakeVolumeLookup{byISBN: map[string]string{}}
	dl := &fakeDownloader{results: map[string]fakeDownloadResult{}}
	g := NewGoogle(lookup, dl)
	rec := newRecord()

	got := g.FetchByISBN(context.Background(), "9780000000002", rec)
	if !got.IsPlaceholder() {
		t.Fatalf("expected placeholder, got %+v", got)
	}
	if len(rec.Attempts) != 1 || rec.Attempts[0].Outcome.String() != "failure-not-found" {
		t.Errorf("expected one failure-not-found attempt, got %+v", rec.Attempts)
	}
}

func TestGoogleFetchByISBNDownloadsAndKeepsLargerVariant(t *testing.T) {
	const rawURL = "https://books.google.com/books/content?id=abc&zoom=1&printsec=frontcover"
	enhanced := "https://books.google.com/books/content?id=abc&zoom=1&printsec=frontcover"
	zoomed := "https://books.google.com/books/content?id=abc&zoom=0&printsec=frontcover"

	lookup := &fakeVolumeLookup{byISBN: map[string]string{"9780000000002": rawURL}}
	dl := &fakeDownloader{results: map[string]fakeDownloadResult{
		enhanced: {width: 400, height: 600, localPath: "/cache/a.jpg", ok: true},
		zoomed:   {width: 900, height: 1300, localPath: "/cache/b.jpg", ok: true},
	}}
	g := NewGoogle(lookup, dl)
	rec := newRecord()

	got := g.FetchByISBN(context.Background(), "9780000000002", rec)
	if got.Location != "/cache/b.jpg" {
		t.Errorf("expected the larger-area variant to win, got location %q", got.Location)
	}
	if got.Provider != coverid.ProviderGoogle {
		t.Errorf("expected ProviderGoogle, got %v", got.Provider)
	}
}

func TestGoogleFetchSkipsVariantsFailingLikelyCoverFilter(t *testing.T) {
	const rawURL = "https://books.google.com/books/content?id=abc&pg=PP1"
	lookup := &fakeVolumeLookup{byISBN: map[string]string{"9780000000002": rawURL}}
	dl := &fakeDownloader{results: map[string]fakeDownloadResult{}}
	g := NewGoogle(lookup, dl)
	rec := newRecord()

	got := g.FetchByISBN(context.Background(), "9780000000002", rec)
	if !got.IsPlaceholder() {
		t.Fatalf("expected placeholder for a pg= disqualified url, got %+v", got)
	}
	if len(dl.calls) != 0 {
		t.Errorf("expected no download attempt for a disqualified variant, got calls %v", dl.calls)
	}
	if len(rec.Attempts) != 1 || rec.Attempts[0].Outcome.String() != "skipped-known-bad" {
		t.Errorf("expected a skipped-known-bad attempt, got %+v", rec.Attempts)
	}
}

func TestGoogleFetchByVolumeIDReturnsPlaceholderWhenNotFound(t *testing.T) {
	lookup := &fakeVolumeLookup{byVolume: map[string]string{}}
	dl := &fakeDownloader{results: map[string]fakeDownloadResult{}}
	g := NewGoogle(lookup, dl)
	rec := newRecord()

	got := g.FetchByVolumeID(context.Background(), "vol1", rec)
	if !got.IsPlaceholder() {
		t.Fatalf("expected placeholder, got %+v", got)
	}
}
