package provider

import (
	"context"
	"testing"
)

type fakeHttpClient struct {
	responses map[string]string
}

func (f *fakeHttpClient) Get(ctx context.Context, url string) ([]byte, string, error) {
	body, ok := f.responses[url]
	if !ok {
		return nil, "", errNotFoundFixture
	}
	return []byte(body), "application/json", nil
}

var errNotFoundFixture = &fixtureError{"no fixture for url"}

type fixtureError struct{ msg string }

func (e *fixtureError) Error() string { return e.msg }

func TestGoogleVolumeLookupByISBNReturnsThumbnail(t *testing.T) {
	const q = "https://www.googleapis.com/books/v1/volumes?q=isbn:9780000000002"
	http := &fakeHttpClient{responses: map[string]string{
		q: `{"items":[{"volumeInfo":{"imageLinks":{"thumbnail":"https://books.google.com/t.jpg"}}}]}`,
	}}
	lookup := NewGoogleVolumeLookup(http, "")

	url, ok := lookup.LookupByISBN(context.Background(), "9780000000002")
	if !ok || url != "https://books.google.com/t.jpg" {
		t.Errorf("LookupByISBN() = (%q, %v), want thumbnail url", url, ok)
	}
}

func TestGoogleVolumeLookupByISBNNoItemsReturnsNotFound(t *testing.T) {
	const q = "https://www.googleapis.com/books/v1/volumes?q=isbn:9780000000002"
	http := &fakeHttpClient{responses: map[string]string{q: `{"items":[]}`}}
	lookup := NewGoogleVolumeLookup(http, "")

	_, ok := lookup.LookupByISBN(context.Background(), "9780000000002")
	if ok {
		t.Error("expected no result for an empty items list")
	}
}

func TestGoogleVolumeLookupByVolumeIDUsesVolumeInfoDirectly(t *testing.T) {
	const q = "https://www.googleapis.com/books/v1/volumes/vol1"
	http := &fakeHttpClient{responses: map[string]string{
		q: `{"volumeInfo":{"imageLinks":{"smallThumbnail":"https://books.google.com/s.jpg"}}}`,
	}}
	lookup := NewGoogleVolumeLookup(http, "")

	url, ok := lookup.LookupByVolumeID(context.Background(), "vol1")
	if !ok || url != "https://books.google.com/s.jpg" {
		t.Errorf("LookupByVolumeID() = (%q, %v), want small thumbnail fallback", url, ok)
	}
}

func TestBestImageLinkPrefersThumbnailOverSmall(t *testing.T) {
	links := &imageLinks{Thumbnail: "t.jpg", SmallThumbnail: "s.jpg"}
	if got := bestImageLink(links); got != "t.jpg" {
		t.Errorf("bestImageLink() = %q, want thumbnail preferred", got)
	}
}

func TestBestImageLinkNilReturnsEmpty(t *testing.T) {
	if got := bestImageLink(nil); got != "" {
		t.Errorf("bestImageLink(nil) = %q, want empty", got)
	}
}
