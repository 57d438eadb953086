package diskcache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sashko-guz/book-covers/internal/covercache"
	"github.com/sashko-guz/book-covers/internal/placeholder"
)

type fakeFetcher struct {
	data        []byte
	contentType string
	err         error
	calls       int
}

func (f *fakeFetcher) Get(ctx context.Context, url string) ([]byte, string, error) {
	f.calls++
	return f.data, f.contentType, f.err
}

func newTestCache(t *testing.T, fetcher Fetcher, reg *placeholder.Registry) *Cache {
	t.Helper()
	return newTestCacheWithManager(t, fetcher, reg, covercache.NewManager(covercache.Config{}))
}

func newTestCacheWithManager(t *testing.T, fetcher Fetcher, reg *placeholder.Registry, mgr *covercache.Manager) *Cache {
	t.Helper()
	c, err := New(t.TempDir(), 7, 0, fetcher, reg, mgr)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestFetchAndStoreWritesURLAddressedFile(t *testing.T) {
	data := []byte("\xff\xd8\xff\xe0fake jpeg bytes")
	fetcher := &fakeFetcher{data: data, contentType: "image/jpeg"}
	c := newTestCache(t, fetcher, placeholder.NewRegistry())

	entry, err := c.FetchAndStore(context.Background(), "https://example.com/cover.jpg")
	if err != nil {
		t.Fatalf("FetchAndStore() error: %v", err)
	}
	if entry.Ext != ".jpg" {
		t.Errorf("Ext = %q, want .jpg", entry.Ext)
	}
	if _, err := os.Stat(entry.Path); err != nil {
		t.Errorf("expected stored file at %s, stat error: %v", entry.Path, err)
	}

	// A second fetch for the same url should short-circuit on the
	// existing-file check derived from the URL key, without touching the
	// network again.
	entry2, err := c.FetchAndStore(context.Background(), "https://example.com/cover.jpg")
	if err != nil {
		t.Fatalf("second FetchAndStore() error: %v", err)
	}
	if entry2.Path != entry.Path {
		t.Errorf("expected the same url-addressed path, got %q vs %q", entry2.Path, entry.Path)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher.calls = %d, want 1 (download-once semantics)", fetcher.calls)
	}
}

func TestFetchAndStoreShortCircuitsKnownBadURL(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("boom")}
	mgr := covercache.NewManager(covercache.Config{})
	c := newTestCacheWithManager(t, fetcher, placeholder.NewRegistry(), mgr)

	const url = "https://example.com/broken.jpg"
	if _, err := c.FetchAndStore(context.Background(), url); err == nil {
		t.Fatal("expected the first fetch to fail")
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetcher.calls = %d after first attempt, want 1", fetcher.calls)
	}
	if !mgr.IsBadURL(url) {
		t.Fatal("expected url to be recorded as known-bad after a fetch failure")
	}

	if _, err := c.FetchAndStore(context.Background(), url); !errors.Is(err, ErrKnownBadURL) {
		t.Errorf("expected ErrKnownBadURL on a subsequent call, got %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher.calls = %d after known-bad retry, want still 1 (no new request)", fetcher.calls)
	}
}

func TestFetchAndStoreRejectsUnsupportedContentType(t *testing.T) {
	c := newTestCache(t, &fakeFetcher{data: []byte("<html>not an image</html>"), contentType: "text/html"}, placeholder.NewRegistry())

	_, err := c.FetchAndStore(context.Background(), "https://example.com/not-image")
	if !errors.Is(err, ErrUnsupportedContentType) {
		t.Errorf("expected ErrUnsupportedContentType, got %v", err)
	}
}

func TestFetchAndStoreRejectsEmptyBody(t *testing.T) {
	c := newTestCache(t, &fakeFetcher{data: nil, contentType: "image/jpeg"}, placeholder.NewRegistry())

	_, err := c.FetchAndStore(context.Background(), "https://example.com/empty")
	if err == nil {
		t.Fatal("expected an error for an empty body")
	}
}

func TestFetchAndStoreRejectsOversizedBody(t *testing.T) {
	c, err := New(t.TempDir(), 7, 4, &fakeFetcher{data: []byte("too big"), contentType: "image/jpeg"}, placeholder.NewRegistry(), covercache.NewManager(covercache.Config{}))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	_, err = c.FetchAndStore(context.Background(), "https://example.com/big.jpg")
	if err == nil {
		t.Fatal("expected an error for a body exceeding maxFileSize")
	}
}

func TestFetchAndStoreRejectsPlaceholderMatch(t *testing.T) {
	blank := []byte("a known blank placeholder tile")
	reg := placeholder.NewRegistry()
	reg.AddKnownBad("google", blank)

	c := newTestCache(t, &fakeFetcher{data: blank, contentType: "image/png"}, reg)

	_, err := c.FetchAndStore(context.Background(), "https://example.com/blank.png")
	if !errors.Is(err, ErrPlaceholderMatch) {
		t.Errorf("expected ErrPlaceholderMatch, got %v", err)
	}
}

func TestFetchAndStorePropagatesFetcherError(t *testing.T) {
	wantErr := errors.New("boom")
	c := newTestCache(t, &fakeFetcher{err: wantErr}, placeholder.NewRegistry())

	_, err := c.FetchAndStore(context.Background(), "https://example.com/cover.jpg")
	if err == nil || !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped fetcher error, got %v", err)
	}
}

func TestPathForIsNginxStyleSharded(t *testing.T) {
	c := &Cache{basePath: "/base"}
	hash := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcd"
	got := c.pathFor(hash, ".jpg")
	want := filepath.Join("/base", "cd", "ab", hash+".jpg")
	if got != want {
		t.Errorf("pathFor() = %q, want %q", got, want)
	}
}

func TestSniffTypePrefersDeclaredContentType(t *testing.T) {
	got := sniffType([]byte("\xff\xd8\xffnotreallyapng"), "image/png; charset=binary")
	if got != "image/png" {
		t.Errorf("sniffType() = %q, want declared image/png", got)
	}
}

func TestSniffTypeFallsBackToDetection(t *testing.T) {
	jpegMagic := []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0, 0, 0}
	got := sniffType(jpegMagic, "application/octet-stream")
	if got != "image/jpeg" {
		t.Errorf("sniffType() = %q, want sniffed image/jpeg", got)
	}
}

func TestURLCacheKeyIsDeterministicAndDistinct(t *testing.T) {
	a := urlCacheKey("https://example.com/one.jpg")
	b := urlCacheKey("https://example.com/one.jpg")
	c := urlCacheKey("https://example.com/two.jpg")

	if a != b {
		t.Errorf("urlCacheKey not deterministic: %q vs %q", a, b)
	}
	if a == c {
		t.Error("expected distinct urls to produce distinct keys")
	}
	if len(a) != urlKeyLen {
		t.Errorf("len(urlCacheKey()) = %d, want %d", len(a), urlKeyLen)
	}
}

func TestExtFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://example.com/cover.jpg", ".jpg"},
		{"https://example.com/cover.PNG?w=100", ".png"},
		{"https://covers.openlibrary.org/b/isbn/9780000000002-L.jpg", ".jpg"},
		{"https://example.com/no-extension", ".jpg"},
		{"https://example.com/archive.tar.gz", ".jpg"},
	}
	for _, tc := range cases {
		if got := extFromURL(tc.url); got != tc.want {
			t.Errorf("extFromURL(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
