package provider

import (
	"context"

	"github.com/sashko-guz/book-covers/internal/provenance"
)

// fakeDownloader is a deterministic Downloader test double keyed by URL.
type fakeDownloader struct {
	results map[string]fakeDownloadResult
	calls   []string
}

type fakeDownloadResult struct {
	width, height int
	localPath     string
	ok            bool
}

func (f *fakeDownloader) Download(ctx context.Context, url string) (int, int, string, bool) {
	f.calls = append(f.calls, url)
	r, found := f.results[url]
	if !found {
		return 0, 0, "", false
	}
	return r.width, r.height, r.localPath, r.ok
}

// fakeVolumeLookup is a deterministic VolumeLookup test double.
type fakeVolumeLookup struct {
	byISBN   map[string]string
	byVolume map[string]string
}

func (f *fakeVolumeLookup) LookupByISBN(ctx context.Context, isbn string) (string, bool) {
	url, ok := f.byISBN[isbn]
	return url, ok && url != ""
}

func (f *fakeVolumeLookup) LookupByVolumeID(ctx context.Context, volumeID string) (string, bool) {
	url, ok := f.byVolume[volumeID]
	return url, ok && url != ""
}

func newRecord() *provenance.Record {
	return provenance.New("test-fingerprint")
}
