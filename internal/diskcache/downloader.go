package diskcache

import (
	"context"

	"github.com/cshum/vipsgen/vips"

	"github.com/sashko-guz/book-covers/internal/logger"
)

// Download implements provider.Downloader: fetch url through the
// URL-addressed cache (coalesced, placeholder-screened) and decode
// just far enough to report pixel dimensions.
func (c *Cache) Download(ctx context.Context, url string) (width, height int, localPath string, ok bool) {
	entry, err := c.FetchAndStore(ctx, url)
	if err != nil {
		logger.Debugf("diskcache: download %s failed: %v", url, err)
		return 0, 0, "", false
	}

	img, err := vips.NewImageFromFile(entry.Path, &vips.LoadOptions{})
	if err != nil {
		logger.Debugf("diskcache: decode %s failed: %v", entry.Path, err)
		return 0, 0, "", false
	}
	defer img.Close()

	return img.Width(), img.Height(), entry.Path, true
}
