// Package diskcache is the local, URL-addressed store for downloaded
// cover bytes. The cache key is derived from the URL itself, computed
// before any network call, so a URL that already has a file on disk (or
// is known-bad) never triggers a new request. It coalesces concurrent
// fetches of the same URL, rejects payloads that hash-match a known
// placeholder, derives a safe file extension from the URL, and writes
// crash-safely via temp-then-rename. A background goroutine evicts
// entries older than a configured max age.
package diskcache

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sashko-guz/book-covers/internal/covercache"
	"github.com/sashko-guz/book-covers/internal/logger"
	"github.com/sashko-guz/book-covers/internal/placeholder"
)

// urlKeyLen is the number of base64url characters kept from the URL's
// SHA-256 digest to form the on-disk filename stem.
const urlKeyLen = 32

// extAllowlistFromURL is the set of path-suffix extensions C3 recognizes
// when deriving a filename straight from the URL, ahead of any fetch.
var extAllowlistFromURL = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true,
	"webp": true, "svg": true, "bmp": true, "tiff": true,
}

// FetchDeadline bounds a single download; the spec's providers are
// expected to respond well within this.
const FetchDeadline = 10 * time.Second

// extAllowlist is the set of sniffed content-types accepted for storage.
// Anything outside this set is rejected before it touches disk. The
// extension stored on disk comes from extFromURL, not from this map.
var extAllowlist = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ErrUnsupportedContentType is returned when the downloaded bytes don't
// sniff to a type in extAllowlist.
var ErrUnsupportedContentType = fmt.Errorf("diskcache: unsupported content type")

// ErrPlaceholderMatch is returned when the downloaded bytes hash-match a
// known provider placeholder image.
var ErrPlaceholderMatch = fmt.Errorf("diskcache: downloaded content is a known placeholder")

// ErrKnownBadURL is returned without issuing a network request when url
// previously failed and was recorded in the bad-URL set.
var ErrKnownBadURL = fmt.Errorf("diskcache: url previously failed")

// Fetcher is the minimal collaborator diskcache needs to retrieve bytes
// for a URL it doesn't already have.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// Entry is a cached file on disk.
type Entry struct {
	Path   string
	URLKey string
	Ext    string
	Size   int64
}

// Cache is the URL-addressed local disk store.
type Cache struct {
	basePath    string
	maxAgeDays  int
	maxFileSize int64

	fetcher     Fetcher
	placeholder *placeholder.Registry
	badURLs     *covercache.Manager

	group singleflight.Group
}

// New creates a Cache rooted at basePath, creating the directory if
// needed, and starts the background eviction loop. cache may be nil, in
// which case known-bad URLs are neither consulted nor recorded.
func New(basePath string, maxAgeDays int, maxFileSize int64, fetcher Fetcher, reg *placeholder.Registry, cache *covercache.Manager) (*Cache, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("diskcache: resolve path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("diskcache: create directory: %w", err)
	}

	c := &Cache{
		basePath:    absPath,
		maxAgeDays:  maxAgeDays,
		maxFileSize: maxFileSize,
		fetcher:     fetcher,
		placeholder: reg,
		badURLs:     cache,
	}

	go c.cleanupLoop()

	logger.Infof("diskcache: initialized at %s (maxAgeDays=%d, maxFileSize=%d)", absPath, maxAgeDays, maxFileSize)
	return c, nil
}

// FetchAndStore returns the on-disk entry for url, downloading it only if
// neither a cached file nor a known-bad record already exists for it.
// Concurrent calls for the same url are coalesced via singleflight.
func (c *Cache) FetchAndStore(ctx context.Context, url string) (Entry, error) {
	v, err, _ := c.group.Do(url, func() (any, error) {
		return c.fetchAndStoreOnce(ctx, url)
	})
	if err != nil {
		return Entry{}, err
	}
	return v.(Entry), nil
}

// fetchAndStoreOnce derives the cache key from url alone, before any
// network call, so a URL that already succeeded or is known-bad never
// reaches the fetcher.
func (c *Cache) fetchAndStoreOnce(ctx context.Context, rawURL string) (Entry, error) {
	if c.badURLs != nil && c.badURLs.IsBadURL(rawURL) {
		return Entry{}, fmt.Errorf("%w: %s", ErrKnownBadURL, rawURL)
	}

	key := urlCacheKey(rawURL)
	ext := extFromURL(rawURL)
	path := c.pathFor(key, ext)

	if info, err := os.Stat(path); err == nil {
		return Entry{Path: path, URLKey: key, Ext: ext, Size: info.Size()}, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, FetchDeadline)
	defer cancel()

	data, contentType, err := c.fetcher.Get(fetchCtx, rawURL)
	if err != nil {
		c.markBad(rawURL)
		return Entry{}, fmt.Errorf("diskcache: fetch %s: %w", rawURL, err)
	}
	if len(data) == 0 {
		c.markBad(rawURL)
		return Entry{}, fmt.Errorf("diskcache: fetch %s: empty body", rawURL)
	}
	if c.maxFileSize > 0 && int64(len(data)) > c.maxFileSize {
		c.markBad(rawURL)
		return Entry{}, fmt.Errorf("diskcache: fetch %s: %d bytes exceeds max %d", rawURL, len(data), c.maxFileSize)
	}

	if c.placeholder != nil {
		if label, ok := c.placeholder.Matches(data); ok {
			c.markBad(rawURL)
			return Entry{}, fmt.Errorf("%w: matches %q reference", ErrPlaceholderMatch, label)
		}
	}

	if _, ok := extAllowlist[sniffType(data, contentType)]; !ok {
		c.markBad(rawURL)
		return Entry{}, ErrUnsupportedContentType
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Entry{}, fmt.Errorf("diskcache: mkdir %s: %w", dir, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return Entry{}, fmt.Errorf("diskcache: write temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return Entry{}, fmt.Errorf("diskcache: rename: %w", err)
	}

	logger.Debugf("diskcache: stored %s (%d bytes, key=%s)", rawURL, len(data), key[:12])
	return Entry{Path: path, URLKey: key, Ext: ext, Size: int64(len(data))}, nil
}

func (c *Cache) markBad(url string) {
	if c.badURLs != nil {
		c.badURLs.MarkBadURL(url)
	}
}

// urlCacheKey derives the on-disk filename stem for url, matching the
// scheme spelled out for the local disk cache: a truncated base64url
// SHA-256 of the URL, computed without ever touching the network.
func urlCacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return base64.RawURLEncoding.EncodeToString(sum[:])[:urlKeyLen]
}

// extFromURL derives a safe file extension from the URL path alone, so
// the cache key and extension are both known before any fetch. Query
// strings are stripped; anything outside extAllowlistFromURL falls back
// to .jpg.
func extFromURL(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	} else if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		path = rawURL[:i]
	}

	base := path
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}

	i := strings.LastIndex(base, ".")
	if i < 0 {
		return ".jpg"
	}
	ext := strings.ToLower(base[i+1:])
	if !extAllowlistFromURL[ext] {
		return ".jpg"
	}
	return "." + ext
}

// sniffType prefers the declared content-type when it's in the allowlist,
// falling back to sniffing the bytes (providers are inconsistent about
// headers; Longitood in particular has been observed serving images with
// a generic octet-stream type).
func sniffType(data []byte, declared string) string {
	declared = strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
	if _, ok := extAllowlist[declared]; ok {
		return declared
	}
	return strings.ToLower(strings.TrimSpace(strings.Split(http.DetectContentType(data), ";")[0]))
}

// pathFor builds the nginx-style sharded path for a cache key:
// basePath/<last2>/<next2>/<key><ext>.
func (c *Cache) pathFor(key, ext string) string {
	n := len(key)
	level1 := key[n-2:]
	level2 := key[n-4 : n-2]
	return filepath.Join(c.basePath, level1, level2, key+ext)
}

// cleanupLoop runs a daily sweep deleting files whose mtime exceeds
// maxAgeDays.
func (c *Cache) cleanupLoop() {
	if c.maxAgeDays <= 0 {
		return
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	c.sweep()
	for range ticker.C {
		c.sweep()
	}
}

func (c *Cache) sweep() {
	cutoff := time.Now().AddDate(0, 0, -c.maxAgeDays)
	var removed int

	err := filepath.Walk(c.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".tmp") || info.ModTime().Before(cutoff) {
			if rmErr := os.Remove(path); rmErr == nil {
				removed++
			}
		}
		return nil
	})
	if err != nil {
		logger.Warnf("diskcache: sweep error: %v", err)
		return
	}
	if removed > 0 {
		logger.Infof("diskcache: sweep removed %d stale entries", removed)
	}
}
