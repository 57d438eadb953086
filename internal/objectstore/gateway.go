// Package objectstore is the durable storage gateway: it derives the
// bit-exact key schema for a cover, probes existence with HEAD (cached),
// uploads processed artifacts with PUT, and resolves the public CDN URL.
package objectstore

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dgraph-io/ristretto"
	"golang.org/x/net/http2"

	"github.com/sashko-guz/book-covers/internal/coverid"
	"github.com/sashko-guz/book-covers/internal/logger"
	"github.com/sashko-guz/book-covers/internal/provenance"
)

// MaxFileSizeBytes is the default cap enforced before a PUT is attempted.
const MaxFileSizeBytes = 5 * 1024 * 1024

// ProbeCacheTTL and ProbeCacheCap bound the HEAD-result cache.
const (
	ProbeCacheTTL = 1 * time.Hour
	ProbeCacheCap = 2000
)

var bookTagPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var extAllowlist = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".svg": true,
}

// Descriptor is the result of a successful probe or upload.
type Descriptor struct {
	Key       string
	PublicURL string
	Width     int
	Height    int
}

// Gateway is the S3-backed durable cover store.
type Gateway struct {
	client      *s3.Client
	bucket      string
	cdnBaseURL  string
	maxFileSize int64

	probeCache *ristretto.Cache
}

// Config carries the construction parameters for a Gateway.
type Config struct {
	Region, AccessKey, SecretKey, Bucket, Endpoint string
	CDNBaseURL                                     string
	MaxFileSizeBytes                               int64
}

// New builds a Gateway, choosing between AWS-native and S3-compatible
// (MinIO-style path-addressed) client construction depending on whether
// cfg.Endpoint is set.
func New(cfg Config) (*Gateway, error) {
	httpClient := buildHTTPClient()

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.New(s3.Options{
			Region:       orDefault(cfg.Region, "us-east-1"),
			Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
			BaseEndpoint: aws.String(cfg.Endpoint),
			UsePathStyle: true,
			HTTPClient:   httpClient,
		})
	} else {
		opts := []func(*config.LoadOptions) error{
			config.WithRegion(orDefault(cfg.Region, "us-east-1")),
			config.WithHTTPClient(httpClient),
		}
		if cfg.AccessKey != "" && cfg.SecretKey != "" {
			opts = append(opts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
			))
		}
		awsCfg, err := config.LoadDefaultConfig(context.TODO(), opts...)
		if err != nil {
			return nil, fmt.Errorf("objectstore: load aws config: %w", err)
		}
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) { o.UsePathStyle = true })
	}

	probeCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: ProbeCacheCap * 10,
		MaxCost:     ProbeCacheCap,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: probe cache: %w", err)
	}

	maxFileSize := cfg.MaxFileSizeBytes
	if maxFileSize <= 0 {
		maxFileSize = MaxFileSizeBytes
	}

	logger.Infof("objectstore: gateway initialized (bucket=%s endpoint=%s)", cfg.Bucket, cfg.Endpoint)

	return &Gateway{
		client:      client,
		bucket:      cfg.Bucket,
		cdnBaseURL:  strings.TrimRight(cfg.CDNBaseURL, "/"),
		maxFileSize: maxFileSize,
		probeCache:  probeCache,
	}, nil
}

func buildHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}
	_ = http2.ConfigureTransport(transport)
	return &http.Client{Transport: transport, Timeout: 30 * time.Second}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// KeyFor derives the bit-exact key for a cover: images/book-covers/
// <bookTag>-lg-<source-slug><ext>.
func KeyFor(bookTag string, source coverid.ProviderId, ext string) (string, error) {
	if !bookTagPattern.MatchString(bookTag) {
		return "", fmt.Errorf("objectstore: invalid book tag %q", bookTag)
	}
	if !extAllowlist[ext] {
		ext = ".jpg"
	}
	return fmt.Sprintf("images/book-covers/%s-lg-%s%s", bookTag, source.Slug(), ext), nil
}

// slugOrder is the fallback list ProbeAny walks, source-preference first.
var slugOrder = []string{"google-books", "open-library", "longitood", "local-cache", "unknown"}

// Probe issues a HEAD request for the derived key, answers cached for
// ProbeCacheTTL. A 404 or any non-retryable error caches false.
func (g *Gateway) Probe(ctx context.Context, bookTag string, source coverid.ProviderId, ext string) bool {
	key, err := KeyFor(bookTag, source, ext)
	if err != nil {
		return false
	}

	if v, found := g.probeCache.Get(key); found {
		return v.(bool)
	}

	_, err = g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	present := err == nil
	g.probeCache.SetWithTTL(key, present, 1, ProbeCacheTTL)
	return present
}

// ProbeAny tries the canonical slug list in order and returns the first
// descriptor found present.
func (g *Gateway) ProbeAny(ctx context.Context, bookTag string) (Descriptor, bool) {
	for _, slug := range slugOrder {
		for _, ext := range []string{".jpg", ".png", ".webp"} {
			key := fmt.Sprintf("images/book-covers/%s-lg-%s%s", bookTag, slug, ext)
			if v, found := g.probeCache.Get(key); found && !v.(bool) {
				continue
			}
			_, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(g.bucket),
				Key:    aws.String(key),
			})
			if err == nil {
				g.probeCache.SetWithTTL(key, true, 1, ProbeCacheTTL)
				return Descriptor{Key: key, PublicURL: g.publicURL(key)}, true
			}
			g.probeCache.SetWithTTL(key, false, 1, ProbeCacheTTL)
		}
	}
	return Descriptor{}, false
}

// UploadProcessed PUTs bytes under the derived key unless an identical-
// length object is already present, in which case it short-circuits. In
// debug mode, rec is serialized and uploaded alongside under
// images/provenance-data/.
func (g *Gateway) UploadProcessed(ctx context.Context, data []byte, ext, mime string, width, height int, bookTag string, source coverid.ProviderId, debugProvenance bool, rec *provenance.Record) (Descriptor, error) {
	if int64(len(data)) > g.maxFileSize {
		return Descriptor{}, fmt.Errorf("objectstore: payload %d bytes exceeds max %d", len(data), g.maxFileSize)
	}

	key, err := KeyFor(bookTag, source, ext)
	if err != nil {
		return Descriptor{}, err
	}

	if head, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}); err == nil && head.ContentLength != nil && *head.ContentLength == int64(len(data)) {
		g.probeCache.SetWithTTL(key, true, 1, ProbeCacheTTL)
		return Descriptor{Key: key, PublicURL: g.publicURL(key), Width: width, Height: height}, nil
	}

	_, err = g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mime),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return Descriptor{}, fmt.Errorf("objectstore: put %s: %w", key, err)
	}
	g.probeCache.SetWithTTL(key, true, 1, ProbeCacheTTL)

	if debugProvenance && rec != nil {
		g.uploadProvenance(ctx, key, rec)
	}

	logger.Infof("objectstore: uploaded %s (%d bytes, %dx%d)", key, len(data), width, height)
	return Descriptor{Key: key, PublicURL: g.publicURL(key), Width: width, Height: height}, nil
}

func (g *Gateway) uploadProvenance(ctx context.Context, key string, rec *provenance.Record) {
	payload, err := rec.MarshalJSON()
	if err != nil {
		logger.Warnf("objectstore: marshal provenance for %s: %v", key, err)
		return
	}
	provKey := "images/provenance-data/" + strings.TrimSuffix(key[len("images/book-covers/"):], extOf(key)) + ".txt"
	_, err = g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(provKey),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		logger.Warnf("objectstore: upload provenance for %s: %v", key, err)
	}
}

func extOf(key string) string {
	i := strings.LastIndexByte(key, '.')
	if i < 0 {
		return ""
	}
	return key[i:]
}

func (g *Gateway) publicURL(key string) string {
	if g.cdnBaseURL == "" {
		return key
	}
	return g.cdnBaseURL + "/" + key
}
