package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cshum/vipsgen/vips"
	"github.com/joho/godotenv"

	"github.com/sashko-guz/book-covers/internal/config"
	"github.com/sashko-guz/book-covers/internal/coverfacade"
	"github.com/sashko-guz/book-covers/internal/coverid"
	"github.com/sashko-guz/book-covers/internal/covercache"
	"github.com/sashko-guz/book-covers/internal/diskcache"
	"github.com/sashko-guz/book-covers/internal/eventbus"
	"github.com/sashko-guz/book-covers/internal/httpclient"
	"github.com/sashko-guz/book-covers/internal/imagenorm"
	"github.com/sashko-guz/book-covers/internal/logger"
	"github.com/sashko-guz/book-covers/internal/objectstore"
	"github.com/sashko-guz/book-covers/internal/pipeline"
	"github.com/sashko-guz/book-covers/internal/placeholder"
	"github.com/sashko-guz/book-covers/internal/provider"
)

func main() {
	logger.SetOutput(os.Stderr)
	logger.SetFlags(0)
	logger.InitFromEnv()

	_ = godotenv.Load()

	cfg := config.Load()

	logger.Infof("coverd: starting (cache=%v objectStore=%v)", cfg.CacheEnabled, cfg.ObjectStoreEnabled)

	vips.Startup(nil)
	defer vips.Shutdown()

	httpClient := httpclient.NewClient(5, 10)

	reg := placeholder.NewRegistry()

	cacheMgr := covercache.NewManager(covercache.Config{})

	cache, err := diskcache.New(cfg.CacheDir, cfg.CacheMaxAgeDays, cfg.CacheMaxFileSizeB, httpClient, reg, cacheMgr)
	if err != nil {
		logger.Fatalf("coverd: init disk cache: %v", err)
	}

	var store *objectstore.Gateway
	if cfg.ObjectStoreEnabled {
		store, err = objectstore.New(objectstore.Config{
			Region:           cfg.ObjectStoreRegion,
			AccessKey:        cfg.ObjectStoreAccessKey,
			SecretKey:        cfg.ObjectStoreSecretKey,
			Bucket:           cfg.ObjectStoreBucket,
			Endpoint:         cfg.ObjectStoreEndpoint,
			CDNBaseURL:       firstNonEmpty(cfg.ObjectStorePublicCDN, cfg.ObjectStoreCDNURL),
			MaxFileSizeBytes: cfg.CacheMaxFileSizeB,
		})
		if err != nil {
			logger.Fatalf("coverd: init object store: %v", err)
		}
	}

	volumeLookup := provider.NewGoogleVolumeLookup(httpClient, cfg.GoogleAPIKey)
	googleAdapter := provider.NewGoogle(volumeLookup, cache)
	openLibraryAdapter := provider.NewOpenLibrary(cache, cacheMgr)
	longitoodAdapter := provider.NewLongitood(cache, cacheMgr)

	var objectStoreAdapter *provider.ObjectStore
	if store != nil {
		objectStoreAdapter = provider.NewObjectStore(store)
	}

	pl := pipeline.New(objectStoreAdapter, googleAdapter, openLibraryAdapter, longitoodAdapter, cache, cacheMgr)

	normalizer := imagenorm.New()
	bus := eventbus.NewInProcessBus()

	facade := coverfacade.New(coverfacade.Config{
		CacheEnabled:    cfg.CacheEnabled,
		DebugProvenance: cfg.DebugCoverProvenance,
	}, cacheMgr, pl, store, normalizer, bus)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/covers/", coverHandler(facade))

	srv := &http.Server{
		Addr:    ":" + firstNonEmpty(os.Getenv("PORT"), "8080"),
		Handler: mux,
	}

	go func() {
		logger.Infof("coverd: listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("coverd: server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Infof("coverd: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("coverd: http shutdown: %v", err)
	}
	if err := facade.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("coverd: facade shutdown: %v", err)
	}
}

// coverHandler exposes GET /covers/{catalogId}?isbn13=...&isbn10=...&volumeId=...&coverUrl=...
func coverHandler(facade *coverfacade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		catalogID := strings.TrimPrefix(r.URL.Path, "/covers/")
		if catalogID == "" {
			http.Error(w, "missing catalog id", http.StatusBadRequest)
			return
		}

		q := r.URL.Query()
		book := coverid.Book{
			CatalogID:     catalogID,
			ISBN13:        q.Get("isbn13"),
			ISBN10:        q.Get("isbn10"),
			VolumeID:      q.Get("volumeId"),
			CoverImageURL: q.Get("coverUrl"),
		}

		urls := facade.InitialCover(book)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Preferred string `json:"preferred"`
			Fallback  string `json:"fallback"`
			Provider  string `json:"provider"`
		}{
			Preferred: urls.Preferred,
			Fallback:  urls.Fallback,
			Provider:  urls.Provider.String(),
		})
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
