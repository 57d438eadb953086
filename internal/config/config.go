package config

import (
	"os"
	"strconv"
)

// Config is the single immutable configuration struct passed into the core.
// No component reads os.Getenv directly outside of Load.
type Config struct {
	CacheEnabled      bool
	CacheDir          string
	CacheMaxAgeDays   int
	CacheMaxFileSizeB int64

	ObjectStoreEnabled   bool
	ObjectStoreBucket    string
	ObjectStoreCDNURL    string
	ObjectStorePublicCDN string
	ObjectStoreEndpoint  string
	ObjectStoreAccessKey string
	ObjectStoreSecretKey string
	ObjectStoreRegion    string

	GoogleAPIKey string

	DebugCoverProvenance bool
}

func Load() *Config {
	return &Config{
		CacheEnabled:      getEnvBool("CACHE_ENABLED", true),
		CacheDir:          getEnv("CACHE_DIR", "/tmp/book-covers"),
		CacheMaxAgeDays:   getEnvInt("CACHE_MAX_AGE_DAYS", 30),
		CacheMaxFileSizeB: getEnvInt64("CACHE_MAX_FILE_SIZE_BYTES", 5*1024*1024),

		ObjectStoreEnabled:   getEnvBool("OBJECT_STORE_ENABLED", false),
		ObjectStoreBucket:    getEnv("OBJECT_STORE_BUCKET", ""),
		ObjectStoreCDNURL:    getEnv("OBJECT_STORE_CDN_URL", ""),
		ObjectStorePublicCDN: getEnv("OBJECT_STORE_PUBLIC_CDN_URL", ""),
		ObjectStoreEndpoint:  getEnv("OBJECT_STORE_ENDPOINT", ""),
		ObjectStoreAccessKey: getEnv("OBJECT_STORE_ACCESS_KEY_ID", ""),
		ObjectStoreSecretKey: getEnv("OBJECT_STORE_SECRET_ACCESS_KEY", ""),
		ObjectStoreRegion:    getEnv("OBJECT_STORE_REGION", "us-east-1"),

		GoogleAPIKey: getEnv("PROVIDERS_GOOGLE_API_KEY", ""),

		DebugCoverProvenance: getEnvBool("DEBUG_COVER_PROVENANCE", false),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}

	return parsed
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		return defaultValue
	}

	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}
