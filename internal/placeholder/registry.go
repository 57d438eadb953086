// Package placeholder holds reference "image not available" artifacts
// from upstream providers, fingerprinted so the pipeline can recognize a
// downloaded image as a disguised placeholder rather than a real cover.
package placeholder

import (
	_ "embed"

	"lukechampine.com/blake3"
)

//go:embed refs/google-no-cover.png
var googleNoCover []byte

//go:embed refs/openlibrary-no-cover.png
var openLibraryNoCover []byte

//go:embed refs/longitood-no-cover.png
var longitoodNoCover []byte

// Registry fingerprints a fixed set of known placeholder images so the
// pipeline can reject provider responses that are cosmetically valid
// images but carry no real cover art.
type Registry struct {
	hashes map[[32]byte]string
}

// NewRegistry hashes the embedded reference placeholders. It never fails:
// the embedded assets are compiled in, so there is nothing to error on.
func NewRegistry() *Registry {
	r := &Registry{hashes: make(map[[32]byte]string, 4)}
	r.add("google", googleNoCover)
	r.add("open-library", openLibraryNoCover)
	r.add("longitood", longitoodNoCover)
	return r
}

func (r *Registry) add(label string, data []byte) {
	if len(data) == 0 {
		return
	}
	r.hashes[blake3.Sum256(data)] = label
}

// AddKnownBad registers an additional placeholder fingerprint discovered
// at runtime (e.g. a provider-specific blank tile observed in production
// that wasn't known at build time).
func (r *Registry) AddKnownBad(label string, data []byte) {
	r.add(label, data)
}

// Matches reports whether data's content hash matches a known placeholder,
// and if so, which one.
func (r *Registry) Matches(data []byte) (label string, ok bool) {
	if len(data) == 0 {
		return "", false
	}
	label, ok = r.hashes[blake3.Sum256(data)]
	return label, ok
}

// Fingerprint exposes the hash of arbitrary bytes for callers that want to
// pre-compute and compare without allocating through Matches twice.
func Fingerprint(data []byte) [32]byte {
	return blake3.Sum256(data)
}
