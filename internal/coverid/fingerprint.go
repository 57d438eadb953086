// Package coverid defines the identity and value types shared across the
// cover-acquisition subsystem: the book fingerprint, the closed enums for
// provider/tier/storage, and the immutable ImageDescriptor value object.
package coverid

import "strings"

// PlaceholderPath is the canonical "no cover available" artifact location.
// The exact string is part of the external contract; callers may compare
// against it directly.
const PlaceholderPath = "/images/placeholder-book-cover.svg"

// Fingerprint is the stable cache key for a book: ISBN-13, then ISBN-10,
// then catalog volume id, in preference order. It is created fresh on
// each request and never mutated.
type Fingerprint string

// Book is the minimal view of catalog metadata the core needs. The actual
// catalog record lives in an external relational store; callers project
// it down to this shape.
type Book struct {
	CatalogID     string
	ISBN13        string
	ISBN10        string
	VolumeID      string
	CoverImageURL string
}

// ISBN returns the preferred ISBN for provider lookups (ISBN-13 over
// ISBN-10), or "" if the book carries neither.
func (b Book) ISBN() string {
	if b.ISBN13 != "" {
		return b.ISBN13
	}
	return b.ISBN10
}

// Fingerprint computes the book's cache identity per the preference order
// ISBN-13 > ISBN-10 > catalog volume id. Returns "" if none are present.
func (b Book) Fingerprint() Fingerprint {
	switch {
	case b.ISBN13 != "":
		return Fingerprint(b.ISBN13)
	case b.ISBN10 != "":
		return Fingerprint(b.ISBN10)
	case b.VolumeID != "":
		return Fingerprint(b.VolumeID)
	default:
		return ""
	}
}

// ProviderId tags the origin of a candidate or final image.
type ProviderId int

const (
	ProviderUnknown ProviderId = iota
	ProviderObjectStore
	ProviderGoogle
	ProviderOpenLibraryL
	ProviderOpenLibraryM
	ProviderOpenLibraryS
	ProviderLongitood
	ProviderProvisionalHint
	ProviderLocalCache
	ProviderPlaceholder
	ProviderOther
)

func (p ProviderId) String() string {
	switch p {
	case ProviderObjectStore:
		return "object-store"
	case ProviderGoogle:
		return "google"
	case ProviderOpenLibraryL:
		return "open-library-l"
	case ProviderOpenLibraryM:
		return "open-library-m"
	case ProviderOpenLibraryS:
		return "open-library-s"
	case ProviderLongitood:
		return "longitood"
	case ProviderProvisionalHint:
		return "provisional-hint"
	case ProviderLocalCache:
		return "local-cache"
	case ProviderPlaceholder:
		return "placeholder"
	case ProviderOther:
		return "other"
	default:
		return "unknown"
	}
}

// Slug returns the object-store key slug for this provider: its source
// name, lowercase, non [a-z0-9_-] characters replaced with '-'. Used
// verbatim by internal/objectstore's key schema; every value it returns
// is one of the slugs ProbeAny walks there.
func (p ProviderId) Slug() string {
	switch p {
	case ProviderGoogle:
		return slugify("google-books")
	case ProviderOpenLibraryL, ProviderOpenLibraryM, ProviderOpenLibraryS:
		return slugify("open-library")
	case ProviderLongitood:
		return slugify("longitood")
	case ProviderLocalCache, ProviderProvisionalHint:
		return slugify("local-cache")
	default:
		return slugify("unknown")
	}
}

func slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

// ResolutionTier classifies the size variant a candidate represents.
type ResolutionTier int

const (
	TierUnknown ResolutionTier = iota
	TierOriginal
	TierLarge
	TierMedium
	TierSmall
)

// Storage classifies where an ImageDescriptor's bytes physically live.
type Storage int

const (
	StorageUnknown Storage = iota
	StorageLocal
	StorageObjectStore
	StorageRemote
	StoragePlaceholder
)

// ImageDescriptor is an immutable value object describing a resolved
// cover image. It is freely copied; nothing owns it.
//
// Invariant: StorageKind == StoragePlaceholder iff Location ==
// coverid.PlaceholderPath iff Provider == ProviderPlaceholder.
type ImageDescriptor struct {
	Location           string
	StorageKind        Storage
	Provider           ProviderId
	ProviderArtifactID string
	Tier               ResolutionTier
	Width              int
	Height             int
	ContentHash        string // "" iff bytes were never observed locally
}

// Placeholder returns the canonical placeholder descriptor.
func Placeholder() ImageDescriptor {
	return ImageDescriptor{
		Location:    PlaceholderPath,
		StorageKind: StoragePlaceholder,
		Provider:    ProviderPlaceholder,
		Tier:        TierUnknown,
	}
}

// IsPlaceholder reports whether d is the canonical placeholder descriptor.
func (d ImageDescriptor) IsPlaceholder() bool {
	return d.StorageKind == StoragePlaceholder
}

// Valid reports whether d is usable as a pipeline candidate: its
// location must not be empty or the placeholder path, and both
// dimensions must exceed 1px.
func (d ImageDescriptor) Valid() bool {
	return d.Location != "" && d.Location != PlaceholderPath && d.Width > 1 && d.Height > 1
}

// Area returns Width*Height, used for candidate scoring.
func (d ImageDescriptor) Area() int {
	return d.Width * d.Height
}
