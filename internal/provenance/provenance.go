// Package provenance records, per request, every source attempted by the
// cover pipeline and the artifact ultimately selected. The record is
// opaque to the pipeline beyond the AttemptedSource/SelectedImage API; in
// debug mode it is serialized and uploaded alongside the final image.
package provenance

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sashko-guz/book-covers/internal/coverid"
)

// AttemptOutcome is the closed taxonomy of per-source results. All
// failures are surfaced here; none propagate out of the pipeline.
type AttemptOutcome int

const (
	OutcomePending AttemptOutcome = iota
	OutcomeSuccess
	OutcomeSkippedKnownBad
	OutcomeFailureNotFound
	OutcomeFailureEmpty
	OutcomeFailurePlaceholderMatch
	OutcomeFailureIO
	OutcomeFailureProcessing
	OutcomeFailureContentRejected
	OutcomeFailureTimeout
	OutcomeFailureInvalidDetails
	OutcomeFailureGeneric
)

func (o AttemptOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkippedKnownBad:
		return "skipped-known-bad"
	case OutcomeFailureNotFound:
		return "failure-not-found"
	case OutcomeFailureEmpty:
		return "failure-empty"
	case OutcomeFailurePlaceholderMatch:
		return "failure-placeholder-match"
	case OutcomeFailureIO:
		return "failure-io"
	case OutcomeFailureProcessing:
		return "failure-processing"
	case OutcomeFailureContentRejected:
		return "failure-content-rejected"
	case OutcomeFailureTimeout:
		return "failure-timeout"
	case OutcomeFailureInvalidDetails:
		return "failure-invalid-details"
	case OutcomeFailureGeneric:
		return "failure-generic"
	default:
		return "pending"
	}
}

// AttemptedSource is one entry in the ordered provenance log.
type AttemptedSource struct {
	Provider        coverid.ProviderId `json:"provider"`
	URLOrQuery      string             `json:"url_or_query"`
	Outcome         AttemptOutcome     `json:"outcome"`
	Reason          string             `json:"reason,omitempty"`
	FetchedLocation string             `json:"fetched_location,omitempty"`
	Width           int                `json:"width,omitempty"`
	Height          int                `json:"height,omitempty"`
	At              time.Time          `json:"at"`
}

// SelectedImage is the single winning artifact recorded at most once.
type SelectedImage struct {
	Provider       coverid.ProviderId `json:"provider"`
	Location       string             `json:"location"`
	Width          int                `json:"width"`
	Height         int                `json:"height"`
	Reason         string             `json:"reason,omitempty"`
	StorageLabel   string             `json:"storage_label"`
	ObjectStoreKey string             `json:"object_store_key,omitempty"`
}

// Record is an append-only, concurrency-safe provenance log for a single
// request. The pipeline's parallel provider fan-out appends from
// multiple goroutines, so access is guarded by a mutex.
type Record struct {
	mu          sync.Mutex
	Attempts    []AttemptedSource   `json:"attempts"`
	Selection   *SelectedImage      `json:"selection,omitempty"`
	Fingerprint coverid.Fingerprint `json:"fingerprint,omitempty"`
}

// New creates an empty provenance record for the given fingerprint.
func New(fp coverid.Fingerprint) *Record {
	return &Record{Fingerprint: fp}
}

// Append adds an attempted source entry. Safe for concurrent use.
func (r *Record) Append(a AttemptedSource) {
	if a.At.IsZero() {
		a.At = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Attempts = append(r.Attempts, a)
}

// Select records the winning artifact. Only the first call has effect;
// subsequent calls are no-ops so "written exactly once" holds even if a
// caller mistakenly invokes it twice.
func (r *Record) Select(s SelectedImage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Selection != nil {
		return
	}
	r.Selection = &s
}

// MarshalJSON serializes the record for upload alongside the final image
// when debug.cover-provenance is enabled.
func (r *Record) MarshalJSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	type alias Record
	return json.Marshal((*alias)(r))
}
