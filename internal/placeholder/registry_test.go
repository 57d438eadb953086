package placeholder

import "testing"

func TestNewRegistryNeverFails(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("expected a non-nil registry")
	}
	if len(r.hashes) == 0 {
		t.Fatal("expected at least one embedded placeholder to be registered")
	}
}

func TestMatchesRecognizesEmbeddedReference(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Matches(googleNoCover); !ok {
		t.Error("expected the embedded google placeholder bytes to match")
	}
}

func TestMatchesRejectsUnknownData(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Matches([]byte("a real book cover, definitely not blank")); ok {
		t.Error("expected arbitrary bytes not to match any known placeholder")
	}
}

func TestMatchesRejectsEmptyData(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Matches(nil); ok {
		t.Error("expected empty data never to match")
	}
}

func TestAddKnownBadRegistersNewFingerprint(t *testing.T) {
	r := NewRegistry()
	custom := []byte("a runtime-discovered blank tile")

	if _, ok := r.Matches(custom); ok {
		t.Fatal("custom bytes should not match before being registered")
	}

	r.AddKnownBad("custom-provider", custom)

	label, ok := r.Matches(custom)
	if !ok || label != "custom-provider" {
		t.Errorf("Matches() = (%q, %v), want (%q, true)", label, ok, "custom-provider")
	}
}

func TestFingerprintIsDeterministic(t *testing.T) {
	data := []byte("some image bytes")
	if Fingerprint(data) != Fingerprint(data) {
		t.Error("expected Fingerprint to be deterministic for identical input")
	}
	if Fingerprint(data) == Fingerprint([]byte("different image bytes")) {
		t.Error("expected different input to produce a different fingerprint")
	}
}
