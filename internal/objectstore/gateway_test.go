package objectstore

import (
	"testing"

	"github.com/sashko-guz/book-covers/internal/coverid"
)

func TestKeyForValidBookTag(t *testing.T) {
	key, err := KeyFor("abc123_XYZ-9", coverid.ProviderGoogle, ".jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "images/book-covers/abc123_XYZ-9-lg-google-books.jpg"
	if key != want {
		t.Errorf("KeyFor() = %q, want %q", key, want)
	}
}

func TestKeyForRejectsInvalidBookTag(t *testing.T) {
	cases := []string{"has space", "has/slash", "has?query=1", ""}
	for _, tag := range cases {
		if _, err := KeyFor(tag, coverid.ProviderGoogle, ".jpg"); err == nil {
			t.Errorf("KeyFor(%q) expected an error, got none", tag)
		}
	}
}

func TestKeyForDefaultsUnknownExtensionToJPG(t *testing.T) {
	key, err := KeyFor("abc123", coverid.ProviderOpenLibraryL, ".bmp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "images/book-covers/abc123-lg-open-library.jpg"
	if key != want {
		t.Errorf("KeyFor() = %q, want %q", key, want)
	}
}

func TestKeyForPreservesAllowlistedExtension(t *testing.T) {
	for ext := range extAllowlist {
		key, err := KeyFor("abc123", coverid.ProviderLongitood, ext)
		if err != nil {
			t.Fatalf("unexpected error for ext %q: %v", ext, err)
		}
		want := "images/book-covers/abc123-lg-longitood" + ext
		if key != want {
			t.Errorf("KeyFor() with ext %q = %q, want %q", ext, key, want)
		}
	}
}

func TestGatewayPublicURLFallsBackToKeyWithoutCDN(t *testing.T) {
	g := &Gateway{}
	if got := g.publicURL("images/book-covers/abc-lg-google.jpg"); got != "images/book-covers/abc-lg-google.jpg" {
		t.Errorf("publicURL() = %q, want bare key", got)
	}
}

func TestGatewayPublicURLJoinsCDNBase(t *testing.T) {
	g := &Gateway{cdnBaseURL: "https://cdn.example.com"}
	got := g.publicURL("images/book-covers/abc-lg-google.jpg")
	want := "https://cdn.example.com/images/book-covers/abc-lg-google.jpg"
	if got != want {
		t.Errorf("publicURL() = %q, want %q", got, want)
	}
}

func TestExtOf(t *testing.T) {
	cases := map[string]string{
		"images/book-covers/abc-lg-google.jpg": ".jpg",
		"images/book-covers/abc-lg-google":     "",
	}
	for key, want := range cases {
		if got := extOf(key); got != want {
			t.Errorf("extOf(%q) = %q, want %q", key, got, want)
		}
	}
}
