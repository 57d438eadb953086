package coverid

import "testing"

func TestBookFingerprint(t *testing.T) {
	cases := []struct {
		name string
		book Book
		want Fingerprint
	}{
		{"isbn13 preferred", Book{ISBN13: "9780000000002", ISBN10: "0000000000", VolumeID: "vol1"}, "9780000000002"},
		{"isbn10 fallback", Book{ISBN10: "0000000000", VolumeID: "vol1"}, "0000000000"},
		{"volume id fallback", Book{VolumeID: "vol1"}, "vol1"},
		{"nothing present", Book{}, ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.book.Fingerprint(); got != c.want {
				t.Errorf("Fingerprint() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestImageDescriptorValid(t *testing.T) {
	cases := []struct {
		name string
		d    ImageDescriptor
		want bool
	}{
		{"placeholder is invalid", Placeholder(), false},
		{"empty location is invalid", ImageDescriptor{Width: 10, Height: 10}, false},
		{"1px dims are invalid", ImageDescriptor{Location: "x", Width: 1, Height: 1}, false},
		{"valid descriptor", ImageDescriptor{Location: "x", Width: 2, Height: 2}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.d.Valid(); got != c.want {
				t.Errorf("Valid() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestProviderIdSlug(t *testing.T) {
	if got := ProviderOpenLibraryL.Slug(); got != "open-library" {
		t.Errorf("Slug() = %q, want %q", got, "open-library")
	}
	if got := ProviderGoogle.Slug(); got != "google-books" {
		t.Errorf("Slug() = %q, want %q", got, "google-books")
	}
}
