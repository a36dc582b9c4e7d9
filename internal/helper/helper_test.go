package helper

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"plain", "http://example.com/page", "http://example.com/page"},
		{"trailing slash", "http://example.com/page/", "http://example.com/page"},
		{"fragment dropped", "http://example.com/page#top", "http://example.com/page"},
		{"query values dropped", "http://example.com/x?id=1", "http://example.com/x?id"},
		{"query keys sorted", "http://example.com/x?b=2&a=1", "http://example.com/x?a&b"},
		{"host lowered", "http://EXAMPLE.com/x", "http://example.com/x"},
	}

	for _, test := range tests {
		got, err := NormalizeURL(test.raw)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", test.name, err)
		}
		if got != test.expected {
			t.Errorf("%s: expected %q, got %q", test.name, test.expected, got)
		}
	}
}

func TestNormalizeURLEquivalentPages(t *testing.T) {
	a, err := NormalizeURL("http://example.com/x?id=1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := NormalizeURL("http://example.com/x?id=2")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("expected same key for equivalent pages, got %q and %q", a, b)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"http://example.com/path?a=1", "http_example.com_path_a_1"},
		{"", "unknown"},
		{"  ", "unknown"},
	}

	for _, test := range tests {
		if got := SanitizeFilename(test.raw); got != test.expected {
			t.Errorf("for %q expected %q, got %q", test.raw, test.expected, got)
		}
	}
}

func TestClampScanBounds(t *testing.T) {
	maxPages, concurrency, err := ClampScanBounds("http://example.com", 0, 100, 50, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if maxPages != 50 {
		t.Errorf("expected max pages clamped to 50, got %d", maxPages)
	}
	if concurrency != 5 {
		t.Errorf("expected concurrency clamped to 5, got %d", concurrency)
	}

	maxPages, concurrency, err = ClampScanBounds("http://example.com", 10, 2, 50, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if maxPages != 10 || concurrency != 2 {
		t.Errorf("in-range values must pass through, got %d/%d", maxPages, concurrency)
	}

	if _, _, err := ClampScanBounds("", 1, 1, 50, 5); err == nil {
		t.Error("expected error for empty target")
	}
	if _, _, err := ClampScanBounds("ftp://example.com", 1, 1, 50, 5); err == nil {
		t.Error("expected error for non-http target")
	}
}
