package handlers

import "testing"

func TestNormalizeVideoParams(t *testing.T) {
	if got := normalizeAspectRatio("16:9"); got != "16:9" {
		t.Fatalf("normalizeAspectRatio(16:9) = %q", got)
	}
	if got := normalizeAspectRatio("4:3"); got != "9:16" {
		t.Fatalf("normalizeAspectRatio(4:3) = %q, want fallback", got)
	}
	if got := normalizeDuration("10"); got != 10 {
		t.Fatalf("normalizeDuration(10) = %d", got)
	}
	if got := normalizeDuration("12"); got != 15 {
		t.Fatalf("normalizeDuration(12) = %d, want fallback", got)
	}
	if got := normalizeDuration("abc"); got != 15 {
		t.Fatalf("normalizeDuration(abc) = %d, want fallback", got)
	}
	if got := normalizeSize("large"); got != "large" {
		t.Fatalf("normalizeSize(large) = %q", got)
	}
	if got := normalizeSize("huge"); got != "small" {
		t.Fatalf("normalizeSize(huge) = %q, want fallback", got)
	}
}

func TestNormalizeImageParams(t *testing.T) {
	if got := normalizeImageModel("nano-banana-pro-cl"); got != "nano-banana-pro-cl" {
		t.Fatalf("normalizeImageModel = %q", got)
	}
	if got := normalizeImageModel("dall-e"); got != "nano-banana-pro" {
		t.Fatalf("normalizeImageModel(dall-e) = %q, want fallback", got)
	}
	if got := normalizeImageAspectRatio("21:9"); got != "21:9" {
		t.Fatalf("normalizeImageAspectRatio = %q", got)
	}
	if got := normalizeImageAspectRatio("7:5"); got != "auto" {
		t.Fatalf("normalizeImageAspectRatio(7:5) = %q, want fallback", got)
	}
	if got := normalizeImageSize("4K"); got != "4K" {
		t.Fatalf("normalizeImageSize = %q", got)
	}
	if got := normalizeImageSize("8K"); got != "1K" {
		t.Fatalf("normalizeImageSize(8K) = %q, want fallback", got)
	}
}

func TestNormalizeTimestamps(t *testing.T) {
	got, err := normalizeTimestamps("1.5, 3")
	if err != nil {
		t.Fatalf("normalizeTimestamps returned error: %v", err)
	}
	if got != "1.50,3.00" {
		t.Fatalf("normalizeTimestamps = %q", got)
	}

	for _, bad := range []string{"1.5", "a,b", "-1,1", "2,1", "0,4"} {
		if _, err := normalizeTimestamps(bad); err == nil {
			t.Fatalf("normalizeTimestamps(%q) accepted", bad)
		}
	}
}
