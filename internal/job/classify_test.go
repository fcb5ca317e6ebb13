package job

import (
	"strings"
	"testing"
)

func TestClassifyTaxonomy(t *testing.T) {
	n := NoticesFor("en")

	tests := []struct {
		reason, detail string
		want           Category
	}{
		{"input_moderation", "", CategoryInputModeration},
		{"input_moderation", "ignored", CategoryInputModeration},
		{"output_moderation", "", CategoryOutputModeration},
		{"", "upstream exploded", CategoryGenericWithDetail},
		{"quota_exceeded", "", CategoryGenericWithDetail},
		{"", "", CategoryGenericUnknown},
	}
	for _, tt := range tests {
		cat, msg := n.Classify(tt.reason, tt.detail)
		if cat != tt.want {
			t.Fatalf("Classify(%q, %q) = %s, want %s", tt.reason, tt.detail, cat, tt.want)
		}
		if msg == "" {
			t.Fatalf("Classify(%q, %q) returned empty message", tt.reason, tt.detail)
		}
	}
}

func TestClassifyInterpolatesDetail(t *testing.T) {
	n := NoticesFor("en")
	_, msg := n.Classify("", "upstream exploded")
	if !strings.Contains(msg, "upstream exploded") {
		t.Fatalf("detail not interpolated: %q", msg)
	}
}

func TestNoticesLocaleMatching(t *testing.T) {
	zh := NoticesFor("zh-CN")
	if msg := zh.Message(CategoryGenericUnknown, ""); !strings.Contains(msg, "重试") {
		t.Fatalf("zh-CN notice = %q", msg)
	}
	en := NoticesFor("en-GB")
	if msg := en.Message(CategoryGenericUnknown, ""); !strings.Contains(msg, "try again") {
		t.Fatalf("en-GB notice = %q", msg)
	}
	fallback := NoticesFor("not a locale ##")
	if msg := fallback.Message(CategoryNetworkAborted, ""); msg == "" {
		t.Fatalf("fallback locale produced empty notice")
	}
}
