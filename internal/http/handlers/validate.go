package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Submission parameters are coerced to the nearest accepted value rather
// than rejected, matching what the upstream API tolerates.

func normalizeChoice(value string, allowed map[string]struct{}, fallback string) string {
	cleaned := strings.TrimSpace(value)
	if _, ok := allowed[cleaned]; ok {
		return cleaned
	}
	return fallback
}

func normalizeAspectRatio(value string) string {
	return normalizeChoice(value, set("9:16", "16:9"), "9:16")
}

func normalizeDuration(value string) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 15
	}
	if parsed == 10 || parsed == 15 {
		return parsed
	}
	return 15
}

func normalizeSize(value string) string {
	return normalizeChoice(value, set("small", "large"), "small")
}

func normalizeImageModel(value string) string {
	return normalizeChoice(value, set("nano-banana-pro", "nano-banana-pro-cl"), "nano-banana-pro")
}

func normalizeImageAspectRatio(value string) string {
	return normalizeChoice(
		value,
		set("auto", "1:1", "16:9", "9:16", "4:3", "3:4", "3:2", "2:3", "5:4", "4:5", "21:9"),
		"auto",
	)
}

func normalizeImageSize(value string) string {
	return normalizeChoice(value, set("1K", "2K", "4K"), "1K")
}

// normalizeTimestamps validates a "start,end" second range for character
// extraction and reformats it with two decimals. The clip may span at most
// three seconds.
func normalizeTimestamps(value string) (string, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return "", fmt.Errorf("timestamps must be start,end")
	}
	start, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return "", fmt.Errorf("timestamps must be numeric seconds")
	}
	end, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return "", fmt.Errorf("timestamps must be numeric seconds")
	}
	if start < 0 || end <= start {
		return "", fmt.Errorf("timestamps must be a valid start and end")
	}
	if end-start > 3 {
		return "", fmt.Errorf("timestamps may span at most 3 seconds")
	}
	return fmt.Sprintf("%.2f,%.2f", start, end), nil
}

func set(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

// formText returns the first non-empty form value among the given names.
// Submission forms accept both camelCase and snake_case field names.
func formText(r *http.Request, names ...string) string {
	for _, name := range names {
		if v := r.FormValue(name); v != "" {
			return v
		}
	}
	return ""
}
