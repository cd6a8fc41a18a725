package entities

import (
	"regexp"
	"strconv"
	"strings"
)

// ActionItem is one actionable task extracted from a meeting transcript.
// Items are created at the extraction boundary and immutable afterwards;
// the summary is the canonical identity.
type ActionItem struct {
	Summary    string   `json:"summary"`
	Confidence float64  `json:"confidence"`
	Source     *string  `json:"source,omitempty"`
	Assignee   *string  `json:"assignee,omitempty"`
	Due        *string  `json:"due,omitempty"`
	Priority   *string  `json:"priority,omitempty"`
	Labels     []string `json:"labels"`
}

var innerWhitespaceRE = regexp.MustCompile(`\s+`)

// SanitizeActionItem normalizes an item per the ingestion rules: confidence
// clamped to [0,1], optional fields trimmed (empty → nil), labels normalized.
// Returns false when the item has no usable summary and must be discarded.
func SanitizeActionItem(item *ActionItem) bool {
	if item == nil {
		return false
	}
	item.Summary = strings.TrimSpace(item.Summary)
	if item.Summary == "" {
		return false
	}
	item.Confidence = ClampConfidence(item.Confidence)
	item.Source = trimOptional(item.Source)
	item.Assignee = trimOptional(item.Assignee)
	item.Due = trimOptional(item.Due)
	item.Priority = trimOptional(item.Priority)
	item.Labels = NormalizeLabels(item.Labels)
	return true
}

// ClampConfidence forces a confidence score into [0,1].
// NaN (the coercion result for non-numeric input) maps to 0.
func ClampConfidence(v float64) float64 {
	if v != v { // NaN
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// CoerceConfidence converts a loosely-typed confidence value (float, int or
// numeric string) into a clamped score. Anything non-numeric coerces to 0.
func CoerceConfidence(raw interface{}) float64 {
	switch v := raw.(type) {
	case float64:
		return ClampConfidence(v)
	case float32:
		return ClampConfidence(float64(v))
	case int:
		return ClampConfidence(float64(v))
	case int64:
		return ClampConfidence(float64(v))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return ClampConfidence(f)
	default:
		return 0
	}
}

// NormalizeLabels trims each label, collapses internal whitespace to "-",
// drops empties and deduplicates case-sensitively while preserving the order
// of first occurrence.
func NormalizeLabels(labels []string) []string {
	normalized := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		label = innerWhitespaceRE.ReplaceAllString(label, "-")
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		normalized = append(normalized, label)
	}
	return normalized
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
