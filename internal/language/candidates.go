package language

import (
	"strings"

	"golang.org/x/text/language"
)

// Track describes one audio track as reported by a video element.
type Track struct {
	Language string `json:"language"`
	Label    string `json:"label"`
	Enabled  bool   `json:"enabled"`
}

// BuildCandidates normalizes a language code and optional display label into
// the ordered, deduplicated lowercase variants used for matching: the full
// tag, its primary subtag, the label, and the label with any trailing
// parenthetical qualifier stripped. When label is empty the catalog label for
// the code is used instead.
func BuildCandidates(code, label string) []string {
	if label == "" {
		label = LabelFor(code)
	}

	candidates := make([]string, 0, 4)
	add := func(value string) {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			return
		}
		for _, existing := range candidates {
			if existing == value {
				return
			}
		}
		candidates = append(candidates, value)
	}

	add(code)
	add(primarySubtag(code))
	add(label)
	add(stripParenthetical(label))
	return candidates
}

func primarySubtag(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if tag, err := language.Parse(code); err == nil {
		if base, confidence := tag.Base(); confidence > language.No {
			return base.String()
		}
	}
	primary, _, _ := strings.Cut(code, "-")
	return primary
}

func stripParenthetical(label string) string {
	if idx := strings.Index(label, "("); idx > 0 {
		return strings.TrimSpace(label[:idx])
	}
	return label
}

// MatchTrack returns the index of the first track whose language or label
// matches a candidate built from code and label: exact or prefix on the track
// language, substring on the track label. Ties between equally good tracks
// resolve to the first in track order.
func MatchTrack(tracks []Track, code, label string) (int, bool) {
	candidates := BuildCandidates(code, label)
	for i, track := range tracks {
		trackLanguage := strings.ToLower(strings.TrimSpace(track.Language))
		trackLabel := strings.ToLower(strings.TrimSpace(track.Label))
		for _, candidate := range candidates {
			if trackLanguage != "" && (trackLanguage == candidate || strings.HasPrefix(trackLanguage, candidate+"-")) {
				return i, true
			}
			if trackLabel != "" && strings.Contains(trackLabel, candidate) {
				return i, true
			}
		}
	}
	return 0, false
}

// MatchText reports whether a visible menu option's text contains any
// candidate for the code/label pair. Used by the menu fallback strategy.
func MatchText(text, code, label string) bool {
	lowered := strings.ToLower(text)
	for _, candidate := range BuildCandidates(code, label) {
		if strings.Contains(lowered, candidate) {
			return true
		}
	}
	return false
}
