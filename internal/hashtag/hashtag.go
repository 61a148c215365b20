// Package hashtag pulls #tags out of free text.
package hashtag

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// tagPattern matches a '#' followed by letters, digits or underscores in any script.
var tagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

// Extract returns the distinct tags in text, in order of first appearance.
//
// Tags are NFC-normalized and case-folded, so "#Café" and "#CAFÉ" are the
// same tag. The leading '#' is kept.
func Extract(text string) []string {
	if text == "" {
		return nil
	}

	// cases.Caser is stateful; one per call keeps Extract safe for concurrent use.
	fold := cases.Fold()
	normalized := norm.NFC.String(text)

	var tags []string
	seen := make(map[string]bool)
	for _, match := range tagPattern.FindAllString(normalized, -1) {
		tag := fold.String(match)
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// Join renders tags the way the hashtags column stores them.
func Join(tags []string) string {
	return strings.Join(tags, " ")
}

// Extractor adapts Extract to the tracker's Tagger interface.
type Extractor struct{}

// Tags implements tracker.Tagger.
func (Extractor) Tags(text string) []string {
	return Extract(text)
}
