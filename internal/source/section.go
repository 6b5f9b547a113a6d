package source

import (
	"regexp"
	"strings"
	"unicode"
)

// UnknownSection is reported for rows whose page carries no recognizable
// heading.
const UnknownSection = "UNKNOWN"

var trailingAwardRe = regexp.MustCompile(`\s*-\s*\$[\d,\.]+\s*$`)

// CleanSection validates a candidate section heading and strips the award
// amounts the compendium prints after Family Law Act headings. It returns
// "" when the text is not a heading.
func (l Layout) CleanSection(text string) string {
	section := strings.TrimSpace(text)
	if section == "" {
		return ""
	}

	// Headings never start with an amount or a year.
	first := rune(section[0])
	if first == '$' || unicode.IsDigit(first) {
		return ""
	}

	upper := strings.ToUpper(section)
	for _, pattern := range l.InvalidSections {
		if strings.Contains(upper, pattern) {
			return ""
		}
	}

	valid := false
	for _, keyword := range l.ValidSections {
		if strings.Contains(upper, keyword) {
			valid = true
			break
		}
	}
	if !valid {
		return ""
	}

	section = trailingAwardRe.ReplaceAllString(section, "")
	section = strings.TrimRight(strings.TrimSpace(section), "-")
	return strings.TrimSpace(section)
}

// SectionTracker resolves the anatomical section in effect for each page
// of a table dump. Main sections become the current parent; bare
// subsection words are reported combined with it, so "GENERAL" under
// "SPINE" yields "SPINE - GENERAL".
type SectionTracker struct {
	layout  Layout
	parent  string
	current string
}

// NewSectionTracker starts with no section in effect.
func NewSectionTracker(layout Layout) *SectionTracker {
	return &SectionTracker{layout: layout, current: UnknownSection}
}

// Observe folds one page's heading candidate into the tracker and returns
// the section now in effect. Pages without a heading keep the previous
// section, or UnknownSection when none has been seen yet.
func (t *SectionTracker) Observe(candidate string) string {
	section := t.layout.CleanSection(candidate)
	if section == "" {
		return t.current
	}

	upper := strings.ToUpper(section)
	switch {
	case containsAny(upper, t.layout.MainSections):
		t.parent = upper
		t.current = upper
	case t.parent != "" && containsAny(upper, t.layout.SubsectionWords):
		t.current = t.parent + " - " + upper
	default:
		t.current = upper
	}
	return t.current
}

// Current returns the section in effect without observing anything.
func (t *SectionTracker) Current() string {
	return t.current
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
