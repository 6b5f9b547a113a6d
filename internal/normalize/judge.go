// Package normalize cleans extracted record fields into the canonical
// shapes the rest of the pipeline indexes and merges on.
package normalize

import (
	"regexp"
	"strings"
)

var honorificRe = regexp.MustCompile(`(?i)^(the\s+)?hon(ourable|\.)?\s+`)

// judicialTitles are the trailing abbreviations stripped from judge
// attributions, lower-cased. Combinations ("Smith C.J. J.A.") strip one
// token at a time.
var judicialTitles = map[string]struct{}{
	"j.":     {},
	"j.a.":   {},
	"j.j.a.": {},
	"c.j.":   {},
	"c.j.o.": {},
	"c.j.c.": {},
}

// Judge reduces a raw judge attribution ("The Honourable John Smith J.A.")
// to the bare surname the case records index on. Hyphens and apostrophes
// inside the surname survive; casing does not change. Returns "" when
// nothing usable remains.
func Judge(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return ""
	}

	name = honorificRe.ReplaceAllString(name, "")
	name = strings.ReplaceAll(name, ",", " ")

	tokens := strings.Fields(name)
	for len(tokens) > 0 {
		last := strings.ToLower(tokens[len(tokens)-1])
		if _, ok := judicialTitles[last]; !ok {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) == 0 {
		return ""
	}

	return strings.TrimRight(tokens[len(tokens)-1], ".")
}

// Judges normalizes every attribution in the list, dropping entries that
// reduce to nothing and collapsing duplicates in first-seen order.
func Judges(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		name := Judge(r)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
