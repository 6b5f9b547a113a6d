package normalize

import (
	"sort"
	"strings"

	"github.com/meridian-legal/casebook-cli/internal/model"
)

// caseNameSeparators in match order; the dotted form wins when both occur.
var caseNameSeparators = []string{" v. ", " v "}

// SplitCaseName splits a style of cause ("Smith v. Jones Transport Ltd.")
// into its plaintiff and defendant sides. The separator match is
// case-insensitive. ok is false when no separator is present.
func SplitCaseName(name string) (plaintiff, defendant string, ok bool) {
	lower := strings.ToLower(name)
	for _, sep := range caseNameSeparators {
		if i := strings.Index(lower, sep); i >= 0 {
			return strings.TrimSpace(name[:i]), strings.TrimSpace(name[i+len(sep):]), true
		}
	}
	return "", "", false
}

// Labels canonicalizes a category or region list: entries trimmed,
// upper-cased, de-duplicated, sorted.
func Labels(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		label := strings.ToUpper(strings.TrimSpace(r))
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// Record applies boundary normalization to a freshly parsed candidate:
// judge names reduced to surnames, the case name split into party fields
// when those are empty, labels canonicalized, and damage entries given
// their default category.
func Record(c *model.CandidateRecord) {
	c.CaseName = model.FlexString(strings.TrimSpace(string(c.CaseName)))
	c.PlaintiffName = model.FlexString(strings.TrimSpace(string(c.PlaintiffName)))
	c.DefendantName = model.FlexString(strings.TrimSpace(string(c.DefendantName)))

	if p, d, ok := SplitCaseName(string(c.CaseName)); ok {
		if c.PlaintiffName == "" {
			c.PlaintiffName = model.FlexString(p)
		}
		if c.DefendantName == "" {
			c.DefendantName = model.FlexString(d)
		}
	}

	c.Judges = Judges(c.Judges)
	c.Categories = Labels(c.Categories)
	c.Regions = Labels(c.Regions)

	for i := range c.Plaintiffs {
		normalizePlaintiff(&c.Plaintiffs[i])
	}
}

func normalizePlaintiff(p *model.Plaintiff) {
	p.PlaintiffID = model.FlexString(strings.TrimSpace(string(p.PlaintiffID)))
	for i := range p.OtherDamages {
		if strings.TrimSpace(string(p.OtherDamages[i].Category)) == "" {
			p.OtherDamages[i].Category = model.DamageOther
		}
	}
}
