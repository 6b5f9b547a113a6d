// Package merge folds duplicate case records together without losing
// information: list data is unioned, plaintiff awards keep their maximum,
// and scalar metadata fills in only where it was missing.
package merge

import (
	"sort"
	"strings"

	"github.com/meridian-legal/casebook-cli/internal/model"
)

// Into merges incoming into existing in place. Existing keeps its identity
// fields; merging the same incoming record again changes nothing.
func Into(existing, incoming *model.ConsolidatedCase) {
	existing.SourceUnits = unionInts(existing.SourceUnits, incoming.SourceUnits)
	existing.Categories = unionSorted(existing.Categories, incoming.Categories)
	existing.Regions = unionSorted(existing.Regions, incoming.Regions)
	existing.Citations = unionFirstSeen(existing.Citations, incoming.Citations)
	existing.Judges = unionFirstSeen(existing.Judges, incoming.Judges)

	mergePlaintiffs(existing, incoming)
	mergeClaims(existing, incoming)

	existing.Comments = appendComment(existing.Comments, incoming.Comments)

	if existing.Court == "" {
		existing.Court = incoming.Court
	}
	if existing.PlaintiffName == "" {
		existing.PlaintiffName = incoming.PlaintiffName
	}
	if existing.DefendantName == "" {
		existing.DefendantName = incoming.DefendantName
	}
	if !existing.Year.Valid && incoming.Year.Valid {
		existing.Year = incoming.Year
	}
}

func mergePlaintiffs(existing, incoming *model.ConsolidatedCase) {
	usable := make([]model.Plaintiff, 0, len(incoming.Plaintiffs))
	for _, p := range incoming.Plaintiffs {
		if !p.Empty() {
			usable = append(usable, p)
		}
	}
	if len(usable) == 0 {
		return
	}
	if len(existing.Plaintiffs) == 0 {
		existing.Plaintiffs = usable
		return
	}

	byID := make(map[string]int, len(existing.Plaintiffs))
	for i, p := range existing.Plaintiffs {
		if id := string(p.PlaintiffID); id != "" {
			if _, ok := byID[id]; !ok {
				byID[id] = i
			}
		}
	}

	for _, inc := range usable {
		if id := string(inc.PlaintiffID); id != "" {
			if i, ok := byID[id]; ok {
				mergePlaintiff(&existing.Plaintiffs[i], inc)
				continue
			}
		}
		existing.Plaintiffs = append(existing.Plaintiffs, inc)
	}
}

func mergePlaintiff(ex *model.Plaintiff, inc model.Plaintiff) {
	ex.Injuries = unionFirstSeen(ex.Injuries, inc.Injuries)

	seen := make(map[damageKey]struct{}, len(ex.OtherDamages))
	for _, d := range ex.OtherDamages {
		seen[keyOfDamage(d)] = struct{}{}
	}
	for _, d := range inc.OtherDamages {
		if emptyDamage(d) {
			continue
		}
		k := keyOfDamage(d)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		ex.OtherDamages = append(ex.OtherDamages, d)
	}

	if betterAward(inc.NonPecuniaryDamages, ex.NonPecuniaryDamages) {
		ex.NonPecuniaryDamages = inc.NonPecuniaryDamages
		ex.IsProvisional = inc.IsProvisional
	}

	ex.Comments = model.FlexString(appendComment(string(ex.Comments), string(inc.Comments)))
}

// betterAward reports whether the incoming award replaces the existing
// one: it must be present, non-zero, and strictly greater than whatever
// is already recorded.
func betterAward(inc, ex model.FlexFloat) bool {
	if !inc.Valid || inc.Value == 0 {
		return false
	}
	return !ex.Valid || inc.Value > ex.Value
}

func mergeClaims(existing, incoming *model.ConsolidatedCase) {
	seen := make(map[claimKey]struct{}, len(existing.FamilyLawClaims))
	for _, c := range existing.FamilyLawClaims {
		seen[keyOfClaim(c)] = struct{}{}
	}
	for _, c := range incoming.FamilyLawClaims {
		if emptyClaim(c) {
			continue
		}
		k := keyOfClaim(c)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		existing.FamilyLawClaims = append(existing.FamilyLawClaims, c)
	}
}

type damageKey struct {
	category string
	amount   float64
	valid    bool
}

func keyOfDamage(d model.OtherDamage) damageKey {
	return damageKey{
		category: string(d.Category),
		amount:   d.Amount.Value,
		valid:    d.Amount.Valid,
	}
}

func emptyDamage(d model.OtherDamage) bool {
	return d.Category == "" && !d.Amount.Valid && d.Description == ""
}

type claimKey struct {
	category    string
	amount      float64
	valid       bool
	description string
}

func keyOfClaim(c model.FamilyLawClaim) claimKey {
	return claimKey{
		category:    string(c.Category),
		amount:      c.Amount.Value,
		valid:       c.Amount.Valid,
		description: string(c.Description),
	}
}

func emptyClaim(c model.FamilyLawClaim) bool {
	return c.Category == "" && !c.Amount.Valid && c.Description == ""
}

// appendComment concatenates with " | ", skipping incoming text already
// present verbatim in existing.
func appendComment(existing, incoming string) string {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" || strings.Contains(existing, incoming) {
		return existing
	}
	if existing == "" {
		return incoming
	}
	return existing + " | " + incoming
}

func unionInts(existing, incoming []int) []int {
	out := existing
	seen := make(map[int]struct{}, len(existing)+len(incoming))
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	for _, v := range incoming {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func unionSorted(existing, incoming []string) []string {
	out := unionFirstSeen(existing, incoming)
	sort.Strings(out)
	return out
}

func unionFirstSeen(existing, incoming []string) []string {
	out := existing
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, s := range existing {
		seen[s] = struct{}{}
	}
	for _, s := range incoming {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
