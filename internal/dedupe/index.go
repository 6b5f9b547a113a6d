package dedupe

import (
	"strings"

	"github.com/agext/levenshtein"

	"github.com/meridian-legal/casebook-cli/internal/model"
)

// Method labels which tier produced a match, for debug logging.
type Method string

const (
	MatchCaseID     Method = "case_id"
	MatchNormalized Method = "normalized_name"
	MatchCitation   Method = "citation"
	MatchFuzzy      Method = "fuzzy_name"
)

// DefaultThreshold is the minimum name similarity for a fuzzy match.
const DefaultThreshold = 0.85

type yearEntry struct {
	pos  int
	name string
}

// Index maps identifying features of collected cases to their positions in
// the run's case list. Slots are never overwritten: on any collision the
// earliest-indexed case keeps them.
type Index struct {
	byID       map[string]int
	byKey      map[string]int
	byCitation map[string]int
	byYear     map[int][]yearEntry
	threshold  float64
	params     *levenshtein.Params
}

// NewIndex creates an empty index. Thresholds outside (0, 1] fall back to
// DefaultThreshold.
func NewIndex(threshold float64) *Index {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Index{
		byID:       make(map[string]int),
		byKey:      make(map[string]int),
		byCitation: make(map[string]int),
		byYear:     make(map[int][]yearEntry),
		threshold:  threshold,
		params:     levenshtein.NewParams(),
	}
}

// Add indexes every identifying feature of the case at the given position.
// The pipeline calls it after every append and again after every merge, so
// citations and name variants accumulated by merging stay findable.
func (ix *Index) Add(c *model.ConsolidatedCase, pos int) {
	if id := strings.TrimSpace(c.CaseID); id != "" {
		if _, ok := ix.byID[id]; !ok {
			ix.byID[id] = pos
		}
	}

	name := NormalizeName(c.CaseName)
	if name != "" {
		key := name + "|" + yearPart(c.Year)
		if _, ok := ix.byKey[key]; !ok {
			ix.byKey[key] = pos
		}
	}

	for _, cit := range c.Citations {
		cit = strings.TrimSpace(cit)
		if cit == "" {
			continue
		}
		if _, ok := ix.byCitation[cit]; !ok {
			ix.byCitation[cit] = pos
		}
	}

	if name != "" && c.Year.Valid {
		bucket := ix.byYear[c.Year.Value]
		for _, e := range bucket {
			if e.pos == pos && e.name == name {
				return
			}
		}
		ix.byYear[c.Year.Value] = append(bucket, yearEntry{pos: pos, name: name})
	}
}

// Find locates the collected case the candidate duplicates: exact
// identifier first, then normalized name+year, then citation overlap
// (earliest-indexed case wins), then fuzzy name similarity restricted to
// cases from the candidate's year. The last tier runs only when the
// candidate carries a year. ok is false when the candidate is new.
func (ix *Index) Find(c *model.CandidateRecord) (int, Method, bool) {
	if id := strings.TrimSpace(string(c.CaseID)); id != "" {
		if pos, ok := ix.byID[id]; ok {
			return pos, MatchCaseID, true
		}
	}

	name := NormalizeName(string(c.CaseName))
	if name != "" {
		if pos, ok := ix.byKey[name+"|"+yearPart(c.Year)]; ok {
			return pos, MatchNormalized, true
		}
	}

	citPos := -1
	for _, cit := range c.Citations {
		cit = strings.TrimSpace(cit)
		if cit == "" {
			continue
		}
		if pos, ok := ix.byCitation[cit]; ok && (citPos == -1 || pos < citPos) {
			citPos = pos
		}
	}
	if citPos >= 0 {
		return citPos, MatchCitation, true
	}

	if name != "" && c.Year.Valid {
		bestPos, bestScore := -1, 0.0
		for _, e := range ix.byYear[c.Year.Value] {
			score := levenshtein.Similarity(name, e.name, ix.params)
			if score < ix.threshold {
				continue
			}
			if score > bestScore || (score == bestScore && (bestPos == -1 || e.pos < bestPos)) {
				bestPos, bestScore = e.pos, score
			}
		}
		if bestPos >= 0 {
			return bestPos, MatchFuzzy, true
		}
	}

	return 0, "", false
}
