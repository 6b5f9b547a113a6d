package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Damage category tags for OtherDamage entries.
const (
	DamageFutureIncomeLoss = "future_loss_of_income"
	DamagePastIncomeLoss   = "past_loss_of_income"
	DamageFutureCareCost   = "cost_of_future_care"
	DamageHousekeeping     = "housekeeping_capacity"
	DamageOther            = "other"
)

// OtherDamage is a non-general head of damages awarded to one plaintiff.
// Its identity for merge dedup is the (category, amount) pair.
type OtherDamage struct {
	Category    FlexString `json:"category"`
	Amount      FlexFloat  `json:"amount"`
	Description FlexString `json:"description,omitempty"`
}

// FamilyLawClaim is a dependant's claim attached to a case. Its identity
// for merge dedup is the (category, amount, description) triple.
type FamilyLawClaim struct {
	Category    FlexString `json:"category"`
	Amount      FlexFloat  `json:"amount"`
	Description FlexString `json:"description,omitempty"`
}

// Plaintiff is one claimant within a case, identified by ordinal
// ("P1", "P2", ...). Ordinals are unique within a case.
type Plaintiff struct {
	PlaintiffID         FlexString      `json:"plaintiff_id"`
	Sex                 FlexString      `json:"sex,omitempty"`
	Age                 FlexString      `json:"age,omitempty"`
	NonPecuniaryDamages FlexFloat       `json:"non_pecuniary_damages"`
	IsProvisional       FlexBool        `json:"is_provisional,omitempty"`
	Injuries            StringList      `json:"injuries"`
	OtherDamages        OtherDamageList `json:"other_damages"`
	Comments            FlexString      `json:"comments,omitempty"`
}

// Empty reports whether the plaintiff carries no usable data at all.
func (p Plaintiff) Empty() bool {
	return p.PlaintiffID == "" &&
		p.Sex == "" &&
		p.Age == "" &&
		!p.NonPecuniaryDamages.Valid &&
		len(p.Injuries) == 0 &&
		len(p.OtherDamages) == 0 &&
		p.Comments == ""
}

// OtherDamageList decodes a JSON array of damage objects, silently dropping
// elements that are not objects. A bare object decodes as a single entry.
type OtherDamageList []OtherDamage

func (l *OtherDamageList) UnmarshalJSON(data []byte) error {
	*l = decodeObjectList[OtherDamage](data)
	return nil
}

// FamilyLawClaimList decodes like OtherDamageList.
type FamilyLawClaimList []FamilyLawClaim

func (l *FamilyLawClaimList) UnmarshalJSON(data []byte) error {
	*l = decodeObjectList[FamilyLawClaim](data)
	return nil
}

// PlaintiffList decodes like OtherDamageList.
type PlaintiffList []Plaintiff

func (l *PlaintiffList) UnmarshalJSON(data []byte) error {
	*l = decodeObjectList[Plaintiff](data)
	return nil
}

func decodeObjectList[T any](data []byte) []T {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// Tolerate a single object where a list was expected.
		if strings.HasPrefix(trimmed, "{") {
			var one T
			if err := json.Unmarshal(data, &one); err == nil {
				return []T{one}
			}
		}
		return nil
	}

	out := make([]T, 0, len(raw))
	for _, r := range raw {
		if !strings.HasPrefix(strings.TrimSpace(string(r)), "{") {
			continue
		}
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// CandidateRecord is one provisional case fragment returned by the
// extraction service for a single work unit. Every field is optional; the
// lenient types absorb the service's loose typing. SourceUnit and
// Continuation are stamped by the gateway after decoding, not by the
// service.
type CandidateRecord struct {
	CaseID          FlexString         `json:"case_id"`
	CaseName        FlexString         `json:"case_name"`
	PlaintiffName   FlexString         `json:"plaintiff_name"`
	DefendantName   FlexString         `json:"defendant_name"`
	Year            FlexInt            `json:"year"`
	Court           FlexString         `json:"court"`
	Citations       StringList         `json:"citations"`
	Judges          StringList         `json:"judges"`
	Categories      StringList         `json:"category"`
	Regions         StringList         `json:"region"`
	Plaintiffs      PlaintiffList      `json:"plaintiffs"`
	FamilyLawClaims FamilyLawClaimList `json:"family_law_act_claims"`
	Comments        FlexString         `json:"comments"`

	SourceUnit   int  `json:"-"`
	Continuation bool `json:"-"`
}

// ConsolidatedCase is the durable entity: all fragments of one legal matter
// merged together. At most one exists per distinct matter when a run
// completes.
type ConsolidatedCase struct {
	CaseID          string           `json:"case_id"`
	CaseName        string           `json:"case_name"`
	PlaintiffName   string           `json:"plaintiff_name,omitempty"`
	DefendantName   string           `json:"defendant_name,omitempty"`
	Year            FlexInt          `json:"year"`
	Court           string           `json:"court,omitempty"`
	Citations       []string         `json:"citations"`
	Judges          []string         `json:"judges"`
	Categories      []string         `json:"categories"`
	Regions         []string         `json:"regions"`
	SourceUnits     []int            `json:"source_units"`
	Plaintiffs      []Plaintiff      `json:"plaintiffs"`
	FamilyLawClaims []FamilyLawClaim `json:"family_law_act_claims"`
	Comments        string           `json:"comments,omitempty"`
}

// NewConsolidatedCase lifts a candidate fragment into a consolidated case.
// List fields are copied so the candidate can be discarded.
func NewConsolidatedCase(c *CandidateRecord) *ConsolidatedCase {
	cc := &ConsolidatedCase{
		CaseID:          string(c.CaseID),
		CaseName:        string(c.CaseName),
		PlaintiffName:   string(c.PlaintiffName),
		DefendantName:   string(c.DefendantName),
		Year:            c.Year,
		Court:           string(c.Court),
		Citations:       dedupStrings(c.Citations),
		Judges:          dedupStrings(c.Judges),
		Categories:      dedupStrings(c.Categories),
		Regions:         dedupStrings(c.Regions),
		SourceUnits:     []int{},
		Plaintiffs:      append([]Plaintiff{}, c.Plaintiffs...),
		FamilyLawClaims: append([]FamilyLawClaim{}, c.FamilyLawClaims...),
		Comments:        string(c.Comments),
	}
	if c.SourceUnit > 0 {
		cc.SourceUnits = append(cc.SourceUnits, c.SourceUnit)
	}
	return cc
}

// GenerateCaseID derives a stable identifier from the case name and year,
// used when the extraction service returns a record without one. Returns ""
// when the name is empty.
func GenerateCaseID(name string, year FlexInt) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if !year.Valid {
		return name + "_unknown"
	}
	return name + "_" + strconv.Itoa(year.Value)
}

func dedupStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
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
