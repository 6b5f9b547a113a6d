package pipeline

import "github.com/meridian-legal/casebook-cli/internal/model"

// CleanupCases strips the artifacts tolerant parsing leaves behind once a
// run completes: plaintiffs that carry nothing beyond an ordinal, and
// cases the service never attached a name to.
func CleanupCases(cases []*model.ConsolidatedCase) []*model.ConsolidatedCase {
	kept := make([]*model.ConsolidatedCase, 0, len(cases))
	for _, c := range cases {
		if c == nil || c.CaseName == "" {
			continue
		}
		plaintiffs := make([]model.Plaintiff, 0, len(c.Plaintiffs))
		for _, p := range c.Plaintiffs {
			if meaningful(p) {
				plaintiffs = append(plaintiffs, p)
			}
		}
		c.Plaintiffs = plaintiffs
		kept = append(kept, c)
	}
	return kept
}

func meaningful(p model.Plaintiff) bool {
	return p.Sex != "" ||
		p.Age != "" ||
		p.NonPecuniaryDamages.Valid ||
		len(p.Injuries) > 0 ||
		len(p.OtherDamages) > 0 ||
		p.Comments != ""
}
