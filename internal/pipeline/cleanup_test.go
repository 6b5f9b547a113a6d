package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-legal/casebook-cli/internal/model"
)

func TestCleanupCases_DropsNamelessCases(t *testing.T) {
	cases := []*model.ConsolidatedCase{
		{CaseID: "smith_2020", CaseName: "Smith v. Jones"},
		{CaseID: "orphan", CaseName: ""},
		nil,
	}

	got := CleanupCases(cases)
	require.Len(t, got, 1)
	assert.Equal(t, "smith_2020", got[0].CaseID)
}

func TestCleanupCases_DropsOrdinalOnlyPlaintiffs(t *testing.T) {
	cases := []*model.ConsolidatedCase{{
		CaseID:   "smith_2020",
		CaseName: "Smith v. Jones",
		Plaintiffs: []model.Plaintiff{
			{PlaintiffID: "P1"},
			{PlaintiffID: "P2", NonPecuniaryDamages: model.Float(250000)},
			{PlaintiffID: "P3", Injuries: model.StringList{"whiplash"}},
			{PlaintiffID: "P4", Sex: "F"},
			{PlaintiffID: "P5", Comments: "settled before trial"},
		},
	}}

	got := CleanupCases(cases)
	require.Len(t, got, 1)
	require.Len(t, got[0].Plaintiffs, 4)
	for _, p := range got[0].Plaintiffs {
		assert.NotEqual(t, model.FlexString("P1"), p.PlaintiffID)
	}
}

func TestCleanupCases_KeepsCaseWithNoPlaintiffs(t *testing.T) {
	cases := []*model.ConsolidatedCase{{
		CaseID:     "smith_2020",
		CaseName:   "Smith v. Jones",
		Plaintiffs: []model.Plaintiff{{PlaintiffID: "P1"}},
	}}

	got := CleanupCases(cases)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Plaintiffs)
}
