package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-legal/casebook-cli/internal/model"
)

func TestParseRecords_BareArray(t *testing.T) {
	records, err := ParseRecords(`[{"case_name": "Smith v. Jones", "year": 2020}]`)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.FlexString("Smith v. Jones"), records[0].CaseName)
	assert.Equal(t, model.Int(2020), records[0].Year)
}

func TestParseRecords_FencedArray(t *testing.T) {
	raw := "```json\n[{\"case_name\": \"Smith v. Jones\"}]\n```"
	records, err := ParseRecords(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.FlexString("Smith v. Jones"), records[0].CaseName)
}

func TestParseRecords_SurroundingChatter(t *testing.T) {
	raw := "Here are the extracted cases:\n[{\"case_name\": \"Smith v. Jones\"}]\nLet me know if you need anything else."
	records, err := ParseRecords(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestParseRecords_SingleObjectBecomesList(t *testing.T) {
	records, err := ParseRecords(`{"case_name": "Smith v. Jones"}`)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.FlexString("Smith v. Jones"), records[0].CaseName)
}

func TestParseRecords_EmptyArray(t *testing.T) {
	records, err := ParseRecords("[]")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseRecords_DropsNonObjectElements(t *testing.T) {
	records, err := ParseRecords(`[{"case_name": "Smith v. Jones"}, "noise", 42]`)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestParseRecords_LenientFieldTypes(t *testing.T) {
	raw := `[{
		"case_name": "Smith v. Jones",
		"year": "2020",
		"citations": "2020 ONSC 1234",
		"plaintiffs": [{
			"plaintiff_id": "P1",
			"non_pecuniary_damages": "$250,000"
		}]
	}]`
	records, err := ParseRecords(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, model.Int(2020), r.Year)
	assert.Equal(t, model.StringList{"2020 ONSC 1234"}, r.Citations)
	require.Len(t, r.Plaintiffs, 1)
	assert.Equal(t, model.Float(250000), r.Plaintiffs[0].NonPecuniaryDamages)
}

func TestParseRecords_Invalid(t *testing.T) {
	for _, raw := range []string{"", "no json here", "42", `"just a string"`} {
		_, err := ParseRecords(raw)
		assert.Error(t, err, "input %q must not parse", raw)
	}
}

func TestCleanResponse_FenceVariants(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n[1]\n```", "[1]"},
		{"plain fence", "```\n[1]\n```", "[1]"},
		{"no fence", "[1]", "[1]"},
		{"prefix text", "Sure!\n```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"trailing text after close", "[1] trailing words", "[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanResponse(tt.in))
		})
	}
}
