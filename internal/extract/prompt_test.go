package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagePrompt_CurrentOnly(t *testing.T) {
	p := PagePrompt("CURRENT PAGE BODY", "")
	assert.Contains(t, p, "CURRENT PAGE BODY")
	assert.NotContains(t, p, "Previous page text")
	assert.Contains(t, p, "Return only the JSON array")
}

func TestPagePrompt_IncludesPreviousContext(t *testing.T) {
	p := PagePrompt("CURRENT PAGE BODY", "PRIOR PAGE BODY")
	assert.Contains(t, p, "PRIOR PAGE BODY")
	assert.Contains(t, p, "Previous page text")
	assert.Less(t, strings.Index(p, "PRIOR PAGE BODY"), strings.Index(p, "CURRENT PAGE BODY"),
		"previous page must precede the current page")
}

func TestRowPrompt_PairsHeadersWithCells(t *testing.T) {
	p := RowPrompt("CERVICAL SPINE",
		[]string{"Plaintiff", "Defendant", "Non-Pecuniary Damages"},
		[]string{"Smith", "", "$250,000"})

	assert.Contains(t, p, "ANATOMICAL CATEGORY: CERVICAL SPINE")
	assert.Contains(t, p, "Plaintiff: Smith")
	assert.Contains(t, p, "Non-Pecuniary Damages: $250,000")
	assert.NotContains(t, p, "Defendant:")
	assert.Contains(t, p, "Return only the JSON object")
}

func TestRowPrompt_FallsBackToColumnIndex(t *testing.T) {
	p := RowPrompt("HEAD", []string{"Plaintiff"}, []string{"Smith", "extra cell"})
	assert.Contains(t, p, "Col_1: extra cell")
}
