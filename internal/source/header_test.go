package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapHeaders_ExactCountPassesThrough(t *testing.T) {
	in := []string{"Plaintiff", "Defendant", "Year"}
	assert.Equal(t, in, MapHeaders(in, 3))
}

func TestMapHeaders_PadsMissingColumns(t *testing.T) {
	got := MapHeaders([]string{"Plaintiff", "Year"}, 4)
	assert.Equal(t, []string{"Plaintiff", "Year", "Col_2", "Col_3"}, got)
}

func TestMapHeaders_CombinesSplitFragments(t *testing.T) {
	fragments := []string{
		"Plaintiff", "Defendant", "Year",
		"Sex", "Age",
		"Non-Pecuniary", "General", "Damages",
		"Injuries",
	}
	got := MapHeaders(fragments, 6)
	assert.Equal(t, []string{
		"Plaintiff", "Defendant", "Year",
		"Sex/Age",
		"Non-Pecuniary Damages",
		"Injuries",
	}, got)
}

func TestMapHeaders_DropsOrphanFragments(t *testing.T) {
	// "General" with no non-pecuniary fragment before it is a stray line
	// from the scan, not a column.
	got := MapHeaders([]string{"Plaintiff", "General", "Year", "Age"}, 2)
	assert.Equal(t, []string{"Plaintiff", "Year"}, got)
}

func TestMapHeaders_TruncatesLeftovers(t *testing.T) {
	got := MapHeaders([]string{"Plaintiff", "Defendant", "Year", "Court"}, 3)
	assert.Equal(t, []string{"Plaintiff", "Defendant", "Year"}, got)
}

func TestIsHeader_MatchesTokenExactly(t *testing.T) {
	layout := DefaultLayout()

	assert.True(t, layout.IsHeader([]string{"Plaintiff", "Injuries"}))
	assert.True(t, layout.IsHeader([]string{"Sex/Age", "YEAR"}))
	assert.False(t, layout.IsHeader([]string{"Name", "Amount"}))
	assert.False(t, layout.IsHeader([]string{"Plaintiff's Counsel"}))
	assert.False(t, layout.IsHeader(nil))
}

func TestResolveHeader_SpreadAcrossFirstRow(t *testing.T) {
	rows := [][]string{
		{"Plaintiff", "Defendant", "Year"},
		{"Smith", "Jones", "2020"},
	}

	headers, dataStart, ok := DefaultLayout().ResolveHeader(rows)
	require.True(t, ok)
	assert.Equal(t, []string{"Plaintiff", "Defendant", "Year"}, headers)
	assert.Equal(t, 1, dataStart)
}

func TestResolveHeader_FillsBlankHeaderCells(t *testing.T) {
	rows := [][]string{
		{"Plaintiff", "", "Year"},
		{"Smith", "Jones", "2020"},
	}

	headers, _, ok := DefaultLayout().ResolveHeader(rows)
	require.True(t, ok)
	assert.Equal(t, []string{"Plaintiff", "Col_1", "Year"}, headers)
}

func TestResolveHeader_NewlinePackedCell(t *testing.T) {
	rows := [][]string{
		{"Plaintiff\nDefendant\nYear\nSex\nAge", "", "", ""},
		{"Smith", "Jones", "2020", "M/34"},
	}

	headers, dataStart, ok := DefaultLayout().ResolveHeader(rows)
	require.True(t, ok)
	assert.Equal(t, []string{"Plaintiff", "Defendant", "Year", "Sex/Age"}, headers)
	assert.Equal(t, 1, dataStart)
}

func TestResolveHeader_SectionRowThenHeaderRow(t *testing.T) {
	rows := [][]string{
		{"CERVICAL SPINE", "", ""},
		{"Plaintiff", "Defendant", "Year"},
		{"Smith", "Jones", "2020"},
	}

	headers, dataStart, ok := DefaultLayout().ResolveHeader(rows)
	require.True(t, ok)
	assert.Equal(t, []string{"Plaintiff", "Defendant", "Year"}, headers)
	assert.Equal(t, 2, dataStart)
}

func TestResolveHeader_RejectsTablesWithoutCaseColumns(t *testing.T) {
	rows := [][]string{
		{"Item", "Amount", "Notes"},
		{"Filing fee", "$250", ""},
	}

	_, _, ok := DefaultLayout().ResolveHeader(rows)
	assert.False(t, ok)
}

func TestResolveHeader_RejectsTooShortTables(t *testing.T) {
	_, _, ok := DefaultLayout().ResolveHeader([][]string{{"Plaintiff", "Year"}})
	assert.False(t, ok)
}
