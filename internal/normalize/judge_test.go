package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJudge_StripsTitlesAndHonorifics(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain surname with title", "Smith J.", "Smith"},
		{"initial plus appeal title", "A. Smith J.A.", "Smith"},
		{"honourable prefix", "Hon. John Smith J.", "Smith"},
		{"full honourable prefix", "The Honourable John Smith", "Smith"},
		{"apostrophe surname", "O'Brien J.A.", "O'Brien"},
		{"hyphenated surname", "Marie Smith-Jones C.J.", "Smith-Jones"},
		{"chief justice ontario", "Jane Doe C.J.O.", "Doe"},
		{"chief justice canada", "Jane Doe C.J.C.", "Doe"},
		{"stacked titles", "Jane Doe C.J. J.A.", "Doe"},
		{"comma before title", "Doe, J.", "Doe"},
		{"double appeal title", "Doe J.J.A.", "Doe"},
		{"no title at all", "Jane Doe", "Doe"},
		{"empty input", "", ""},
		{"whitespace only", "   ", ""},
		{"title only", "J.", ""},
		{"extra internal spacing", "  Jane   Doe   J. ", "Doe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Judge(tt.in))
		})
	}
}

func TestJudge_KeepsFinalToken(t *testing.T) {
	assert.Equal(t, "MacDonald", Judge("MacDonald J."))
	assert.Equal(t, "Berg", Judge("van der Berg J."))
}

func TestJudges_DropsEmptiesAndDuplicates(t *testing.T) {
	in := []string{"Smith J.", "Hon. Jane Smith J.A.", "", "J.", "Doe C.J."}
	assert.Equal(t, []string{"Smith", "Doe"}, Judges(in))
}

func TestJudges_EmptyInput(t *testing.T) {
	assert.Empty(t, Judges(nil))
	assert.Empty(t, Judges([]string{"", "  "}))
}
