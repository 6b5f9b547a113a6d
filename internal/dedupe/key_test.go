package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridian-legal/casebook-cli/internal/model"
)

func TestNormalizeName_CanonicalForm(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases and strips punctuation", "Smith v. Jones", "smith v jones"},
		{"collapses whitespace", "  Smith   v.   Jones  ", "smith v jones"},
		{"folds diacritics", "Béliveau v. Côté", "beliveau v cote"},
		{"drops apostrophes", "O'Neil v. D'Arcy", "oneil v darcy"},
		{"keeps digits", "123456 Ontario Ltd. v. Smith", "123456 ontario ltd v smith"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestKeyFor_YearVariants(t *testing.T) {
	assert.Equal(t, "smith v jones|2019", KeyFor("Smith v. Jones", model.Int(2019)))
	assert.Equal(t, "smith v jones|", KeyFor("Smith v. Jones", model.FlexInt{}))
}
