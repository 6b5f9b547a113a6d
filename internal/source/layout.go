// Package source turns extraction dumps of the compendium (page text,
// tables, or a workbook) into the ordered work units the pipeline
// processes.
package source

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Layout carries the structural hints used to interpret table dumps:
// which cells mark a header row, which section headings are real, and how
// hierarchical sections combine. The defaults describe the Ontario
// damages compendium; a YAML file can override any list.
type Layout struct {
	// HeaderTokens validate a header row: at least one mapped header must
	// equal one of these, case-insensitively.
	HeaderTokens []string `yaml:"header_tokens"`
	// MainSections are headings that own subsections.
	MainSections []string `yaml:"main_sections"`
	// SubsectionWords are headings that only occur under a main section
	// and are reported combined, e.g. "SPINE - GENERAL".
	SubsectionWords []string `yaml:"subsection_words"`
	// ValidSections whitelists keywords a real section heading contains.
	ValidSections []string `yaml:"valid_sections"`
	// InvalidSections rejects text that looks like a heading but is not
	// (column labels, award lines, narrative fragments).
	InvalidSections []string `yaml:"invalid_sections"`
}

// DefaultLayout returns the compendium's built-in structural hints.
func DefaultLayout() Layout {
	return Layout{
		HeaderTokens: []string{"plaintiff", "case", "year", "defendant"},
		MainSections: []string{
			"HEAD", "BRAIN", "SKULL",
			"ARMS", "SPINE", "BODY", "LEGS", "SKIN",
			"FATAL INJURIES", "MOST SEVERE INJURIES", "MISCELLANEOUS",
		},
		SubsectionWords: []string{"GENERAL"},
		ValidSections: []string{
			"GENERAL", "MISCELLANEOUS", "MOST SEVERE", "FATAL",
			"BRAIN", "SKULL", "HEAD",
			"EARS", "HEARING", "EYE", "SIGHT", "TEETH",
			"CERVICAL", "THORACIC", "LUMBAR", "SPINE", "SPINAL",
			"NECK", "BACK", "WHIPLASH",
			"SHOULDER", "ARM", "ELBOW", "FOREARM", "WRIST", "HAND", "FINGER", "WHOLE", "COLLAR",
			"CHEST", "THORAX", "ABDOMEN", "PELVIS", "BODY",
			"BUTTOCK", "THIGH", "INTERNAL", "REPRODUCTIVE", "RIBS",
			"HIP", "KNEE", "LEG", "ANKLE", "FOOT", "TOE", "LOWER", "LOSS",
			"SKIN", "BURNS", "SCARS", "LACERATIONS",
			"PARAPLEGIA", "QUADRIPLEGIA",
			"PSYCHOLOGICAL", "PSYCHIATRIC", "MENTAL", "TRAUMATIC", "NEUROSIS",
			"PAIN", "SUFFERING", "MINOR",
			"MULTIPLE", "SOFT TISSUE",
			"PRE-EXISTING", "DISABILITY", "CONDITION",
			"SEXUAL", "ASSAULT", "ABUSE",
			"GUIDANCE", "CARE", "COMPANIONSHIP",
			"FATHER", "MOTHER", "PARENT",
			"SON", "DAUGHTER", "CHILD",
			"BROTHER", "SISTER", "SIBLING",
			"SPOUSE", "HUSBAND", "WIFE",
			"GRANDFATHER", "GRANDMOTHER", "GRANDPARENT", "GRANDCHILD",
		},
		InvalidSections: []string{
			"CONTRIBUTORILY",
			"P11:", "P12:",
			"SPECIAL",
			"DEFENDANT",
			"PLAINTIFF",
			"MOTION",
			"GENERAL DAMAGES",
			"PECUNIARY",
			"NON-PECUNIARY",
			"DAMAGES",
			"AWARD",
			"TOTAL",
		},
	}
}

// LoadLayout reads layout hints from a YAML file. Lists left empty in the
// file keep their defaults.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, eris.Wrapf(err, "source: read layout %s", path)
	}

	// The YAML has a top-level "layout" key.
	var wrapper struct {
		Layout Layout `yaml:"layout"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Layout{}, eris.Wrap(err, "source: parse layout")
	}

	layout := wrapper.Layout
	defaults := DefaultLayout()
	if len(layout.HeaderTokens) == 0 {
		layout.HeaderTokens = defaults.HeaderTokens
	}
	if len(layout.MainSections) == 0 {
		layout.MainSections = defaults.MainSections
	}
	if len(layout.SubsectionWords) == 0 {
		layout.SubsectionWords = defaults.SubsectionWords
	}
	if len(layout.ValidSections) == 0 {
		layout.ValidSections = defaults.ValidSections
	}
	if len(layout.InvalidSections) == 0 {
		layout.InvalidSections = defaults.InvalidSections
	}
	return layout, nil
}
