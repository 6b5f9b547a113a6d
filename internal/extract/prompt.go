package extract

import (
	"fmt"
	"strings"
)

// fieldsBlock enumerates the record shape the service is asked to return.
// It matches the candidate record's JSON contract.
const fieldsBlock = `- case_name: full case name
- plaintiff_name: plaintiff name (if different from case_name)
- defendant_name: defendant name
- year: year of decision (integer)
- category: category/type of injury (e.g., "CERVICAL SPINE", "HEAD INJURY")
- court: court name
- citations: array of citation strings
- judges: array of judge names
- plaintiffs: array of plaintiff objects, each with:
  - plaintiff_id: "P1", "P2", etc. for multiple plaintiffs
  - sex: "M" or "F"
  - age: age in years (integer)
  - non_pecuniary_damages: amount in dollars (number)
  - is_provisional: true/false if the award is provisional
  - injuries: array of injury descriptions
  - other_damages: array of {category, amount, description} objects
- family_law_act_claims: array of {category, amount, description} objects
- comments: any additional notes or comments`

const pageRules = `Important:
- If only one plaintiff, still use an array with plaintiff_id "P1"
- Parse all monetary amounts as numbers (no $ or commas)
- If information is not present, use null
- Return an empty array [] if no cases appear on this page
- Be precise with numbers and dates`

const rowRules = `Rules:
- Always extract injuries from every text field, including comments
- Use the plaintiffs array even for a single plaintiff (plaintiff_id "P1")
- Parse monetary amounts as numbers only (no $ or commas)
- Judge names: last name only; preserve hyphenated surnames
- If information is not present, use null`

// PagePrompt builds the extraction prompt for one page of source text.
// When previous is non-empty it is included ahead of the current page so
// cases split across the page boundary come back whole.
func PagePrompt(current, previous string) string {
	var b strings.Builder
	b.WriteString("You are parsing a legal damages compendium. Extract all case information from this page.\n\n")
	b.WriteString("Return a JSON array of cases. Each case should have:\n")
	b.WriteString(fieldsBlock)
	b.WriteString("\n\n")
	b.WriteString(pageRules)
	b.WriteString("\n")

	if previous != "" {
		b.WriteString("\nPrevious page text (context only; do not re-extract cases that are complete on it):\n")
		b.WriteString(previous)
		b.WriteString("\n")
	}

	b.WriteString("\nPage text:\n")
	b.WriteString(current)
	b.WriteString("\n\nReturn only the JSON array, no other text.")
	return b.String()
}

// RowPrompt builds the extraction prompt for a single table row, pairing
// each column header with its cell value. Empty cells are omitted.
func RowPrompt(section string, headers, cells []string) string {
	pairs := make([]string, 0, len(cells))
	for i, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		header := fmt.Sprintf("Col_%d", i)
		if i < len(headers) && strings.TrimSpace(headers[i]) != "" {
			header = strings.TrimSpace(headers[i])
		}
		pairs = append(pairs, header+": "+cell)
	}

	var b strings.Builder
	b.WriteString("Parse this table row from a legal damages compendium.\n\n")
	b.WriteString("ANATOMICAL CATEGORY: ")
	b.WriteString(section)
	b.WriteString("\n\nDATA FROM TABLE:\n")
	b.WriteString(strings.Join(pairs, "\n"))
	b.WriteString("\n\nReturn a single JSON object describing the case in this row, with fields:\n")
	b.WriteString(fieldsBlock)
	b.WriteString("\n\n")
	b.WriteString(rowRules)
	b.WriteString("\n\nReturn only the JSON object, no other text.")
	return b.String()
}
