package source

import (
	"fmt"
	"strings"
)

// normalizeCell trims a raw cell and blanks the "nan" strings pandas-based
// dump tools emit for empty cells.
func normalizeCell(raw string) string {
	cell := strings.TrimSpace(raw)
	if cell == "nan" {
		return ""
	}
	return cell
}

func countFilled(row []string) int {
	n := 0
	for _, cell := range row {
		if normalizeCell(cell) != "" {
			n++
		}
	}
	return n
}

func firstFilled(row []string) string {
	for _, cell := range row {
		if c := normalizeCell(cell); c != "" {
			return c
		}
	}
	return ""
}

// fillEmpty names blank header cells Col_N by position.
func fillEmpty(row []string) []string {
	headers := make([]string, len(row))
	for i, cell := range row {
		if c := normalizeCell(cell); c != "" {
			headers[i] = c
		} else {
			headers[i] = fmt.Sprintf("Col_%d", i)
		}
	}
	return headers
}

func padTo(headers []string, n int) []string {
	for i := len(headers); i < n; i++ {
		headers = append(headers, fmt.Sprintf("Col_%d", i))
	}
	return headers
}

// MapHeaders fits header fragments to the table's column count. Scanned
// tables split one printed header over several fragments, so "Sex" "Age"
// collapses to "Sex/Age" and "Non-Pecuniary" "General" "Damages" to
// "Non-Pecuniary Damages"; leftover fragments are dropped. Too few
// fragments pad out as Col_N, too many truncate.
func MapHeaders(fragments []string, numColumns int) []string {
	if len(fragments) == numColumns {
		return fragments
	}
	if len(fragments) < numColumns {
		return padTo(fragments, numColumns)
	}

	skip := make(map[int]bool)
	mapped := make([]string, 0, numColumns)
	for i, fragment := range fragments {
		if skip[i] {
			continue
		}
		lower := strings.ToLower(fragment)
		switch {
		case lower == "sex":
			ageIdx := -1
			for j := i + 1; j < len(fragments); j++ {
				if !skip[j] && strings.ToLower(fragments[j]) == "age" {
					ageIdx = j
					break
				}
			}
			if ageIdx < 0 {
				mapped = append(mapped, fragment)
				continue
			}
			skip[ageIdx] = true
			mapped = append(mapped, "Sex/Age")
		case strings.Contains(lower, "non-pecuniary") || strings.Contains(lower, "non pecuniary"):
			generalIdx, damagesIdx := -1, -1
			for j := i + 1; j < len(fragments); j++ {
				if skip[j] {
					continue
				}
				switch strings.ToLower(fragments[j]) {
				case "general":
					if generalIdx < 0 {
						generalIdx = j
					}
				case "damages":
					if damagesIdx < 0 {
						damagesIdx = j
					}
				}
			}
			if generalIdx >= 0 {
				skip[generalIdx] = true
			}
			if damagesIdx >= 0 {
				skip[damagesIdx] = true
			}
			mapped = append(mapped, "Non-Pecuniary Damages")
		case lower == "age", lower == "general", lower == "damages":
			// Fragment of a combined header that never got claimed.
		default:
			mapped = append(mapped, fragment)
		}
	}

	if len(mapped) > numColumns {
		return mapped[:numColumns]
	}
	return padTo(mapped, numColumns)
}

// IsHeader reports whether a mapped header list identifies a case table:
// at least one header must equal one of the layout's tokens.
func (l Layout) IsHeader(headers []string) bool {
	for _, header := range headers {
		lower := strings.ToLower(strings.TrimSpace(header))
		for _, token := range l.HeaderTokens {
			if lower == token {
				return true
			}
		}
	}
	return false
}

// ResolveHeader locates a table's header row and reports where its data
// rows start. Scanned tables come in three shapes: headers spread across
// the first row, headers newline-packed into its first cell, or a section
// line on the first row with the headers on the second.
func (l Layout) ResolveHeader(rows [][]string) (headers []string, dataStart int, ok bool) {
	if len(rows) < 2 {
		return nil, 0, false
	}

	headers, consumed := headerFromRow(rows[0])
	if headers == nil {
		if len(rows) < 3 {
			return nil, 0, false
		}
		headers, _ = headerFromRow(rows[1])
		if headers == nil {
			return nil, 0, false
		}
		consumed = 2
	}
	if !l.IsHeader(headers) {
		return nil, 0, false
	}
	return headers, consumed, true
}

func headerFromRow(row []string) ([]string, int) {
	switch filled := countFilled(row); {
	case filled > 1:
		return fillEmpty(row), 1
	case filled == 1:
		cell := firstFilled(row)
		if !strings.Contains(cell, "\n") {
			return nil, 0
		}
		var fragments []string
		for _, line := range strings.Split(cell, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				fragments = append(fragments, line)
			}
		}
		return MapHeaders(fragments, len(row)), 1
	default:
		return nil, 0
	}
}
