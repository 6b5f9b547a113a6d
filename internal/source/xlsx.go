package source

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadWorkbook reads a spreadsheet transcription of the compendium. Each
// sheet is treated as one table whose name is the section heading; Unit
// Page numbers count sheets.
func ReadWorkbook(path string, layout Layout) ([]Unit, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open workbook %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("source: workbook %s has no sheets", path)
	}

	tracker := NewSectionTracker(layout)
	var units []Unit
	index := 0
	for sheetNum, sheet := range f.Sheets {
		section := tracker.Observe(sheet.Name)

		rows := make([][]string, 0, len(sheet.Rows))
		for _, row := range sheet.Rows {
			rows = append(rows, rowToStrings(row))
		}

		headers, dataStart, ok := layout.ResolveHeader(rows)
		if !ok {
			continue
		}
		for _, row := range rows[dataStart:] {
			if countFilled(row) == 0 {
				continue
			}
			cells := make([]string, len(row))
			for i, cell := range row {
				cells[i] = normalizeCell(cell)
			}
			index++
			units = append(units, Unit{
				Index:   index,
				Page:    sheetNum + 1,
				Headers: headers,
				Cells:   cells,
				Section: section,
			})
		}
	}
	return units, nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	out := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		out[i] = cell.String()
	}
	return out
}
