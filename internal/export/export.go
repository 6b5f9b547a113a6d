// Package export flattens consolidated cases to the per-plaintiff rows
// used for analysis and writes them out as an XLSX workbook.
package export

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/meridian-legal/casebook-cli/internal/model"
)

// FlatRecord is one analysis row: a single plaintiff with its case
// context repeated. A case without plaintiffs still produces one row so
// it does not disappear from the export.
type FlatRecord struct {
	CaseID        string
	CaseName      string
	PlaintiffName string
	DefendantName string
	Year          model.FlexInt
	Category      string
	Court         string
	Citations     string
	Judges        string
	Comments      string
	NumPlaintiffs int
	HasFLAClaims  bool
	TotalFLA      float64

	PlaintiffID         string
	Sex                 string
	Age                 string
	NonPecuniaryDamages model.FlexFloat
	IsProvisional       bool
	Injuries            string
	NumInjuries         int
	OtherDamagesTotal   float64
}

// FlattenCases expands each case into one record per plaintiff. List
// fields are joined with ", " and per-plaintiff damage amounts are
// summed; entries without a parseable amount do not contribute.
func FlattenCases(cases []*model.ConsolidatedCase) []FlatRecord {
	var records []FlatRecord
	for _, c := range cases {
		if c == nil {
			continue
		}
		base := FlatRecord{
			CaseID:        c.CaseID,
			CaseName:      c.CaseName,
			PlaintiffName: c.PlaintiffName,
			DefendantName: c.DefendantName,
			Year:          c.Year,
			Category:      strings.Join(c.Categories, ", "),
			Court:         c.Court,
			Citations:     strings.Join(c.Citations, ", "),
			Judges:        strings.Join(c.Judges, ", "),
			Comments:      c.Comments,
			NumPlaintiffs: len(c.Plaintiffs),
			HasFLAClaims:  len(c.FamilyLawClaims) > 0,
		}
		for _, fla := range c.FamilyLawClaims {
			if fla.Amount.Valid {
				base.TotalFLA += fla.Amount.Value
			}
		}

		if len(c.Plaintiffs) == 0 {
			records = append(records, base)
			continue
		}
		for _, p := range c.Plaintiffs {
			row := base
			row.PlaintiffID = string(p.PlaintiffID)
			row.Sex = string(p.Sex)
			row.Age = string(p.Age)
			row.NonPecuniaryDamages = p.NonPecuniaryDamages
			row.IsProvisional = bool(p.IsProvisional)
			row.Injuries = strings.Join(p.Injuries, ", ")
			row.NumInjuries = len(p.Injuries)
			for _, d := range p.OtherDamages {
				if d.Amount.Valid {
					row.OtherDamagesTotal += d.Amount.Value
				}
			}
			records = append(records, row)
		}
	}
	return records
}

var workbookColumns = []string{
	"case_id", "case_name", "plaintiff_name", "defendant_name", "year",
	"category", "court", "citations", "judges", "comments",
	"num_plaintiffs", "has_fla_claims", "total_fla_amount",
	"plaintiff_id", "sex", "age", "non_pecuniary_damages",
	"is_provisional", "injuries", "num_injuries", "other_damages_total",
}

// WriteWorkbook writes the flattened records to a single-sheet workbook.
func WriteWorkbook(path string, records []FlatRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Cases")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range workbookColumns {
		header.AddCell().SetString(col)
	}

	for _, r := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(r.CaseID)
		row.AddCell().SetString(r.CaseName)
		row.AddCell().SetString(r.PlaintiffName)
		row.AddCell().SetString(r.DefendantName)
		setOptionalInt(row.AddCell(), r.Year)
		row.AddCell().SetString(r.Category)
		row.AddCell().SetString(r.Court)
		row.AddCell().SetString(r.Citations)
		row.AddCell().SetString(r.Judges)
		row.AddCell().SetString(r.Comments)
		row.AddCell().SetInt(r.NumPlaintiffs)
		row.AddCell().SetBool(r.HasFLAClaims)
		row.AddCell().SetFloat(r.TotalFLA)
		row.AddCell().SetString(r.PlaintiffID)
		row.AddCell().SetString(r.Sex)
		row.AddCell().SetString(r.Age)
		setOptionalFloat(row.AddCell(), r.NonPecuniaryDamages)
		row.AddCell().SetBool(r.IsProvisional)
		row.AddCell().SetString(r.Injuries)
		row.AddCell().SetInt(r.NumInjuries)
		row.AddCell().SetFloat(r.OtherDamagesTotal)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}
	return nil
}

func setOptionalInt(cell *xlsx.Cell, v model.FlexInt) {
	if v.Valid {
		cell.SetInt(v.Value)
		return
	}
	cell.SetString("")
}

func setOptionalFloat(cell *xlsx.Cell, v model.FlexFloat) {
	if v.Valid {
		cell.SetFloat(v.Value)
		return
	}
	cell.SetString("")
}
