package source

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DefaultStartPage skips the compendium's front matter, which holds no
// case tables.
const DefaultStartPage = 4

// Unit is one piece of work for the pipeline: a page of extracted text,
// or one table row with its header and section context.
type Unit struct {
	// Index orders units and is what checkpoints record. For page units
	// it is the page number; for row units it counts rows across the
	// whole dump.
	Index int
	// Page is the page the unit came from.
	Page int

	// Text is set for page units.
	Text string

	// Headers, Cells and Section are set for row units.
	Headers []string
	Cells   []string
	Section string
}

// IsRow reports whether the unit is a table row rather than a page.
func (u Unit) IsRow() bool {
	return u.Cells != nil
}

// Options adjusts how a dump is read.
type Options struct {
	// StartPage and EndPage bound which dump pages produce row units.
	// StartPage defaults to DefaultStartPage; EndPage 0 means the last
	// page. Page units are bounded by the pipeline instead.
	StartPage int
	EndPage   int
	// Encoding names a legacy character encoding ("windows-1252",
	// "latin1") the dump file was written in. Empty means UTF-8.
	Encoding string
}

// dumpPage is the JSON shape shared by both dump kinds. Page dumps carry
// text only; table dumps add the tables found on each page.
type dumpPage struct {
	Page   int         `json:"page"`
	Text   string      `json:"text"`
	Tables []dumpTable `json:"tables"`
}

type dumpTable struct {
	Rows [][]string `json:"rows"`
}

// Load reads an extraction dump and returns its work units in order.
// JSON dumps are classified by content: pages with tables yield one unit
// per data row, pages without yield one unit per page. An .xlsx path is
// read as a workbook.
func Load(path string, layout Layout, opts Options) ([]Unit, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadWorkbook(path, layout)
	}

	pages, err := readDump(path, opts.Encoding)
	if err != nil {
		return nil, err
	}

	for _, page := range pages {
		if len(page.Tables) > 0 {
			return rowUnits(pages, layout, opts), nil
		}
	}
	return pageUnits(pages), nil
}

func readDump(path, encoding string) ([]dumpPage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open dump %s", path)
	}
	defer f.Close()

	var r io.Reader = f
	if encoding != "" {
		enc, err := htmlindex.Get(encoding)
		if err != nil {
			return nil, eris.Wrapf(err, "source: unknown encoding %q", encoding)
		}
		r = transform.NewReader(f, enc.NewDecoder())
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read dump %s", path)
	}

	var pages []dumpPage
	if err := json.Unmarshal(bytes.TrimSpace(data), &pages); err != nil {
		return nil, eris.Wrap(err, "source: parse dump")
	}

	for i := range pages {
		if pages[i].Page <= 0 {
			pages[i].Page = i + 1
		}
	}
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].Page < pages[j].Page
	})
	return pages, nil
}

func pageUnits(pages []dumpPage) []Unit {
	units := make([]Unit, 0, len(pages))
	for _, page := range pages {
		units = append(units, Unit{
			Index: page.Page,
			Page:  page.Page,
			Text:  page.Text,
		})
	}
	return units
}

func rowUnits(pages []dumpPage, layout Layout, opts Options) []Unit {
	start := opts.StartPage
	if start <= 0 {
		start = DefaultStartPage
	}

	tracker := NewSectionTracker(layout)
	var units []Unit
	index := 0
	for _, page := range pages {
		// Sections are tracked across every page so a bounded run still
		// knows which heading was in effect when it starts.
		section := tracker.Observe(sectionCandidate(page))
		inBounds := page.Page >= start && (opts.EndPage == 0 || page.Page <= opts.EndPage)

		for _, table := range page.Tables {
			headers, dataStart, ok := layout.ResolveHeader(table.Rows)
			if !ok {
				continue
			}
			for _, row := range table.Rows[dataStart:] {
				if countFilled(row) == 0 {
					continue
				}
				// Indices count every data row in the dump so they do not
				// shift when the page bounds change between runs.
				index++
				if !inBounds {
					continue
				}
				cells := make([]string, len(row))
				for i, cell := range row {
					cells[i] = normalizeCell(cell)
				}
				units = append(units, Unit{
					Index:   index,
					Page:    page.Page,
					Headers: headers,
					Cells:   cells,
					Section: section,
				})
			}
		}
	}
	return units
}

// sectionCandidate picks the text most likely to be the page's section
// heading: the first non-empty line of the page text, falling back to the
// first cell of the page's first table.
func sectionCandidate(page dumpPage) string {
	for _, line := range strings.Split(page.Text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	for _, table := range page.Tables {
		if len(table.Rows) > 0 {
			return firstFilled(table.Rows[0])
		}
	}
	return ""
}
