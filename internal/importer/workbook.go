package importer

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// sheetRow gives access to the cells of a row by header name
type sheetRow struct {
	columns map[string]int
	cells   []string
}

func (r sheetRow) get(column string) string {
	idx, ok := r.columns[column]
	if !ok || idx >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[idx])
}

// list splits a comma separated cell
func (r sheetRow) list(column string) []string {
	var out []string
	for _, v := range strings.Split(r.get(column), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (r sheetRow) empty() bool {
	for _, c := range r.cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// readSheet returns the rows of a sheet whose first row holds the column names
func readSheet(f *excelize.File, sheet string) ([]sheetRow, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows of sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	out := make([]sheetRow, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		row := sheetRow{columns: columns, cells: cells}
		if !row.empty() {
			out = append(out, row)
		}
	}
	return out, nil
}

// readWorkbook reads the sheets named after the sections. Other sheets are ignored.
func readWorkbook(f *excelize.File) (*Document, error) {
	doc := &Document{}
	for _, sheet := range f.GetSheetList() {
		section := strings.ToLower(strings.TrimSpace(sheet))
		switch section {
		case SectionCategories, SectionTerms, SectionContexts, SectionFlashcards:
		default:
			continue
		}

		rows, err := readSheet(f, sheet)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			switch section {
			case SectionCategories:
				doc.Categories = append(doc.Categories, CategoryRow{
					Identifier: row.get("identifier"),
					Lang:       row.get("lang"),
					Name:       row.get("name"),
					Type:       row.get("type"),
					Parents:    row.list("parents"),
				})
			case SectionTerms:
				doc.Terms = append(doc.Terms, TermRow{
					Identifier: row.get("identifier"),
					Lang:       row.get("lang"),
					Name:       row.get("name"),
					Type:       row.get("type"),
					Parents:    row.list("parents"),
				})
			case SectionContexts:
				doc.Contexts = append(doc.Contexts, ContextRow{
					Identifier: row.get("identifier"),
					Lang:       row.get("lang"),
					Name:       row.get("name"),
					Content:    row.get("content"),
				})
			case SectionFlashcards:
				doc.Flashcards = append(doc.Flashcards, FlashcardRow{
					Identifier:  row.get("identifier"),
					Lang:        row.get("lang"),
					Term:        row.get("term"),
					Context:     row.get("context"),
					Description: row.get("description"),
				})
			}
		}
	}
	return doc, nil
}
