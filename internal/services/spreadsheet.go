package services

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"zenstudy-backend/internal/models"
)

// SpreadsheetImporter reads word lists laid out as a header row followed by
// kanji, romaji, vietnamese, jlpt_level and an optional parts column.
type SpreadsheetImporter struct {
	maxRows int
}

func NewSpreadsheetImporter(maxRows int) *SpreadsheetImporter {
	if maxRows <= 0 {
		maxRows = 2000
	}
	return &SpreadsheetImporter{maxRows: maxRows}
}

func (s *SpreadsheetImporter) ReadWords(r io.Reader) ([]models.ImportWord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, invalid("file", "spreadsheet has no word rows")
	}
	if len(rows)-1 > s.maxRows {
		return nil, invalid("file", fmt.Sprintf("spreadsheet has more than %d rows", s.maxRows))
	}

	words := make([]models.ImportWord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 4 {
			continue
		}
		w := models.ImportWord{
			Kanji:      cell(row, 0),
			Romaji:     cell(row, 1),
			Vietnamese: cell(row, 2),
			JLPTLevel:  cell(row, 3),
		}
		if parts := cell(row, 4); parts != "" {
			if !json.Valid([]byte(parts)) {
				return nil, invalid("file", fmt.Sprintf("row %d: parts is not valid JSON", i+2))
			}
			w.Parts = json.RawMessage(parts)
		}
		words = append(words, w)
	}
	return words, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
