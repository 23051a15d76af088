package services

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"zenstudy-backend/internal/models"
)

const worksheetFont = "Worksheet"

// WorksheetRenderer prints an analysed video as a listening worksheet. The
// font must be a TTF with Japanese glyphs.
type WorksheetRenderer struct {
	fontFile string
}

func NewWorksheetRenderer(fontFile string) *WorksheetRenderer {
	return &WorksheetRenderer{fontFile: fontFile}
}

type worksheetItem struct {
	heading string
	body    []string
}

type worksheetPage struct {
	title string
	items []worksheetItem
}

// worksheetPages lays out the text of the worksheet, one page per mondai.
func worksheetPages(v *models.VideoData, withAnswers bool) []worksheetPage {
	pages := make([]worksheetPage, 0, len(v.Mondais))
	for _, m := range v.Mondais {
		page := worksheetPage{title: m.Title}
		for _, q := range m.Questions {
			item := worksheetItem{heading: fmt.Sprintf("%d.", q.ID)}
			if q.Introduction != "" {
				item.body = append(item.body, q.Introduction)
			}
			item.body = append(item.body, q.Question)
			for i, opt := range q.Options {
				item.body = append(item.body, fmt.Sprintf("  %d. %s", i+1, opt))
			}
			if withAnswers && q.CorrectAnswer != nil {
				item.body = append(item.body, "答え: "+*q.CorrectAnswer)
			}
			page.items = append(page.items, item)
		}
		pages = append(pages, page)
	}
	return pages
}

func (r *WorksheetRenderer) Render(v *models.VideoData, withAnswers bool, w io.Writer) error {
	if r.fontFile == "" {
		return &UnavailableError{Message: "worksheet font is not configured"}
	}
	if _, err := os.Stat(r.fontFile); err != nil {
		return &UnavailableError{Message: "worksheet font is missing", Err: err}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8Font(worksheetFont, "", r.fontFile)
	pdf.SetTitle(v.Title, true)
	pdf.SetAutoPageBreak(true, 15)

	pages := worksheetPages(v, withAnswers)
	if len(pages) == 0 {
		pages = []worksheetPage{{}}
	}

	for i, page := range pages {
		pdf.AddPage()
		if i == 0 {
			pdf.SetFont(worksheetFont, "", 16)
			pdf.MultiCell(0, 9, v.Title, "", "L", false)
			pdf.SetFont(worksheetFont, "", 10)
			pdf.MultiCell(0, 6, strings.TrimSpace(v.URL+"  "+v.Duration), "", "L", false)
			pdf.Ln(4)
		}

		if page.title != "" {
			pdf.SetFont(worksheetFont, "", 14)
			pdf.MultiCell(0, 8, page.title, "", "L", false)
			pdf.Ln(2)
		}

		pdf.SetFont(worksheetFont, "", 11)
		for _, item := range page.items {
			pdf.MultiCell(0, 7, item.heading, "", "L", false)
			for _, line := range item.body {
				pdf.MultiCell(0, 6, line, "", "L", false)
			}
			pdf.Ln(3)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render worksheet: %w", err)
	}
	return nil
}
