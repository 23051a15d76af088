package services

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/width"
)

var errNoText = errors.New("no extractable text")

// FileExtractService turns uploaded study material into source text for
// vocabulary generation. Output keeps one line per printed line so word lists
// survive, with readings and page furniture removed.
type FileExtractService struct {
	maxRunes int
}

func NewFileExtractService(maxRunes int) *FileExtractService {
	return &FileExtractService{maxRunes: maxRunes}
}

// SupportedDocument reports whether name has an extension ExtractTextFromPath
// understands.
func SupportedDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".pdf", ".docx":
		return true
	}
	return false
}

func (s *FileExtractService) ExtractTextFromPath(path string) (string, error) {
	var (
		lines []string
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".md":
		lines, err = textLines(path)
	case ".pdf":
		lines, err = pdfLines(path)
	case ".docx":
		lines, err = docxLines(path)
	default:
		return "", fmt.Errorf("unsupported file type for text extraction: %s", ext)
	}
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", filepath.Base(path), err)
	}

	text := studyText(lines)
	if text == "" {
		return "", fmt.Errorf("extract %s: %w", filepath.Base(path), errNoText)
	}
	if s.maxRunes > 0 {
		text = truncateRunes(text, s.maxRunes)
	}
	return text, nil
}

func textLines(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := strings.ReplaceAll(string(b), "\r\n", "\n")
	return strings.Split(strings.ReplaceAll(s, "\r", "\n"), "\n"), nil
}

// pdfLines reads each page row by row, top to bottom, so a vocabulary table
// keeps one entry per line instead of running together.
func pdfLines(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		lines = append(lines, rowLines(rows)...)
		lines = append(lines, "")
	}
	return lines, nil
}

func rowLines(rows pdf.Rows) []string {
	sorted := append(pdf.Rows(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position > sorted[j].Position })

	lines := make([]string, 0, len(sorted))
	for _, row := range sorted {
		texts := append(pdf.TextHorizontal(nil), row.Content...)
		sort.SliceStable(texts, func(i, j int) bool { return texts[i].X < texts[j].X })

		var b strings.Builder
		for _, t := range texts {
			b.WriteString(t.S)
		}
		lines = append(lines, b.String())
	}
	return lines
}

func docxLines(path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return documentLines(rc)
	}
	return nil, errors.New("docx document.xml not found")
}

// documentLines walks WordprocessingML text runs. Paragraphs and breaks end a
// line; ruby annotations (w:rt) hold furigana and are skipped so only the
// base text remains.
func documentLines(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		lines  []string
		line   strings.Builder
		inText bool
		inRuby int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "rt":
				inRuby++
			case "tab":
				line.WriteString(" ")
			case "br", "cr":
				lines = append(lines, line.String())
				line.Reset()
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "rt":
				inRuby--
			case "p":
				lines = append(lines, line.String())
				line.Reset()
			}
		case xml.CharData:
			if inText && inRuby == 0 {
				line.Write(t)
			}
		}
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines, nil
}

var (
	// 食(た)べる, 駅（えき）: a kana reading right after kanji.
	inlineReading = regexp.MustCompile(`(\p{Han})[（(][\p{Hiragana}\p{Katakana}ー]+[）)]`)
	pageNumber    = regexp.MustCompile(`^[-‐–—\s]*(p\.?\s*)?\d{1,4}[-‐–—\s]*$`)
)

// studyLine folds fullwidth ASCII and halfwidth katakana to their usual
// forms, drops inline readings and trims the line.
func studyLine(s string) string {
	s = width.Fold.String(s)
	s = inlineReading.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// studyText cleans each line, drops bare page numbers and keeps at most one
// blank line between blocks.
func studyText(lines []string) string {
	var b strings.Builder
	blank := false
	for _, raw := range lines {
		line := studyLine(raw)
		if pageNumber.MatchString(line) {
			line = ""
		}
		if line == "" {
			blank = b.Len() > 0
			continue
		}
		if blank {
			b.WriteString("\n")
			blank = false
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
	}
	return b.String()
}
