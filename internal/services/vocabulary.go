package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"zenstudy-backend/internal/models"
)

const (
	defaultVocabularyCount = 10
	maxVocabularyCount     = 50
	generatedGroupPrefix   = "Từ vựng về chủ đề: "
)

var (
	thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)
	jsonBodyRe   = regexp.MustCompile(`(?s)(\[.*\]|\{.*\})`)
)

// ParseVocabularyJSON decodes a generated word list. Model output is often
// wrapped in reasoning tags or code fences, or is not valid JSON as a whole;
// in the last case every well-formed object is salvaged on its own.
func ParseVocabularyJSON(raw string) ([]models.ImportWord, error) {
	text := thinkBlockRe.ReplaceAllString(raw, "")
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	var words []models.ImportWord
	if body := jsonBodyRe.FindString(text); body != "" {
		words = decodeWordList([]byte(body))
	}
	if words == nil {
		for _, obj := range jsonObjects(text) {
			var w models.ImportWord
			if json.Unmarshal([]byte(obj), &w) == nil {
				words = append(words, w)
			}
		}
	}

	words = normalizeImportWords(words)
	if len(words) == 0 {
		return nil, &UnavailableError{Message: "generated vocabulary could not be parsed"}
	}
	return words, nil
}

func decodeWordList(body []byte) []models.ImportWord {
	var list []models.ImportWord
	if err := json.Unmarshal(body, &list); err == nil {
		return list
	}

	var wrapped struct {
		Words []models.ImportWord `json:"words"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.Words) > 0 {
		return wrapped.Words
	}

	var single models.ImportWord
	if err := json.Unmarshal(body, &single); err == nil && single.Kanji != "" {
		return []models.ImportWord{single}
	}
	return nil
}

// jsonObjects returns every outermost {...} span of s, skipping braces
// inside string literals.
func jsonObjects(s string) []string {
	var (
		objs     []string
		depth    int
		start    int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				objs = append(objs, s[start:i+1])
			}
		}
	}
	return objs
}

// NormalizeJLPTLevel maps "n3", " N3 " or "3" to "N3". Anything else is "".
func NormalizeJLPTLevel(level string) string {
	l := strings.ToUpper(strings.TrimSpace(level))
	l = strings.TrimPrefix(l, "JLPT")
	l = strings.TrimSpace(l)
	if len(l) == 1 {
		l = "N" + l
	}
	switch l {
	case "N1", "N2", "N3", "N4", "N5":
		return l
	}
	return ""
}

// normalizeImportWords trims fields, drops incomplete entries and keeps the
// first entry per (kanji, level).
func normalizeImportWords(words []models.ImportWord) []models.ImportWord {
	type key struct{ kanji, level string }
	seen := make(map[key]bool, len(words))

	out := make([]models.ImportWord, 0, len(words))
	for _, w := range words {
		w.Kanji = strings.TrimSpace(w.Kanji)
		w.Romaji = strings.ToLower(strings.TrimSpace(w.Romaji))
		w.Vietnamese = strings.TrimSpace(w.Vietnamese)
		w.JLPTLevel = NormalizeJLPTLevel(w.JLPTLevel)
		if w.Kanji == "" || w.Romaji == "" || w.Vietnamese == "" || w.JLPTLevel == "" {
			continue
		}
		if len(w.Parts) == 0 || string(w.Parts) == "null" {
			w.Parts = json.RawMessage("[]")
		}

		k := key{w.Kanji, w.JLPTLevel}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, w)
	}
	return out
}

type WordImporter interface {
	ImportGroup(ctx context.Context, name string, description *string, words []models.ImportWord) (*models.ImportResult, error)
}

type VocabularyGenerator interface {
	GenerateVocabulary(ctx context.Context, theme, level string, count int, sourceText string) (string, error)
}

type TextExtractor interface {
	ExtractTextFromPath(path string) (string, error)
}

type ImportService struct {
	words  WordImporter
	gen    VocabularyGenerator
	files  TextExtractor
	sheets *SpreadsheetImporter
	log    *zap.Logger
}

func NewImportService(words WordImporter, gen VocabularyGenerator, files TextExtractor, sheets *SpreadsheetImporter, log *zap.Logger) *ImportService {
	return &ImportService{words: words, gen: gen, files: files, sheets: sheets, log: log.Named("import")}
}

// Import stores a word list as a group.
func (s *ImportService) Import(ctx context.Context, groupName string, description *string, words []models.ImportWord) (*models.ImportResult, error) {
	groupName = strings.TrimSpace(groupName)
	if groupName == "" {
		return nil, invalid("group_name", "group name is required")
	}

	clean := normalizeImportWords(words)
	if len(clean) == 0 {
		return nil, invalid("words", "no complete words to import")
	}

	res, err := s.words.ImportGroup(ctx, groupName, description, clean)
	if err != nil {
		return nil, fmt.Errorf("import group %q: %w", groupName, err)
	}
	res.Skipped += len(words) - len(clean)

	s.log.Info("vocabulary imported",
		zap.Int64("group_id", res.GroupID),
		zap.Int("created", res.CreatedWords),
		zap.Int("reused", res.ReusedWords),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// ValidateGenerateRequest fills defaults and rejects unusable requests.
func ValidateGenerateRequest(req *models.GenerateVocabularyRequest) error {
	req.Theme = strings.TrimSpace(req.Theme)
	fields := map[string]string{}
	if req.Theme == "" {
		fields["theme"] = "theme is required"
	}

	if req.JLPTLevel == "" {
		req.JLPTLevel = "N5"
	}
	if level := NormalizeJLPTLevel(req.JLPTLevel); level == "" {
		fields["jlpt_level"] = "must be one of N1-N5"
	} else {
		req.JLPTLevel = level
	}

	switch {
	case req.Count == 0:
		req.Count = defaultVocabularyCount
	case req.Count < 0 || req.Count > maxVocabularyCount:
		fields["count"] = fmt.Sprintf("must be between 1 and %d", maxVocabularyCount)
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// GenerateAndImport asks the model for a themed list and imports it as
// "Từ vựng về chủ đề: <theme>".
func (s *ImportService) GenerateAndImport(ctx context.Context, req models.GenerateVocabularyRequest) (*models.ImportResult, error) {
	if err := ValidateGenerateRequest(&req); err != nil {
		return nil, err
	}

	source := ""
	if req.SourcePath != "" {
		text, err := s.files.ExtractTextFromPath(req.SourcePath)
		if err != nil {
			return nil, invalid("file", err.Error())
		}
		source = text
	}

	raw, err := s.gen.GenerateVocabulary(ctx, req.Theme, req.JLPTLevel, req.Count, source)
	if err != nil {
		return nil, err
	}

	words, err := ParseVocabularyJSON(raw)
	if err != nil {
		s.log.Warn("unparseable vocabulary output", zap.String("theme", req.Theme), zap.Int("bytes", len(raw)))
		return nil, err
	}

	description := fmt.Sprintf("Generated %s vocabulary about %s", req.JLPTLevel, req.Theme)
	return s.Import(ctx, generatedGroupPrefix+req.Theme, &description, words)
}

// ImportSpreadsheet imports an uploaded .xlsx word list.
func (s *ImportService) ImportSpreadsheet(ctx context.Context, groupName string, r io.Reader) (*models.ImportResult, error) {
	words, err := s.sheets.ReadWords(r)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return nil, err
		}
		return nil, invalid("file", err.Error())
	}
	return s.Import(ctx, groupName, nil, words)
}
