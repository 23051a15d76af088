package listening

import (
	"regexp"
	"strconv"
	"strings"
)

// Section is one 問題 block of a JLPT listening transcript.
type Section struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

var (
	splitNumberPattern = regexp.MustCompile(`([0-9０-９]+)\s*\n+\s*番`)
	mondaiPattern      = regexp.MustCompile(`(問題[1-7])`)
	chooseNumberRe     = regexp.MustCompile(`(選んでください)\s*([0-9０-９]+番)`)
	sectionStartRe     = regexp.MustCompile(`\n問題[1-7]`)
	mondaiNumberRe     = regexp.MustCompile(`問題([1-7])`)
	whitespaceRe       = regexp.MustCompile(`\s+`)
)

// NormalizeTranscript prepares raw caption text for sectioning: unified line
// endings, ideographic spaces as ASCII, "1\n番" joined, and a line break in
// front of every 問題N heading and every "選んでください N番" boundary.
func NormalizeTranscript(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\u3000", " ")
	text = splitNumberPattern.ReplaceAllString(text, "${1}番")
	text = mondaiPattern.ReplaceAllString(text, "\n${1}")
	text = chooseNumberRe.ReplaceAllString(text, "${1}\n${2}")
	return text
}

// SplitSections cuts a transcript into 問題 sections. A chunk without a
// 問題N heading is dropped; when a number repeats the later chunk wins.
func SplitSections(transcript string) []Section {
	text := NormalizeTranscript(transcript)

	var chunks []string
	start := 0
	for _, loc := range sectionStartRe.FindAllStringIndex(text, -1) {
		chunks = append(chunks, text[start:loc[0]])
		start = loc[0] + 1
	}
	chunks = append(chunks, text[start:])

	var sections []Section
	index := make(map[int]int)
	for _, chunk := range chunks {
		m := mondaiNumberRe.FindStringSubmatch(chunk)
		if len(m) < 2 {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		s := Section{Number: n, Text: strings.TrimSpace(chunk)}
		if i, ok := index[n]; ok {
			sections[i] = s
			continue
		}
		index[n] = len(sections)
		sections = append(sections, s)
	}

	return sections
}

// CleanText collapses all whitespace runs to a single space.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\u3000", " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
