package listening

import (
	"strings"

	"zenstudy-backend/internal/models"
)

const (
	openMarker  = "<question>"
	closeMarker = "</question>"

	maxOptions = 4
)

type label int

const (
	labelNone label = iota
	labelIntroduction
	labelConversation
	labelQuestion
	labelOptions
	labelCorrectAnswer
)

var labels = []struct {
	name string
	kind label
	fold bool
}{
	{"Introduction", labelIntroduction, false},
	{"Conversation", labelConversation, false},
	{"Question", labelQuestion, false},
	{"Options", labelOptions, false},
	{"CorrectAnswer", labelCorrectAnswer, true},
}

type segment struct {
	kind  label
	lines []string
}

func (s segment) text() string {
	return strings.TrimSpace(strings.Join(s.lines, "\n"))
}

// ParseQuestions extracts every <question> block of text. Blocks without a
// question are dropped and ids are assigned over the accepted blocks only.
// It never panics and returns an empty slice when nothing is found.
func ParseQuestions(text string) []models.Question {
	questions := []models.Question{}

	blocks := strings.Split(text, openMarker)
	for _, block := range blocks[1:] {
		content := block
		if end := strings.Index(block, closeMarker); end >= 0 {
			content = block[:end]
		}

		q, ok := parseBlock(content)
		if !ok {
			continue
		}
		q.ID = len(questions) + 1
		questions = append(questions, q)
	}

	return questions
}

func parseBlock(content string) (q models.Question, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			q, ok = models.Question{}, false
		}
	}()

	segments := tokenize(content)

	introduction := extract(func() string { return segments.value(labelIntroduction) })
	conversation := extract(func() string { return segments.value(labelConversation) })
	question := extract(func() string { return segments.value(labelQuestion) })

	var options []string
	extract(func() string {
		options = parseOptions(segments.first(labelOptions))
		return ""
	})
	if options == nil {
		options = []string{}
	}

	var correct *string
	extract(func() string {
		correct = parseCorrectAnswer(segments.first(labelCorrectAnswer))
		return ""
	})

	if question == "" {
		return models.Question{}, false
	}

	// Response-type items carry their choices in the conversation slot and
	// number the introduction ("1番 ...").
	if len(options) == 3 {
		conversation = ""
		if pos := strings.Index(introduction, "番"); pos >= 0 {
			if rest := introduction[pos+len("番"):]; rest != "" {
				introduction = strings.TrimSpace(rest)
			}
		}
	}

	return models.Question{
		Introduction:  introduction,
		Conversation:  conversation,
		Question:      question,
		Options:       options,
		CorrectAnswer: correct,
	}, true
}

// extract runs one field extraction; a fault counts as "field not found".
func extract(fn func() string) (v string) {
	defer func() {
		if r := recover(); r != nil {
			v = ""
		}
	}()
	return fn()
}

type segments []segment

func (s segments) first(kind label) *segment {
	for i := range s {
		if s[i].kind == kind {
			return &s[i]
		}
	}
	return nil
}

func (s segments) value(kind label) string {
	seg := s.first(kind)
	if seg == nil {
		return ""
	}
	return seg.text()
}

// tokenize splits a block into labeled segments. A label is recognised only at
// the start of a line. Inside a conversation only a Question label ends the
// segment, so dialogue lines that happen to look like labels are kept. A
// conversation with no Question line after it is left empty and the labels
// that follow start their own segments.
func tokenize(content string) segments {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")

	var out segments
	current := segment{kind: labelNone}
	flush := func() {
		if current.kind != labelNone {
			out = append(out, current)
		}
	}

	for i, line := range lines {
		kind, rest := matchLabel(line)
		if kind != labelNone && current.kind == labelConversation && kind != labelQuestion {
			kind = labelNone
		}

		if kind == labelNone {
			current.lines = append(current.lines, line)
			continue
		}

		flush()
		if kind == labelConversation && !questionFollows(lines[i+1:]) {
			out = append(out, segment{kind: labelConversation})
			current = segment{kind: labelNone}
			continue
		}
		current = segment{kind: kind, lines: []string{rest}}
	}
	flush()

	return out
}

func questionFollows(lines []string) bool {
	for _, line := range lines {
		if kind, _ := matchLabel(line); kind == labelQuestion {
			return true
		}
	}
	return false
}

func matchLabel(line string) (label, string) {
	trimmed := strings.TrimLeft(line, " \t")
	for _, l := range labels {
		prefix := l.name + ":"
		if len(trimmed) < len(prefix) {
			continue
		}
		head := trimmed[:len(prefix)]
		if head == prefix || (l.fold && strings.EqualFold(head, prefix)) {
			return l.kind, trimmed[len(prefix):]
		}
	}
	return labelNone, ""
}

func parseOptions(seg *segment) []string {
	if seg == nil {
		return nil
	}

	options := []string{}
	for _, line := range seg.lines {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		if kind, _ := matchLabel(t); kind == labelCorrectAnswer {
			break
		}
		if isOptionLine(t) {
			options = append(options, stripNumeral(t))
		}
		if len(options) == maxOptions {
			break
		}
	}
	return options
}

func isOptionLine(t string) bool {
	if t == "" || t[0] < '1' || t[0] > '4' {
		return false
	}
	return len(t) == 1 || t[1] == '.'
}

func stripNumeral(t string) string {
	t = t[1:]
	t = strings.TrimPrefix(t, ".")
	return strings.TrimSpace(t)
}

func parseCorrectAnswer(seg *segment) *string {
	if seg == nil {
		return nil
	}
	v := seg.text()
	if v == "" || v[0] < '1' || v[0] > '4' {
		return nil
	}
	answer := v[:1]
	return &answer
}
