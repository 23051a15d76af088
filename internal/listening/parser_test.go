package listening

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQuestions_NoBlocks(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"plain text", "Question: Where?\nOptions:\n1. A"},
		{"closing marker only", "</question>"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseQuestions(tc.text)
			require.NotNil(t, got)
			require.Empty(t, got)
		})
	}
}

func TestParseQuestions_StationExample(t *testing.T) {
	in := "<question>Question: Where is the station?\nOptions:\n1. Left\n2. Right\n3. Straight\nCorrectAnswer: 2</question>"

	got := ParseQuestions(in)
	require.Len(t, got, 1)

	q := got[0]
	require.Equal(t, 1, q.ID)
	require.Equal(t, "Where is the station?", q.Question)
	require.Equal(t, []string{"Left", "Right", "Straight"}, q.Options)
	require.NotNil(t, q.CorrectAnswer)
	require.Equal(t, "2", *q.CorrectAnswer)
	require.Equal(t, "", q.Conversation)
	require.Equal(t, "", q.Introduction)
}

func TestParseQuestions_FourOptionBlock(t *testing.T) {
	in := `preamble that should be ignored
<question>
Introduction:
会社で男の人と女の人が話しています。

Conversation:
男: 会議は何時からですか。
女: 3時からです。
Note: 資料を持ってきてください。

Question:
会議は何時からですか。

Options:
1. 1時
2. 2時
3. 3時
4. 4時
CorrectAnswer: 3
</question>`

	got := ParseQuestions(in)
	require.Len(t, got, 1)

	q := got[0]
	require.Equal(t, "会社で男の人と女の人が話しています。", q.Introduction)
	require.Equal(t, "男: 会議は何時からですか。\n女: 3時からです。\nNote: 資料を持ってきてください。", q.Conversation)
	require.Equal(t, "会議は何時からですか。", q.Question)
	require.Equal(t, []string{"1時", "2時", "3時", "4時"}, q.Options)
	require.Equal(t, "3", *q.CorrectAnswer)
}

func TestParseQuestions_ConversationKeepsLabelLikeLines(t *testing.T) {
	in := "<question>Conversation:\nA: hi\nOptions: not really options\nIntroduction: still dialogue\nQuestion: What?\nOptions:\n1. a\n2. b\n3. c\n4. d</question>"

	got := ParseQuestions(in)
	require.Len(t, got, 1)
	require.Equal(t, "A: hi\nOptions: not really options\nIntroduction: still dialogue", got[0].Conversation)
	require.Equal(t, "", got[0].Introduction)
	require.Len(t, got[0].Options, 4)
}

func TestParseQuestions_ThreeOptionBlock(t *testing.T) {
	tests := []struct {
		name      string
		intro     string
		wantIntro string
	}{
		{"strips numbering before 番", "1番 すみません、駅はどこですか。", "すみません、駅はどこですか。"},
		{"no 番 keeps introduction", "すみません、駅はどこですか。", "すみません、駅はどこですか。"},
		{"番 at end keeps introduction", "2番", "2番"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := fmt.Sprintf("<question>\nIntroduction:\n%s\nConversation:\n1. はい\n2. いいえ\n3. どうも\nQuestion:\n一番いいものはどれですか?\nOptions:\n1. はい\n2. いいえ\n3. どうも\nCorrectAnswer: 1\n</question>", tc.intro)

			got := ParseQuestions(in)
			require.Len(t, got, 1)
			require.Equal(t, "", got[0].Conversation)
			require.Equal(t, tc.wantIntro, got[0].Introduction)
			require.Len(t, got[0].Options, 3)
		})
	}
}

func TestParseQuestions_OptionLimitAndFormats(t *testing.T) {
	in := "<question>Question: Pick\nOptions:\n1. one\n2\n  3.three  \nnoise line\n4. four\n1. fifth\n</question>"

	got := ParseQuestions(in)
	require.Len(t, got, 1)
	require.Equal(t, []string{"one", "", "three", "four"}, got[0].Options)
}

func TestParseQuestions_OptionsStopAtCorrectAnswer(t *testing.T) {
	in := "<question>Question: Pick\nOptions:\n1. one\n2. two\ncorrectanswer: 2\n3. three\n</question>"

	got := ParseQuestions(in)
	require.Len(t, got, 1)
	require.Equal(t, []string{"one", "two"}, got[0].Options)
	require.Equal(t, "2", *got[0].CorrectAnswer)
}

func TestParseQuestions_CorrectAnswer(t *testing.T) {
	tests := []struct {
		name string
		line string
		want *string
	}{
		{"digit three", "CorrectAnswer: 3", strPtr("3")},
		{"next line", "CorrectAnswer:\n4", strPtr("4")},
		{"out of range", "CorrectAnswer: 7", nil},
		{"word", "CorrectAnswer: two", nil},
		{"absent", "", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := "<question>Question: Q\nOptions:\n1. a\n2. b\n3. c\n4. d\n" + tc.line + "</question>"
			got := ParseQuestions(in)
			require.Len(t, got, 1)
			require.Equal(t, tc.want, got[0].CorrectAnswer)
		})
	}
}

func TestParseQuestions_DropsBlocksWithoutQuestion(t *testing.T) {
	in := strings.Join([]string{
		"<question>Question: first\nOptions:\n1. a</question>",
		"<question>Introduction: nothing else</question>",
		"<question>Question:   \nOptions:\n1. a</question>",
		"<question>Question: second</question>",
	}, "\n")

	got := ParseQuestions(in)
	require.Len(t, got, 2)
	require.Equal(t, 1, got[0].ID)
	require.Equal(t, "first", got[0].Question)
	require.Equal(t, 2, got[1].ID)
	require.Equal(t, "second", got[1].Question)
	require.Empty(t, got[1].Options)
}

func TestParseQuestions_UnterminatedLastBlock(t *testing.T) {
	in := "<question>Question: one</question>\n<question>Question: two\nOptions:\n1. x\n2. y\n3. z\n4. w"

	got := ParseQuestions(in)
	require.Len(t, got, 2)
	require.Equal(t, "two", got[1].Question)
	require.Len(t, got[1].Options, 4)
}

func TestParseQuestions_GenericFieldStopsAtNextLabel(t *testing.T) {
	in := "<question>\r\nIntroduction: line one\r\nline two\r\nQuestion: Q?\r\nCorrectAnswer: 1\r\n</question>"

	got := ParseQuestions(in)
	require.Len(t, got, 1)
	require.Equal(t, "line one\nline two", got[0].Introduction)
	require.Equal(t, "Q?", got[0].Question)
	require.Equal(t, "1", *got[0].CorrectAnswer)
}

func TestParseQuestions_Deterministic(t *testing.T) {
	in := "<question>Introduction: i\nConversation: c\nQuestion: q\nOptions:\n1. a\n2. b\n3. c\n4. d\nCorrectAnswer: 4</question>"
	require.Equal(t, ParseQuestions(in), ParseQuestions(in))
}

func strPtr(s string) *string { return &s }

func TestParseQuestions_LabelOrder(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		question string
		options  []string
		correct  string
	}{
		{
			name:     "question before conversation",
			text:     "<question>Question: Q?\nConversation: A: hi\nB: yo\nOptions:\n1. a\n2. b\n3. c\n4. d\nCorrectAnswer: 4</question>",
			question: "Q?",
			options:  []string{"a", "b", "c", "d"},
			correct:  "4",
		},
		{
			name:     "conversation last",
			text:     "<question>Options:\n1. a\n2. b\n3. c\n4. d\nQuestion: Q?\nCorrectAnswer: 1\nConversation: 男: どこ？</question>",
			question: "Q?",
			options:  []string{"a", "b", "c", "d"},
			correct:  "1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseQuestions(tc.text)
			require.Len(t, got, 1)

			q := got[0]
			require.Equal(t, tc.question, q.Question)
			require.Empty(t, q.Conversation)
			require.Equal(t, tc.options, q.Options)
			require.NotNil(t, q.CorrectAnswer)
			require.Equal(t, tc.correct, *q.CorrectAnswer)
		})
	}
}

func TestParseQuestions_ConversationWithoutFollowingQuestion(t *testing.T) {
	in := "<question>Introduction: 1番 駅で\nQuestion: どこ？\nConversation: 男: すみません\n女: はい\nCorrectAnswer: 3</question>"

	got := ParseQuestions(in)
	require.Len(t, got, 1)
	require.Equal(t, "1番 駅で", got[0].Introduction)
	require.Empty(t, got[0].Conversation)
	require.Empty(t, got[0].Options)
	require.NotNil(t, got[0].CorrectAnswer)
	require.Equal(t, "3", *got[0].CorrectAnswer)
}

func TestParseQuestions_LabelsOnlyAtLineStart(t *testing.T) {
	in := "<question>Introduction: 駅で Conversation: not a label here\nQuestion: どこ？\nOptions:\n1. a\n2. b\n3. c\n4. d</question>"

	got := ParseQuestions(in)
	require.Len(t, got, 1)
	require.Equal(t, "駅で Conversation: not a label here", got[0].Introduction)
	require.Empty(t, got[0].Conversation)
}
