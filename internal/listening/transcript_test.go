package listening

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitSections(t *testing.T) {
	transcript := "はじめます。問題1 では始めます。1\n番 男の人が話しています。問題2 ポイント理解\r\n2番 女の人が話しています。問題3　概要理解"

	got := SplitSections(transcript)
	require.Len(t, got, 3)

	require.Equal(t, 1, got[0].Number)
	require.Equal(t, "問題1 では始めます。1番 男の人が話しています。", got[0].Text)

	require.Equal(t, 2, got[1].Number)
	require.Equal(t, "問題2 ポイント理解\n2番 女の人が話しています。", got[1].Text)

	require.Equal(t, 3, got[2].Number)
	require.Equal(t, "問題3 概要理解", got[2].Text)
}

func TestSplitSections_DropsPreambleAndRepeats(t *testing.T) {
	transcript := "intro only\n問題1 first\n問題1 second"

	got := SplitSections(transcript)
	require.Len(t, got, 1)
	require.Equal(t, "問題1 second", got[0].Text)
}

func TestSplitSections_NoHeadings(t *testing.T) {
	require.Empty(t, SplitSections("no sections here"))
}

func TestNormalizeTranscript_ChooseBoundary(t *testing.T) {
	got := NormalizeTranscript("一番いいものを選んでください 2番 次の問題")
	require.Equal(t, "一番いいものを選んでください\n2番 次の問題", got)
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  a \n\n b\t c  ", "a b c"},
		{"男の人　が　　話す", "男の人 が 話す"},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			require.Equal(t, tc.want, CleanText(tc.in))
		})
	}
}
