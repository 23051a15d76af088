package services

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/require"
)

func writeDOCX(t *testing.T, path, documentXML string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func TestFileExtractService_TXT(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("  駅  \r\n\r\n\r\n電車\r\n"), 0o644))

	text, err := NewFileExtractService(0).ExtractTextFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "駅\n\n電車", text)

	text, err = NewFileExtractService(1).ExtractTextFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "駅", text)
}

func TestFileExtractService_DOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lesson.docx")
	writeDOCX(t, path, `<w:document><w:body>`+
		`<w:p><w:r><w:t>食べる &amp; 飲む</w:t></w:r></w:p>`+
		`<w:p><w:ruby><w:rt><w:r><w:t>えき</w:t></w:r></w:rt><w:rubyBase><w:r><w:t>駅</w:t></w:r></w:rubyBase></w:ruby><w:r><w:tab/><w:t>station</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>Lesson</w:t><w:br/><w:t>ＡＢＣ１２３</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>- 2 -</w:t></w:r></w:p>`+
		`</w:body></w:document>`)

	text, err := NewFileExtractService(0).ExtractTextFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "食べる & 飲む\n駅 station\nLesson\nABC123", text)
}

func TestStudyText(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{
			name:  "inline readings after kanji",
			lines: []string{"食(た)べる to eat", "駅（えき） station", "(note) keep"},
			want:  "食べる to eat\n駅 station\n(note) keep",
		},
		{
			name:  "halfwidth katakana and fullwidth latin",
			lines: []string{"ｶﾀｶﾅ", "ＪＬＰＴ　Ｎ５"},
			want:  "カタカナ\nJLPT N5",
		},
		{
			name:  "page numbers and blank runs",
			lines: []string{"", "一", "", "", "12", "", "二", "p. 3"},
			want:  "一\n\n二",
		},
		{
			name:  "nothing left",
			lines: []string{" ", "- 4 -"},
			want:  "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, studyText(tc.lines))
		})
	}
}

func TestRowLines(t *testing.T) {
	rows := pdf.Rows{
		{Position: 500, Content: pdf.TextHorizontal{{S: "べる", X: 30}, {S: "食", X: 10}}},
		{Position: 700, Content: pdf.TextHorizontal{{S: "第1課", X: 10}}},
		{Position: 480, Content: pdf.TextHorizontal{{S: "飲む", X: 10}}},
	}

	require.Equal(t, []string{"第1課", "食べる", "飲む"}, rowLines(rows))
}

func TestFileExtractService_Unsupported(t *testing.T) {
	_, err := NewFileExtractService(0).ExtractTextFromPath("deck.pptx")
	require.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte(" \n "), 0o644))
	_, err = NewFileExtractService(0).ExtractTextFromPath(empty)
	require.Error(t, err)
}

func TestSupportedDocument(t *testing.T) {
	require.True(t, SupportedDocument("a.PDF"))
	require.True(t, SupportedDocument("notes.md"))
	require.True(t, SupportedDocument("b.docx"))
	require.False(t, SupportedDocument("words.xlsx"))
	require.False(t, SupportedDocument("noext"))
}
